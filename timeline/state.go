package timeline

import (
	"encoding/json"
	"fmt"
)

// RunState is the simulated execution state of a Runner.
type RunState int

// The states a simulated coroutine moves through. Every runner starts in
// StateIdle. StateCompleted and StateError are terminal.
const (
	StateIdle RunState = iota
	StateRunning
	StateSuspended
	StateCompleted
	StateError
)

var stateNames = map[RunState]string{
	StateIdle:      "idle",
	StateRunning:   "running",
	StateSuspended: "suspended",
	StateCompleted: "completed",
	StateError:     "error",
}

func (s RunState) String() string {
	name, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("RunState(%d)", int(s))
	}

	return name
}

// Terminal reports whether no further steps can fire once s is reached.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// MarshalJSON encodes the state by name so that API consumers never see the
// numeric representation.
func (s RunState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state encoded by MarshalJSON.
func (s *RunState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	parsed, err := ParseRunState(name)
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseRunState maps a state name, as used in pattern files, back to a
// RunState.
func ParseRunState(name string) (RunState, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}

	return StateIdle, fmt.Errorf("unknown run state %q", name)
}
