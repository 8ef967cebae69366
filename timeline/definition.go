package timeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDefinition is wrapped by every error returned from Definition
// construction. Construction is the only place a definition can fail; a
// definition that builds successfully never causes an error mid-run.
var ErrInvalidDefinition = errors.New("invalid timeline definition")

// A Step is one atomic unit of simulated progress within a pattern's
// timeline.
type Step struct {
	// Delay is the simulated wait before this step fires.
	Delay time.Duration

	// Message describes what happens at this step.
	Message string

	// ToState is the state the owning runner transitions into when this
	// step fires.
	ToState RunState

	// Payload carries a semantic value associated with the step, such as an
	// emitted flow value or a thread label. It is opaque to the engine and
	// passed through to sinks unmodified.
	Payload any
}

// A Definition is the declarative description of one simulated coroutine
// pattern. Definitions are immutable after construction and can be shared
// read-only across arbitrarily many runners.
type Definition struct {
	id    string
	steps []Step
}

// NewDefinition validates and creates a Definition. The steps slice is
// copied, so the caller may reuse it.
func NewDefinition(id string, steps []Step) (*Definition, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty pattern ID", ErrInvalidDefinition)
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: pattern %q has no steps",
			ErrInvalidDefinition, id)
	}

	for i, s := range steps {
		if s.Delay < 0 {
			return nil, fmt.Errorf("%w: pattern %q, step %d: negative delay %s",
				ErrInvalidDefinition, id, i, s.Delay)
		}
	}

	last := steps[len(steps)-1]
	if !last.ToState.Terminal() {
		return nil, fmt.Errorf(
			"%w: pattern %q: final step must end in a terminal state, got %s",
			ErrInvalidDefinition, id, last.ToState)
	}

	d := &Definition{
		id:    id,
		steps: make([]Step, len(steps)),
	}
	copy(d.steps, steps)

	return d, nil
}

// ID identifies which simulated pattern this definition describes.
func (d *Definition) ID() string {
	return d.id
}

// Len returns the number of steps.
func (d *Definition) Len() int {
	return len(d.steps)
}

// Step returns the i-th step.
func (d *Definition) Step(i int) Step {
	return d.steps[i]
}

// Steps returns a copy of the step sequence.
func (d *Definition) Steps() []Step {
	steps := make([]Step, len(d.steps))
	copy(steps, d.steps)

	return steps
}

// DefinitionBuilder builds Definitions step by step.
type DefinitionBuilder struct {
	id    string
	steps []Step
}

// MakeDefinitionBuilder creates a DefinitionBuilder.
func MakeDefinitionBuilder() DefinitionBuilder {
	return DefinitionBuilder{}
}

// WithID sets the pattern ID of the definition to build.
func (b DefinitionBuilder) WithID(id string) DefinitionBuilder {
	b.id = id
	return b
}

// WithStep appends a step without a payload.
func (b DefinitionBuilder) WithStep(
	delay time.Duration,
	message string,
	toState RunState,
) DefinitionBuilder {
	return b.WithPayloadStep(delay, message, toState, nil)
}

// WithPayloadStep appends a step that carries a payload.
func (b DefinitionBuilder) WithPayloadStep(
	delay time.Duration,
	message string,
	toState RunState,
	payload any,
) DefinitionBuilder {
	steps := make([]Step, len(b.steps), len(b.steps)+1)
	copy(steps, b.steps)
	b.steps = append(steps, Step{
		Delay:   delay,
		Message: message,
		ToState: toState,
		Payload: payload,
	})

	return b
}

// Build validates and creates the Definition.
func (b DefinitionBuilder) Build() (*Definition, error) {
	return NewDefinition(b.id, b.steps)
}

// MustBuild is Build for statically-known definitions. It panics on
// validation failure.
func (b DefinitionBuilder) MustBuild() *Definition {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}

	return d
}
