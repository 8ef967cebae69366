package timeline

import (
	"sync/atomic"
	"time"
)

// A LogEvent is emitted every time a runner fires a step or is cancelled.
// Sinks receive LogEvents synchronously, in firing order.
type LogEvent struct {
	// Seq is monotonically increasing within one process lifetime, across
	// all runners.
	Seq uint64 `json:"seq"`

	// Time is the wall-clock time the event was produced.
	Time time.Time `json:"time"`

	// RunnerID identifies the runner instance that produced the event.
	RunnerID string `json:"runnerID"`

	// PatternID is the ID of the definition the runner is executing.
	PatternID string `json:"patternID"`

	// Step is the index of the step that fired. It is -1 for cancellation
	// events, which do not belong to any step.
	Step int `json:"step"`

	State   RunState `json:"state"`
	Message string   `json:"message"`
	Payload any      `json:"payload,omitempty"`
}

var eventSeq atomic.Uint64

func nextEventSeq() uint64 {
	return eventSeq.Add(1)
}
