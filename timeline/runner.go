package timeline

import (
	"log"
	"sync"
	"time"

	"github.com/rs/xid"
)

// A Runner executes one Definition against a Scheduler, advancing step by
// step and notifying subscribed sinks synchronously each time a step fires.
//
// A runner owns no goroutine of its own. Each step fire is a single
// scheduled callback, and the runner's own steps are strictly serialized;
// steps of distinct runners interleave freely. All operations are total:
// Start, Cancel and Reset never fail, they degrade to no-ops where the
// current state makes them meaningless.
type Runner struct {
	SinkBase

	id    string
	def   *Definition
	sched Scheduler

	lock          sync.Mutex
	state         RunState
	stepIndex     int
	generation    uint64
	cancelPending CancelFunc
	jitter        Jitter
}

// NewRunner creates a Runner in StateIdle. The definition is shared
// read-only and may back many runners at once.
func NewRunner(def *Definition, sched Scheduler) *Runner {
	return &Runner{
		id:    xid.New().String(),
		def:   def,
		sched: sched,
		state: StateIdle,
	}
}

// WithJitter sets a delay perturbation source. The default is none, which
// keeps every run exactly reproducible.
func (r *Runner) WithJitter(j Jitter) *Runner {
	r.jitter = j
	return r
}

// WithFaultLogger sets the logger that receives reports about panicking
// sinks.
func (r *Runner) WithFaultLogger(logger *log.Logger) *Runner {
	r.faultLogger = logger
	return r
}

// ID returns the runner's unique ID.
func (r *Runner) ID() string {
	return r.id
}

// Definition returns the definition the runner executes.
func (r *Runner) Definition() *Definition {
	return r.def
}

// State returns the current simulated state.
func (r *Runner) State() RunState {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.state
}

// StepIndex returns the number of steps that have fired in the current run.
func (r *Runner) StepIndex() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.stepIndex
}

// Start begins executing from step 0. Starting from a terminal state resets
// the runner first. Start is a no-op while a run is active, so at most one
// run per runner is in flight at any time. Start returns immediately; the
// first step fires after its own delay.
func (r *Runner) Start() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.runActive() {
		return
	}

	r.state = StateIdle
	r.stepIndex = 0
	r.generation++
	r.scheduleNext()
}

// Cancel interrupts an active run: the pending step fire is suppressed, the
// runner returns to StateIdle with its step index at 0, and a single
// cancellation event is emitted. Cancel is a no-op when the runner is idle
// or in a terminal state. Cancellation always wins against a racing step
// fire; no step event is emitted after Cancel returns.
func (r *Runner) Cancel() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if !r.runActive() {
		return
	}

	r.interrupt()
}

// Reset returns the runner to StateIdle from any state, including terminal
// ones. Interrupting a live run behaves exactly like Cancel; resetting an
// idle or finished runner is silent.
func (r *Runner) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.runActive() {
		r.interrupt()
		return
	}

	r.generation++
	r.state = StateIdle
	r.stepIndex = 0
}

// runActive reports whether a run is in flight. A run whose first step has
// not fired yet counts as active, which is what prevents double Start.
// Caller holds the lock.
func (r *Runner) runActive() bool {
	return r.state == StateRunning ||
		r.state == StateSuspended ||
		r.cancelPending != nil
}

// interrupt stops the active run and emits the cancellation event. Caller
// holds the lock.
func (r *Runner) interrupt() {
	r.generation++

	if r.cancelPending != nil {
		r.cancelPending()
		r.cancelPending = nil
	}

	r.state = StateIdle
	r.stepIndex = 0

	r.publish(LogEvent{
		Seq:       nextEventSeq(),
		Time:      time.Now(),
		RunnerID:  r.id,
		PatternID: r.def.ID(),
		Step:      -1,
		State:     StateIdle,
		Message:   "run cancelled",
	})
}

// scheduleNext arms the fire for the step at stepIndex. Caller holds the
// lock.
func (r *Runner) scheduleNext() {
	step := r.def.Step(r.stepIndex)
	gen := r.generation

	r.cancelPending = r.sched.AfterFunc(r.stepDelay(step), func() {
		r.fire(gen)
	})
}

func (r *Runner) stepDelay(step Step) time.Duration {
	if r.jitter == nil {
		return step.Delay
	}

	return r.jitter.Apply(step.Delay)
}

// fire executes one step: commit the transition, notify sinks, arm the next
// step. A fire from a superseded run (cancelled, reset or restarted) finds
// its generation stale and returns without any effect.
func (r *Runner) fire(gen uint64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if gen != r.generation {
		return
	}

	step := r.def.Step(r.stepIndex)
	firedIndex := r.stepIndex

	r.state = step.ToState
	r.stepIndex++

	if r.state.Terminal() {
		r.cancelPending = nil
	} else {
		r.scheduleNext()
	}

	r.publish(LogEvent{
		Seq:       nextEventSeq(),
		Time:      time.Now(),
		RunnerID:  r.id,
		PatternID: r.def.ID(),
		Step:      firedIndex,
		State:     r.state,
		Message:   step.Message,
		Payload:   step.Payload,
	})
}
