package timeline

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

type recordingSink struct {
	events []LogEvent
}

func (s *recordingSink) OnEvent(evt LogEvent) {
	s.events = append(s.events, evt)
}

func (s *recordingSink) states() []RunState {
	states := make([]RunState, 0, len(s.events))
	for _, evt := range s.events {
		states = append(states, evt.State)
	}

	return states
}

type panickingSink struct{}

func (panickingSink) OnEvent(LogEvent) {
	panic("misbehaving sink")
}

var _ = Describe("Runner", func() {
	var (
		mockCtrl *gomock.Controller
		sched    *VirtualScheduler
		def      *Definition
		runner   *Runner
		sink     *recordingSink
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		sched = NewVirtualScheduler()
		def = MakeDefinitionBuilder().
			WithID("launch").
			WithStep(0, "started", StateRunning).
			WithPayloadStep(40*time.Millisecond, "working", StateRunning, "job #1").
			WithStep(30*time.Millisecond, "suspended at delay", StateSuspended).
			WithStep(50*time.Millisecond, "done", StateCompleted).
			MustBuild()

		runner = NewRunner(def, sched)
		sink = &recordingSink{}
		runner.Subscribe(sink)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start in Idle", func() {
		Expect(runner.State()).To(Equal(StateIdle))
		Expect(runner.StepIndex()).To(Equal(0))
	})

	It("should fire one event per step, in step order", func() {
		runner.Start()
		sched.AdvanceToEnd()

		Expect(sink.events).To(HaveLen(def.Len()))
		Expect(sink.states()).To(Equal([]RunState{
			StateRunning, StateRunning, StateSuspended, StateCompleted,
		}))

		for i, evt := range sink.events {
			Expect(evt.Step).To(Equal(i))
			Expect(evt.Message).To(Equal(def.Step(i).Message))
		}

		Expect(sink.events[1].Payload).To(Equal("job #1"))
		Expect(runner.State()).To(Equal(StateCompleted))
		Expect(runner.StepIndex()).To(Equal(def.Len()))
	})

	It("should stamp events with monotonically increasing sequence numbers", func() {
		runner.Start()
		sched.AdvanceToEnd()

		for i := 1; i < len(sink.events); i++ {
			Expect(sink.events[i].Seq).To(
				BeNumerically(">", sink.events[i-1].Seq))
		}
	})

	It("should ignore Start while a run is active", func() {
		mockSink := NewMockSink(mockCtrl)
		mockSink.EXPECT().OnEvent(gomock.Any()).Times(def.Len())
		runner.Subscribe(mockSink)

		runner.Start()
		sched.Advance(10 * time.Millisecond)
		runner.Start()
		runner.Start()
		sched.AdvanceToEnd()

		Expect(runner.State()).To(Equal(StateCompleted))
	})

	It("should cancel a run and suppress the pending fire", func() {
		runner.Start()
		sched.Advance(45 * time.Millisecond)

		runner.Cancel()
		sched.AdvanceToEnd()

		Expect(runner.State()).To(Equal(StateIdle))
		Expect(runner.StepIndex()).To(Equal(0))

		last := sink.events[len(sink.events)-1]
		Expect(last.Step).To(Equal(-1))
		Expect(last.Message).To(Equal("run cancelled"))
		Expect(sink.events).To(HaveLen(3))
	})

	It("should ignore Cancel when idle or finished", func() {
		runner.Cancel()
		Expect(sink.events).To(BeEmpty())

		runner.Start()
		sched.AdvanceToEnd()
		firedCount := len(sink.events)

		runner.Cancel()
		Expect(sink.events).To(HaveLen(firedCount))
		Expect(runner.State()).To(Equal(StateCompleted))
	})

	It("should replay identically after Reset from a terminal state", func() {
		runner.Start()
		sched.AdvanceToEnd()

		firstRun := append([]LogEvent{}, sink.events...)
		sink.events = nil

		runner.Reset()
		Expect(runner.State()).To(Equal(StateIdle))
		Expect(runner.StepIndex()).To(Equal(0))

		runner.Start()
		sched.AdvanceToEnd()

		Expect(sink.events).To(HaveLen(len(firstRun)))
		for i := range sink.events {
			Expect(sink.events[i].Step).To(Equal(firstRun[i].Step))
			Expect(sink.events[i].State).To(Equal(firstRun[i].State))
			Expect(sink.events[i].Message).To(Equal(firstRun[i].Message))
		}
	})

	It("should auto-reset when started from a terminal state", func() {
		runner.Start()
		sched.AdvanceToEnd()
		Expect(runner.State()).To(Equal(StateCompleted))

		runner.Start()
		sched.AdvanceToEnd()

		Expect(sink.events).To(HaveLen(2 * def.Len()))
		Expect(runner.State()).To(Equal(StateCompleted))
	})

	It("should stop delivering to unsubscribed sinks", func() {
		second := &recordingSink{}
		runner.Subscribe(second)

		runner.Start()
		sched.Advance(0)

		runner.Unsubscribe(second)
		sched.AdvanceToEnd()

		Expect(second.events).To(HaveLen(1))
		Expect(sink.events).To(HaveLen(def.Len()))
	})

	It("should isolate a panicking sink from well-behaved ones", func() {
		runner.Unsubscribe(sink)
		runner.Subscribe(panickingSink{})
		runner.Subscribe(sink)

		runner.Start()
		sched.AdvanceToEnd()

		Expect(sink.events).To(HaveLen(def.Len()))
		Expect(runner.State()).To(Equal(StateCompleted))
	})

	It("should stop at a mid-sequence terminal step", func() {
		failing := MakeDefinitionBuilder().
			WithID("fails-early").
			WithStep(0, "started", StateRunning).
			WithStep(10*time.Millisecond, "exception thrown", StateError).
			WithStep(10*time.Millisecond, "unreachable", StateCompleted).
			MustBuild()

		r := NewRunner(failing, sched)
		s := &recordingSink{}
		r.Subscribe(s)

		r.Start()
		sched.AdvanceToEnd()

		Expect(s.events).To(HaveLen(2))
		Expect(r.State()).To(Equal(StateError))
	})

	It("should keep independent runners independent", func() {
		other := NewRunner(def, sched)
		otherSink := &recordingSink{}
		other.Subscribe(otherSink)

		runner.Start()
		other.Start()
		sched.Advance(45 * time.Millisecond)

		other.Cancel()
		sched.AdvanceToEnd()

		Expect(runner.State()).To(Equal(StateCompleted))
		Expect(sink.events).To(HaveLen(def.Len()))
		Expect(other.State()).To(Equal(StateIdle))
		Expect(len(otherSink.events)).To(BeNumerically("<", len(sink.events)))
	})

	It("should schedule each step with its own delay", func() {
		mockSched := NewMockScheduler(mockCtrl)
		r := NewRunner(def, mockSched)

		var fire func()
		noopCancel := CancelFunc(func() bool { return true })

		gomock.InOrder(
			mockSched.EXPECT().
				AfterFunc(time.Duration(0), gomock.Any()).
				DoAndReturn(func(_ time.Duration, f func()) CancelFunc {
					fire = f
					return noopCancel
				}),
			mockSched.EXPECT().
				AfterFunc(40*time.Millisecond, gomock.Any()).
				DoAndReturn(func(_ time.Duration, f func()) CancelFunc {
					fire = f
					return noopCancel
				}),
			mockSched.EXPECT().
				AfterFunc(30*time.Millisecond, gomock.Any()).
				DoAndReturn(func(_ time.Duration, f func()) CancelFunc {
					fire = f
					return noopCancel
				}),
			mockSched.EXPECT().
				AfterFunc(50*time.Millisecond, gomock.Any()).
				DoAndReturn(func(_ time.Duration, f func()) CancelFunc {
					fire = f
					return noopCancel
				}),
		)

		r.Start()
		for i := 0; i < def.Len(); i++ {
			fire()
		}

		Expect(r.State()).To(Equal(StateCompleted))
	})
})

var _ = Describe("RandomJitter", func() {
	It("should be reproducible for a fixed seed", func() {
		a := NewRandomJitter(42, 0.25)
		b := NewRandomJitter(42, 0.25)

		for i := 0; i < 10; i++ {
			d := time.Duration(i+1) * 10 * time.Millisecond
			Expect(a.Apply(d)).To(Equal(b.Apply(d)))
		}
	})

	It("should never shrink a delay and keep zero at zero", func() {
		j := NewRandomJitter(1, 0.5)

		Expect(j.Apply(0)).To(Equal(time.Duration(0)))

		for i := 0; i < 100; i++ {
			d := 20 * time.Millisecond
			stretched := j.Apply(d)
			Expect(stretched).To(BeNumerically(">=", d))
			Expect(stretched).To(BeNumerically("<=", 30*time.Millisecond))
		}
	})
})
