package timeline

import (
	"container/heap"
	"sync"
	"time"
)

// A CancelFunc cancels a scheduled invocation. It reports whether the
// invocation was suppressed before it fired. Calling it more than once is
// allowed.
type CancelFunc func() bool

// A Scheduler is the single environmental capability the engine depends on:
// invoke a callback after a delay, with support for cancelling a
// not-yet-fired invocation.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) CancelFunc
}

// RealTimeScheduler schedules callbacks on the wall clock.
type RealTimeScheduler struct{}

// NewRealTimeScheduler creates a RealTimeScheduler.
func NewRealTimeScheduler() *RealTimeScheduler {
	return &RealTimeScheduler{}
}

// AfterFunc arms a timer that runs f in its own goroutine after d.
func (s *RealTimeScheduler) AfterFunc(
	d time.Duration,
	f func(),
) CancelFunc {
	t := time.AfterFunc(d, f)
	return t.Stop
}

// VirtualScheduler schedules callbacks on a virtual clock that only moves
// when the owner calls Advance. Callbacks fire in delay order, on the
// goroutine that advances the clock, which makes runs fully deterministic.
type VirtualScheduler struct {
	lock  sync.Mutex
	now   time.Duration
	queue callQueue
	seq   uint64
}

// NewVirtualScheduler creates a VirtualScheduler with its clock at zero.
func NewVirtualScheduler() *VirtualScheduler {
	s := new(VirtualScheduler)
	heap.Init(&s.queue)

	return s
}

// AfterFunc registers f to fire when the virtual clock has advanced by d.
func (s *VirtualScheduler) AfterFunc(
	d time.Duration,
	f func(),
) CancelFunc {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.seq++
	call := &scheduledCall{
		at:  s.now + d,
		seq: s.seq,
		fn:  f,
	}
	heap.Push(&s.queue, call)

	return func() bool {
		s.lock.Lock()
		defer s.lock.Unlock()

		if call.fired || call.cancelled {
			return false
		}

		call.cancelled = true

		return true
	}
}

// Now returns the current virtual time.
func (s *VirtualScheduler) Now() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.now
}

// Pending returns the number of scheduled, not-yet-fired callbacks.
func (s *VirtualScheduler) Pending() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	n := 0
	for _, c := range s.queue {
		if !c.cancelled {
			n++
		}
	}

	return n
}

// Advance moves the virtual clock forward by d, firing every due callback
// in order. Callbacks may schedule further callbacks; those fire too if
// they fall within the advanced window.
func (s *VirtualScheduler) Advance(d time.Duration) {
	s.lock.Lock()
	target := s.now + d

	for {
		call := s.popDue(target)
		if call == nil {
			break
		}

		s.now = call.at
		call.fired = true

		s.lock.Unlock()
		call.fn()
		s.lock.Lock()
	}

	s.now = target
	s.lock.Unlock()
}

// AdvanceToEnd keeps advancing until no callbacks remain.
func (s *VirtualScheduler) AdvanceToEnd() {
	for {
		s.lock.Lock()
		call := s.queue.peekLive()
		if call == nil {
			s.lock.Unlock()
			return
		}

		d := call.at - s.now
		s.lock.Unlock()

		s.Advance(d)
	}
}

func (s *VirtualScheduler) popDue(target time.Duration) *scheduledCall {
	for s.queue.Len() > 0 {
		call := s.queue[0]
		if call.at > target {
			return nil
		}

		heap.Pop(&s.queue)

		if call.cancelled {
			continue
		}

		return call
	}

	return nil
}

type scheduledCall struct {
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
	fired     bool
}

// callQueue orders scheduled calls by due time, then by registration order
// for calls due at the same instant.
type callQueue []*scheduledCall

func (q callQueue) Len() int {
	return len(q)
}

func (q callQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}

	return q[i].seq < q[j].seq
}

func (q callQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *callQueue) Push(x any) {
	*q = append(*q, x.(*scheduledCall))
}

func (q *callQueue) Pop() any {
	old := *q
	n := len(old)
	call := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]

	return call
}

func (q callQueue) peekLive() *scheduledCall {
	var earliest *scheduledCall

	for _, c := range q {
		if c.cancelled || c.fired {
			continue
		}

		if earliest == nil ||
			c.at < earliest.at ||
			(c.at == earliest.at && c.seq < earliest.seq) {
			earliest = c
		}
	}

	return earliest
}
