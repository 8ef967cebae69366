package dashboard

import (
	"sync"

	"github.com/corolab/coroviz/timeline"
)

// A Journal is the aggregated, bounded log view behind the page's log
// panel. It keeps the most recent events across all runners, in emission
// order.
type Journal struct {
	lock     sync.Mutex
	capacity int
	entries  []timeline.LogEvent
}

// NewJournal creates a Journal retaining up to capacity events.
func NewJournal(capacity int) *Journal {
	return &Journal{capacity: capacity}
}

// OnEvent records the event, evicting the oldest one when full.
func (j *Journal) OnEvent(evt timeline.LogEvent) {
	j.lock.Lock()
	defer j.lock.Unlock()

	j.entries = append(j.entries, evt)
	if len(j.entries) > j.capacity {
		j.entries = j.entries[len(j.entries)-j.capacity:]
	}
}

// Since returns all retained events with a sequence number greater than
// seq. Since(0) returns everything retained.
func (j *Journal) Since(seq uint64) []timeline.LogEvent {
	j.lock.Lock()
	defer j.lock.Unlock()

	events := make([]timeline.LogEvent, 0, len(j.entries))
	for _, evt := range j.entries {
		if evt.Seq > seq {
			events = append(events, evt)
		}
	}

	return events
}

// Len returns the number of retained events.
func (j *Journal) Len() int {
	j.lock.Lock()
	defer j.lock.Unlock()

	return len(j.entries)
}
