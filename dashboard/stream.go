package dashboard

import (
	"sync"

	"github.com/corolab/coroviz/timeline"
)

// A Broadcaster fans runner events out to live listeners, one buffered
// channel per listener. A listener that falls behind loses events rather
// than stalling the runners.
type Broadcaster struct {
	lock      sync.Mutex
	listeners map[int]chan timeline.LogEvent
	nextID    int
}

// NewBroadcaster creates a Broadcaster with no listeners.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[int]chan timeline.LogEvent),
	}
}

// OnEvent delivers the event to every listener without blocking.
func (b *Broadcaster) OnEvent(evt timeline.LogEvent) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, ch := range b.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Listen registers a listener. The returned cancel function must be called
// when the listener goes away.
func (b *Broadcaster) Listen() (<-chan timeline.LogEvent, func()) {
	b.lock.Lock()
	defer b.lock.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan timeline.LogEvent, 64)
	b.listeners[id] = ch

	cancel := func() {
		b.lock.Lock()
		defer b.lock.Unlock()

		delete(b.listeners, id)
	}

	return ch, cancel
}

// ListenerCount returns the number of live listeners.
func (b *Broadcaster) ListenerCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.listeners)
}
