package timeline

import (
	"log"
	"os"
	"sync"
)

// A Sink observes runner events and is responsible for all visible effects.
type Sink interface {
	// OnEvent is called synchronously when a step fires. OnEvent must not
	// call back into the runner that delivered the event.
	OnEvent(evt LogEvent)
}

// SinkBase provides sink registration and fan-out for types that publish
// LogEvents. A panic in one sink is reported to the fault logger and does
// not prevent delivery to the remaining sinks.
type SinkBase struct {
	sinkLock    sync.Mutex
	sinks       []Sink
	faultLogger *log.Logger
}

// Subscribe registers a sink. Each registered sink receives every event.
func (b *SinkBase) Subscribe(sink Sink) {
	b.sinkLock.Lock()
	defer b.sinkLock.Unlock()

	b.sinks = append(b.sinks, sink)
}

// Unsubscribe removes a previously registered sink. Unknown sinks are
// ignored.
func (b *SinkBase) Unsubscribe(sink Sink) {
	b.sinkLock.Lock()
	defer b.sinkLock.Unlock()

	for i, s := range b.sinks {
		if s == sink {
			b.sinks = append(b.sinks[:i], b.sinks[i+1:]...)
			return
		}
	}
}

func (b *SinkBase) publish(evt LogEvent) {
	b.sinkLock.Lock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.sinkLock.Unlock()

	for _, s := range sinks {
		b.deliver(s, evt)
	}
}

func (b *SinkBase) deliver(sink Sink, evt LogEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.reportFault(sink, r)
		}
	}()

	sink.OnEvent(evt)
}

func (b *SinkBase) reportFault(sink Sink, reason any) {
	logger := b.faultLogger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	logger.Printf("sink %T panicked: %v", sink, reason)
}
