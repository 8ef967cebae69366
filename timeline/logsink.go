package timeline

import (
	"log"
	"time"
)

// A LogSink is a Sink that prints events to a logger, one line per event.
// It is the default presentation when no richer front end is attached.
type LogSink struct {
	Logger *log.Logger

	start time.Time
}

// NewLogSink returns a sink that writes into the given logger.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{
		Logger: logger,
		start:  time.Now(),
	}
}

// OnEvent writes the event information into the logger.
func (s *LogSink) OnEvent(evt LogEvent) {
	elapsed := evt.Time.Sub(s.start).Seconds()

	if evt.Payload != nil {
		s.Logger.Printf("%8.3fs  %-12s %-9s %s  (%v)",
			elapsed, evt.PatternID, evt.State, evt.Message, evt.Payload)
		return
	}

	s.Logger.Printf("%8.3fs  %-12s %-9s %s",
		elapsed, evt.PatternID, evt.State, evt.Message)
}
