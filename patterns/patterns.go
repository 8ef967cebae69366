// Package patterns holds the built-in coroutine-pattern timelines that back
// the demo cards, and a YAML loader for user-authored patterns.
package patterns

import (
	"time"

	"github.com/corolab/coroviz/timeline"
)

// A Pattern pairs a timeline definition with the presentation text shown on
// its card.
type Pattern struct {
	Def     *timeline.Definition
	Title   string
	Summary string
}

// ID returns the pattern's ID.
func (p Pattern) ID() string {
	return p.Def.ID()
}

const ms = time.Millisecond

var builtins = []Pattern{
	{
		Title:   "launch",
		Summary: "Fire-and-forget: start a coroutine and move on. The result, if any, is discarded.",
		Def: timeline.MakeDefinitionBuilder().
			WithID("launch").
			WithStep(0, "launch { } started", timeline.StateRunning).
			WithPayloadStep(400*ms, "working in the background", timeline.StateRunning, "job #1").
			WithStep(350*ms, "delay(…) suspends the coroutine", timeline.StateSuspended).
			WithStep(450*ms, "work finished, result discarded", timeline.StateCompleted).
			MustBuild(),
	},
	{
		Title:   "async",
		Summary: "Deferred result: async starts work immediately, await suspends until the value is ready.",
		Def: timeline.MakeDefinitionBuilder().
			WithID("async").
			WithStep(0, "async { } started", timeline.StateRunning).
			WithStep(300*ms, "computing deferred value", timeline.StateRunning).
			WithStep(250*ms, "await() suspends the caller", timeline.StateSuspended).
			WithPayloadStep(550*ms, "Deferred completed with value", timeline.StateCompleted, 42).
			MustBuild(),
	},
	{
		Title:   "cold flow",
		Summary: "A cold stream produces nothing until collected; every collector restarts it from scratch.",
		Def: timeline.MakeDefinitionBuilder().
			WithID("cold-flow").
			WithStep(0, "collector attached, flow starts cold", timeline.StateRunning).
			WithPayloadStep(350*ms, "emit", timeline.StateRunning, 1).
			WithPayloadStep(350*ms, "emit", timeline.StateRunning, 2).
			WithPayloadStep(350*ms, "emit", timeline.StateRunning, 3).
			WithStep(250*ms, "flow completed", timeline.StateCompleted).
			MustBuild(),
	},
	{
		Title:   "shared flow",
		Summary: "A hot broadcast stream: values are emitted whether or not anyone is listening.",
		Def: timeline.MakeDefinitionBuilder().
			WithID("shared-flow").
			WithStep(0, "hot stream keeps emitting on its own", timeline.StateRunning).
			WithPayloadStep(300*ms, "broadcast to all collectors", timeline.StateRunning, "tick 1").
			WithPayloadStep(300*ms, "broadcast to all collectors", timeline.StateRunning, "tick 2").
			WithPayloadStep(300*ms, "late collector joins mid-stream", timeline.StateRunning, "tick 3").
			WithStep(250*ms, "collectors detach, stream stays hot", timeline.StateCompleted).
			MustBuild(),
	},
	{
		Title:   "state flow",
		Summary: "A state holder: always has a current value, collectors see the latest one immediately.",
		Def: timeline.MakeDefinitionBuilder().
			WithID("state-flow").
			WithPayloadStep(0, "state holder initialized", timeline.StateRunning, 0).
			WithPayloadStep(350*ms, "value updated", timeline.StateRunning, 1).
			WithPayloadStep(350*ms, "value updated", timeline.StateRunning, 2).
			WithPayloadStep(300*ms, "latest value retained for new collectors", timeline.StateCompleted, 2).
			MustBuild(),
	},
	{
		Title:   "channel",
		Summary: "Producer-consumer queue: sends suspend when full, receives suspend when empty.",
		Def: timeline.MakeDefinitionBuilder().
			WithID("channel").
			WithStep(0, "producer and consumer started", timeline.StateRunning).
			WithPayloadStep(300*ms, "send", timeline.StateRunning, "A").
			WithPayloadStep(250*ms, "receive", timeline.StateRunning, "A").
			WithPayloadStep(300*ms, "send", timeline.StateRunning, "B").
			WithStep(200*ms, "buffer full, send suspends", timeline.StateSuspended).
			WithPayloadStep(300*ms, "receive unblocks the producer", timeline.StateRunning, "B").
			WithStep(250*ms, "channel closed", timeline.StateCompleted).
			MustBuild(),
	},
	{
		Title:   "withContext",
		Summary: "Context switch: hop to another dispatcher for a blocking-ish task, come back with the result.",
		Def: timeline.MakeDefinitionBuilder().
			WithID("with-context").
			WithPayloadStep(0, "running on the main dispatcher", timeline.StateRunning, "main").
			WithPayloadStep(300*ms, "withContext(IO) switches threads", timeline.StateSuspended, "IO").
			WithPayloadStep(550*ms, "IO work done, resuming caller", timeline.StateRunning, "main").
			WithStep(250*ms, "back on main with the result", timeline.StateCompleted).
			MustBuild(),
	},
	{
		Title:   "runBlocking",
		Summary: "Bridges blocking and suspending code: the calling thread is parked until the block returns.",
		Def: timeline.MakeDefinitionBuilder().
			WithID("run-blocking").
			WithStep(0, "runBlocking { } entered", timeline.StateRunning).
			WithPayloadStep(400*ms, "caller thread parked", timeline.StateSuspended, "main").
			WithStep(550*ms, "suspending work inside the block", timeline.StateRunning).
			WithStep(350*ms, "block returned, thread released", timeline.StateCompleted).
			MustBuild(),
	},
}

// All returns the built-in patterns in display order.
func All() []Pattern {
	patterns := make([]Pattern, len(builtins))
	copy(patterns, builtins)

	return patterns
}

// IDs returns the built-in pattern IDs in display order.
func IDs() []string {
	ids := make([]string, 0, len(builtins))
	for _, p := range builtins {
		ids = append(ids, p.ID())
	}

	return ids
}

// Lookup finds a built-in pattern by ID.
func Lookup(id string) (Pattern, bool) {
	for _, p := range builtins {
		if p.ID() == id {
			return p, true
		}
	}

	return Pattern{}, false
}
