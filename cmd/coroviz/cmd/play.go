package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/corolab/coroviz/patterns"
	"github.com/corolab/coroviz/timeline"
)

var playFast bool

var playCmd = &cobra.Command{
	Use:   "play <pattern-id>",
	Short: "Replay one pattern's timeline in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&playFast, "fast", false,
		"skip the delays and replay instantly")
	rootCmd.AddCommand(playCmd)
}

// terminalWatcher closes done once the run reaches a terminal state.
type terminalWatcher struct {
	done chan struct{}
}

func (w *terminalWatcher) OnEvent(evt timeline.LogEvent) {
	if evt.State.Terminal() {
		close(w.done)
	}
}

func runPlay(_ *cobra.Command, args []string) error {
	p, ok := patterns.Lookup(args[0])
	if !ok {
		return fmt.Errorf(
			"unknown pattern %q, run `coroviz list` for the available ones",
			args[0])
	}

	sink := timeline.NewLogSink(log.New(os.Stdout, "", 0))

	if playFast {
		sched := timeline.NewVirtualScheduler()
		runner := timeline.NewRunner(p.Def, sched)
		runner.Subscribe(sink)

		runner.Start()
		sched.AdvanceToEnd()

		atexit.Exit(0)
		return nil
	}

	runner := timeline.NewRunner(p.Def, timeline.NewRealTimeScheduler())
	watcher := &terminalWatcher{done: make(chan struct{})}
	runner.Subscribe(sink)
	runner.Subscribe(watcher)

	runner.Start()
	<-watcher.done

	atexit.Exit(0)
	return nil
}
