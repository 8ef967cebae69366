package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/corolab/coroviz/dashboard"
	"github.com/corolab/coroviz/patterns"
	"github.com/corolab/coroviz/timeline"
)

var (
	servePort       int
	servePatternDir string
	serveOpen       bool
	serveJitterSeed int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pattern dashboard for a browser",
	Long: `Start a local web server with one card per pattern. Clicking a ` +
		`card replays its timeline; the execution log streams live to the page.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"port to listen on (defaults to COROVIZ_PORT, then a random port)")
	serveCmd.Flags().StringVar(&servePatternDir, "patterns", "",
		"directory with extra YAML pattern files")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false,
		"open the dashboard in the default browser")
	serveCmd.Flags().Int64Var(&serveJitterSeed, "jitter-seed", 0,
		"seed for delay jitter; 0 keeps every delay exact")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	// A missing .env file is fine; it only provides defaults.
	_ = godotenv.Load()

	port, err := resolvePort()
	if err != nil {
		return err
	}

	d := dashboard.NewDashboard()
	if port != 0 {
		d.WithPortNumber(port)
	}

	if serveJitterSeed != 0 {
		d.WithJitter(timeline.NewRandomJitter(serveJitterSeed, 0.25))
	}

	for _, p := range patterns.All() {
		d.RegisterPattern(p)
	}

	if servePatternDir != "" {
		extra, err := patterns.LoadDir(servePatternDir)
		if err != nil {
			return err
		}

		for _, p := range extra {
			d.RegisterPattern(p)
		}
	}

	d.StartServer()
	defer d.StopServer()

	if serveOpen {
		if err := browser.OpenURL(d.URL()); err != nil {
			fmt.Fprintf(os.Stderr, "Could not open the browser: %s\n", err)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	return nil
}

func resolvePort() (int, error) {
	if servePort != 0 {
		return servePort, nil
	}

	env := os.Getenv("COROVIZ_PORT")
	if env == "" {
		return 0, nil
	}

	port, err := strconv.Atoi(env)
	if err != nil {
		return 0, fmt.Errorf("invalid COROVIZ_PORT %q: %w", env, err)
	}

	return port, nil
}
