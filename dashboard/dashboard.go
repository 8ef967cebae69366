// Package dashboard turns a set of pattern timelines into a local web
// server: one card per pattern, REST control endpoints, and a live event
// stream consumed by the embedded browser UI.
package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/corolab/coroviz/dashboard/web"
	"github.com/corolab/coroviz/patterns"
	"github.com/corolab/coroviz/timeline"
)

// A Card is one pattern with the runner that animates it.
type Card struct {
	Pattern patterns.Pattern
	Runner  *timeline.Runner
}

// Dashboard serves the card UI and exposes the runners for external
// control. All view state is in memory and lost when the process exits.
type Dashboard struct {
	portNumber int
	sched      timeline.Scheduler
	jitter     timeline.Jitter

	cardLock  sync.Mutex
	cards     []*Card
	cardIndex map[string]*Card

	journal *Journal
	stream  *Broadcaster

	listener net.Listener
	server   *http.Server
}

// NewDashboard creates a Dashboard with no patterns registered. Runners are
// driven by the wall clock unless a scheduler is injected.
func NewDashboard() *Dashboard {
	return &Dashboard{
		sched:     timeline.NewRealTimeScheduler(),
		cardIndex: make(map[string]*Card),
		journal:   NewJournal(512),
		stream:    NewBroadcaster(),
	}
}

// WithPortNumber sets the port number of the dashboard server.
func (d *Dashboard) WithPortNumber(portNumber int) *Dashboard {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the dashboard server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	d.portNumber = portNumber

	return d
}

// WithScheduler replaces the scheduler that drives the runners.
func (d *Dashboard) WithScheduler(sched timeline.Scheduler) *Dashboard {
	d.sched = sched
	return d
}

// WithJitter applies a delay perturbation source to every runner registered
// afterwards.
func (d *Dashboard) WithJitter(j timeline.Jitter) *Dashboard {
	d.jitter = j
	return d
}

// RegisterPattern adds a card for the pattern. Registering the same pattern
// ID twice is a programmer error.
func (d *Dashboard) RegisterPattern(p patterns.Pattern) {
	d.cardLock.Lock()
	defer d.cardLock.Unlock()

	if _, exists := d.cardIndex[p.ID()]; exists {
		panic("pattern " + p.ID() + " already registered")
	}

	runner := timeline.NewRunner(p.Def, d.sched)
	if d.jitter != nil {
		runner.WithJitter(d.jitter)
	}

	runner.Subscribe(d.journal)
	runner.Subscribe(d.stream)

	card := &Card{Pattern: p, Runner: runner}
	d.cards = append(d.cards, card)
	d.cardIndex[p.ID()] = card
}

// Cards returns the registered cards in registration order.
func (d *Dashboard) Cards() []*Card {
	d.cardLock.Lock()
	defer d.cardLock.Unlock()

	cards := make([]*Card, len(d.cards))
	copy(cards, d.cards)

	return cards
}

// StartServer starts serving the dashboard. The chosen address is reported
// on stderr; use URL to retrieve it programmatically.
func (d *Dashboard) StartServer() {
	r := d.router()

	actualPort := ":0"
	if d.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(d.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	d.listener = listener
	d.server = &http.Server{Handler: r}

	fmt.Fprintf(os.Stderr, "Serving coroutine patterns at %s\n", d.URL())

	go func() {
		err := d.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			dieOnErr(err)
		}
	}()
}

func (d *Dashboard) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/patterns", d.listPatterns).Methods(http.MethodGet)
	r.HandleFunc("/api/patterns/{id}", d.patternDetail).
		Methods(http.MethodGet)
	r.HandleFunc("/api/patterns/{id}/{action}", d.controlPattern).
		Methods(http.MethodPost)
	r.HandleFunc("/api/log", d.listLog).Methods(http.MethodGet)
	r.HandleFunc("/api/events", d.streamEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", d.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", d.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StopServer stops the server and resets every runner.
func (d *Dashboard) StopServer() {
	for _, c := range d.Cards() {
		c.Runner.Reset()
	}

	if d.server != nil {
		_ = d.server.Close()
	}
}

// URL returns the address the dashboard listens on. Valid after
// StartServer.
func (d *Dashboard) URL() string {
	return fmt.Sprintf("http://localhost:%d",
		d.listener.Addr().(*net.TCPAddr).Port)
}

type cardRsp struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary"`
	State     timeline.RunState `json:"state"`
	StepIndex int               `json:"stepIndex"`
	StepCount int               `json:"stepCount"`
	RunnerID  string            `json:"runnerID"`
}

func (d *Dashboard) listPatterns(w http.ResponseWriter, _ *http.Request) {
	cards := d.Cards()

	rsp := make([]cardRsp, 0, len(cards))
	for _, c := range cards {
		rsp = append(rsp, cardRsp{
			ID:        c.Pattern.ID(),
			Title:     c.Pattern.Title,
			Summary:   c.Pattern.Summary,
			State:     c.Runner.State(),
			StepIndex: c.Runner.StepIndex(),
			StepCount: c.Pattern.Def.Len(),
			RunnerID:  c.Runner.ID(),
		})
	}

	writeJSON(w, rsp)
}

func (d *Dashboard) controlPattern(w http.ResponseWriter, r *http.Request) {
	card := d.findCardOr404(w, mux.Vars(r)["id"])
	if card == nil {
		return
	}

	switch mux.Vars(r)["action"] {
	case "start":
		card.Runner.Start()
	case "cancel":
		card.Runner.Cancel()
	case "reset":
		card.Runner.Reset()
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "Unknown action %q", mux.Vars(r)["action"])
		return
	}

	writeJSON(w, map[string]any{
		"state":     card.Runner.State(),
		"stepIndex": card.Runner.StepIndex(),
	})
}

func (d *Dashboard) patternDetail(w http.ResponseWriter, r *http.Request) {
	card := d.findCardOr404(w, mux.Vars(r)["id"])
	if card == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(card.Runner)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

func (d *Dashboard) listLog(w http.ResponseWriter, r *http.Request) {
	after := uint64(0)

	if s := r.URL.Query().Get("after"); s != "" {
		parsed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Invalid after sequence: %s", s)
			return
		}

		after = parsed
	}

	writeJSON(w, d.journal.Since(after))
}

func (d *Dashboard) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	events, cancel := d.stream.Listen()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-events:
			payload, err := json.Marshal(evt)
			dieOnErr(err)

			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (d *Dashboard) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memoryInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (d *Dashboard) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func (d *Dashboard) findCardOr404(w http.ResponseWriter, id string) *Card {
	d.cardLock.Lock()
	card := d.cardIndex[id]
	d.cardLock.Unlock()

	if card == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Pattern not found"))
		dieOnErr(err)
	}

	return card
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	bytes, err := json.Marshal(v)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
