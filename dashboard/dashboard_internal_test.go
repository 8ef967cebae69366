package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corolab/coroviz/patterns"
	"github.com/corolab/coroviz/timeline"
)

func testPattern(id string) patterns.Pattern {
	return patterns.Pattern{
		Title:   id,
		Summary: "a test pattern",
		Def: timeline.MakeDefinitionBuilder().
			WithID(id).
			WithStep(0, "started", timeline.StateRunning).
			WithPayloadStep(40*time.Millisecond, "emit", timeline.StateRunning, 7).
			WithStep(40*time.Millisecond, "done", timeline.StateCompleted).
			MustBuild(),
	}
}

var _ = Describe("Dashboard", func() {
	var (
		sched *timeline.VirtualScheduler
		d     *Dashboard
	)

	BeforeEach(func() {
		sched = timeline.NewVirtualScheduler()
		d = NewDashboard().WithScheduler(sched)
		d.RegisterPattern(testPattern("launch"))
		d.RegisterPattern(testPattern("async"))
	})

	It("should refuse duplicate pattern registration", func() {
		Expect(func() {
			d.RegisterPattern(testPattern("launch"))
		}).To(Panic())
	})

	It("should list registered cards with their state", func() {
		rec := httptest.NewRecorder()
		d.router().ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/patterns", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))

		var cards []cardRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &cards)).To(Succeed())
		Expect(cards).To(HaveLen(2))
		Expect(cards[0].ID).To(Equal("launch"))
		Expect(cards[0].State).To(Equal(timeline.StateIdle))
		Expect(cards[0].StepCount).To(Equal(3))
	})

	It("should start a runner through the control endpoint", func() {
		rec := httptest.NewRecorder()
		d.router().ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/patterns/launch/start", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))

		sched.AdvanceToEnd()

		card := d.Cards()[0]
		Expect(card.Runner.State()).To(Equal(timeline.StateCompleted))
		Expect(d.Cards()[1].Runner.State()).To(Equal(timeline.StateIdle))
	})

	It("should cancel a runner through the control endpoint", func() {
		d.Cards()[0].Runner.Start()
		sched.Advance(50 * time.Millisecond)

		rec := httptest.NewRecorder()
		d.router().ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/patterns/launch/cancel", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(d.Cards()[0].Runner.State()).To(Equal(timeline.StateIdle))
	})

	It("should 404 on unknown patterns and actions", func() {
		rec := httptest.NewRecorder()
		d.router().ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/patterns/nope/start", nil))
		Expect(rec.Code).To(Equal(http.StatusNotFound))

		rec = httptest.NewRecorder()
		d.router().ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/patterns/launch/explode", nil))
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should expose the journal incrementally", func() {
		d.Cards()[0].Runner.Start()
		sched.AdvanceToEnd()

		rec := httptest.NewRecorder()
		d.router().ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/log", nil))

		var events []timeline.LogEvent
		Expect(json.Unmarshal(rec.Body.Bytes(), &events)).To(Succeed())
		Expect(events).To(HaveLen(3))

		after := events[1].Seq
		rec = httptest.NewRecorder()
		d.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/api/log?after="+strconv.FormatUint(after, 10), nil))

		var tail []timeline.LogEvent
		Expect(json.Unmarshal(rec.Body.Bytes(), &tail)).To(Succeed())
		Expect(tail).To(HaveLen(1))
		Expect(tail[0].Message).To(Equal("done"))
	})

	It("should reject a malformed after parameter", func() {
		rec := httptest.NewRecorder()
		d.router().ServeHTTP(rec, httptest.NewRequest(
			http.MethodGet, "/api/log?after=banana", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should serialize runner details", func() {
		rec := httptest.NewRecorder()
		d.router().ServeHTTP(rec, httptest.NewRequest(
			http.MethodGet, "/api/patterns/launch", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).ToNot(BeZero())
	})
})

var _ = Describe("Journal", func() {
	It("should evict the oldest entries when full", func() {
		j := NewJournal(3)

		for i := 1; i <= 5; i++ {
			j.OnEvent(timeline.LogEvent{Seq: uint64(i)})
		}

		Expect(j.Len()).To(Equal(3))

		events := j.Since(0)
		Expect(events[0].Seq).To(Equal(uint64(3)))
		Expect(events[2].Seq).To(Equal(uint64(5)))
	})

	It("should filter by sequence number", func() {
		j := NewJournal(10)
		for i := 1; i <= 4; i++ {
			j.OnEvent(timeline.LogEvent{Seq: uint64(i)})
		}

		Expect(j.Since(2)).To(HaveLen(2))
		Expect(j.Since(4)).To(BeEmpty())
	})
})

var _ = Describe("Broadcaster", func() {
	It("should deliver events to every listener", func() {
		b := NewBroadcaster()

		first, cancelFirst := b.Listen()
		second, cancelSecond := b.Listen()
		defer cancelFirst()
		defer cancelSecond()

		b.OnEvent(timeline.LogEvent{Seq: 1})

		Expect(<-first).To(Equal(timeline.LogEvent{Seq: 1}))
		Expect(<-second).To(Equal(timeline.LogEvent{Seq: 1}))
	})

	It("should drop events for listeners that fall behind", func() {
		b := NewBroadcaster()

		slow, cancel := b.Listen()
		defer cancel()

		for i := 0; i < 100; i++ {
			b.OnEvent(timeline.LogEvent{Seq: uint64(i)})
		}

		Expect(len(slow)).To(Equal(64))
	})

	It("should forget cancelled listeners", func() {
		b := NewBroadcaster()

		_, cancel := b.Listen()
		Expect(b.ListenerCount()).To(Equal(1))

		cancel()
		Expect(b.ListenerCount()).To(Equal(0))
	})
})
