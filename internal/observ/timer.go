package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Timer records named phases of a run (parse, setup, eval) in the order
// they started. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	clock  func() time.Time
	phases []PhaseReport
	starts []time.Time
}

// NewTimer uses the wall clock.
func NewTimer() *Timer { return NewTimerWithClock(time.Now) }

// NewTimerWithClock takes the clock from the caller (tests).
func NewTimerWithClock(clock func() time.Time) *Timer {
	return &Timer{clock: clock}
}

// Start opens a phase; the returned func closes it with a note. Calling the
// func again only replaces the note.
func (t *Timer) Start(name string) func(note string) {
	t.mu.Lock()
	idx := len(t.phases)
	t.phases = append(t.phases, PhaseReport{Name: name})
	t.starts = append(t.starts, t.clock())
	t.mu.Unlock()

	var once sync.Once
	return func(note string) {
		t.mu.Lock()
		defer t.mu.Unlock()
		once.Do(func() {
			t.phases[idx].DurationMS = millis(t.clock().Sub(t.starts[idx]))
		})
		t.phases[idx].Note = note
	}
}

// Measure runs fn as one phase; its result becomes the note.
func (t *Timer) Measure(name string, fn func() string) {
	stop := t.Start(name)
	stop(fn())
}

// PhaseReport is one finished (or still open, with zero duration) phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report: снимок таймера для --timings.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	r := Report{Phases: append([]PhaseReport(nil), t.phases...)}
	for _, p := range r.Phases {
		r.TotalMS += p.DurationMS
	}
	return r
}

// Summary renders the report as an aligned block.
func (r Report) Summary() string {
	width := len("total")
	for _, p := range r.Phases {
		width = max(width, len(p.Name))
	}
	var b strings.Builder
	b.WriteString("timings:\n")
	line := func(name string, ms float64, note string) {
		fmt.Fprintf(&b, "  %-*s %8.2f ms", width, name, ms)
		if note != "" {
			b.WriteString("  // " + note)
		}
		b.WriteByte('\n')
	}
	for _, p := range r.Phases {
		line(p.Name, p.DurationMS, p.Note)
	}
	line("total", r.TotalMS, "")
	return b.String()
}

func (t *Timer) Summary() string { return t.Report().Summary() }

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
