package observ

import (
	"testing"
	"time"
)

func stepClock(step time.Duration) func() time.Time {
	base := time.Unix(0, 0)
	var tick time.Duration
	return func() time.Time {
		tick += step
		return base.Add(tick)
	}
}

func TestTimerReportAndSummary(t *testing.T) {
	tm := NewTimerWithClock(stepClock(2 * time.Millisecond))

	tm.Measure("parse", func() string { return "3 items" })
	stop := tm.Start("eval")
	stop("")
	stop("late note")

	r := tm.Report()
	if len(r.Phases) != 2 || r.TotalMS != 4 {
		t.Fatalf("report = %+v", r)
	}
	want := "timings:\n" +
		"  parse     2.00 ms  // 3 items\n" +
		"  eval      2.00 ms  // late note\n" +
		"  total     4.00 ms\n"
	if got := tm.Summary(); got != want {
		t.Fatalf("summary:\n%s\nwant:\n%s", got, want)
	}
}

func TestOpenPhaseHasNoDuration(t *testing.T) {
	tm := NewTimerWithClock(stepClock(time.Millisecond))
	_ = tm.Start("eval")
	r := tm.Report()
	if len(r.Phases) != 1 || r.Phases[0].DurationMS != 0 {
		t.Fatalf("report = %+v", r)
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("empty report = %+v", r)
	}
}
