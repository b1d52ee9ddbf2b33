package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"gard/internal/driver"
)

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("check", []string{"a.gard", "b.gard"}, events)

	m, _ = m.Update(eventMsg(driver.Event{File: "a.gard", Stage: driver.StageParse, Status: driver.StatusWorking}))
	if view := m.View(); !strings.Contains(view, "parsing") || !strings.Contains(view, "queued") || !strings.Contains(view, "0/2") {
		t.Fatalf("view after parse event:\n%s", view)
	}
	pm := m.(*progressModel)
	if f := pm.fraction(); f != 0.1 {
		t.Fatalf("fraction = %v, want 0.1", f)
	}

	m, _ = m.Update(eventMsg(driver.Event{File: "a.gard", Status: driver.StatusDone}))
	m, _ = m.Update(eventMsg(driver.Event{File: "b.gard", Status: driver.StatusError}))
	m, _ = m.Update(eventMsg(driver.Event{File: "b.gard", Status: driver.StatusError}))
	m, _ = m.Update(eventMsg(driver.Event{File: "unknown.gard", Status: driver.StatusDone}))
	m, _ = m.Update(doneMsg{})
	view := m.View()
	for _, want := range []string{"done: check", "2/2", "1 failed", "ok", "error"} {
		if !strings.Contains(view, want) {
			t.Fatalf("final view lacks %q:\n%s", want, view)
		}
	}
}

func TestTruncateKeepsTail(t *testing.T) {
	got := truncate("internal/very/long/path.gard", 12)
	if got != "...path.gard" || runewidth.StringWidth(got) > 12 {
		t.Fatalf("truncate = %q", got)
	}
	if got = truncate("short", 12); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got = truncate("каталог/файл.gard", 8); runewidth.StringWidth(got) > 8 || !strings.HasPrefix(got, "...") {
		t.Fatalf("truncate = %q", got)
	}
}
