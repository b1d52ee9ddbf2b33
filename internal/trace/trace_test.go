package trace

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStreamTracerFiltersByScope(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	Point(tr, ScopePhase, "parse", "ok")
	Point(tr, ScopeTask, "task.park", "lock")

	out := buf.String()
	if !strings.Contains(out, "* parse (ok)\n") {
		t.Fatalf("phase event missing: %q", out)
	}
	if strings.Contains(out, "task.park") {
		t.Fatalf("task event must be filtered at phase level: %q", out)
	}
}

func TestTextFormatKeepsAttrOrder(t *testing.T) {
	ev := &Event{Seq: 12, Kind: KindSpanEnd, Scope: ScopeLedger, ParentID: 1, Name: "ledger.commit",
		Attrs: []Attr{A("block", "3"), A("hash", "0xab")}}
	want := "    12 ledger   < ledger.commit block=3 hash=0xab\n"
	if got := string(FormatEvent(ev, FormatText)); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestNDJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeLedger, "ledger.commit", "", A("tx", "1"))

	line := buf.String()
	for _, want := range []string{`"scope":"ledger"`, `"name":"ledger.commit"`, `"attrs":{"tx":"1"}`} {
		if !strings.Contains(line, want) {
			t.Errorf("missing %s in %s", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Errorf("ndjson line must end with newline")
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(3, LevelError)
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(r, ScopeTask, name, "")
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d", len(snap))
	}
	if snap[0].Name != "b" || snap[2].Name != "d" {
		t.Fatalf("order: %s %s %s", snap[0].Name, snap[1].Name, snap[2].Name)
	}
	if r.Dropped() != 1 {
		t.Fatalf("dropped = %d", r.Dropped())
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "(1 earlier events dropped)\n") {
		t.Fatalf("dump = %q", buf.String())
	}
}

func TestSpanEndCarriesAttrs(t *testing.T) {
	r := NewRingTracer(8, LevelDebug)
	sp := Begin(r, ScopePhase, "eval", 0)
	sp.Set("tasks", "2").End("done")

	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Kind != KindSpanBegin || snap[1].Kind != KindSpanEnd {
		t.Fatalf("unexpected events: %+v", snap)
	}
	if snap[1].Attr("tasks") != "2" || snap[1].SpanID != sp.ID() || snap[0].Attr("tasks") != "" {
		t.Fatalf("end event: %+v", snap[1])
	}
}

func TestDisabledSpanIsInert(t *testing.T) {
	sp := Begin(Nop, ScopeDriver, "run", 0)
	if sp.Set("k", "v").End("") != 0 || sp.ID() != 0 {
		t.Fatal("span of a disabled tracer must do nothing")
	}
}

func TestContextHelpers(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("default tracer must be Nop")
	}
	r := NewRingTracer(4, LevelDebug)
	m := NewMultiTracer(LevelDebug, Nop, r)
	ctx := WithParent(WithTracer(context.Background(), m), 7)
	if FromContext(ctx) != Tracer(m) || ParentFrom(ctx) != 7 {
		t.Fatalf("context round-trip failed")
	}
	if RingOf(m) != r || RingOf(r) != r || RingOf(Nop) != nil {
		t.Fatalf("RingOf must find ring inside multi")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"": LevelOff, "PHASE": LevelPhase, "debug": LevelDebug} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Errorf("expected error for unknown level")
	}
	if !LevelDetail.Admits(ScopeLedger) || LevelDetail.Admits(ScopeTask) || LevelError.Admits(ScopeDriver) {
		t.Errorf("Admits table is wrong")
	}
}

func TestNewOwnsFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ndjson")
	tr, err := New(Config{Level: LevelPhase, OutputPath: path})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, ScopeDriver, "start", "")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), `"name":"start"`) {
		t.Fatalf("file = %q, %v", data, err)
	}

	ring, err := New(Config{Level: LevelError, Mode: ModeStream})
	if err != nil || RingOf(ring) == nil {
		t.Fatalf("error level must use a ring: %T %v", ring, err)
	}
}

func TestHeartbeat(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	h := StartHeartbeat(r, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	snap := r.Snapshot()
	if len(snap) == 0 || snap[0].Kind != KindHeartbeat || snap[0].Attr("uptime") == "" {
		t.Fatalf("heartbeat events: %+v", snap)
	}
	if StartHeartbeat(Nop, time.Second) != nil {
		t.Fatal("disabled tracer must not start a heartbeat")
	}
}
