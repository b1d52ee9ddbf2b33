package trace

import (
	"io"
	"sync"
)

// StreamTracer writes every admitted event as soon as it arrives.
// Heartbeats pass at any level above off.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	owned  io.Closer // output file opened by New; stderr is never closed
	level  Level
	format Format
}

// NewStreamTracer writes to w; the caller keeps ownership of w.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

// Emit drops write errors: tracing never fails a run.
func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.Admits(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ev.Seq = nextSeq()
	_, _ = t.w.Write(FormatEvent(ev, t.format))
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.w.(interface{ Sync() error }); ok && t.owned != nil {
		return s.Sync()
	}
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and, when the tracer opened the output itself, closes it.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if t.owned == nil {
		return nil
	}
	err := t.owned.Close()
	t.owned = nil
	return err
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
