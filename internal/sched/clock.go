package sched

import (
	"math"
	"time"

	"fortio.org/safecast"
)

// ClockMode selects virtual or wall-clock time for timers.
type ClockMode uint8

const (
	ClockVirtual ClockMode = iota
	ClockReal
)

// Clock supplies time and blocking behavior for timers.
type Clock interface {
	NowMs() uint64
	SleepUntilMs(deadlineMs uint64)
}

// VirtualClock advances scheduler time without blocking.
type VirtualClock struct {
	s *Scheduler
}

func (c *VirtualClock) NowMs() uint64 {
	if c == nil || c.s == nil {
		return 0
	}
	return c.s.nowMs
}

func (c *VirtualClock) SleepUntilMs(deadlineMs uint64) {
	if c == nil || c.s == nil {
		return
	}
	if deadlineMs > c.s.nowMs {
		c.s.nowMs = deadlineMs
	}
}

// RealClock blocks the run loop until the requested deadline.
type RealClock struct {
	start time.Time
}

// NewRealClock starts a wall clock at zero.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

func (c *RealClock) NowMs() uint64 {
	if c == nil {
		return 0
	}
	ms := time.Since(c.start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

func (c *RealClock) SleepUntilMs(deadlineMs uint64) {
	if c == nil {
		return
	}
	now := c.NowMs()
	if deadlineMs <= now {
		return
	}
	delta := deadlineMs - now
	maxMs := uint64(math.MaxInt64 / int64(time.Millisecond))
	if delta > maxMs {
		delta = maxMs
	}
	delay, err := safecast.Conv[int64](delta)
	if err != nil {
		return
	}
	time.Sleep(time.Duration(delay) * time.Millisecond)
}
