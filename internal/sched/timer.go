package sched

import "container/heap"

// TimerID identifies a scheduled timer.
type TimerID uint64

// Timer represents a single scheduled wakeup.
type Timer struct {
	id         TimerID
	deadlineMs uint64
	taskID     TaskID
	fire       func()
	cancelled  bool
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadlineMs == h[j].deadlineMs {
		return h[i].id < h[j].id
	}
	return h[i].deadlineMs < h[j].deadlineMs
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	timer, ok := x.(*Timer)
	if !ok || timer == nil {
		return
	}
	*h = append(*h, timer)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	if n == 0 {
		return (*Timer)(nil)
	}
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// scheduleAfter registers a timer. Either taskID is woken or fire runs.
func (s *Scheduler) scheduleAfter(delayMs uint64, taskID TaskID, fire func()) TimerID {
	s.nextTimerID++
	id := s.nextTimerID
	timer := &Timer{
		id:         id,
		deadlineMs: s.clock.NowMs() + delayMs,
		taskID:     taskID,
		fire:       fire,
	}
	s.timerByID[id] = timer
	heap.Push(&s.timers, timer)
	return id
}

func (s *Scheduler) cancelTimer(id TimerID) {
	if id == 0 {
		return
	}
	timer := s.timerByID[id]
	if timer == nil {
		return
	}
	timer.cancelled = true
	delete(s.timerByID, id)
}

// PendingTimers reports how many timers are still armed.
func (s *Scheduler) PendingTimers() int { return len(s.timerByID) }

// advanceToNextTimer sleeps (or jumps, for the virtual clock) to the earliest
// timer and fires every timer due at that instant.
func (s *Scheduler) advanceToNextTimer() bool {
	for len(s.timers) > 0 {
		timer, ok := heap.Pop(&s.timers).(*Timer)
		if !ok || timer == nil || timer.cancelled {
			continue
		}
		s.clock.SleepUntilMs(timer.deadlineMs)
		s.fireTimer(timer)
		now := s.clock.NowMs()
		for len(s.timers) > 0 {
			next := s.timers[0]
			if next.cancelled {
				heap.Pop(&s.timers)
				continue
			}
			if next.deadlineMs > now {
				break
			}
			heap.Pop(&s.timers)
			s.fireTimer(next)
		}
		return true
	}
	return false
}

// fireDue fires timers that are already due without advancing the clock.
func (s *Scheduler) fireDue() {
	now := s.clock.NowMs()
	for len(s.timers) > 0 {
		next := s.timers[0]
		if !next.cancelled && next.deadlineMs > now {
			return
		}
		heap.Pop(&s.timers)
		if !next.cancelled {
			s.fireTimer(next)
		}
	}
}

func (s *Scheduler) fireTimer(timer *Timer) {
	timer.cancelled = true
	delete(s.timerByID, timer.id)
	if timer.fire != nil {
		timer.fire()
		return
	}
	if timer.taskID != 0 {
		s.Wake(timer.taskID)
	}
}
