package sched

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"time"

	"gard/internal/trace"
)

// Options configures a Scheduler.
type Options struct {
	Clock ClockMode
	// DefaultDeadline, when positive, is applied to every spawned task.
	DefaultDeadline time.Duration
	// Fuzz picks ready tasks at random (seeded) instead of FIFO.
	Fuzz   bool
	Seed   uint64
	Tracer trace.Tracer
}

// Scheduler runs tasks cooperatively: exactly one task executes at a time.
type Scheduler struct {
	opts   Options
	clock  Clock
	nowMs  uint64
	tracer trace.Tracer
	rng    *rand.Rand

	nextID   TaskID
	ready    []TaskID
	readySet map[TaskID]struct{}
	tasks    map[TaskID]*Task
	order    []TaskID
	waiters  map[WakerKey][]TaskID
	parked   map[TaskID]WakerKey
	current  *Task

	// baton: задача возвращает управление циклу
	baton chan struct{}
	reap  []*Task

	timers      timerHeap
	timerByID   map[TimerID]*Timer
	nextTimerID TimerID

	nextObjID uint64
}

// New constructs a scheduler.
func New(opts Options) *Scheduler {
	s := &Scheduler{
		opts:      opts,
		tracer:    opts.Tracer,
		readySet:  make(map[TaskID]struct{}),
		tasks:     make(map[TaskID]*Task),
		waiters:   make(map[WakerKey][]TaskID),
		parked:    make(map[TaskID]WakerKey),
		baton:     make(chan struct{}),
		timerByID: make(map[TimerID]*Timer),
	}
	if s.tracer == nil {
		s.tracer = trace.Nop
	}
	switch opts.Clock {
	case ClockReal:
		s.clock = NewRealClock()
	default:
		s.clock = &VirtualClock{s: s}
	}
	if opts.Fuzz {
		seed := opts.Seed
		if seed == 0 {
			seed = 1
		}
		s.rng = rand.New(rand.NewSource(int64(seed))) //nolint:gosec // deterministic scheduler seed
	}
	return s
}

// Now returns the scheduler clock reading.
func (s *Scheduler) Now() time.Duration {
	return time.Duration(s.clock.NowMs()) * time.Millisecond
}

// Current returns the running task, nil on the run loop or before Run.
func (s *Scheduler) Current() *Task { return s.current }

// Task returns a task by ID.
func (s *Scheduler) Task(id TaskID) *Task { return s.tasks[id] }

// Tasks returns all tasks in spawn order.
func (s *Scheduler) Tasks() []*Task {
	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	return out
}

// Spawn registers a task and enqueues it. The body starts on a later turn of
// the run loop, never synchronously.
func (s *Scheduler) Spawn(name string, fn Func) *Task {
	s.nextID++
	t := &Task{
		ID:     s.nextID,
		Name:   name,
		fn:     fn,
		resume: make(chan struct{}),
		state:  StateReady,
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	s.enqueue(t.ID)
	if s.opts.DefaultDeadline > 0 {
		s.SetDeadline(t, s.opts.DefaultDeadline)
	}
	s.point("task.spawn", t, "")
	return t
}

// SetDeadline fails t with a *DeadlineError if it is still unfinished after d.
func (s *Scheduler) SetDeadline(t *Task, d time.Duration) {
	if t == nil || t.Done() {
		return
	}
	s.cancelTimer(t.deadline)
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	t.deadline = s.scheduleAfter(uint64(ms), 0, func() {
		t.deadline = 0
		if !t.Done() {
			s.cancel(t, &DeadlineError{Task: t.ID, After: d})
		}
	})
}

// Await suspends the current task until target finishes and returns its
// outcome. A failed target's error is returned to the awaiter.
func (s *Scheduler) Await(target *Task) (any, error) {
	cur := s.current
	if cur == nil {
		return nil, ErrNoTask
	}
	if target == cur {
		return nil, ErrSelfAwait
	}
	if !target.Done() {
		s.park(cur, JoinKey(target.ID), ReasonAwait)
	}
	return target.result, target.err
}

// Yield lets every other ready task run before the current one continues.
func (s *Scheduler) Yield() error {
	cur := s.current
	if cur == nil {
		return ErrNoTask
	}
	s.enqueue(cur.ID)
	cur.reason = ReasonYield
	s.handoff(cur)
	return nil
}

// Sleep suspends the current task for at least d of scheduler time.
func (s *Scheduler) Sleep(d time.Duration) error {
	cur := s.current
	if cur == nil {
		return ErrNoTask
	}
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	cur.sleep = s.scheduleAfter(uint64(ms), cur.ID, nil)
	s.park(cur, TimerKey(cur.sleep), ReasonSleep)
	cur.sleep = 0
	return nil
}

// Cancel fails t with ErrCancelled. A suspended victim never runs Gard code
// again; its awaiters observe the failure.
func (s *Scheduler) Cancel(t *Task) {
	s.cancel(t, ErrCancelled)
}

func (s *Scheduler) cancel(t *Task, cause error) {
	if t == nil || t.Done() {
		return
	}
	t.killed = true
	s.finish(t, nil, cause)
	if t != s.current && t.started {
		s.reap = append(s.reap, t)
	}
}

// Wake enqueues a suspended task.
func (s *Scheduler) Wake(id TaskID) {
	t := s.tasks[id]
	if t == nil || t.Done() {
		return
	}
	if key, ok := s.parked[id]; ok {
		s.removeWaiter(key, id)
		delete(s.parked, id)
	}
	s.enqueue(id)
}

// Run drives the loop until no task is ready and no timer is pending.
// Suspended leftovers produce a *StalledError.
func (s *Scheduler) Run(ctx context.Context) error {
	trace.Point(s.tracer, trace.ScopeTask, "sched.run", "")
	for {
		s.drainReap()
		if err := ctx.Err(); err != nil {
			s.shutdown(err)
			return err
		}
		s.fireDue()
		id, ok := s.nextReady()
		if !ok {
			if s.advanceToNextTimer() {
				continue
			}
			if stalled := s.suspended(); len(stalled) > 0 {
				err := &StalledError{Tasks: stalled}
				trace.Point(s.tracer, trace.ScopeTask, "sched.stalled", err.Error())
				s.shutdown(ErrCancelled)
				return err
			}
			return nil
		}
		s.dispatch(s.tasks[id])
	}
}

func (s *Scheduler) dispatch(t *Task) {
	s.current = t
	t.state = StateRunning
	t.reason = ReasonNone
	if !t.started {
		t.started = true
		go s.body(t)
	} else {
		t.resume <- struct{}{}
	}
	<-s.baton
	s.current = nil
}

func (s *Scheduler) body(t *Task) {
	returned := false
	defer func() {
		if r := recover(); r != nil {
			if !t.Done() {
				s.finish(t, nil, &PanicError{Task: t.ID, Value: r})
			}
		} else if !returned && !t.Done() {
			s.finish(t, nil, ErrCancelled)
		}
		s.baton <- struct{}{}
	}()
	v, err := t.fn(t)
	returned = true
	if !t.Done() {
		s.finish(t, v, err)
	}
}

// park suspends t until woken. Killed tasks unwind here.
func (s *Scheduler) park(t *Task, key WakerKey, reason Reason) {
	if key.IsValid() {
		s.parkTask(t.ID, key)
	}
	t.state = StateSuspended
	t.reason = reason
	s.handoff(t)
}

func (s *Scheduler) handoff(t *Task) {
	if t.killed {
		runtime.Goexit()
	}
	s.point("task.park", t, t.reason.String())
	s.baton <- struct{}{}
	<-t.resume
	if t.killed {
		runtime.Goexit()
	}
}

func (s *Scheduler) finish(t *Task, v any, err error) {
	t.result = v
	t.err = err
	if err != nil {
		t.state = StateFailed
	} else {
		t.state = StateCompleted
	}
	s.cancelTimer(t.deadline)
	s.cancelTimer(t.sleep)
	t.deadline, t.sleep = 0, 0
	if key, ok := s.parked[t.ID]; ok {
		s.removeWaiter(key, t.ID)
		delete(s.parked, t.ID)
	}
	if _, ok := s.readySet[t.ID]; ok {
		delete(s.readySet, t.ID)
		for i, id := range s.ready {
			if id == t.ID {
				s.ready = append(s.ready[:i], s.ready[i+1:]...)
				break
			}
		}
	}
	detail := t.state.String()
	if err != nil {
		detail += ": " + err.Error()
	}
	s.point("task.finish", t, detail)
	s.wakeAll(JoinKey(t.ID))
}

// drainReap lets killed goroutines unwind.
func (s *Scheduler) drainReap() {
	for len(s.reap) > 0 {
		t := s.reap[0]
		s.reap = s.reap[1:]
		s.current = t
		t.resume <- struct{}{}
		<-s.baton
		s.current = nil
	}
}

func (s *Scheduler) shutdown(cause error) {
	for _, id := range s.order {
		t := s.tasks[id]
		if !t.Done() {
			s.cancel(t, cause)
		}
	}
	s.drainReap()
}

func (s *Scheduler) suspended() []StalledTask {
	var out []StalledTask
	for _, id := range s.order {
		t := s.tasks[id]
		if t.state == StateSuspended {
			out = append(out, StalledTask{ID: t.ID, Name: t.Name, Reason: t.reason})
		}
	}
	return out
}

func (s *Scheduler) nextReady() (TaskID, bool) {
	for len(s.ready) > 0 {
		idx := 0
		if s.rng != nil {
			idx = s.rng.Intn(len(s.ready))
		}
		id := s.ready[idx]
		copy(s.ready[idx:], s.ready[idx+1:])
		s.ready = s.ready[:len(s.ready)-1]
		delete(s.readySet, id)
		if t := s.tasks[id]; t == nil || t.Done() {
			continue
		}
		return id, true
	}
	return 0, false
}

func (s *Scheduler) enqueue(id TaskID) {
	if _, ok := s.readySet[id]; ok {
		return
	}
	s.ready = append(s.ready, id)
	s.readySet[id] = struct{}{}
	if t := s.tasks[id]; t != nil && !t.Done() {
		t.state = StateReady
	}
}

func (s *Scheduler) parkTask(id TaskID, key WakerKey) {
	if prev, ok := s.parked[id]; ok {
		if prev == key {
			return
		}
		s.removeWaiter(prev, id)
	}
	s.parked[id] = key
	s.waiters[key] = append(s.waiters[key], id)
}

func (s *Scheduler) removeWaiter(key WakerKey, id TaskID) {
	waiters := s.waiters[key]
	for i, w := range waiters {
		if w == id {
			copy(waiters[i:], waiters[i+1:])
			waiters = waiters[:len(waiters)-1]
			break
		}
	}
	if len(waiters) == 0 {
		delete(s.waiters, key)
		return
	}
	s.waiters[key] = waiters
}

// popWaiter removes the oldest live waiter on key without waking it.
func (s *Scheduler) popWaiter(key WakerKey) (*Task, bool) {
	for {
		waiters := s.waiters[key]
		if len(waiters) == 0 {
			return nil, false
		}
		id := waiters[0]
		if len(waiters) == 1 {
			delete(s.waiters, key)
		} else {
			s.waiters[key] = waiters[1:]
		}
		delete(s.parked, id)
		if t := s.tasks[id]; t != nil && !t.Done() {
			return t, true
		}
	}
}

func (s *Scheduler) wakeAll(key WakerKey) {
	waiters := s.waiters[key]
	if len(waiters) == 0 {
		return
	}
	delete(s.waiters, key)
	for _, id := range waiters {
		delete(s.parked, id)
		s.Wake(id)
	}
}

func (s *Scheduler) newObjID() uint64 {
	s.nextObjID++
	return s.nextObjID
}

func (s *Scheduler) point(name string, t *Task, detail string) {
	if !s.tracer.Enabled() {
		return
	}
	trace.Point(s.tracer, trace.ScopeTask, name, detail,
		trace.A("task", strconv.FormatUint(uint64(t.ID), 10)),
		trace.A("name", t.Name))
}
