package sched

// Lock is a mutual-exclusion lock with a FIFO wait queue. Release hands
// ownership straight to the oldest waiter.
type Lock struct {
	s      *Scheduler
	id     uint64
	holder *Task
}

// NewLock creates an unlocked lock.
func (s *Scheduler) NewLock() *Lock {
	return &Lock{s: s, id: s.newObjID()}
}

// Acquire takes the lock, suspending the current task while it is held.
// The lock is not reentrant.
func (l *Lock) Acquire() error {
	cur := l.s.current
	if cur == nil {
		return ErrNoTask
	}
	if l.free() {
		l.holder = cur
		return nil
	}
	l.s.park(cur, lockKey(l.id), ReasonLock)
	return nil
}

// free reports whether the lock can be taken. A dead holder's lock goes to
// the oldest waiter first.
func (l *Lock) free() bool {
	if l.holder == nil {
		return true
	}
	if !l.holder.Done() {
		return false
	}
	if next, ok := l.s.popWaiter(lockKey(l.id)); ok {
		l.holder = next
		l.s.Wake(next.ID)
		return false
	}
	l.holder = nil
	return true
}

// TryAcquire takes the lock only if it is free.
func (l *Lock) TryAcquire() bool {
	cur := l.s.current
	if cur == nil {
		return false
	}
	if !l.free() {
		return false
	}
	l.holder = cur
	return true
}

// Release unlocks. Ownership is not checked.
func (l *Lock) Release() {
	if next, ok := l.s.popWaiter(lockKey(l.id)); ok {
		l.holder = next
		l.s.Wake(next.ID)
		return
	}
	l.holder = nil
}

// Holder returns the owning task, nil when unlocked.
func (l *Lock) Holder() *Task { return l.holder }

// Locked reports whether some task holds the lock.
func (l *Lock) Locked() bool { return l.holder != nil }

// Semaphore is a counting semaphore with a FIFO wait queue.
type Semaphore struct {
	s       *Scheduler
	id      uint64
	permits int64
}

// NewSemaphore creates a semaphore with the given number of permits.
func (s *Scheduler) NewSemaphore(permits int64) *Semaphore {
	if permits < 0 {
		permits = 0
	}
	return &Semaphore{s: s, id: s.newObjID(), permits: permits}
}

// Acquire takes one permit, suspending while none is available.
func (m *Semaphore) Acquire() error {
	cur := m.s.current
	if cur == nil {
		return ErrNoTask
	}
	if m.permits > 0 {
		m.permits--
		return nil
	}
	m.s.park(cur, semaphoreKey(m.id), ReasonSemaphore)
	return nil
}

// TryAcquire takes a permit only if one is free.
func (m *Semaphore) TryAcquire() bool {
	if m.permits > 0 {
		m.permits--
		return true
	}
	return false
}

// Release returns a permit; the oldest waiter receives it directly.
func (m *Semaphore) Release() {
	if next, ok := m.s.popWaiter(semaphoreKey(m.id)); ok {
		m.s.Wake(next.ID)
		return
	}
	m.permits++
}

// Available returns the free permit count.
func (m *Semaphore) Available() int64 { return m.permits }

// Barrier is a cyclic barrier for a fixed number of parties.
type Barrier struct {
	s          *Scheduler
	id         uint64
	parties    int
	generation uint64
}

// NewBarrier creates a barrier that trips when parties tasks have arrived.
func (s *Scheduler) NewBarrier(parties int) *Barrier {
	if parties < 1 {
		parties = 1
	}
	return &Barrier{s: s, id: s.newObjID(), parties: parties}
}

// Wait suspends the current task until all parties arrive. The last arrival
// trips the barrier, releases every waiter and starts the next generation.
func (b *Barrier) Wait() error {
	cur := b.s.current
	if cur == nil {
		return ErrNoTask
	}
	// считаем только живых ожидающих: отменённые уже сняты с очереди
	if len(b.s.waiters[barrierKey(b.id)])+1 >= b.parties {
		b.generation++
		b.s.wakeAll(barrierKey(b.id))
		return nil
	}
	b.s.park(cur, barrierKey(b.id), ReasonBarrier)
	return nil
}

// Parties returns the trip count.
func (b *Barrier) Parties() int { return b.parties }

// Generation counts completed trips.
func (b *Barrier) Generation() uint64 { return b.generation }
