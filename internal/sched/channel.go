package sched

type pendingSend struct {
	task  *Task
	value any
}

// Channel is a FIFO channel. Capacity 0 is a rendezvous: a send completes only
// when a receiver takes the value.
type Channel struct {
	s        *Scheduler
	id       uint64
	capacity int
	buf      []any
	closed   bool
	sendq    []pendingSend
	recvq    []*Task
}

// NewChannel creates a channel with the given buffer capacity.
func (s *Scheduler) NewChannel(capacity int) *Channel {
	if capacity < 0 {
		capacity = 0
	}
	return &Channel{s: s, id: s.newObjID(), capacity: capacity}
}

// Send delivers v, suspending while the buffer is full and no receiver waits.
func (c *Channel) Send(v any) error {
	if c.closed {
		return ErrChannelClosed
	}
	if r, ok := c.popReceiver(); ok {
		r.wakeVal, r.wakeOK = v, true
		c.s.Wake(r.ID)
		return nil
	}
	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, v)
		return nil
	}
	cur := c.s.current
	if cur == nil {
		return ErrNoTask
	}
	cur.wakeErr = nil
	c.sendq = append(c.sendq, pendingSend{task: cur, value: v})
	c.s.park(cur, WakerKey{}, ReasonChannelSend)
	err := cur.wakeErr
	cur.wakeErr = nil
	return err
}

// Recv takes the next value. ok is false once the channel is closed and
// drained; the value is then nil.
func (c *Channel) Recv() (v any, ok bool, err error) {
	if len(c.buf) > 0 {
		v = c.buf[0]
		c.buf[0] = nil
		c.buf = c.buf[1:]
		if snd, found := c.popSender(); found {
			c.buf = append(c.buf, snd.value)
			c.s.Wake(snd.task.ID)
		}
		return v, true, nil
	}
	if snd, found := c.popSender(); found {
		c.s.Wake(snd.task.ID)
		return snd.value, true, nil
	}
	if c.closed {
		return nil, false, nil
	}
	cur := c.s.current
	if cur == nil {
		return nil, false, ErrNoTask
	}
	cur.wakeVal, cur.wakeOK = nil, false
	c.recvq = append(c.recvq, cur)
	c.s.park(cur, WakerKey{}, ReasonChannelRecv)
	v, ok = cur.wakeVal, cur.wakeOK
	cur.wakeVal = nil
	return v, ok, nil
}

// TryRecv receives without suspending.
func (c *Channel) TryRecv() (v any, ok bool) {
	if len(c.buf) == 0 {
		if snd, found := c.popSender(); found {
			c.s.Wake(snd.task.ID)
			return snd.value, true
		}
		return nil, false
	}
	v, ok, _ = c.Recv()
	return v, ok
}

// Close marks the channel closed. Waiting receivers get (nil, false); waiting
// senders fail with ErrChannelClosed. Closing twice is a no-op.
func (c *Channel) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for {
		r, ok := c.popReceiver()
		if !ok {
			break
		}
		r.wakeVal, r.wakeOK = nil, false
		c.s.Wake(r.ID)
	}
	for {
		snd, ok := c.popSender()
		if !ok {
			break
		}
		snd.task.wakeErr = ErrChannelClosed
		c.s.Wake(snd.task.ID)
	}
}

// Closed reports whether Close was called.
func (c *Channel) Closed() bool { return c.closed }

// Len returns the number of buffered values.
func (c *Channel) Len() int { return len(c.buf) }

// Cap returns the buffer capacity.
func (c *Channel) Cap() int { return c.capacity }

func (c *Channel) popReceiver() (*Task, bool) {
	for len(c.recvq) > 0 {
		t := c.recvq[0]
		c.recvq = c.recvq[1:]
		if !t.Done() {
			return t, true
		}
	}
	return nil, false
}

func (c *Channel) popSender() (pendingSend, bool) {
	for len(c.sendq) > 0 {
		p := c.sendq[0]
		c.sendq = c.sendq[1:]
		if !p.task.Done() {
			return p, true
		}
	}
	return pendingSend{}, false
}
