package sched

// TaskID identifies a spawned task.
type TaskID uint64

// State is the task state machine:
// Ready -> Running -> {Suspended -> Ready} -> Completed | Failed.
type State uint8

const (
	StateReady State = iota
	StateRunning
	StateSuspended
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Reason says what a suspended task waits for.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonAwait
	ReasonLock
	ReasonSemaphore
	ReasonChannelSend
	ReasonChannelRecv
	ReasonBarrier
	ReasonSleep
	ReasonYield
)

func (r Reason) String() string {
	switch r {
	case ReasonAwait:
		return "await"
	case ReasonLock:
		return "lock"
	case ReasonSemaphore:
		return "semaphore"
	case ReasonChannelSend:
		return "channel send"
	case ReasonChannelRecv:
		return "channel recv"
	case ReasonBarrier:
		return "barrier"
	case ReasonSleep:
		return "sleep"
	case ReasonYield:
		return "yield"
	}
	return "none"
}

// Func is a task body. It runs on the task's goroutine while holding the baton.
type Func func(t *Task) (any, error)

// Task stores scheduler-visible task state.
type Task struct {
	ID   TaskID
	Name string
	// Local is owned by whoever spawned the task (the interpreter keeps its
	// per-task call context here).
	Local any

	state  State
	reason Reason
	result any
	err    error

	fn      Func
	resume  chan struct{}
	started bool
	killed  bool

	deadline TimerID
	sleep    TimerID

	// передача значения от будящего
	wakeVal any
	wakeOK  bool
	wakeErr error
}

func (t *Task) State() State   { return t.state }
func (t *Task) Reason() Reason { return t.reason }

// Done reports whether the task completed or failed.
func (t *Task) Done() bool { return t.state == StateCompleted || t.state == StateFailed }

// Result returns the outcome of a finished task.
func (t *Task) Result() (any, error) { return t.result, t.err }

// Cancelled reports whether the task was killed by Cancel or a deadline.
func (t *Task) Cancelled() bool { return t.killed }

func (t *Task) String() string {
	if t.Name != "" {
		return "task #" + itoa(uint64(t.ID)) + " " + t.Name
	}
	return "task #" + itoa(uint64(t.ID))
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
