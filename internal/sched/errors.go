package sched

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrCancelled fails a task cancelled through Cancel.
	ErrCancelled = errors.New("task cancelled")
	// ErrChannelClosed is returned by Send on a closed channel.
	ErrChannelClosed = errors.New("send on closed channel")
	// ErrNoTask is returned when a blocking operation runs outside any task.
	ErrNoTask = errors.New("sched: not inside a task")
	// ErrSelfAwait is returned when a task awaits itself.
	ErrSelfAwait = errors.New("task awaits itself")
)

// DeadlineError fails a task that was still suspended when its deadline hit.
type DeadlineError struct {
	Task  TaskID
	After time.Duration
}

func (e *DeadlineError) Error() string {
	return fmt.Sprintf("task #%d exceeded its deadline of %s", e.Task, e.After)
}

// Is lets errors.Is(err, ErrCancelled) match deadline failures too.
func (e *DeadlineError) Is(target error) bool { return target == ErrCancelled }

// StalledTask describes one task left suspended when the loop ran dry.
type StalledTask struct {
	ID     TaskID
	Name   string
	Reason Reason
}

// StalledError is a quiescence report: the run loop had no ready tasks and no
// timers while these tasks were still suspended.
type StalledError struct {
	Tasks []StalledTask
}

func (e *StalledError) Error() string {
	parts := make([]string, len(e.Tasks))
	for i, t := range e.Tasks {
		name := ""
		if t.Name != "" {
			name = " " + t.Name
		}
		parts[i] = fmt.Sprintf("#%d%s (%s)", t.ID, name, t.Reason)
	}
	return fmt.Sprintf("scheduler stalled: %d task(s) suspended: %s", len(e.Tasks), strings.Join(parts, ", "))
}

// PanicError wraps a Go panic raised inside a task body.
type PanicError struct {
	Task  TaskID
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task #%d panicked: %v", e.Task, e.Value)
}
