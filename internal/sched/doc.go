// Package sched is the cooperative task scheduler behind async/await.
//
// One run loop owns all scheduler state. Each task runs on its own goroutine,
// but only the holder of the baton executes: the loop hands the baton to the
// task popped from the FIFO ready queue and blocks until the task parks or
// finishes. A parked goroutine is the task's continuation; only the loop
// resumes it. Wait queues (locks, semaphores, barriers, joins) are FIFO.
//
// Cancellation fails a task with ErrCancelled (or a *DeadlineError), wakes
// its awaiters and unwinds its goroutine without running Gard code again.
// When nothing is ready and no timer is pending while tasks are still
// suspended, Run returns a *StalledError; deadlock is not otherwise detected.
package sched
