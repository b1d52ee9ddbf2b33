package sched

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, s *Scheduler) {
	t.Helper()
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestFIFOOrderAndYield(t *testing.T) {
	s := New(Options{})
	var log []string
	for _, name := range []string{"a", "b"} {
		s.Spawn(name, func(*Task) (any, error) {
			log = append(log, name+"1")
			if err := s.Yield(); err != nil {
				return nil, err
			}
			log = append(log, name+"2")
			return nil, nil
		})
	}
	run(t, s)
	want := []string{"a1", "b1", "a2", "b2"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("order: want %v, got %v", want, log)
	}
}

func TestAwaitReturnsResultAndError(t *testing.T) {
	s := New(Options{})
	boom := errors.New("boom")
	var got any
	var gotErr error
	s.Spawn("main", func(*Task) (any, error) {
		ok := s.Spawn("ok", func(*Task) (any, error) { return 42, nil })
		bad := s.Spawn("bad", func(*Task) (any, error) { return nil, boom })
		v, err := s.Await(ok)
		if err != nil {
			return nil, err
		}
		got = v
		_, gotErr = s.Await(bad)
		return nil, nil
	})
	run(t, s)
	if got != 42 {
		t.Fatalf("await result: got %v", got)
	}
	if !errors.Is(gotErr, boom) {
		t.Fatalf("await error: got %v", gotErr)
	}
}

func TestSpawnDoesNotRunSynchronously(t *testing.T) {
	s := New(Options{})
	started := false
	var seen bool
	s.Spawn("main", func(*Task) (any, error) {
		s.Spawn("child", func(*Task) (any, error) {
			started = true
			return nil, nil
		})
		seen = started
		return nil, nil
	})
	run(t, s)
	if seen || !started {
		t.Fatalf("child must start after the spawner parks or ends: seen=%v started=%v", seen, started)
	}
}

func TestLockedCounter(t *testing.T) {
	s := New(Options{})
	m := s.NewLock()
	counter := 0
	body := func(*Task) (any, error) {
		for range 1000 {
			if err := m.Acquire(); err != nil {
				return nil, err
			}
			v := counter
			if err := s.Yield(); err != nil {
				return nil, err
			}
			counter = v + 1
			m.Release()
		}
		return nil, nil
	}
	s.Spawn("w1", body)
	s.Spawn("w2", body)
	run(t, s)
	if counter != 2000 {
		t.Fatalf("counter: want 2000, got %d", counter)
	}
}

func TestLockHandsOffFIFO(t *testing.T) {
	s := New(Options{})
	m := s.NewLock()
	var order []string
	s.Spawn("owner", func(*Task) (any, error) {
		_ = m.Acquire()
		_ = s.Yield()
		_ = s.Yield()
		m.Release()
		return nil, nil
	})
	for _, name := range []string{"x", "y"} {
		s.Spawn(name, func(*Task) (any, error) {
			_ = m.Acquire()
			order = append(order, name)
			m.Release()
			return nil, nil
		})
	}
	run(t, s)
	if !reflect.DeepEqual(order, []string{"x", "y"}) {
		t.Fatalf("lock order: %v", order)
	}
	if m.Locked() {
		t.Fatalf("lock must be free at the end")
	}
}

func TestLockExclusiveUnderFuzz(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42, 1234, 99991} {
		s := New(Options{Fuzz: true, Seed: seed})
		m := s.NewLock()
		counter := 0
		var inside *Task
		violations := 0
		body := func(me *Task) (any, error) {
			for range 500 {
				if err := m.Acquire(); err != nil {
					return nil, err
				}
				if inside != nil || m.Holder() != me {
					violations++
				}
				inside = me
				v := counter
				if err := s.Yield(); err != nil {
					return nil, err
				}
				counter = v + 1
				inside = nil
				m.Release()
			}
			return nil, nil
		}
		for _, name := range []string{"w1", "w2", "w3", "w4"} {
			s.Spawn(name, body)
		}
		run(t, s)
		if counter != 2000 || violations != 0 {
			t.Fatalf("seed %d: counter=%d violations=%d", seed, counter, violations)
		}
	}
}

func TestDeadHolderLockGoesToOldestWaiter(t *testing.T) {
	s := New(Options{})
	m := s.NewLock()
	ch := s.NewChannel(0)
	var order []string
	s.Spawn("main", func(*Task) (any, error) {
		owner := s.Spawn("owner", func(*Task) (any, error) {
			_ = m.Acquire()
			_, _, _ = ch.Recv()
			return nil, nil
		})
		s.Spawn("x", func(*Task) (any, error) {
			_ = m.Acquire()
			order = append(order, "x")
			m.Release()
			return nil, nil
		})
		_ = s.Yield()
		s.Cancel(owner)
		if m.TryAcquire() {
			t.Errorf("newcomer took a lock with a queued waiter")
		}
		_ = m.Acquire()
		order = append(order, "main")
		m.Release()
		return nil, nil
	})
	run(t, s)
	if !reflect.DeepEqual(order, []string{"x", "main"}) {
		t.Fatalf("lock order: %v", order)
	}
	if m.Locked() {
		t.Fatalf("lock must be free at the end")
	}
}

func TestChannelCloseDrains(t *testing.T) {
	s := New(Options{})
	ch := s.NewChannel(0)
	var got []any
	var oks []bool
	s.Spawn("producer", func(*Task) (any, error) {
		if err := ch.Send("a"); err != nil {
			return nil, err
		}
		ch.Close()
		return nil, nil
	})
	s.Spawn("consumer", func(*Task) (any, error) {
		for range 2 {
			v, ok, err := ch.Recv()
			if err != nil {
				return nil, err
			}
			got = append(got, v)
			oks = append(oks, ok)
		}
		return nil, nil
	})
	run(t, s)
	if !reflect.DeepEqual(got, []any{"a", nil}) || !reflect.DeepEqual(oks, []bool{true, false}) {
		t.Fatalf("recv: got %v %v", got, oks)
	}
}

func TestChannelSendAfterCloseFails(t *testing.T) {
	s := New(Options{})
	ch := s.NewChannel(1)
	var sendErr error
	s.Spawn("main", func(*Task) (any, error) {
		ch.Close()
		sendErr = ch.Send(1)
		return nil, nil
	})
	run(t, s)
	if !errors.Is(sendErr, ErrChannelClosed) {
		t.Fatalf("send after close: %v", sendErr)
	}
}

func TestBufferedChannelPreservesOrder(t *testing.T) {
	s := New(Options{})
	ch := s.NewChannel(2)
	var got []any
	s.Spawn("producer", func(*Task) (any, error) {
		for i := range 5 {
			if err := ch.Send(i); err != nil {
				return nil, err
			}
		}
		ch.Close()
		return nil, nil
	})
	s.Spawn("consumer", func(*Task) (any, error) {
		for {
			v, ok, _ := ch.Recv()
			if !ok {
				return nil, nil
			}
			got = append(got, v)
		}
	})
	run(t, s)
	if !reflect.DeepEqual(got, []any{0, 1, 2, 3, 4}) {
		t.Fatalf("order: %v", got)
	}
}

func TestSemaphoreLimitsConcurrency(t *testing.T) {
	s := New(Options{})
	sem := s.NewSemaphore(2)
	active, peak := 0, 0
	for range 5 {
		s.Spawn("w", func(*Task) (any, error) {
			_ = sem.Acquire()
			active++
			peak = max(peak, active)
			_ = s.Yield()
			active--
			sem.Release()
			return nil, nil
		})
	}
	run(t, s)
	if peak != 2 {
		t.Fatalf("peak concurrency: want 2, got %d", peak)
	}
	if sem.Available() != 2 {
		t.Fatalf("permits: %d", sem.Available())
	}
}

func TestBarrierReleasesAllParties(t *testing.T) {
	s := New(Options{})
	b := s.NewBarrier(3)
	var after []string
	for _, name := range []string{"a", "b", "c"} {
		s.Spawn(name, func(*Task) (any, error) {
			_ = b.Wait()
			after = append(after, name)
			return nil, nil
		})
	}
	run(t, s)
	if len(after) != 3 || b.Generation() != 1 {
		t.Fatalf("barrier: after=%v generation=%d", after, b.Generation())
	}
}

func TestBarrierIgnoresCancelledParties(t *testing.T) {
	s := New(Options{})
	b := s.NewBarrier(2)
	lateArrived := false
	passedEarly := false
	s.Spawn("main", func(*Task) (any, error) {
		victim := s.Spawn("victim", func(*Task) (any, error) {
			_ = b.Wait()
			return nil, nil
		})
		_ = s.Yield()
		s.Cancel(victim)
		s.Spawn("late", func(*Task) (any, error) {
			lateArrived = true
			return nil, b.Wait()
		})
		_ = b.Wait()
		passedEarly = !lateArrived
		return nil, nil
	})
	run(t, s)
	if passedEarly {
		t.Fatalf("barrier tripped with a cancelled party")
	}
	if b.Generation() != 1 {
		t.Fatalf("generation: %d", b.Generation())
	}
}

func TestCancelPropagatesToAwaiter(t *testing.T) {
	s := New(Options{})
	ch := s.NewChannel(0)
	ran := false
	var awaitErr error
	s.Spawn("main", func(*Task) (any, error) {
		victim := s.Spawn("victim", func(*Task) (any, error) {
			_, _, _ = ch.Recv()
			ran = true
			return nil, nil
		})
		_ = s.Yield()
		s.Cancel(victim)
		_, awaitErr = s.Await(victim)
		return nil, nil
	})
	run(t, s)
	if !errors.Is(awaitErr, ErrCancelled) {
		t.Fatalf("await cancelled: %v", awaitErr)
	}
	if ran {
		t.Fatalf("cancelled task resumed")
	}
}

func TestDeadlineFailsSuspendedTask(t *testing.T) {
	s := New(Options{})
	var awaitErr error
	s.Spawn("main", func(*Task) (any, error) {
		slow := s.Spawn("slow", func(*Task) (any, error) {
			_ = s.Sleep(time.Second)
			return "late", nil
		})
		s.SetDeadline(slow, 50*time.Millisecond)
		_, awaitErr = s.Await(slow)
		return nil, nil
	})
	run(t, s)
	var de *DeadlineError
	if !errors.As(awaitErr, &de) || de.After != 50*time.Millisecond {
		t.Fatalf("deadline error: %v", awaitErr)
	}
	if !errors.Is(awaitErr, ErrCancelled) {
		t.Fatalf("deadline must count as cancellation")
	}
	if s.Now() != 50*time.Millisecond {
		t.Fatalf("virtual clock: %v", s.Now())
	}
}

func TestSleepOrdersByDeadline(t *testing.T) {
	s := New(Options{})
	var order []string
	for _, tc := range []struct {
		name string
		d    time.Duration
	}{{"slow", 30 * time.Millisecond}, {"fast", 10 * time.Millisecond}} {
		s.Spawn(tc.name, func(*Task) (any, error) {
			_ = s.Sleep(tc.d)
			order = append(order, tc.name)
			return nil, nil
		})
	}
	run(t, s)
	if !reflect.DeepEqual(order, []string{"fast", "slow"}) {
		t.Fatalf("sleep order: %v", order)
	}
}

func TestStalledReport(t *testing.T) {
	s := New(Options{})
	m := s.NewLock()
	ch := s.NewChannel(0)
	s.Spawn("holder", func(*Task) (any, error) {
		_ = m.Acquire()
		_, _, _ = ch.Recv()
		return nil, nil
	})
	s.Spawn("waiter", func(*Task) (any, error) {
		_ = m.Acquire()
		return nil, nil
	})
	err := s.Run(context.Background())
	var stalled *StalledError
	if !errors.As(err, &stalled) {
		t.Fatalf("want stalled error, got %v", err)
	}
	want := []StalledTask{
		{ID: 1, Name: "holder", Reason: ReasonChannelRecv},
		{ID: 2, Name: "waiter", Reason: ReasonLock},
	}
	if !reflect.DeepEqual(stalled.Tasks, want) {
		t.Fatalf("stalled tasks: %+v", stalled.Tasks)
	}
	if !strings.Contains(err.Error(), "waiter (lock)") {
		t.Fatalf("message: %s", err)
	}
}

func TestPanicBecomesTaskFailure(t *testing.T) {
	s := New(Options{})
	task := s.Spawn("p", func(*Task) (any, error) { panic("oops") })
	run(t, s)
	_, err := task.Result()
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != "oops" {
		t.Fatalf("panic error: %v", err)
	}
}

func TestBlockingOutsideTask(t *testing.T) {
	s := New(Options{})
	if err := s.Yield(); !errors.Is(err, ErrNoTask) {
		t.Fatalf("yield outside task: %v", err)
	}
	if err := s.NewLock().Acquire(); !errors.Is(err, ErrNoTask) {
		t.Fatalf("acquire outside task: %v", err)
	}
}
