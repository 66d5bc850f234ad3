package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// waitFor polls cond until it's true or the timeout elapses, since the
// tasks under test run on real goroutines the scheduler dispatches —
// there is no single point to block on other than observable state.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestEqualPriorityRoundRobin(t *testing.T) {
	s := New(WithMaxPriorities(8))
	var order []string
	done := make(chan struct{}, 2)

	_, err := s.CreateTask("A", 3, 512, func(ctx context.Context, _ any) {
		for i := 0; i < 3; i++ {
			order = append(order, "A")
			s.Yield()
		}
		done <- struct{}{}
	}, nil)
	require.NoError(t, err)

	_, err = s.CreateTask("B", 3, 512, func(ctx context.Context, _ any) {
		for i := 0; i < 3; i++ {
			order = append(order, "B")
			s.Yield()
		}
		done <- struct{}{}
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	<-done
	<-done

	require.Equal(t, []string{"A", "B", "A", "B", "A", "B"}, order)
}

func TestHigherPriorityRunsFirst(t *testing.T) {
	s := New(WithMaxPriorities(8))
	var order []string
	loDone := make(chan struct{})
	hiDone := make(chan struct{})

	_, err := s.CreateTask("lo", 2, 512, func(ctx context.Context, _ any) {
		order = append(order, "lo")
		close(loDone)
	}, nil)
	require.NoError(t, err)

	_, err = s.CreateTask("hi", 5, 512, func(ctx context.Context, _ any) {
		order = append(order, "hi")
		close(hiDone)
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	<-hiDone
	<-loDone

	require.Equal(t, []string{"hi", "lo"}, order)
}

func TestDelayTicksBlocksUntilWoken(t *testing.T) {
	s := New(WithMaxPriorities(8))
	woke := make(chan uint32, 1)

	_, err := s.CreateTask("sleeper", 4, 512, func(ctx context.Context, _ any) {
		require.NoError(t, s.DelayTicks(10))
		woke <- s.TickCount()
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	for i := 0; i < 9; i++ {
		s.Tick()
	}
	select {
	case <-woke:
		t.Fatal("task woke before its delay elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	s.Tick()
	select {
	case tick := <-woke:
		require.Equal(t, uint32(10), tick)
	case <-time.After(time.Second):
		t.Fatal("task never woke")
	}
}

func TestAbortDelayWakesEarlyAndReportsAborted(t *testing.T) {
	s := New(WithMaxPriorities(8))
	result := make(chan error, 1)

	h, err := s.CreateTask("sleeper", 4, 512, func(ctx context.Context, _ any) {
		result <- s.DelayTicks(1000)
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	waitFor(t, time.Second, func() bool {
		st, _ := s.TaskState(h)
		return st == TaskBlocked
	})

	aborted, err := s.AbortDelay(h)
	require.NoError(t, err)
	require.True(t, aborted)

	select {
	case err := <-result:
		require.ErrorIs(t, err, ErrAborted)
	case <-time.After(time.Second):
		t.Fatal("aborted task never resumed")
	}
}

func TestAbortDelayNoOpWhenNotBlocked(t *testing.T) {
	s := New(WithMaxPriorities(8))
	h, err := s.CreateTask("runner", 4, 512, func(ctx context.Context, _ any) {
		<-ctx.Done()
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	waitFor(t, time.Second, func() bool {
		return s.CurrentTask() == h
	})

	aborted, err := s.AbortDelay(h)
	require.NoError(t, err)
	require.False(t, aborted)

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestSuspendResume(t *testing.T) {
	s := New(WithMaxPriorities(8))
	progressed := make(chan struct{}, 10)

	h, err := s.CreateTask("worker", 4, 512, func(ctx context.Context, _ any) {
		for ctx.Err() == nil {
			progressed <- struct{}{}
			s.Checkpoint()
		}
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	<-progressed
	require.NoError(t, s.Suspend(h))
	waitFor(t, time.Second, func() bool {
		st, _ := s.TaskState(h)
		return st == TaskSuspended
	})

	// drain anything already in flight, then make sure nothing more
	// shows up while suspended.
	drain := true
	for drain {
		select {
		case <-progressed:
		default:
			drain = false
		}
	}
	select {
	case <-progressed:
		t.Fatal("suspended task kept running")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, s.Resume(h))
	select {
	case <-progressed:
	case <-time.After(time.Second):
		t.Fatal("resumed task never ran again")
	}

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestDeleteSelfNeverReturns(t *testing.T) {
	s := New(WithMaxPriorities(8))
	ranAfterDelete := make(chan struct{}, 1)

	h, err := s.CreateTask("suicidal", 4, 512, func(ctx context.Context, _ any) {
		require.NoError(t, s.DeleteTask(0))
		ranAfterDelete <- struct{}{}
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	waitFor(t, time.Second, func() bool {
		st, err := s.TaskState(h)
		return err != nil || st == TaskDeleted || st == TaskInvalid
	})
	select {
	case <-ranAfterDelete:
		t.Fatal("code after DeleteTask(0) executed")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDeleteBlockedTaskUnblocksItsGoroutine(t *testing.T) {
	s := New(WithMaxPriorities(8))
	unblocked := make(chan struct{})

	h, err := s.CreateTask("blocked", 4, 512, func(ctx context.Context, _ any) {
		_ = s.DelayTicks(1_000_000)
		close(unblocked)
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	waitFor(t, time.Second, func() bool {
		st, _ := s.TaskState(h)
		return st == TaskBlocked
	})

	require.NoError(t, s.DeleteTask(h))

	// The deleted task's goroutine must unwind via Goexit without
	// running any more of its own code (in particular, not the
	// close(unblocked) after DelayTicks).
	select {
	case <-unblocked:
		t.Fatal("deleted task's code ran after being force-deleted")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSetPriorityDoesNotClobberActiveInheritanceBoost(t *testing.T) {
	s := New(WithMaxPriorities(16))
	m := NewMutex(s)
	ownerTook := make(chan struct{})
	hiBlocked := make(chan struct{})
	release := make(chan struct{})

	ownerH, err := s.CreateTask("owner", 3, 512, func(ctx context.Context, _ any) {
		require.NoError(t, m.Take(nil))
		close(ownerTook)
		<-release
		require.NoError(t, m.Give())
	}, nil)
	require.NoError(t, err)

	_, err = s.CreateTask("hi", 8, 512, func(ctx context.Context, _ any) {
		<-ownerTook
		close(hiBlocked)
		require.NoError(t, m.Take(nil))
		require.NoError(t, m.Give())
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())

	<-hiBlocked
	time.Sleep(10 * time.Millisecond) // let "hi" actually reach its blocking Take
	p, err := s.GetPriority(ownerH)
	require.NoError(t, err)
	require.Equal(t, uint8(8), p, "owner should be boosted to the waiter's priority")

	require.NoError(t, s.SetPriority(ownerH, 4))
	p, err = s.GetPriority(ownerH)
	require.NoError(t, err)
	require.Equal(t, uint8(8), p, "SetPriority must not drop an active inheritance boost")

	close(release)
	time.Sleep(10 * time.Millisecond)
	p, err = s.GetPriority(ownerH)
	require.NoError(t, err)
	require.Equal(t, uint8(4), p, "once the boost is released, the new base priority takes effect")
}

func TestCreateTaskFailsOutOfMemoryPastHeapSize(t *testing.T) {
	var hookFired bool
	s := New(WithMaxPriorities(8), WithHeapSize(1024), WithMallocFailedHook(func() { hookFired = true }))

	_, err := s.CreateTask("fits", 4, 512, func(ctx context.Context, _ any) {}, nil)
	require.NoError(t, err)
	require.False(t, hookFired)

	_, err = s.CreateTask("toobig", 4, 600, func(ctx context.Context, _ any) {}, nil)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.True(t, hookFired, "malloc-failed hook should fire on a simulated allocation failure")
}
