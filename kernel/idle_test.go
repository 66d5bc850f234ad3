package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextWakeTickNoSourcesReady(t *testing.T) {
	s := New(WithMaxPriorities(8))
	require.NoError(t, s.Start())

	_, ok := s.NextWakeTick()
	require.False(t, ok)

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestNextWakeTickReportsSoonestDelayedTask(t *testing.T) {
	s := New(WithMaxPriorities(8))

	_, err := s.CreateTask("sleeper", 4, 512, func(ctx context.Context, _ any) {
		_ = s.DelayTicks(50)
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	var wake uint32
	var ok bool
	// give the sleeper a moment to reach DelayTicks and register itself.
	for i := 0; i < 100; i++ {
		wake, ok = s.NextWakeTick()
		if ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, ok)
	require.Equal(t, uint32(50), wake)

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestNextWakeTickReportsSoonestTimer(t *testing.T) {
	s := New(WithMaxPriorities(8))
	require.NoError(t, s.Start())

	id, err := s.Timers().CreateTimer("soon", 20, false, func(TimerID) {})
	require.NoError(t, err)
	require.NoError(t, s.Timers().Start(id, nil))

	var wake uint32
	var ok bool
	for i := 0; i < 100; i++ {
		wake, ok = s.NextWakeTick()
		if ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, ok)
	require.Equal(t, uint32(20), wake)

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestReapTerminatedTasksRemovesFinishedDynamicTask(t *testing.T) {
	s := New(WithMaxPriorities(8))
	h, err := s.CreateTask("short-lived", 4, 512, func(ctx context.Context, _ any) {
		// returns immediately, triggering implicit deletion
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := s.TaskState(h); err != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	_, err = s.TaskState(h)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
