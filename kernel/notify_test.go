package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifyWaitReceivesValue(t *testing.T) {
	s := New(WithMaxPriorities(8))
	result := make(chan uint32, 1)

	h, err := s.CreateTask("waiter", 4, 512, func(ctx context.Context, _ any) {
		v, ok, err := s.NotifyWait(0, 0, 0, nil)
		require.NoError(t, err)
		require.True(t, ok)
		result <- v
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	time.Sleep(10 * time.Millisecond)
	applied, err := s.Notify(h, 0, 7, NotifySetValueWithOverwrite)
	require.NoError(t, err)
	require.True(t, applied)

	select {
	case v := <-result:
		require.Equal(t, uint32(7), v)
	case <-time.After(time.Second):
		t.Fatal("waiter never notified")
	}
}

func TestNotifyWaitTimesOut(t *testing.T) {
	s := New(WithMaxPriorities(8))
	result := make(chan bool, 1)

	_, err := s.CreateTask("waiter", 4, 512, func(ctx context.Context, _ any) {
		timeout := uint32(5)
		_, ok, err := s.NotifyWait(0, 0, 0, &timeout)
		require.NoError(t, err)
		result <- ok
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	for i := 0; i < 5; i++ {
		s.Tick()
	}

	select {
	case ok := <-result:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestNotifySetValueWithoutOverwriteRejectsWhenPending(t *testing.T) {
	s := New(WithMaxPriorities(8))
	result := make(chan [2]bool, 1)

	h, err := s.CreateTask("idle", 4, 512, func(ctx context.Context, _ any) {
		for ctx.Err() == nil {
			s.Checkpoint()
		}
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	time.Sleep(5 * time.Millisecond)
	first, err := s.Notify(h, 0, 1, NotifySetValueWithoutOverwrite)
	require.NoError(t, err)
	second, err := s.Notify(h, 0, 2, NotifySetValueWithoutOverwrite)
	require.NoError(t, err)
	result <- [2]bool{first, second}

	got := <-result
	require.True(t, got[0])
	require.False(t, got[1], "second notify should be rejected while the first is unconsumed")

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestNotifyTakeActsAsCountingSemaphore(t *testing.T) {
	s := New(WithMaxPriorities(8))
	takes := make(chan uint32, 3)

	h, err := s.CreateTask("counter", 4, 512, func(ctx context.Context, _ any) {
		for i := 0; i < 2; i++ {
			v, ok, err := s.NotifyTake(0, false, nil)
			require.NoError(t, err)
			require.True(t, ok)
			takes <- v
		}
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	time.Sleep(5 * time.Millisecond)
	_, err = s.Notify(h, 0, 1, NotifyIncrement)
	require.NoError(t, err)
	require.Equal(t, uint32(1), <-takes)
	_, err = s.Notify(h, 0, 1, NotifyIncrement)
	require.NoError(t, err)

	require.Equal(t, uint32(1), <-takes)
}

func TestNotifyTakeClearOnExitActsAsBinarySemaphore(t *testing.T) {
	s := New(WithMaxPriorities(8))
	took := make(chan uint32, 1)

	h, err := s.CreateTask("binary", 4, 512, func(ctx context.Context, _ any) {
		v, ok, err := s.NotifyTake(0, true, nil)
		require.NoError(t, err)
		require.True(t, ok)
		took <- v
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	time.Sleep(5 * time.Millisecond)
	_, err = s.Notify(h, 0, 5, NotifySetValueWithOverwrite)
	require.NoError(t, err)

	require.Equal(t, uint32(5), <-took)
}

func TestNotifyTakeTimesOut(t *testing.T) {
	s := New(WithMaxPriorities(8))
	result := make(chan bool, 1)

	_, err := s.CreateTask("taker", 4, 512, func(ctx context.Context, _ any) {
		timeout := uint32(5)
		_, ok, err := s.NotifyTake(0, false, &timeout)
		require.NoError(t, err)
		result <- ok
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	for i := 0; i < 5; i++ {
		s.Tick()
	}

	select {
	case ok := <-result:
		require.False(t, ok, "an unnotified NotifyTake timeout must report ok=false, not a spurious zero take")
	case <-time.After(time.Second):
		t.Fatal("taker never woke")
	}
}
