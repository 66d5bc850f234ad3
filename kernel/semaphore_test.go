package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBinarySemaphoreTakeGive(t *testing.T) {
	s := New(WithMaxPriorities(8))
	sem, err := NewSemaphore(s, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 0, sem.Count())

	require.NoError(t, sem.Give())
	require.Equal(t, 1, sem.Count())

	require.NoError(t, sem.Take(nil))
	require.Equal(t, 0, sem.Count())
}

func TestCountingSemaphoreSaturatesAtMax(t *testing.T) {
	s := New(WithMaxPriorities(8))
	sem, err := NewSemaphore(s, 2, 0)
	require.NoError(t, err)

	require.NoError(t, sem.Give())
	require.NoError(t, sem.Give())
	require.ErrorIs(t, sem.Give(), ErrWouldBlock)
	require.Equal(t, 2, sem.Count())
}

func TestSemaphoreInitialCount(t *testing.T) {
	s := New(WithMaxPriorities(8))
	sem, err := NewSemaphore(s, 3, 2)
	require.NoError(t, err)
	require.Equal(t, 2, sem.Count())
}

func TestSemaphoreInvalidConstruction(t *testing.T) {
	s := New(WithMaxPriorities(8))
	_, err := NewSemaphore(s, 0, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewSemaphore(s, 1, 2)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSemaphoreDeleteRejectsFurtherUse(t *testing.T) {
	s := New(WithMaxPriorities(8))
	sem, err := NewSemaphore(s, 1, 0)
	require.NoError(t, err)

	require.NoError(t, sem.Delete())
	require.ErrorIs(t, sem.Give(), ErrInvalidArgument)
}

func TestSemaphoreBlockingTakeWakesOnGive(t *testing.T) {
	s := New(WithMaxPriorities(8))
	sem, err := NewSemaphore(s, 1, 0)
	require.NoError(t, err)
	taken := make(chan struct{})

	_, err = s.CreateTask("waiter", 4, 512, func(ctx context.Context, _ any) {
		require.NoError(t, sem.Take(nil))
		close(taken)
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	select {
	case <-taken:
		t.Fatal("took before given")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, sem.Give())

	select {
	case <-taken:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
}
