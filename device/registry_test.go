package device

import (
	"context"
	"testing"
	"time"

	"github.com/purduesigbots/pros-sub000/kernel"
	"github.com/stretchr/testify/require"
)

func TestClaimUnregisteredPortFails(t *testing.T) {
	s := kernel.New(kernel.WithMaxPriorities(8))
	bus := NewBus(s)

	_, err := bus.Claim(context.Background(), 3)
	require.ErrorIs(t, err, ErrNoDevice)
}

func TestClaimReleaseRoundTrip(t *testing.T) {
	s := kernel.New(kernel.WithMaxPriorities(8))
	bus := NewBus(s)
	require.NoError(t, bus.Register(3, TypeMotor))

	typ, err := bus.Claim(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, TypeMotor, typ)
	bus.Release(3)
}

func TestClaimOutOfRangePort(t *testing.T) {
	s := kernel.New(kernel.WithMaxPriorities(8))
	bus := NewBus(s)

	require.ErrorIs(t, bus.Register(numPorts, TypeMotor), ErrNoDevice)
	_, err := bus.Claim(context.Background(), -1)
	require.ErrorIs(t, err, ErrNoDevice)
}

func TestClaimSerializesAccessAcrossTasks(t *testing.T) {
	s := kernel.New(kernel.WithMaxPriorities(8))
	bus := NewBus(s)
	require.NoError(t, bus.Register(0, TypeSensor))

	var holder int
	conflict := make(chan struct{}, 1)
	done := make(chan struct{}, 2)

	work := func(id int) func(context.Context, any) {
		return func(ctx context.Context, _ any) {
			_, err := bus.Claim(ctx, 0)
			require.NoError(t, err)
			if holder != 0 {
				conflict <- struct{}{}
			}
			holder = id
			s.Checkpoint()
			s.Checkpoint()
			holder = 0
			bus.Release(0)
			done <- struct{}{}
		}
	}

	_, err := s.CreateTask("a", 3, 512, work(1), nil)
	require.NoError(t, err)
	_, err = s.CreateTask("b", 3, 512, work(2), nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task a never finished")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task b never finished")
	}
	select {
	case <-conflict:
		t.Fatal("two tasks held the same port simultaneously")
	default:
	}
}

func TestClaimRejectsWhileCalibrating(t *testing.T) {
	s := kernel.New(kernel.WithMaxPriorities(8))
	bus := NewBus(s)
	require.NoError(t, bus.Register(2, TypeSensor))
	require.NoError(t, bus.SetCalibrating(2, true))

	_, err := bus.Claim(context.Background(), 2)
	require.ErrorIs(t, err, ErrStillCalibrating)

	require.NoError(t, bus.SetCalibrating(2, false))
	typ, err := bus.Claim(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, TypeSensor, typ)
	bus.Release(2)
}

func TestClaimInheritsPriorityFromWaiter(t *testing.T) {
	s := kernel.New(kernel.WithMaxPriorities(8))
	bus := NewBus(s)
	require.NoError(t, bus.Register(1, TypeMotor))

	loTookIt := make(chan struct{})
	hiBlocked := make(chan struct{})
	release := make(chan struct{})
	boosted := make(chan uint8, 1)

	loH, err := s.CreateTask("lo", 1, 512, func(ctx context.Context, _ any) {
		_, err := bus.Claim(ctx, 1)
		require.NoError(t, err)
		close(loTookIt)
		<-release
		p, _ := s.GetPriority(0)
		boosted <- p
		bus.Release(1)
	}, nil)
	require.NoError(t, err)

	_, err = s.CreateTask("hi", 5, 512, func(ctx context.Context, _ any) {
		<-loTookIt
		close(hiBlocked)
		_, err := bus.Claim(ctx, 1)
		require.NoError(t, err)
		bus.Release(1)
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	<-hiBlocked
	time.Sleep(10 * time.Millisecond)

	p, err := s.GetPriority(loH)
	require.NoError(t, err)
	require.Equal(t, uint8(5), p)

	close(release)
	require.Equal(t, uint8(5), <-boosted)
}
