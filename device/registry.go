package device

import (
	"context"
	"sync"

	"github.com/purduesigbots/pros-sub000/kernel"
)

const numPorts = 21 // V5_MAX_DEVICE_PORTS, per original_source/include/vdml/registry.h

// portMutexBus is the default Bus implementation: one kernel.Mutex per
// port, taken for the duration of a claim. This is the concrete
// exerciser of kernel.Mutex's priority inheritance from outside the
// kernel package itself — a port shared by a low-priority background
// task and a high-priority control-loop task inherits exactly as
// spec.md §4.E describes.
type portMutexBus struct {
	s *kernel.Scheduler

	mu          sync.Mutex // protects the maps below only, not the ports themselves
	kinds       map[Port]Type
	mutexes     map[Port]*kernel.Mutex
	calibrating map[Port]bool
}

// NewBus constructs a Bus whose per-port locks are kernel.Mutex values
// bound to s, so contention and priority inheritance on a shared smart
// port are visible to the same scheduler every task runs under.
func NewBus(s *kernel.Scheduler) Bus {
	return &portMutexBus{
		s:           s,
		kinds:       make(map[Port]Type),
		mutexes:     make(map[Port]*kernel.Mutex),
		calibrating: make(map[Port]bool),
	}
}

func (b *portMutexBus) mutexFor(port Port) *kernel.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.mutexes[port]
	if !ok {
		m = kernel.NewMutex(b.s)
		b.mutexes[port] = m
	}
	return m
}

func (b *portMutexBus) Register(port Port, t Type) error {
	if port < 0 || int(port) >= numPorts {
		return ErrNoDevice
	}
	b.mu.Lock()
	b.kinds[port] = t
	b.mu.Unlock()
	return nil
}

func (b *portMutexBus) Claim(ctx context.Context, port Port) (Type, error) {
	if port < 0 || int(port) >= numPorts {
		return TypeNone, ErrNoDevice
	}
	b.mu.Lock()
	t, ok := b.kinds[port]
	calibrating := b.calibrating[port]
	b.mu.Unlock()
	if !ok {
		return TypeNone, ErrNoDevice
	}
	if calibrating {
		return TypeNone, ErrStillCalibrating
	}
	// The kernel's own timeouts are tick-counted, not wall-clock, so a
	// ctx deadline has no direct translation here; Claim blocks forever
	// for the mutex itself, matching original_source's port_mutex_take
	// default of a zero (infinite) wait.
	if err := b.mutexFor(port).Take(nil); err != nil {
		return TypeNone, err
	}
	if ctx.Err() != nil {
		b.mutexFor(port).Give()
		return TypeNone, ctx.Err()
	}
	return t, nil
}

func (b *portMutexBus) Release(port Port) {
	b.mutexFor(port).Give()
}

func (b *portMutexBus) SetCalibrating(port Port, calibrating bool) error {
	if port < 0 || int(port) >= numPorts {
		return ErrNoDevice
	}
	b.mu.Lock()
	b.calibrating[port] = calibrating
	b.mu.Unlock()
	return nil
}
