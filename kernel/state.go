package kernel

import "sync/atomic"

// schedulerState is the lifecycle of the Scheduler itself (distinct from
// any individual task's state in §4.B). Grounded on eventloop's
// FastState: an atomic CAS state machine with cache-line padding, used
// the same way — TryTransition for reversible states, Store for the
// one-way trip to Terminated.
type schedulerState uint32

const (
	// schedulerAwake: constructed, not yet started.
	schedulerAwake schedulerState = iota
	// schedulerRunning: the tick/dispatch loop is active.
	schedulerRunning
	// schedulerSuspended: never stored; SuspendAll tracks global
	// suspension in Scheduler.suspendNesting instead.
	schedulerSuspended
	// schedulerTerminated: stored by Shutdown before it cancels the
	// tasks' contexts and waits for their goroutines.
	schedulerTerminated
)

func (s schedulerState) String() string {
	switch s {
	case schedulerAwake:
		return "Awake"
	case schedulerRunning:
		return "Running"
	case schedulerSuspended:
		return "Suspended"
	case schedulerTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free atomic state machine with cache-line padding,
// adapted from eventloop.FastState: no transition validation is baked
// into Load/Store, only into TryTransition's CAS.
type fastState struct { //nolint:unused // betteralign:ignore
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

func newFastState(initial schedulerState) *fastState {
	s := &fastState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *fastState) Load() schedulerState {
	return schedulerState(s.v.Load())
}

func (s *fastState) Store(state schedulerState) {
	s.v.Store(uint32(state))
}

func (s *fastState) TryTransition(from, to schedulerState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
