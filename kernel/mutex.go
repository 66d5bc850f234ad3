package kernel

// Mutex is a binary lock with priority inheritance and, optionally,
// recursive-take semantics (spec.md §4.E). Unlike Semaphore, Mutex is
// not built on Queue: it needs an owner pointer and a priority-boost
// hook that a bare counting primitive has no place for.
type Mutex struct {
	s         *Scheduler
	recursive bool

	owner          *tcb
	recursionDepth uint32
	waitingTake    *list
	deleted        bool
}

// NewMutex constructs a non-recursive mutex, initially unlocked.
func NewMutex(s *Scheduler) *Mutex {
	return &Mutex{s: s, waitingTake: newList()}
}

// NewRecursiveMutex constructs a mutex the owning task may Take again
// without deadlocking itself, requiring a matching number of Give calls.
func NewRecursiveMutex(s *Scheduler) *Mutex {
	return &Mutex{s: s, recursive: true, waitingTake: newList()}
}

// Take acquires the mutex, blocking up to timeoutTicks (nil means
// forever). If the current holder has a lower priority than the caller,
// the holder's priority is temporarily boosted to the caller's
// (priority inheritance, spec.md §4.E) until it releases the mutex.
//
// Taking a non-recursive mutex the caller already owns blocks exactly
// as it would on real hardware — the original offers no self-deadlock
// detection for the non-recursive case, and this kernel matches it
// rather than silently rescuing the caller.
func (m *Mutex) Take(timeoutTicks *uint32) error {
	s := m.s
	s.mu.Lock()
	if m.deleted {
		s.mu.Unlock()
		return ErrInvalidArgument
	}
	t := s.current
	if m.owner == t && m.recursive {
		m.recursionDepth++
		s.mu.Unlock()
		return nil
	}
	for m.owner != nil {
		if timeoutTicks != nil && *timeoutTicks == 0 {
			s.mu.Unlock()
			return ErrWouldBlock
		}
		if m.owner.priority < t.priority {
			s.boostPriorityLocked(m.owner, t.priority)
			s.propagatePriorityLocked(m.owner, t.priority)
		}
		t.waitingMutex = m
		s.blockOnEventLocked(t, m.waitingTake, timeoutTicks)
		t.waitingMutex = nil
		aborted := t.delayAborted
		t.delayAborted = false
		if aborted {
			s.mu.Unlock()
			return ErrAborted
		}
		if m.owner != nil {
			s.mu.Unlock()
			return ErrTimedOut
		}
	}
	m.owner = t
	t.mutexesHeld++
	if m.recursive {
		m.recursionDepth = 1
	}
	s.mu.Unlock()
	return nil
}

// Give releases the mutex. Only the current owner may call it.
// Releasing a recursive mutex's outermost Take drops the owner's
// priority back to its base if it holds no other mutexes.
//
// Disinheritance here is whole-priority, not the precise
// per-waiter-set restoration real FreeRTOS performs when a task holds
// several mutexes inherited from different priorities — spec.md §9
// leaves the exact partial-disinheritance algorithm as an open question
// upstream, and this kernel resolves it by always restoring to
// basePriority once mutexesHeld reaches zero (see DESIGN.md).
func (m *Mutex) Give() error {
	s := m.s
	s.mu.Lock()
	t := s.current
	if m.owner != t {
		s.mu.Unlock()
		return ErrNotOwner
	}
	if m.recursive && m.recursionDepth > 1 {
		m.recursionDepth--
		s.mu.Unlock()
		return nil
	}
	t.mutexesHeld--
	if t.mutexesHeld == 0 && t.priority != t.basePriority {
		s.restorePriorityLocked(t)
	}
	m.owner = nil
	m.recursionDepth = 0
	if !m.waitingTake.isEmpty() {
		waiter := m.waitingTake.firstItem().owner.(*tcb)
		s.wakeFromBlockedLocked(waiter)
	}
	s.mu.Unlock()
	return nil
}

// Delete marks the mutex unusable, rejecting future Take calls with
// ErrInvalidArgument. It refuses to do so while the mutex is held or
// while any task is blocked in Take, returning ErrObjectHasWaiters for
// the latter — matching Queue.Delete's refusal to strand a waiter.
func (m *Mutex) Delete() error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if !m.waitingTake.isEmpty() {
		return ErrObjectHasWaiters
	}
	if m.owner != nil {
		return ErrNotOwner
	}
	m.deleted = true
	return nil
}

// Owner returns the handle of the task currently holding the mutex, or
// 0 if it is unlocked.
func (m *Mutex) Owner() TaskHandle {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.owner == nil {
		return 0
	}
	return m.owner.handle
}

// RecursionDepth returns the current nesting depth for a recursive
// mutex (0 if unlocked; always <=1 for a non-recursive one). Supplements
// spec.md §4.E with the original's uxSemaphoreGetCount-on-a-mutex use.
func (m *Mutex) RecursionDepth() uint32 {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.recursionDepth
}
