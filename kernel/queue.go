package kernel

import "github.com/purduesigbots/pros-sub000/internal/ringbuf"

// Queue is a fixed-capacity FIFO of T, with blocking send/receive and
// priority-ordered waiter lists — spec.md §4.D's core message-passing
// primitive. Semaphore (spec.md §4.E) is built on it, as the original
// layers semaphores over queues; Mutex is not, and keeps its own owner
// and waiter list (see mutex.go).
//
// Every Queue shares its owning Scheduler's lock rather than keeping
// one of its own: a send that wakes a blocked receiver is a single
// atomic kernel operation, not two independently-locked ones.
type Queue[T any] struct {
	s           *Scheduler
	buf         *ringbuf.Ring[T]
	waitingSend *list
	waitingRecv *list
	deleted     bool
}

// NewQueue constructs a Queue of the given fixed capacity, bound to s.
func NewQueue[T any](s *Scheduler, capacity int) *Queue[T] {
	return &Queue[T]{
		s:           s,
		buf:         ringbuf.New[T](capacity),
		waitingSend: newList(),
		waitingRecv: newList(),
	}
}

// Send appends value at the tail, blocking up to timeoutTicks (nil means
// forever) while the queue is full.
func (q *Queue[T]) Send(value T, timeoutTicks *uint32) error {
	return q.put(value, timeoutTicks, false, false)
}

// SendToFront is Send's priority-message variant: value becomes the next
// item Receive returns, skipping ahead of everything already queued.
func (q *Queue[T]) SendToFront(value T, timeoutTicks *uint32) error {
	return q.put(value, timeoutTicks, true, false)
}

// Overwrite writes value even if the queue is full, replacing the most
// recently sent item instead of blocking — intended for length-1
// "latest value" queues (spec.md §4.D).
func (q *Queue[T]) Overwrite(value T) error {
	return q.put(value, nil, false, true)
}

func (q *Queue[T]) put(value T, timeoutTicks *uint32, front, overwrite bool) error {
	s := q.s
	s.mu.Lock()
	if q.deleted {
		s.mu.Unlock()
		return ErrInvalidArgument
	}
	if overwrite {
		if q.buf.Full() {
			q.buf.OverwriteBack(value)
		} else {
			q.buf.PushBack(value)
		}
		q.wakeOneLocked(q.waitingRecv)
		s.mu.Unlock()
		return nil
	}
	if q.buf.Full() {
		if timeoutTicks != nil && *timeoutTicks == 0 {
			s.mu.Unlock()
			return ErrWouldBlock
		}
		t := s.current
		s.blockOnEventLocked(t, q.waitingSend, timeoutTicks)
		aborted := t.delayAborted
		t.delayAborted = false
		if aborted {
			s.mu.Unlock()
			return ErrAborted
		}
		if q.buf.Full() {
			s.mu.Unlock()
			return ErrTimedOut
		}
	}
	if front {
		q.buf.PushFront(value)
	} else {
		q.buf.PushBack(value)
	}
	q.wakeOneLocked(q.waitingRecv)
	s.mu.Unlock()
	return nil
}

// SendFromISR is the non-blocking variant spec.md §6 requires of every
// blocking API: it never waits, reporting ErrWouldBlock immediately if
// the queue is full.
func (q *Queue[T]) SendFromISR(value T) error {
	return q.put(value, ptr(uint32(0)), false, false)
}

// Receive removes and returns the head item, blocking up to
// timeoutTicks (nil means forever) while the queue is empty.
func (q *Queue[T]) Receive(timeoutTicks *uint32) (T, error) {
	return q.get(timeoutTicks, false)
}

// Peek is Receive without removing the item.
func (q *Queue[T]) Peek(timeoutTicks *uint32) (T, error) {
	return q.get(timeoutTicks, true)
}

func (q *Queue[T]) get(timeoutTicks *uint32, peek bool) (T, error) {
	s := q.s
	s.mu.Lock()
	var zero T
	if q.deleted {
		s.mu.Unlock()
		return zero, ErrInvalidArgument
	}
	if q.buf.Empty() {
		if timeoutTicks != nil && *timeoutTicks == 0 {
			s.mu.Unlock()
			return zero, ErrWouldBlock
		}
		t := s.current
		s.blockOnEventLocked(t, q.waitingRecv, timeoutTicks)
		aborted := t.delayAborted
		t.delayAborted = false
		if aborted {
			s.mu.Unlock()
			return zero, ErrAborted
		}
		if q.buf.Empty() {
			s.mu.Unlock()
			return zero, ErrTimedOut
		}
	}
	var v T
	if peek {
		v = q.buf.PeekFront()
	} else {
		v = q.buf.PopFront()
		q.wakeOneLocked(q.waitingSend)
	}
	s.mu.Unlock()
	return v, nil
}

// ReceiveFromISR is the non-blocking variant of Receive.
func (q *Queue[T]) ReceiveFromISR() (T, bool) {
	v, err := q.get(ptr(uint32(0)), false)
	return v, err == nil
}

// Delete marks the queue unusable, rejecting every Send/Receive variant
// with ErrInvalidArgument from this point on. It refuses to do so while
// any task is blocked waiting to send or receive, returning
// ErrObjectHasWaiters instead — the original leaves deleting a queue
// with blocked tasks as undefined behaviour; this kernel rejects it
// outright rather than leaving a waiter stranded forever.
func (q *Queue[T]) Delete() error {
	s := q.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if !q.waitingSend.isEmpty() || !q.waitingRecv.isEmpty() {
		return ErrObjectHasWaiters
	}
	q.deleted = true
	return nil
}

// MessagesWaiting returns the number of items currently queued
// (SPEC_FULL.md §4, the original's uxQueueMessagesWaiting).
func (q *Queue[T]) MessagesWaiting() int {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	return q.buf.Len()
}

// SpacesAvailable returns remaining capacity.
func (q *Queue[T]) SpacesAvailable() int {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	return q.buf.Cap() - q.buf.Len()
}

// pushLocked pushes value directly, without blocking or taking s.mu —
// for callers (the tick handler) that already hold the kernel lock and
// need to enqueue without risking a wait. Reports false if full.
func (q *Queue[T]) pushLocked(value T) bool {
	if q.buf.Full() {
		return false
	}
	q.buf.PushBack(value)
	q.wakeOneLocked(q.waitingRecv)
	return true
}

// wakeOneLocked wakes the highest-priority waiter in waitList, if any.
// Must be called with s.mu held.
func (q *Queue[T]) wakeOneLocked(waitList *list) {
	if waitList.isEmpty() {
		return
	}
	t := waitList.firstItem().owner.(*tcb)
	q.s.wakeFromBlockedLocked(t)
}

func ptr[T any](v T) *T { return &v }
