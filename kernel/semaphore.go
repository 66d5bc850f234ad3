package kernel

// Semaphore is a binary or counting semaphore, implemented the same way
// the original implements them: as a Queue of zero-size items, where
// "give" is a send and "take" is a receive (spec.md §4.E).
type Semaphore struct {
	q *Queue[struct{}]
}

// NewSemaphore constructs a counting semaphore with the given maximum
// and initial counts. A binary semaphore is the special case max=1.
func NewSemaphore(s *Scheduler, max, initial uint32) (*Semaphore, error) {
	if max == 0 || initial > max {
		return nil, ErrInvalidArgument
	}
	sem := &Semaphore{q: NewQueue[struct{}](s, int(max))}
	for i := uint32(0); i < initial; i++ {
		sem.q.buf.PushBack(struct{}{})
	}
	return sem, nil
}

// Take blocks up to timeoutTicks (nil means forever) until the
// semaphore's count is non-zero, then decrements it.
func (sem *Semaphore) Take(timeoutTicks *uint32) error {
	_, err := sem.q.Receive(timeoutTicks)
	return err
}

// Give increments the semaphore's count, waking the highest-priority
// waiter if any. Returns ErrWouldBlock if the count is already at max.
func (sem *Semaphore) Give() error {
	return sem.q.Send(struct{}{}, ptr(uint32(0)))
}

// GiveFromISR is the non-blocking variant of Give.
func (sem *Semaphore) GiveFromISR() error {
	return sem.q.SendFromISR(struct{}{})
}

// Count returns the current available count.
func (sem *Semaphore) Count() int {
	return sem.q.MessagesWaiting()
}

// Delete marks the semaphore unusable; see Queue.Delete.
func (sem *Semaphore) Delete() error {
	return sem.q.Delete()
}
