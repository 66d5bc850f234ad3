package kernel

// notifyState tracks one notification slot's 3-state machine: a task is
// either not interested in the slot, actively blocked waiting on it, or
// has a value pending that hasn't been consumed yet.
type notifyState uint8

const (
	notifyNotWaiting notifyState = iota
	notifyWaiting
	notifyNotified
)

// NotifyAction selects how Notify combines an incoming value with a
// task's existing notification value (SPEC_FULL.md §4, supplementing
// spec.md with the original's full xTaskGenericNotify action set).
type NotifyAction uint8

const (
	NotifyNoAction NotifyAction = iota
	NotifySetBits
	NotifyIncrement
	NotifySetValueWithOverwrite
	NotifySetValueWithoutOverwrite
)

// Notify sends a value to task h's notification slot index, waking it if
// it is currently blocked in NotifyWait or NotifyTake on that slot.
// Reports false (with a nil error) only for NotifySetValueWithoutOverwrite
// when the slot already holds an unconsumed value.
func (s *Scheduler) Notify(h TaskHandle, index uint8, value uint32, action NotifyAction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[h]
	if !ok || t.finished {
		return false, ErrInvalidArgument
	}
	if int(index) >= len(t.notify) {
		return false, ErrInvalidArgument
	}
	slot := &t.notify[index]
	applied := applyNotifyLocked(slot, value, action)
	wasWaiting := slot.state == notifyWaiting
	slot.state = notifyNotified
	if wasWaiting {
		t.delayAborted = false
		s.wakeFromBlockedLocked(t)
	}
	return applied, nil
}

// NotifyFromISR is identical to Notify. The kernel has no separate
// interrupt-masked code path in the host simulation — every kernel entry
// point already serializes through Scheduler.mu — but the name is kept
// distinct so call sites document their execution context the same way
// spec.md §6's *_from_isr family does.
func (s *Scheduler) NotifyFromISR(h TaskHandle, index uint8, value uint32, action NotifyAction) (bool, error) {
	return s.Notify(h, index, value, action)
}

func applyNotifyLocked(slot *notifySlot, value uint32, action NotifyAction) bool {
	switch action {
	case NotifyNoAction:
		return true
	case NotifySetBits:
		slot.value |= value
		return true
	case NotifyIncrement:
		slot.value++
		return true
	case NotifySetValueWithOverwrite:
		slot.value = value
		return true
	case NotifySetValueWithoutOverwrite:
		if slot.state == notifyNotified {
			return false
		}
		slot.value = value
		return true
	default:
		return false
	}
}

// NotifyWait blocks the calling task until its slot index is notified or
// timeoutTicks elapses (nil means wait forever). clearOnEntry bits are
// cleared before waiting; clearOnExit bits are cleared after a
// notification is consumed. Returns the slot's value, whether a
// notification was actually received, and an error only for invalid
// arguments or an AbortDelay.
func (s *Scheduler) NotifyWait(index uint8, clearOnEntry, clearOnExit uint32, timeoutTicks *uint32) (uint32, bool, error) {
	s.mu.Lock()
	t := s.current
	if int(index) >= len(t.notify) {
		s.mu.Unlock()
		return 0, false, ErrInvalidArgument
	}
	slot := &t.notify[index]
	slot.value &^= clearOnEntry
	if slot.state != notifyNotified {
		s.deschedule(t, func() {
			s.lists.removeReady(t)
			t.state = TaskBlocked
			slot.state = notifyWaiting
			if timeoutTicks != nil {
				s.lists.insertDelayed(t, s.tickCount+*timeoutTicks, s.tickCount)
			}
		})
	}
	notified := slot.state == notifyNotified
	value := slot.value
	if notified {
		slot.value &^= clearOnExit
	}
	slot.state = notifyNotWaiting
	aborted := t.delayAborted
	t.delayAborted = false
	s.mu.Unlock()
	if aborted {
		return 0, false, ErrAborted
	}
	return value, notified, nil
}

// NotifyTake treats slot index as a counting (clearOnExit == false) or
// binary (clearOnExit == true) semaphore: it blocks while the slot's
// value is zero, then returns the pre-decrement value, decrementing by
// one or clearing to zero on the way out. The bool return is true when
// a non-zero value was taken and false whenever the call returns with
// the slot at zero: both a timeout and a wake that left the value at
// zero (e.g. NotifySetValueWithOverwrite(0)) report (0, false, nil).
func (s *Scheduler) NotifyTake(index uint8, clearOnExit bool, timeoutTicks *uint32) (uint32, bool, error) {
	s.mu.Lock()
	t := s.current
	if int(index) >= len(t.notify) {
		s.mu.Unlock()
		return 0, false, ErrInvalidArgument
	}
	slot := &t.notify[index]
	if slot.value == 0 {
		s.deschedule(t, func() {
			s.lists.removeReady(t)
			t.state = TaskBlocked
			slot.state = notifyWaiting
			if timeoutTicks != nil {
				s.lists.insertDelayed(t, s.tickCount+*timeoutTicks, s.tickCount)
			}
		})
	}
	slot.state = notifyNotWaiting
	value := slot.value
	took := value > 0
	if took {
		if clearOnExit {
			slot.value = 0
		} else {
			slot.value--
		}
	}
	aborted := t.delayAborted
	t.delayAborted = false
	s.mu.Unlock()
	if aborted {
		return 0, false, ErrAborted
	}
	return value, took, nil
}
