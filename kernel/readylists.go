package kernel

import "math/bits"

// schedLists bundles every list the scheduler's global state is split
// across (spec.md §4.B): one ready list per priority, the dual delayed
// lists with their overflow-swap pointers, the suspended list, and the
// list of tasks awaiting idle-task cleanup after delete.
//
// All methods here assume the caller already holds Scheduler.mu — these
// are the low-level bookkeeping primitives the scheduler's public API
// and the tick handler compose into full operations.
type schedLists struct {
	ready     []list // index 0..maxPriorities-1
	readyMask uint32

	delayedA, delayedB             list
	currentDelayed, overflowDelayed *list

	suspended          list
	waitingTermination list
}

func newSchedLists(maxPriorities uint8) *schedLists {
	sl := &schedLists{
		ready: make([]list, maxPriorities),
	}
	for i := range sl.ready {
		initList(&sl.ready[i])
	}
	initList(&sl.delayedA)
	initList(&sl.delayedB)
	sl.currentDelayed = &sl.delayedA
	sl.overflowDelayed = &sl.delayedB
	initList(&sl.suspended)
	initList(&sl.waitingTermination)
	return sl
}

// highestReady returns the priority of the highest-priority non-empty
// ready list, via the msb of readyMask (spec.md §4.B: O(1) selection).
// Panics if no ready list is non-empty, which should never happen once
// the idle task exists (priority 0 is always ready unless suspended,
// which the idle task is never allowed to be).
func (sl *schedLists) highestReady() uint8 {
	if sl.readyMask == 0 {
		panic("kernel: no ready task (idle task missing?)")
	}
	return uint8(bits.Len32(sl.readyMask) - 1)
}

// addReady links t into ready[t.priority] at the tail of its round-robin
// order (insertEnd, per spec.md §4.A) and sets the corresponding mask bit.
func (sl *schedLists) addReady(t *tcb) {
	sl.ready[t.priority].insertEnd(&t.stateItem)
	sl.readyMask |= 1 << t.priority
	t.state = TaskReady
}

// removeReady unlinks t from ready[t.priority], clearing the mask bit if
// the list becomes empty.
func (sl *schedLists) removeReady(t *tcb) {
	sl.ready[t.priority].remove(&t.stateItem)
	if sl.ready[t.priority].isEmpty() {
		sl.readyMask &^= 1 << t.priority
	}
}

// eventKey maps a task priority to an event-list sort key such that
// ascending key order is descending priority order — spec.md §4.D
// requires waiting_send/waiting_recv (and every other event list) to
// serve the highest-priority waiter first.
func eventKey(priority uint8) uint32 {
	return uint32(0xFF) - uint32(priority)
}

// insertDelayed places t.stateItem into whichever of the dual delayed
// lists corresponds to wakeAt, using the same overflow-disambiguation
// FreeRTOS uses: if the wrapping sum wakeAt < the current tick count,
// the wake time has wrapped past the uint32 boundary and belongs in the
// overflow list (spec.md §3, §4.C).
func (sl *schedLists) insertDelayed(t *tcb, wakeAt, now uint32) {
	t.stateItem.key = wakeAt
	t.wakeTick = uint64(wakeAt)
	t.state = TaskBlocked
	if wakeAt < now {
		sl.overflowDelayed.insert(&t.stateItem)
	} else {
		sl.currentDelayed.insert(&t.stateItem)
	}
}

// swapDelayedLists exchanges current/overflow on tick-counter wrap.
func (sl *schedLists) swapDelayedLists() {
	sl.currentDelayed, sl.overflowDelayed = sl.overflowDelayed, sl.currentDelayed
}
