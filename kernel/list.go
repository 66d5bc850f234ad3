// Package kernel implements a preemptive, fixed-priority real-time
// microkernel: a scheduler, intertask synchronization primitives, a
// software-timer service, and task notifications, modeled on the RTOS
// core shipped inside VEX robotics firmware.
package kernel

import "math"

// sentinelKey is the value installed on every list's sentinel item. It is
// always the greatest possible key, so the sentinel sorts to the tail of
// any ascending-key list and is never visited by Insert.
const sentinelKey uint32 = math.MaxUint32

// listItem is the intrusive node every schedulable or waitable entity
// embeds. A listItem is never allocated on its own; it always lives
// inside a TCB, Timer, or other kernel-owned struct, and owner points
// back to that struct.
//
// Invariant: container == nil iff the item is not currently linked into
// any list. Callers must always remove an item before re-inserting it
// into a (possibly different) list.
type listItem struct {
	key       uint32
	next      *listItem
	prev      *listItem
	owner     any
	container *list
}

// list is a doubly linked circular list with a sentinel tail, ordered
// ascending by key. Ties preserve insertion (FIFO) order. This is the
// single primitive every other piece of kernel state is built from:
// ready lists, delayed lists, suspended list, event lists, and timer
// lists are all an instance of list.
type list struct {
	size     uint32
	index    *listItem
	sentinel listItem
}

// initList prepares l for use, installing the sentinel as the sole
// member. Must be called before any other list operation.
func initList(l *list) {
	l.size = 0
	l.sentinel.key = sentinelKey
	l.sentinel.next = &l.sentinel
	l.sentinel.prev = &l.sentinel
	l.sentinel.container = l
	l.index = &l.sentinel
}

func newList() *list {
	l := &list{}
	initList(l)
	return l
}

// insert places item in ascending-key order; equal keys are inserted
// after any existing items of the same key (FIFO). Panics if item is
// already linked into a list — callers are expected to remove before
// re-inserting, matching the kernel-wide single-owner discipline.
func (l *list) insert(item *listItem) {
	if item.container != nil {
		panic("kernel: list: insert of item already linked")
	}

	// Walk from the head (sentinel.next) until we find the first item
	// whose key is strictly greater than the new item's key; insert
	// immediately before it. The sentinel's key is math.MaxUint32, so
	// this walk always terminates there if nothing greater is found.
	at := l.sentinel.next
	for at.key <= item.key && at != &l.sentinel {
		at = at.next
	}

	l.linkBefore(at, item)
	item.container = l
	l.size++
}

// insertEnd inserts item immediately before l.index, i.e. it will be
// the last item visited by the next full round of nextOwner. Used to
// append a task to its priority's ready list without disturbing
// round-robin order among tasks already waiting there.
func (l *list) insertEnd(item *listItem) {
	if item.container != nil {
		panic("kernel: list: insertEnd of item already linked")
	}
	l.linkBefore(l.index, item)
	item.container = l
	l.size++
}

// linkBefore splices item into the list immediately before at.
func (l *list) linkBefore(at, item *listItem) {
	item.next = at
	item.prev = at.prev
	at.prev.next = item
	at.prev = item
}

// remove unlinks item from whatever list currently contains it and
// returns that list's new size. Safe to call on the list's own index
// pointer: remove moves index back to the removed item's predecessor,
// so the next nextOwner call continues with the removed item's successor.
func (l *list) remove(item *listItem) uint32 {
	c := item.container
	if c == nil {
		panic("kernel: list: remove of unlinked item")
	}
	item.prev.next = item.next
	item.next.prev = item.prev

	if c.index == item {
		c.index = item.prev
	}

	item.container = nil
	item.next = nil
	item.prev = nil
	c.size--
	return c.size
}

// nextOwner advances l.index to the next non-sentinel item, wrapping
// past the sentinel if encountered, and returns that item's owner.
// Repeated calls walk the list in round-robin fashion, which is how
// the scheduler shares CPU time among equal-priority ready tasks.
func (l *list) nextOwner() any {
	l.index = l.index.next
	if l.index == &l.sentinel {
		l.index = l.index.next
	}
	return l.index.owner
}

// firstValue returns the key of the head (lowest-key) item.
func (l *list) firstValue() uint32 {
	return l.sentinel.next.key
}

// firstItem returns the head item itself (for removal by the caller).
func (l *list) firstItem() *listItem {
	return l.sentinel.next
}

// firstOwner returns the owner of the head item.
func (l *list) firstOwner() any {
	return l.sentinel.next.owner
}

func (l *list) contains(item *listItem) bool {
	return item.container == l
}

func (l *list) isEmpty() bool {
	return l.size == 0
}

func (l *list) length() uint32 {
	return l.size
}

// forEach walks the list head-to-tail, invoking fn with every non-sentinel
// item. fn must not mutate the list being walked; callers that need to
// remove while iterating should collect items first.
func (l *list) forEach(fn func(item *listItem)) {
	for it := l.sentinel.next; it != &l.sentinel; it = it.next {
		fn(it)
	}
}
