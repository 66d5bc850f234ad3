package kernel

import (
	"container/heap"
	"context"
)

// wakeSourceHeap orders candidate "next wake tick" values so
// NextWakeTick can merge however many sources the kernel knows about
// (today: the task delayed list and the timer service) without caring
// which one is soonest. A two-source merge does not need a heap on its
// own, but this is the same shape idle.go would use if device.Bus wake
// sources were registered here too — one heap.Push per source, one Pop
// for the answer, instead of a growing if/else chain.
type wakeSourceHeap []uint32

func (h wakeSourceHeap) Len() int            { return len(h) }
func (h wakeSourceHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h wakeSourceHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *wakeSourceHeap) Push(x any)         { *h = append(*h, x.(uint32)) }
func (h *wakeSourceHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// NextWakeTick reports the soonest absolute tick at which any delayed
// task or armed timer needs the scheduler's attention, for a driver
// loop that wants to sleep real wall-clock time between Tick calls
// instead of spinning AutoTick at a fixed period (a tickless-idle
// query, not an automatic tickless-idle implementation: the tick source
// here is an external caller, so the kernel cannot reprogram it itself
// the way spec.md §4.H's hardware analogue does).
func (s *Scheduler) NextWakeTick() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var h wakeSourceHeap
	if !s.lists.currentDelayed.isEmpty() {
		heap.Push(&h, s.lists.currentDelayed.firstValue())
	}
	if !s.timers.current.isEmpty() {
		heap.Push(&h, s.timers.current.firstValue())
	}
	if len(h) == 0 {
		return 0, false
	}
	return heap.Pop(&h).(uint32), true
}

// idleTaskMain is the body of the always-present priority-0 task: it
// reclaims dynamically-allocated TCBs of finished tasks (the original's
// prvCheckTasksWaitingTermination), fires the idle hook, and yields —
// spec.md §4.H. Like every other task, its only way to let a
// higher-priority task run is to reach a checkpoint.
func (s *Scheduler) idleTaskMain(ctx context.Context, _ any) {
	for ctx.Err() == nil {
		s.reapTerminatedTasks()
		if s.cfg.idleHook != nil {
			s.cfg.idleHook()
		}
		s.Checkpoint()
	}
}

// reapTerminatedTasks frees the bookkeeping for every dynamically
// allocated task that has finished (returned, or been deleted) since
// the last idle pass. Statically allocated tasks are never placed on
// waitingTermination (spec.md §9: the caller owns that memory and must
// not reuse the buffer before observing TaskDeleted via TaskState —
// this kernel does not attempt to detect premature reuse itself, same
// as the original).
func (s *Scheduler) reapTerminatedTasks() {
	s.mu.Lock()
	var reap []*tcb
	s.lists.waitingTermination.forEach(func(item *listItem) {
		reap = append(reap, item.owner.(*tcb))
	})
	for _, t := range reap {
		s.lists.waitingTermination.remove(&t.stateItem)
		delete(s.tasks, t.handle)
		if s.heapUsed >= t.stackDepth {
			s.heapUsed -= t.stackDepth
		} else {
			s.heapUsed = 0
		}
	}
	s.mu.Unlock()
}
