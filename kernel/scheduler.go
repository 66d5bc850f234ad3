package kernel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Scheduler is a preemptive, fixed-priority real-time kernel. It owns
// every task's control block, the ready/delayed/suspended lists, the
// tick counter, and the single big lock that makes every list mutation
// atomic with respect to both task code and ISR-simulated callers
// (spec.md §4.C, §6).
//
// Go gives no portable way to suspend an arbitrary goroutine at an
// arbitrary program counter the way a hardware context switch suspends
// a CPU mid-instruction. Scheduler works around this by running each
// task's entry function on its own goroutine, but gating execution with
// an unbuffered channel per task (tcb.runCh): at any
// instant at most one task goroutine is not blocked waiting on its own
// runCh, and that goroutine is, by definition, "current". Ownership of
// "current" transfers only inside deschedule, which every blocking
// kernel call (Yield, DelayTicks, queue/semaphore/mutex waits, notify
// waits) funnels through. A task that never calls into the kernel can
// therefore starve lower-priority tasks exactly as a real busy-loop at
// the same priority would on real hardware with preemption disabled —
// Scheduler has no way to interrupt it, and does not pretend to.
type Scheduler struct {
	mu sync.Mutex

	cfg *schedulerConfig

	logger            Logger
	maxPriorities     uint8
	stackGuardEnabled bool
	notificationSlots uint8

	heapSize uint32
	heapUsed uint32

	lists *schedLists

	tickCount      uint32
	suspendNesting uint32
	pendingTicks   uint64

	tasks      map[TaskHandle]*tcb
	nextHandle TaskHandle

	current *tcb
	idle    *tcb

	state *fastState

	timers *TimerService

	stopAutoTick context.CancelFunc
	runnerWG     sync.WaitGroup
}

// New constructs a Scheduler in the Awake state (not yet running). Call
// Start to create the idle task and begin dispatch.
func New(opts ...Option) *Scheduler {
	cfg := resolveOptions(opts)
	s := &Scheduler{
		cfg:               cfg,
		logger:            cfg.logger,
		maxPriorities:     cfg.maxPriorities,
		stackGuardEnabled: cfg.stackGuardEnabled,
		notificationSlots: cfg.notificationSlots,
		heapSize:          cfg.heapSize,
		lists:             newSchedLists(cfg.maxPriorities),
		tasks:             make(map[TaskHandle]*tcb),
		nextHandle:        1,
		state:             newFastState(schedulerAwake),
	}
	daemonPriority := cfg.daemonPriority
	if daemonPriority >= cfg.maxPriorities {
		daemonPriority = cfg.maxPriorities - 1
	}
	s.timers = newTimerService(s, daemonPriority, cfg.daemonQueueLength)
	return s
}

// Start transitions the kernel to Running, creates the idle task, and
// hands the baton to the highest-priority ready task (with the default
// daemon priority, which New clamps to the highest available level, that
// is the timer daemon; the idle task runs only once every higher-priority
// task has blocked). Start does not block: every task, including the
// timer daemon, runs on its own goroutine from here on.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if !s.state.TryTransition(schedulerAwake, schedulerRunning) {
		s.mu.Unlock()
		return ErrKernelAlreadyRunning
	}
	idle := s.newTaskLocked("IDLE", s.cfg.idlePriority, 512, s.idleTaskMain, nil, false)
	s.idle = idle
	s.lists.addReady(idle)

	daemon := s.timers.createDaemonTaskLocked(s)
	s.lists.addReady(daemon)

	first := s.pickNext()
	s.current = first
	s.mu.Unlock()

	s.logf(LevelInfo, "scheduler", "started", nil)
	first.runCh <- struct{}{}
	return nil
}

// AutoTick starts a background goroutine that calls Tick every period
// until ctx is cancelled or Shutdown is called. A zero period falls
// back to the WithTickPeriod construction option (default 1ms). Tests
// generally prefer calling Tick directly for determinism; AutoTick
// exists for cmd/simkernel and any caller that wants wall-clock-driven
// ticking.
func (s *Scheduler) AutoTick(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = s.cfg.tickPeriod
	}
	ctx, cancel := context.WithCancel(ctx)
	s.stopAutoTick = cancel
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

// Shutdown cancels every task's context and waits for their goroutines
// to exit. It does not attempt a graceful drain of in-flight kernel
// operations; tasks are expected to observe ctx.Done() at their own
// checkpoints, matching the cooperative-cancellation pattern the rest
// of the corpus uses for goroutine teardown.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if s.stopAutoTick != nil {
		s.stopAutoTick()
	}
	s.mu.Lock()
	s.state.Store(schedulerTerminated)
	for _, t := range s.tasks {
		if t.cancel != nil {
			t.cancel()
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.runnerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TickCount returns the current value of the wrapping tick counter.
func (s *Scheduler) TickCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickCount
}

// Timers returns the kernel's software-timer service.
func (s *Scheduler) Timers() *TimerService {
	return s.timers
}

// CurrentTask returns the handle of the task currently holding the
// baton, or 0 if the scheduler has not been started.
func (s *Scheduler) CurrentTask() TaskHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.handle
}

// --- task lifecycle -------------------------------------------------

// CreateTask allocates a new task at the given priority and links it
// into the ready list. priority must be in [1, maxPriorities). Priority
// 0 is reserved for the idle task (spec.md §4.B). If WithHeapSize bounds
// the simulated heap and stackDepth would push cumulative dynamic
// allocation past it, the call fires the malloc-failed hook and fails
// with ErrOutOfMemory instead (spec.md §4.H).
func (s *Scheduler) CreateTask(name string, priority uint8, stackDepth uint32, entry func(ctx context.Context, arg any), arg any) (TaskHandle, error) {
	if entry == nil {
		return 0, ErrInvalidArgument
	}
	if priority == 0 || priority >= s.maxPriorities {
		return 0, ErrInvalidArgument
	}
	s.mu.Lock()
	if s.heapSize > 0 && s.heapUsed+stackDepth > s.heapSize {
		s.logf(LevelError, "task", "malloc failed", map[string]any{"task": name, "requested": stackDepth})
		if s.cfg.mallocFailedHook != nil {
			s.cfg.mallocFailedHook()
		}
		s.mu.Unlock()
		return 0, ErrOutOfMemory
	}
	s.heapUsed += stackDepth
	t := s.newTaskLocked(name, priority, stackDepth, entry, arg, false)
	s.lists.addReady(t)
	s.mu.Unlock()
	s.logf(LevelInfo, "task", "created", map[string]any{"task": name, "priority": priority})
	return t.handle, nil
}

func (s *Scheduler) newTaskLocked(name string, priority uint8, stackDepth uint32, entry func(ctx context.Context, arg any), arg any, static bool) *tcb {
	handle := s.nextHandle
	s.nextHandle++
	t := &tcb{
		handle:              handle,
		name:                name,
		priority:            priority,
		basePriority:        priority,
		stackDepth:          stackDepth,
		notify:              make([]notifySlot, s.notificationSlots),
		staticallyAllocated: static,
		runCh:               make(chan struct{}),
		ackCh:               make(chan struct{}),
		entry:               entry,
		arg:                 arg,
		state:               TaskReady,
	}
	initList2(&t.stateItem, t)
	initList2(&t.eventItem, t)
	s.tasks[handle] = t

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	s.runnerWG.Add(1)
	go s.taskMain(t, ctx)
	return t
}

func initList2(item *listItem, owner any) {
	item.next = nil
	item.prev = nil
	item.container = nil
	item.owner = owner
}

// taskMain is the goroutine wrapper every task (including idle and the
// timer daemon) runs on. It parks on runCh until the scheduler first
// deals it the baton, runs the entry function with panic isolation
// (matching eventloop's safeExecute), and on return performs implicit
// deletion (spec.md §4.B).
func (s *Scheduler) taskMain(t *tcb, ctx context.Context) {
	defer s.runnerWG.Done()
	select {
	case <-t.runCh:
	case <-ctx.Done():
		return
	}
	t.started = true

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logf(LevelError, "task", "panic recovered", map[string]any{
					"task":  t.name,
					"panic": fmt.Sprint(r),
				})
			}
		}()
		t.entry(ctx, t.arg)
	}()

	s.taskExit(t)
}

// taskExit implements implicit deletion: a task whose entry function
// returns is torn down exactly as if it had called DeleteTask(self).
func (s *Scheduler) taskExit(t *tcb) {
	s.mu.Lock()
	s.deschedule(t, func() {
		s.retireTaskLocked(t)
	})
	s.mu.Unlock()
}

// retireTaskLocked removes t from whatever list currently holds it and
// marks it finished. Statically allocated tasks are detached
// immediately; dynamically allocated ones move to waitingTermination so
// the idle task can reclaim them (mirroring the original's deferred
// free via vTaskDelete / prvCheckTasksWaitingTermination).
func (s *Scheduler) retireTaskLocked(t *tcb) {
	s.unlinkLocked(t)
	t.finished = true
	t.state = TaskDeleted
	if !t.staticallyAllocated {
		t.stateItem.key = 0
		s.lists.waitingTermination.insertEnd(&t.stateItem)
	}
	s.logf(LevelInfo, "task", "deleted", map[string]any{"task": t.name})
}

// unlinkLocked removes t.stateItem and t.eventItem from whatever lists
// currently contain them, clearing the ready mask bit if needed.
func (s *Scheduler) unlinkLocked(t *tcb) {
	if t.stateItem.container == &s.lists.ready[t.priority] {
		s.lists.removeReady(t)
	} else if t.stateItem.container != nil {
		t.stateItem.container.remove(&t.stateItem)
	}
	if t.eventItem.container != nil {
		t.eventItem.container.remove(&t.eventItem)
	}
}

// DeleteTask removes a task from the kernel. Deleting the current task
// (handle 0, or the caller's own handle) deschedules immediately and
// never returns to the caller, matching vTaskDelete(NULL) semantics.
func (s *Scheduler) DeleteTask(h TaskHandle) error {
	s.mu.Lock()
	t, self, err := s.resolveTargetLocked(h)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if t == s.idle || t == s.timers.daemon {
		s.mu.Unlock()
		return ErrInvalidArgument
	}
	if self {
		s.deschedule(t, func() { s.retireTaskLocked(t) })
		s.mu.Unlock()
		t.cancel()
		// This goroutine's entry function must never observe DeleteTask
		// returning: unwind straight through taskMain's deferred cleanup
		// (the runnerWG.Done(), in particular) without running any more
		// of the task's own code, mirroring vTaskDelete(NULL) never
		// returning to its caller.
		runtime.Goexit()
	}
	parked := t.started
	s.retireTaskLocked(t)
	s.mu.Unlock()
	t.cancel()
	if parked {
		// t's goroutine is blocked inside some deschedule call (it is
		// not the current task, yet has already run once); nothing
		// will ever pick it again now that it is unlinked, so wake it
		// directly to let it observe t.finished and unwind.
		t.runCh <- struct{}{}
	}
	return nil
}

// resolveTargetLocked maps a possibly-zero handle to its tcb and
// reports whether it refers to the calling (current) task.
func (s *Scheduler) resolveTargetLocked(h TaskHandle) (*tcb, bool, error) {
	if h == 0 {
		if s.current == nil {
			return nil, false, ErrKernelNotRunning
		}
		return s.current, true, nil
	}
	t, ok := s.tasks[h]
	if !ok || t.finished {
		return nil, false, ErrInvalidArgument
	}
	return t, t == s.current, nil
}

// --- dispatch ---------------------------------------------------------

// deschedule is the single choke point every blocking operation and
// task exit uses to give up the baton. The caller must hold s.mu and
// must be the goroutine currently holding "current" status (i.e. must
// be t's own goroutine). reinsert places t's list items wherever they
// belong while t is not running (or nowhere, for termination) before
// the next task is selected. deschedule returns with s.mu held once
// the scheduler has handed the baton back to t — which, for a deleted
// task, never happens.
func (s *Scheduler) deschedule(t *tcb, reinsert func()) {
	if s.stackGuardEnabled {
		s.checkStackGuardLocked(t)
	}
	reinsert()
	next := s.pickNext()
	s.current = next
	if next == t {
		// Lone highest-priority task: immediate round trip, no actual
		// suspension required (e.g. Yield with no ready peers).
		return
	}
	finished := t.finished
	s.mu.Unlock()
	if next != nil {
		next.runCh <- struct{}{}
	}
	if finished {
		// Self-delete / natural return: t's goroutine is already
		// unwinding (taskExit/DeleteTask), nothing will ever send on
		// t.runCh again, and nothing should wait for it to.
		s.mu.Lock()
		return
	}
	<-t.runCh
	s.mu.Lock()
	if t.finished {
		// Forcibly deleted by another task while parked here. Unwind
		// through every deferred cleanup on this goroutine's stack —
		// including runnerWG.Done() in taskMain — without letting the
		// entry function's own code run any further.
		s.mu.Unlock()
		runtime.Goexit()
	}
}

// checkStackGuardLocked fires the stack-overflow hook the first time a
// task's recorded usage reaches its declared depth. Go gives no access
// to a goroutine's real stack pointer, so "usage" here is whatever the
// task last reported via RecordStackUsage — a deliberate simulation of
// spec.md §4.C's canary check rather than a literal port of it.
func (s *Scheduler) checkStackGuardLocked(t *tcb) {
	if t.stackOverflow || t.stackDepth == 0 || t.stackUsed < t.stackDepth {
		return
	}
	t.stackOverflow = true
	s.logf(LevelError, "task", "stack overflow", map[string]any{"task": t.name})
	if s.cfg.stackOverflowHook != nil {
		s.cfg.stackOverflowHook(t.handle, t.name)
	}
}

// RecordStackUsage updates the calling task's simulated stack-usage
// high-water mark, driving both StackHighWaterMark and the stack-guard
// hook. Real task code has no reason to call this directly; it exists
// for instrumented workloads and tests that want to exercise the guard.
func (s *Scheduler) RecordStackUsage(used uint32) {
	s.mu.Lock()
	t := s.current
	if used > t.stackUsed {
		t.stackUsed = used
	}
	s.mu.Unlock()
}

// Checkpoint is the cooperative preemption point described in
// Scheduler's doc comment: task code calls it periodically so that a
// higher-priority task which became ready since the last checkpoint
// (via Tick, Notify, a queue send, …) actually gets the CPU. It is
// exactly Yield, under a name that documents intent at call sites.
func (s *Scheduler) Checkpoint() {
	s.Yield()
}

// pickNext selects the next task to run: the highest-priority non-empty
// ready list's next round-robin owner (spec.md §4.C). Must be called
// with s.mu held.
func (s *Scheduler) pickNext() *tcb {
	p := s.lists.highestReady()
	return s.lists.ready[p].nextOwner().(*tcb)
}

// Yield voluntarily gives up the remainder of the current task's turn
// to any other ready task at the same or higher priority.
func (s *Scheduler) Yield() {
	s.mu.Lock()
	t := s.current
	s.deschedule(t, func() {})
	s.mu.Unlock()
}

// --- delay / timing ---------------------------------------------------

// DelayTicks blocks the calling task for the given number of ticks.
// ticks == 0 is equivalent to Yield. Returns ErrAborted if another task
// called AbortDelay on this task before the delay elapsed.
func (s *Scheduler) DelayTicks(ticks uint32) error {
	s.mu.Lock()
	t := s.current
	if ticks == 0 {
		s.deschedule(t, func() {})
		s.mu.Unlock()
		return nil
	}
	wake := s.tickCount + ticks
	s.blockOnDelayLocked(t, wake)
	aborted := t.delayAborted
	t.delayAborted = false
	s.mu.Unlock()
	if aborted {
		return ErrAborted
	}
	return nil
}

// DelayUntil blocks until the absolute tick *prev+delta, then advances
// *prev by delta — giving a fixed-period loop without cumulative drift
// (spec.md §4.C). If that instant has already passed, it returns
// immediately without blocking, exactly like the original's catch-up
// behavior.
func (s *Scheduler) DelayUntil(prev *uint32, delta uint32) error {
	s.mu.Lock()
	t := s.current
	wake := *prev + delta
	now := s.tickCount
	*prev = wake
	if int32(wake-now) <= 0 {
		s.mu.Unlock()
		return nil
	}
	s.blockOnDelayLocked(t, wake)
	aborted := t.delayAborted
	t.delayAborted = false
	s.mu.Unlock()
	if aborted {
		return ErrAborted
	}
	return nil
}

func (s *Scheduler) blockOnDelayLocked(t *tcb, wakeAt uint32) {
	s.deschedule(t, func() {
		s.lists.removeReady(t)
		s.lists.insertDelayed(t, wakeAt, s.tickCount)
	})
}

// blockOnEventLocked moves t out of its ready list and into waitList
// (keyed by eventKey(t.priority) so the highest-priority waiter sorts
// first), optionally also registering a delayed-list timeout entry when
// timeoutTicks != nil. Used by Queue/Semaphore/Mutex/Notify waits.
func (s *Scheduler) blockOnEventLocked(t *tcb, waitList *list, timeoutTicks *uint32) {
	s.deschedule(t, func() {
		s.lists.removeReady(t)
		t.eventItem.key = eventKey(t.priority)
		waitList.insert(&t.eventItem)
		t.state = TaskBlocked
		if timeoutTicks != nil {
			s.lists.insertDelayed(t, s.tickCount+*timeoutTicks, s.tickCount)
		}
	})
}

// wakeFromBlockedLocked unlinks t from any delayed/event list it is
// waiting in and moves it back to its ready list.
func (s *Scheduler) wakeFromBlockedLocked(t *tcb) {
	if t.stateItem.container != nil {
		t.stateItem.container.remove(&t.stateItem)
	}
	if t.eventItem.container != nil {
		t.eventItem.container.remove(&t.eventItem)
	}
	s.lists.addReady(t)
}

// AbortDelay forcibly wakes a task that is currently blocked (delayed
// or waiting on an event), returning true if it was actually blocked.
// A no-op (returns false, nil) if the task was not blocked — it never
// queues an abort for a future block, per SPEC_FULL.md §4.
func (s *Scheduler) AbortDelay(h TaskHandle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[h]
	if !ok || t.finished {
		return false, ErrInvalidArgument
	}
	if t.state != TaskBlocked {
		return false, nil
	}
	t.delayAborted = true
	s.wakeFromBlockedLocked(t)
	return true, nil
}

// --- tick handler -------------------------------------------------

// Tick is the kernel's ISR-context trampoline point (spec.md §6): the
// platform tick source calls it once per period. It advances the tick
// counter, handles wraparound by swapping the delayed lists, and moves
// any task whose wake time has arrived into its ready list. If the
// scheduler is globally suspended (SuspendAll), ticks are merely
// counted and replayed by ResumeAll.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	if s.suspendNesting > 0 {
		s.pendingTicks++
		s.mu.Unlock()
		return
	}
	s.tickOnceLocked()
	s.mu.Unlock()
	if s.cfg.tickHook != nil {
		s.cfg.tickHook()
	}
}

func (s *Scheduler) tickOnceLocked() {
	s.tickCount++
	if s.tickCount == 0 {
		s.lists.swapDelayedLists()
	}
	for {
		dl := s.lists.currentDelayed
		if dl.isEmpty() {
			break
		}
		item := dl.firstItem()
		if int32(item.key-s.tickCount) > 0 {
			break
		}
		t := item.owner.(*tcb)
		s.wakeFromBlockedLocked(t)
	}
	s.timers.onTickLocked(s.tickCount)
}

// --- priority / suspend / resume -------------------------------------

// GetPriority returns h's current (possibly inherited) priority.
func (s *Scheduler) GetPriority(h TaskHandle) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _, err := s.resolveTargetLocked(h)
	if err != nil {
		return 0, err
	}
	return t.priority, nil
}

// SetPriority changes h's base priority. If h is ready and the new
// priority makes it the highest ready task, the next checkpoint in the
// current task picks it up (see Scheduler's doc comment on preemption).
func (s *Scheduler) SetPriority(h TaskHandle, priority uint8) error {
	if priority >= s.maxPriorities {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _, err := s.resolveTargetLocked(h)
	if err != nil {
		return err
	}
	// A task's effective priority only tracks a SetPriority change while
	// it isn't currently boosted by mutex inheritance, matching
	// vTaskPrioritySet's own uxPriority == uxBasePriority check, compared
	// against the *old* base captured before it's overwritten below. A
	// boosted owner (priority > basePriority) keeps its inherited
	// priority regardless of what its base is reset to (spec.md §8.5).
	notInherited := t.priority == t.basePriority
	t.basePriority = priority
	if notInherited && t.priority != priority {
		if t.state == TaskReady || t.state == TaskRunning {
			s.lists.removeReady(t)
			t.priority = priority
			s.lists.addReady(t)
		} else {
			t.priority = priority
		}
	}
	return nil
}

// Suspend removes h from scheduling entirely until Resume is called,
// regardless of what it's currently blocked on.
func (s *Scheduler) Suspend(h TaskHandle) error {
	s.mu.Lock()
	t, self, err := s.resolveTargetLocked(h)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if t == s.idle {
		s.mu.Unlock()
		return ErrInvalidArgument
	}
	if self {
		s.deschedule(t, func() {
			s.unlinkLocked(t)
			t.state = TaskSuspended
			t.stateItem.key = 0
			s.lists.suspended.insertEnd(&t.stateItem)
		})
		s.mu.Unlock()
		return nil
	}
	s.unlinkLocked(t)
	t.state = TaskSuspended
	t.stateItem.key = 0
	s.lists.suspended.insertEnd(&t.stateItem)
	s.mu.Unlock()
	return nil
}

// Resume moves a suspended task back to its ready list.
func (s *Scheduler) Resume(h TaskHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[h]
	if !ok || t.finished {
		return ErrInvalidArgument
	}
	if t.state != TaskSuspended {
		return nil
	}
	s.lists.suspended.remove(&t.stateItem)
	s.lists.addReady(t)
	return nil
}

// boostPriorityLocked raises t's effective priority (its ready-list
// position moves with it) without touching basePriority, implementing
// one leg of Mutex's priority inheritance.
func (s *Scheduler) boostPriorityLocked(t *tcb, priority uint8) {
	if t.state == TaskReady || t.state == TaskRunning {
		s.lists.removeReady(t)
		t.priority = priority
		s.lists.addReady(t)
	} else {
		t.priority = priority
	}
	s.logf(LevelDebug, "mutex", "priority inherited", map[string]any{"task": t.name, "priority": priority})
}

// propagatePriorityLocked continues an inheritance boost past the task
// just raised by boostPriorityLocked, walking the chain of mutexes each
// owner is itself blocked trying to take. If owner is in turn blocked in
// Take on some other mutex, that mutex's owner must inherit priority
// too, and so on: spec.md §8's T1->M1(T2)->M2(T3) example, where a
// single-level boost of only T2 would leave T3 untouched.
func (s *Scheduler) propagatePriorityLocked(owner *tcb, priority uint8) {
	for {
		m := owner.waitingMutex
		if m == nil || m.owner == nil {
			return
		}
		next := m.owner
		if next.priority >= priority {
			return
		}
		s.boostPriorityLocked(next, priority)
		owner = next
	}
}

// restorePriorityLocked drops t back to its base priority.
func (s *Scheduler) restorePriorityLocked(t *tcb) {
	s.boostPriorityLocked(t, t.basePriority)
}

// TaskState reports h's externally observable lifecycle state.
func (s *Scheduler) TaskState(h TaskHandle) (TaskState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[h]
	if !ok {
		return TaskInvalid, ErrInvalidArgument
	}
	if t == s.current {
		return TaskRunning, nil
	}
	return t.state, nil
}

// --- critical sections / global suspend -------------------------------

// EnterCritical masks "interrupts" (ISR-simulated callers contending
// for s.mu) for the calling task. Must only be called by the currently
// running task, on itself — exactly like a real critical section, which
// only ever runs on the one core that entered it. Nestable.
func (s *Scheduler) EnterCritical() {
	t := s.current
	if t.criticalNesting == 0 {
		s.mu.Lock()
	}
	t.criticalNesting++
}

// ExitCritical unwinds one level of EnterCritical nesting, releasing
// the kernel lock once nesting reaches zero.
func (s *Scheduler) ExitCritical() {
	t := s.current
	if t.criticalNesting == 0 {
		panic("kernel: ExitCritical without matching EnterCritical")
	}
	t.criticalNesting--
	if t.criticalNesting == 0 {
		s.mu.Unlock()
	}
}

// SuspendAll defers tick processing: while suspended, Tick only counts
// ticks and ResumeAll replays them. It does not stop Yield, blocking
// calls or task exit from switching tasks, and it does not mask
// ISR-simulated callers the way EnterCritical does — spec.md §4.C
// distinguishes the two.
func (s *Scheduler) SuspendAll() {
	s.mu.Lock()
	s.suspendNesting++
	s.mu.Unlock()
}

// ResumeAll re-enables scheduling and replays any ticks that arrived
// while suspended.
func (s *Scheduler) ResumeAll() {
	s.mu.Lock()
	if s.suspendNesting == 0 {
		s.mu.Unlock()
		return
	}
	s.suspendNesting--
	if s.suspendNesting != 0 {
		s.mu.Unlock()
		return
	}
	pending := s.pendingTicks
	s.pendingTicks = 0
	for i := uint64(0); i < pending; i++ {
		s.tickOnceLocked()
	}
	s.mu.Unlock()
}
