package kernel

import (
	"context"
	"sync"
)

// TaskHandle is the opaque handle user code and other kernel components
// use to refer to a task. Spec.md §9 requires back-pointers to be
// modeled as a single-owner region rather than shared pointers; here
// that single owner is the Scheduler, and TaskHandle is the stable key
// into its task table — never a raw *tcb escaping the package.
type TaskHandle uint32

// TaskState is the externally observable lifecycle state of a task,
// matching original_source's eTaskState family (SPEC_FULL.md §4,
// supplementing spec.md's implicit list-membership invariants with a
// named introspection API).
type TaskState uint8

const (
	TaskRunning TaskState = iota
	TaskReady
	TaskBlocked
	TaskSuspended
	TaskDeleted
	TaskInvalid
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "Running"
	case TaskReady:
		return "Ready"
	case TaskBlocked:
		return "Blocked"
	case TaskSuspended:
		return "Suspended"
	case TaskDeleted:
		return "Deleted"
	default:
		return "Invalid"
	}
}

// notifySlot is one entry of a task's notification mailbox array
// (SPEC_FULL.md §4: the original's indexed notify family).
type notifySlot struct {
	value uint32
	state notifyState
}

// tcb is the kernel's internal task control block. Go cannot prime a
// bare hardware stack the way spec.md §4.C describes, so "stack_top"
// here is not a raw pointer: the task's logic runs as a goroutine, and
// stackTop instead anchors a simulated stack-depth accounting region
// used only to drive the stack-guard hook (§4.C) and
// StackHighWaterMark (SPEC_FULL.md §4). The goroutine itself is parked
// on runCh, which the scheduler uses as the "context switch":
// exactly one task's runCh is ever sent to at a time, implementing the
// single-core, single-current-task invariant (spec.md §8.3) without an
// ambient OS scheduler's help.
type tcb struct {
	handle TaskHandle
	name   string

	stateItem listItem // linked into ready/delayed/suspended/waitingTermination
	eventItem listItem // linked into an event list iff blocked on a sync object

	priority     uint8
	basePriority uint8

	criticalNesting uint32
	mutexesHeld     uint32

	notify []notifySlot

	// waitingMutex is set for the duration of a blocking Mutex.Take call,
	// letting a subsequent boostPriorityLocked on this task walk onward
	// to whatever task it is itself waiting on (spec.md §8's transitive
	// inheritance example: T1 waits on M1 held by T2, T2 waits on M2 held
	// by T3, so T3 must also be raised to T1's priority).
	waitingMutex *Mutex

	staticallyAllocated bool
	delayAborted        bool

	// simulated stack accounting, driving the stack-guard hook and
	// StackHighWaterMark (neither of which can inspect a real hardware
	// stack on top of the Go runtime).
	stackDepth    uint32
	stackUsed     uint32
	stackOverflow bool

	state      TaskState
	wakeTick   uint64
	entry      func(ctx context.Context, arg any)
	arg        any
	deleteOnce sync.Once

	// started is true once the task's goroutine has received its first
	// baton handoff. Before that, it is parked on taskMain's initial
	// select (which also observes ctx.Done()); after, it is parked
	// inside some Scheduler.deschedule call whenever it is not the
	// current task, and forced deletion must wake it explicitly there.
	started bool

	// runCh is signalled by the scheduler when this task becomes the
	// current task ("context switch in"). A task gives control away by
	// sending on the next task's runCh inside Scheduler.deschedule; ackCh
	// is allocated with the task but nothing sends or receives on it.
	runCh chan struct{}
	ackCh chan struct{}

	// cancel stops the task's goroutine on deletion.
	cancel context.CancelFunc

	finished bool
}

// StackHighWaterMark returns the simulated minimum headroom the task's
// stack has had, analogous to uxTaskGetStackHighWaterMark in the
// original. Never negative: clamps at zero once stackUsed has reached
// stackDepth (an overflow condition, reported separately via the
// stack-overflow hook).
func (t *tcb) StackHighWaterMark() uint32 {
	if t.stackUsed >= t.stackDepth {
		return 0
	}
	return t.stackDepth - t.stackUsed
}
