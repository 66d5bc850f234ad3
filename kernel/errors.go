package kernel

import (
	"errors"
	"fmt"
)

// Sentinel errors for the kernel's §7 error-kind taxonomy. Every blocking
// or fallible kernel API returns one of these (or wraps one via
// WrapError) rather than panicking or using out-of-band signalling;
// callers compare with errors.Is.
var (
	// ErrOutOfMemory is returned by CreateTask when WithHeapSize bounds
	// the simulated heap and the task's stack depth does not fit in it.
	ErrOutOfMemory = errors.New("kernel: out of memory")

	// ErrInvalidArgument is returned for a bad handle, out-of-range
	// priority, unknown port, or other malformed argument.
	ErrInvalidArgument = errors.New("kernel: invalid argument")

	// ErrTimedOut is returned when a blocking call's timeout elapses
	// before the awaited condition became true.
	ErrTimedOut = errors.New("kernel: timed out")

	// ErrWouldBlock is returned by a non-blocking ("try") call that
	// cannot complete immediately.
	ErrWouldBlock = errors.New("kernel: would block")

	// ErrNotOwner is returned when a mutex give is attempted by a task
	// other than its recorded owner.
	ErrNotOwner = errors.New("kernel: not owner")

	// ErrAborted is returned to a task that was blocked (delayed or
	// event-waiting) when another task forcibly unblocked it via
	// AbortDelay.
	ErrAborted = errors.New("kernel: delay aborted")

	// ErrStillCalibrating is a device-layer transient condition,
	// surfaced here rather than duplicated into package device: the
	// device bus is mid calibration (device.Bus.SetCalibrating) and
	// cannot yet serve the request. device.ErrStillCalibrating is an
	// alias of this error.
	ErrStillCalibrating = errors.New("kernel: device still calibrating")

	// ErrKernelNotRunning is returned when an operation addresses the
	// calling task through handle 0 (e.g. DeleteTask(0), GetPriority(0))
	// while no task is current, i.e. before Scheduler.Start.
	ErrKernelNotRunning = errors.New("kernel: scheduler is not running")

	// ErrKernelAlreadyRunning is returned by Start on a scheduler that
	// has already been started.
	ErrKernelAlreadyRunning = errors.New("kernel: scheduler already running")

	// ErrObjectHasWaiters is returned by Delete on a queue, semaphore,
	// or mutex while a task is still blocked on it. spec.md §3 documents
	// destruction-while-blocked as undefined behavior upstream; this
	// kernel chooses to reject it explicitly instead, rather than
	// leaving a dangling event-list reference.
	ErrObjectHasWaiters = errors.New("kernel: object still has blocked waiters")
)

// WrapError wraps err with a message, preserving it as the cause for
// errors.Is/errors.As. Mirrors the teacher's error-wrapping convenience
// of the same name.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
