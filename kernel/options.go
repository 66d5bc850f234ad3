package kernel

import "time"

// schedulerConfig holds resolved construction options for a Scheduler.
// Grounded on eventloop's loopOptions/LoopOption split: an unexported
// config struct, a public Option interface wrapping a closure, and a
// resolve function applied once at construction.
type schedulerConfig struct {
	maxPriorities      uint8
	tickPeriod         time.Duration
	stackGuardEnabled  bool
	heapSize           uint32
	idlePriority       uint8
	notificationSlots  uint8
	logger             Logger
	daemonPriority     uint8
	daemonQueueLength  uint32
	idleHook           func()
	tickHook           func()
	daemonStartupHook  func()
	stackOverflowHook  func(task TaskHandle, name string)
	mallocFailedHook   func()
}

// Option configures a Scheduler at construction time.
type Option interface {
	apply(c *schedulerConfig)
}

type optionFunc func(c *schedulerConfig)

func (f optionFunc) apply(c *schedulerConfig) { f(c) }

// WithMaxPriorities sets the number of distinct priority levels,
// including priority 0 (reserved for the idle task). spec.md §4.B
// requires MAX_PRIORITIES <= 32 so the ready-mask bitmap fits a uint32.
func WithMaxPriorities(n uint8) Option {
	return optionFunc(func(c *schedulerConfig) { c.maxPriorities = n })
}

// WithTickPeriod sets the simulated duration of one tick. Default 1ms,
// matching spec.md §6's ~1kHz platform tick source.
func WithTickPeriod(d time.Duration) Option {
	return optionFunc(func(c *schedulerConfig) { c.tickPeriod = d })
}

// WithStackGuard enables the per-context-switch stack canary / bounds
// check described in spec.md §4.C.
func WithStackGuard(enabled bool) Option {
	return optionFunc(func(c *schedulerConfig) { c.stackGuardEnabled = enabled })
}

// WithHeapSize bounds the kernel's simulated dynamic-allocation heap, in
// bytes, charging each dynamically created task's declared stack_depth
// against it (spec.md §4.H: "Fails with OutOfMemory if dynamic and
// allocation fails"). Zero, the default, means unlimited: Go's own heap
// is the only real limit, matching the original's configTOTAL_HEAP_SIZE
// left undefined when the port uses heap_3 (malloc/free passthrough)
// rather than one of the fixed-arena allocators.
func WithHeapSize(bytes uint32) Option {
	return optionFunc(func(c *schedulerConfig) { c.heapSize = bytes })
}

// WithNotificationSlots sets the number of per-task notification mailbox
// slots (SPEC_FULL.md §4, supplementing spec.md's single-slot model with
// the original's indexed family). Default 1.
func WithNotificationSlots(n uint8) Option {
	return optionFunc(func(c *schedulerConfig) { c.notificationSlots = n })
}

// WithLogger installs a structured Logger for kernel diagnostics
// (scheduler start, task lifecycle, priority inheritance, stack-overflow
// and malloc-failure events).
// Defaults to a no-op logger, mirroring eventloop's NewNoOpLogger default.
func WithLogger(logger Logger) Option {
	return optionFunc(func(c *schedulerConfig) { c.logger = logger })
}

// WithDaemonPriority sets the software-timer daemon task's priority.
func WithDaemonPriority(p uint8) Option {
	return optionFunc(func(c *schedulerConfig) { c.daemonPriority = p })
}

// WithDaemonQueueLength sets the timer daemon's command queue capacity.
func WithDaemonQueueLength(n uint32) Option {
	return optionFunc(func(c *schedulerConfig) { c.daemonQueueLength = n })
}

// WithIdleHook installs a callback invoked once per idle-task iteration.
func WithIdleHook(fn func()) Option {
	return optionFunc(func(c *schedulerConfig) { c.idleHook = fn })
}

// WithTickHook installs a callback invoked on every tick.
func WithTickHook(fn func()) Option {
	return optionFunc(func(c *schedulerConfig) { c.tickHook = fn })
}

// WithDaemonStartupHook installs a callback invoked once, from the timer
// daemon task, before it enters its command loop.
func WithDaemonStartupHook(fn func()) Option {
	return optionFunc(func(c *schedulerConfig) { c.daemonStartupHook = fn })
}

// WithStackOverflowHook installs the application-supplied handler called
// when the stack guard (WithStackGuard) detects an overrun.
func WithStackOverflowHook(fn func(task TaskHandle, name string)) Option {
	return optionFunc(func(c *schedulerConfig) { c.stackOverflowHook = fn })
}

// WithMallocFailedHook installs the handler called when a dynamic
// create call's simulated allocation fails.
func WithMallocFailedHook(fn func()) Option {
	return optionFunc(func(c *schedulerConfig) { c.mallocFailedHook = fn })
}

// resolveOptions applies opts over the kernel's defaults.
func resolveOptions(opts []Option) *schedulerConfig {
	cfg := &schedulerConfig{
		maxPriorities:     32,
		tickPeriod:        time.Millisecond,
		stackGuardEnabled: true,
		idlePriority:      0,
		notificationSlots: 1,
		logger:            NewNoOpLogger(),
		daemonPriority:    31,
		daemonQueueLength: 16,
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		o.apply(cfg)
	}
	return cfg
}
