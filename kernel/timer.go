package kernel

import "context"

// TimerID identifies a software timer.
type TimerID uint32

// Timer is a software timer serviced by the kernel's timer daemon task
// rather than by any interrupt context (spec.md §4.G) — exactly as the
// original's timer module works, trading precision for never running
// timer callbacks with interrupts masked.
type Timer struct {
	id         TimerID
	name       string
	period     uint32
	autoReload bool
	callback   func(id TimerID)

	item   listItem
	active bool
}

// ID returns the timer's identity, stable for its lifetime.
func (tm *Timer) ID() TimerID { return tm.id }

type timerCmdKind uint8

const (
	timerCmdStart timerCmdKind = iota
	timerCmdStop
	timerCmdReset
	timerCmdChangePeriod
	timerCmdDelete
	timerCmdPendFunctionCall
	timerCmdFire
)

type timerCommand struct {
	kind      timerCmdKind
	timer     *Timer
	newPeriod uint32
	fn        func(arg any)
	arg       any
}

// TimerService runs the single daemon task that owns every software
// timer's expiry bookkeeping, serialized through a command queue exactly
// like the original's "timer command queue" (spec.md §4.G). Arming,
// disarming, and period changes are never applied directly by the
// calling task; they are posted as commands for the daemon to apply.
// The only other writer of the active-timer lists is the tick handler
// (onTickLocked), which removes expired timers and re-arms auto-reload
// ones.
type TimerService struct {
	s        *Scheduler
	priority uint8
	daemon   *tcb

	cmdQueue *Queue[timerCommand]

	activeA, activeB  list
	current, overflow *list

	nextID TimerID
	timers map[TimerID]*Timer
}

func newTimerService(s *Scheduler, priority uint8, queueLen uint32) *TimerService {
	ts := &TimerService{
		s:        s,
		priority: priority,
		nextID:   1,
		timers:   make(map[TimerID]*Timer),
	}
	initList(&ts.activeA)
	initList(&ts.activeB)
	ts.current = &ts.activeA
	ts.overflow = &ts.activeB
	ts.cmdQueue = NewQueue[timerCommand](s, int(queueLen))
	return ts
}

// createDaemonTaskLocked creates the timer daemon task. Must be called
// with s.mu held, during Start.
func (ts *TimerService) createDaemonTaskLocked(s *Scheduler) *tcb {
	t := s.newTaskLocked("Tmr Svc", ts.priority, 1024, ts.daemonMain, nil, false)
	ts.daemon = t
	return t
}

func (ts *TimerService) daemonMain(ctx context.Context, _ any) {
	if ts.s.cfg.daemonStartupHook != nil {
		ts.s.cfg.daemonStartupHook()
	}
	for ctx.Err() == nil {
		cmd, err := ts.cmdQueue.Receive(nil)
		if err != nil {
			continue
		}
		ts.handleCommand(cmd)
	}
}

// CreateTimer registers a new timer, initially disarmed.
func (ts *TimerService) CreateTimer(name string, period uint32, autoReload bool, callback func(id TimerID)) (TimerID, error) {
	if period == 0 || callback == nil {
		return 0, ErrInvalidArgument
	}
	ts.s.mu.Lock()
	id := ts.nextID
	ts.nextID++
	tm := &Timer{id: id, name: name, period: period, autoReload: autoReload, callback: callback}
	tm.item.owner = tm
	ts.timers[id] = tm
	ts.s.mu.Unlock()
	return id, nil
}

func (ts *TimerService) post(cmd timerCommand, timeoutTicks *uint32) error {
	return ts.cmdQueue.Send(cmd, timeoutTicks)
}

// Start arms (or re-arms) a timer so it first expires one period from
// now. The command is processed asynchronously by the daemon task; with
// a zero timeout, a full command queue makes it return ErrWouldBlock
// instead of waiting.
func (ts *TimerService) Start(id TimerID, timeoutTicks *uint32) error {
	tm, err := ts.lookup(id)
	if err != nil {
		return err
	}
	return ts.post(timerCommand{kind: timerCmdStart, timer: tm}, timeoutTicks)
}

// Stop disarms a timer; it will not fire again until Start or Reset.
func (ts *TimerService) Stop(id TimerID, timeoutTicks *uint32) error {
	tm, err := ts.lookup(id)
	if err != nil {
		return err
	}
	return ts.post(timerCommand{kind: timerCmdStop, timer: tm}, timeoutTicks)
}

// Reset re-arms a timer as if freshly started, whether or not it was
// already active.
func (ts *TimerService) Reset(id TimerID, timeoutTicks *uint32) error {
	tm, err := ts.lookup(id)
	if err != nil {
		return err
	}
	return ts.post(timerCommand{kind: timerCmdReset, timer: tm}, timeoutTicks)
}

// ChangePeriod updates a timer's period, arming it if it was dormant.
func (ts *TimerService) ChangePeriod(id TimerID, newPeriod uint32, timeoutTicks *uint32) error {
	if newPeriod == 0 {
		return ErrInvalidArgument
	}
	tm, err := ts.lookup(id)
	if err != nil {
		return err
	}
	return ts.post(timerCommand{kind: timerCmdChangePeriod, timer: tm, newPeriod: newPeriod}, timeoutTicks)
}

// Delete disarms and removes a timer. The TimerID becomes invalid once
// the daemon processes the command.
func (ts *TimerService) Delete(id TimerID, timeoutTicks *uint32) error {
	tm, err := ts.lookup(id)
	if err != nil {
		return err
	}
	return ts.post(timerCommand{kind: timerCmdDelete, timer: tm}, timeoutTicks)
}

// PendFunctionCall queues fn(arg) to run on the timer daemon task, the
// standard way to move work out of an ISR context without giving it its
// own task (spec.md §4.G supplement, SPEC_FULL.md §4).
func (ts *TimerService) PendFunctionCall(fn func(arg any), arg any, timeoutTicks *uint32) error {
	if fn == nil {
		return ErrInvalidArgument
	}
	return ts.post(timerCommand{kind: timerCmdPendFunctionCall, fn: fn, arg: arg}, timeoutTicks)
}

func (ts *TimerService) lookup(id TimerID) (*Timer, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	tm, ok := ts.timers[id]
	if !ok {
		return nil, ErrInvalidArgument
	}
	return tm, nil
}

// handleCommand runs on the daemon task itself, so timer callbacks
// execute with an ordinary task's priority and may call any blocking
// kernel API — unlike an ISR, and exactly like the original.
func (ts *TimerService) handleCommand(cmd timerCommand) {
	switch cmd.kind {
	case timerCmdPendFunctionCall:
		cmd.fn(cmd.arg)
		return
	case timerCmdFire:
		cmd.timer.callback(cmd.timer.id)
		return
	case timerCmdDelete:
		ts.s.mu.Lock()
		if cmd.timer.active {
			ts.unarmLocked(cmd.timer)
		}
		delete(ts.timers, cmd.timer.id)
		ts.s.mu.Unlock()
		return
	}

	ts.s.mu.Lock()
	switch cmd.kind {
	case timerCmdStart, timerCmdReset:
		if cmd.timer.active {
			ts.unarmLocked(cmd.timer)
		}
		ts.armLocked(cmd.timer, cmd.timer.period)
	case timerCmdStop:
		if cmd.timer.active {
			ts.unarmLocked(cmd.timer)
		}
	case timerCmdChangePeriod:
		cmd.timer.period = cmd.newPeriod
		if cmd.timer.active {
			ts.unarmLocked(cmd.timer)
		}
		ts.armLocked(cmd.timer, cmd.newPeriod)
	}
	ts.s.mu.Unlock()
}

// armLocked schedules tm to expire `delta` ticks from now, using the
// same dual-list overflow scheme the task delayed lists use.
func (ts *TimerService) armLocked(tm *Timer, delta uint32) {
	now := ts.s.tickCount
	wake := now + delta
	tm.item.key = wake
	tm.active = true
	if wake < now {
		ts.overflow.insert(&tm.item)
	} else {
		ts.current.insert(&tm.item)
	}
}

func (ts *TimerService) unarmLocked(tm *Timer) {
	if tm.item.container != nil {
		tm.item.container.remove(&tm.item)
	}
	tm.active = false
}

// onTickLocked is invoked once per tick, from Scheduler.tickOnceLocked,
// with s.mu already held. Expired timers are posted as timerCmdFire
// commands onto the daemon's own command queue — via pushLocked, which
// never blocks — so every callback still runs on the daemon task at its
// configured priority, never from tick/ISR context, exactly like the
// original. A full command queue silently drops the fire notification
// for that expiry, matching a real platform's ISR-can't-block contract;
// an auto-reload timer gets another chance next period.
func (ts *TimerService) onTickLocked(now uint32) {
	if now == 0 {
		ts.current, ts.overflow = ts.overflow, ts.current
	}
	for {
		if ts.current.isEmpty() {
			return
		}
		item := ts.current.firstItem()
		if int32(item.key-now) > 0 {
			return
		}
		tm := item.owner.(*Timer)
		ts.current.remove(&tm.item)
		tm.active = false
		if tm.autoReload {
			ts.armLocked(tm, tm.period)
		}
		ts.cmdQueue.pushLocked(timerCommand{kind: timerCmdFire, timer: tm})
	}
}
