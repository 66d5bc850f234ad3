// Command simkernel demonstrates the kernel package: two periodic
// tasks at different priorities sharing a mutex-guarded counter, and an
// auto-reload software timer.
//
// Run with: go run ./cmd/simkernel
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/purduesigbots/pros-sub000/kernel"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sched := kernel.New(
		kernel.WithMaxPriorities(16),
		kernel.WithLogger(kernel.NewLogifaceLogger(nil)),
		kernel.WithTickPeriod(time.Millisecond),
	)

	counterMu := kernel.NewMutex(sched)
	counter := 0

	// High-priority task: increments the shared counter every 50 ticks.
	_, err := sched.CreateTask("high", 10, 2048, func(ctx context.Context, _ any) {
		var last uint32
		for ctx.Err() == nil {
			if err := sched.DelayUntil(&last, 50); err != nil {
				return
			}
			if err := counterMu.Take(nil); err != nil {
				return
			}
			counter++
			fmt.Printf("[tick %d] high: counter=%d\n", sched.TickCount(), counter)
			_ = counterMu.Give()
		}
	}, nil)
	if err != nil {
		panic(err)
	}

	// Low-priority task: reads the counter every 200 ticks. Because it
	// shares counterMu with the high-priority task, a badly timed read
	// would normally risk priority inversion; Mutex's inheritance keeps
	// the high-priority writer from being starved by anything else.
	_, err = sched.CreateTask("low", 1, 2048, func(ctx context.Context, _ any) {
		var last uint32
		for ctx.Err() == nil {
			if err := sched.DelayUntil(&last, 200); err != nil {
				return
			}
			if err := counterMu.Take(nil); err != nil {
				return
			}
			fmt.Printf("[tick %d] low: observed counter=%d\n", sched.TickCount(), counter)
			_ = counterMu.Give()
		}
	}, nil)
	if err != nil {
		panic(err)
	}

	// An auto-reload software timer, serviced by the daemon task.
	timerID, err := sched.Timers().CreateTimer("heartbeat", 500, true, func(id kernel.TimerID) {
		fmt.Printf("[tick %d] heartbeat timer fired\n", sched.TickCount())
	})
	if err != nil {
		panic(err)
	}
	if err := sched.Timers().Start(timerID, nil); err != nil {
		panic(err)
	}

	if err := sched.Start(); err != nil {
		panic(err)
	}
	sched.AutoTick(ctx, 0)

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	if err := sched.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("shutdown: %v\n", err)
	}
}
