package device

import (
	"context"
	"io"
	"time"
)

// BatchConfig tunes CollectSamples' size/latency tradeoff.
type BatchConfig struct {
	// MaxSamples caps how many samples a single call returns to handler
	// collectively. A value < 0 disables the cap.
	//
	// Defaults to 16, if 0.
	MaxSamples int

	// MinSamples is the target number of samples to wait for before
	// returning, trading latency for fewer, larger batches — useful when
	// handler itself claims a port (Bus.Claim's per-port mutex):
	// batching amortizes that claim/release pair over several samples
	// instead of paying it per reading.
	//
	// A value < 0 allows returning with zero samples once PartialTimeout
	// elapses, applying the timeout to the very first sample.
	//
	// Defaults to 4, if 0.
	MinSamples int

	// PartialTimeout bounds how long CollectSamples waits for MinSamples
	// before settling for fewer. Defaults to 50ms, if 0.
	PartialTimeout time.Duration
}

// CollectSamples drains up to MaxSamples values from ch, invoking handler
// for each, having first waited (up to PartialTimeout) for at least
// MinSamples to arrive — then draining whatever else is already queued
// without blocking further. It returns io.EOF if ch closes before
// MinSamples is reached, or ctx.Err() if ctx is cancelled first.
//
// Intended for a device driver polling loop reading a queue fed by a
// sensor's sample-producing task: rather than claiming and releasing the
// port's mutex once per sample, the caller batches several samples under
// one claim.
//
// Providing a nil ctx, ch, or handler panics.
func CollectSamples[T any](ctx context.Context, cfg *BatchConfig, ch <-chan T, handler func(sample T) error) error {
	if ctx == nil {
		panic(`device: collect samples: nil context`)
	}
	if ch == nil {
		panic(`device: collect samples: nil channel`)
	}
	if handler == nil {
		panic(`device: collect samples: nil handler`)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	maxSamples := 16
	minSamples := 4
	partialTimeout := 50 * time.Millisecond
	if cfg != nil {
		if cfg.MaxSamples != 0 {
			maxSamples = cfg.MaxSamples
		}
		if cfg.MinSamples != 0 {
			minSamples = cfg.MinSamples
		}
		if cfg.PartialTimeout != 0 {
			partialTimeout = cfg.PartialTimeout
		}
	}

	var partialTimeoutCh <-chan time.Time
	if partialTimeout > 0 && minSamples < 0 {
		timer := time.NewTimer(partialTimeout)
		defer timer.Stop()
		partialTimeoutCh = timer.C
	}

	var size int

minSizeLoop:
	for (maxSamples < 0 || size < maxSamples) && (size < minSamples || (size == 0 && partialTimeoutCh != nil)) {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-partialTimeoutCh:
			if err := ctx.Err(); err != nil {
				return err
			}
			break minSizeLoop

		case sample, ok := <-ch:
			if !ok {
				return io.EOF
			}

			size++

			if size == 1 && partialTimeout > 0 && partialTimeoutCh == nil {
				timer := time.NewTimer(partialTimeout)
				//goland:noinspection GoDeferInLoop
				defer timer.Stop()
				partialTimeoutCh = timer.C
			}

			if err := handler(sample); err != nil {
				return err
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

maxSizeLoop:
	for maxSamples < 0 || size < maxSamples {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sample, ok := <-ch:
			if !ok {
				return io.EOF
			}

			size++

			if err := handler(sample); err != nil {
				return err
			}

		default:
			if err := ctx.Err(); err != nil {
				return err
			}
			break maxSizeLoop
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
