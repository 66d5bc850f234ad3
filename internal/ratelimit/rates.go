package ratelimit

import (
	"golang.org/x/exp/slices"
	"time"
)

// parseRates validates a {window: limit} map and returns the retention
// duration — the longest window any limit is defined for, which is how
// long an event timestamp must be kept before it can be discarded.
//
// A rate map is valid only if, across increasing window length, the
// count is strictly increasing and the effective rate (count/duration)
// is strictly decreasing — otherwise one window is redundant.
func parseRates(rates map[time.Duration]int) (time.Duration, bool) {
	if len(rates) == 0 {
		return 0, false
	}

	durations := make([]time.Duration, 0, len(rates))
	for duration := range rates {
		durations = append(durations, duration)
	}

	slices.Sort(durations)

	for i, duration := range durations {
		rate := rates[duration]
		if rate <= 0 || duration <= 0 {
			return 0, false
		}

		if (i < len(durations)-1 && rate >= rates[durations[i+1]]) ||
			(i > 0 && float64(rate)/float64(duration) >= float64(rates[durations[i-1]])/float64(durations[i-1])) {
			return 0, false
		}
	}

	return durations[len(durations)-1], true
}
