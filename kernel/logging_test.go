package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimitedLoggerDropsExcessEntries(t *testing.T) {
	var entries []LogEntry
	inner := NewFuncLogger(LevelDebug, func(e LogEntry) {
		entries = append(entries, e)
	})
	limited := NewRateLimitedLogger(inner, map[time.Duration]int{time.Minute: 2})

	for i := 0; i < 5; i++ {
		limited.Log(LogEntry{Level: LevelWarn, Category: "task", Message: "overrun"})
	}

	require.Len(t, entries, 2, "only the first two occurrences within the window should pass through")
}

func TestRateLimitedLoggerKeepsCategoriesIndependent(t *testing.T) {
	var entries []LogEntry
	inner := NewFuncLogger(LevelDebug, func(e LogEntry) {
		entries = append(entries, e)
	})
	limited := NewRateLimitedLogger(inner, map[time.Duration]int{time.Minute: 1})

	limited.Log(LogEntry{Level: LevelWarn, Category: "task", Message: "overrun"})
	limited.Log(LogEntry{Level: LevelWarn, Category: "mutex", Message: "overrun"})

	require.Len(t, entries, 2)
}

func TestRateLimitedLoggerRespectsIsEnabled(t *testing.T) {
	inner := NewFuncLogger(LevelError, func(LogEntry) {})
	limited := NewRateLimitedLogger(inner, map[time.Duration]int{time.Second: 1})

	require.False(t, limited.IsEnabled(LevelDebug))
	require.True(t, limited.IsEnabled(LevelError))
}
