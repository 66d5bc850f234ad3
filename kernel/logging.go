package kernel

import (
	"sync"
	"time"

	"github.com/purduesigbots/pros-sub000/internal/ratelimit"
)

// LogLevel mirrors eventloop's LogLevel: a small ordered severity scale
// independent of any particular logging backend.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEntry is a single structured diagnostic event emitted by the
// kernel. Grounded on eventloop.LogEntry, with Category values specific
// to this domain ("scheduler", "task", "mutex")
// instead of eventloop's ("timer", "promise", "microtask", "poll").
type LogEntry struct {
	Level     LogLevel
	Category  string
	TaskName  string
	Tick      uint64
	Fields    map[string]any
	Message   string
	Err       error
	Timestamp time.Time
}

// Logger is the kernel's structured logging interface. Any backend can
// be wired in via WithLogger; the scheduler emits entries only through
// this interface, matching eventloop's "package-level Logger
// interface + pluggable backend" design. This package also ships the
// logifaceLogger adapter in logging_logiface.go, backed by
// github.com/joeycumines/logiface and github.com/joeycumines/stumpy,
// which cmd/simkernel wires in; the kernel's tests use NewFuncLogger or
// the no-op default.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// noOpLogger discards every entry; it is the Scheduler's default so
// kernel diagnostics never impose a mandatory I/O dependency.
type noOpLogger struct{}

// NewNoOpLogger returns a Logger that discards all entries.
func NewNoOpLogger() Logger { return noOpLogger{} }

func (noOpLogger) Log(LogEntry)          {}
func (noOpLogger) IsEnabled(LogLevel) bool { return false }

// funcLogger adapts a plain function to the Logger interface, useful in
// tests that want to assert on emitted entries without pulling in a real
// backend.
type funcLogger struct {
	mu      sync.Mutex
	minimum LogLevel
	fn      func(LogEntry)
}

// NewFuncLogger returns a Logger that calls fn for every entry at or
// above minimum.
func NewFuncLogger(minimum LogLevel, fn func(LogEntry)) Logger {
	return &funcLogger{minimum: minimum, fn: fn}
}

func (f *funcLogger) Log(entry LogEntry) {
	if !f.IsEnabled(entry.Level) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn(entry)
}

func (f *funcLogger) IsEnabled(level LogLevel) bool {
	return level >= f.minimum
}

// rateLimitedLogger wraps a backend Logger and drops entries that would
// exceed rates for their (Category, Message) pair — a task stuck
// re-triggering the same warning every tick (a repeatedly-violated stack
// guard, a port claim that keeps failing) cannot flood the backend.
type rateLimitedLogger struct {
	inner   Logger
	limiter *ratelimit.Limiter
}

// NewRateLimitedLogger returns a Logger that forwards to inner, silently
// dropping entries whose (Category, Message) pair has exceeded any
// window in rates — e.g. map[time.Duration]int{time.Second: 5} allows at
// most 5 occurrences of the same diagnostic per second.
func NewRateLimitedLogger(inner Logger, rates map[time.Duration]int) Logger {
	return &rateLimitedLogger{inner: inner, limiter: ratelimit.NewLimiter(rates)}
}

func (l *rateLimitedLogger) Log(entry LogEntry) {
	if _, ok := l.limiter.Allow(entry.Category + "\x00" + entry.Message); !ok {
		return
	}
	l.inner.Log(entry)
}

func (l *rateLimitedLogger) IsEnabled(level LogLevel) bool { return l.inner.IsEnabled(level) }

// logf is the Scheduler's internal convenience for emitting a LogEntry,
// skipping allocation of the Fields map when unused.
func (s *Scheduler) logf(level LogLevel, category, message string, fields map[string]any) {
	if !s.logger.IsEnabled(level) {
		return
	}
	s.logger.Log(LogEntry{
		Level:     level,
		Category:  category,
		Tick:      uint64(s.tickCount),
		Fields:    fields,
		Message:   message,
		Timestamp: time.Now(),
	})
}
