package kernel

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// logifaceLogger adapts a github.com/joeycumines/logiface logger (with
// the stumpy JSON encoder backend) to the kernel's Logger interface.
// This is the default structured-logging wiring used by cmd/simkernel,
// grounded on the same logiface + stumpy pairing the teacher's own test
// suite exercises (eventloop/coverage_phase2_test.go constructs a
// logiface.Logger directly; stumpy.WithStumpy is the teacher's sibling
// module providing a concrete encoder for it).
type logifaceLogger struct {
	l *logiface.Logger[*stumpy.Event]
}

// NewLogifaceLogger returns a Logger backed by logiface+stumpy, writing
// newline-delimited JSON to w. Pass nil for w to default to os.Stderr.
func NewLogifaceLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	l := logiface.New[*stumpy.Event](
		stumpy.WithStumpy(stumpy.WithWriter(w)),
	)
	return &logifaceLogger{l: l}
}

func (a *logifaceLogger) IsEnabled(level LogLevel) bool {
	return a.l.Level() >= a.logifaceLevel(level)
}

func (a *logifaceLogger) logifaceLevel(level LogLevel) logiface.Level {
	switch level {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

func (a *logifaceLogger) Log(entry LogEntry) {
	b := a.l.Build(a.logifaceLevel(entry.Level))
	if b == nil {
		return
	}
	b = b.Str("category", entry.Category)
	if entry.TaskName != "" {
		b = b.Str("task", entry.TaskName)
	}
	b = b.Uint64("tick", entry.Tick)
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	for k, v := range entry.Fields {
		b = b.Any(k, v)
	}
	b.Log(entry.Message)
}
