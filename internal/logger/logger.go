// Package logger is the process-wide leveled logger. Errors always print;
// debug, info and warning lines print only after SetVerbose(true), which
// the --verbose flag turns on.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level orders message severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose switches debug, info and warning output on or off.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// Enabled reports whether a message at level would be written.
func Enabled(level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return level >= LevelError || verbose
}

// Redirect sends output to w and returns a func restoring the previous
// writer. The TUI uses it to keep log lines off the alternate screen.
func Redirect(w io.Writer) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prev := output
	output = w
	return func() {
		mu.Lock()
		defer mu.Unlock()
		output = prev
	}
}

// Debug logs pipeline detail: strategies tried, cache hits, model calls.
func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

// Info logs progress of long-running work.
func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warn logs a degraded but recoverable condition.
func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Error logs a failure. It is written even when not verbose.
func Error(format string, args ...any) { logf(LevelError, format, args...) }

func logf(level Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < LevelError && !verbose {
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", level, fmt.Sprintf(format, args...))
}
