// Package logger prints pipeline diagnostics to stderr when the
// --verbose flag is set. It is a small leveled wrapper, not a general
// logging facility; quiet runs emit nothing at all.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

type level string

const (
	levelDebug level = "DEBUG"
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
)

var (
	enabled atomic.Bool

	outMu sync.Mutex
	out   io.Writer = os.Stderr
)

// SetVerbose toggles diagnostic output.
func SetVerbose(on bool) { enabled.Store(on) }

// IsVerbose reports whether diagnostics are being emitted.
func IsVerbose() bool { return enabled.Load() }

// SetOutput redirects diagnostics away from stderr, mainly in tests.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

func emit(lv level, format string, args ...any) {
	if !enabled.Load() {
		return
	}
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(out, "[%s] %s\n", lv, fmt.Sprintf(format, args...))
}

// Debug reports fine-grained pipeline steps.
func Debug(format string, args ...any) { emit(levelDebug, format, args...) }

// Info reports per-stage summaries.
func Info(format string, args ...any) { emit(levelInfo, format, args...) }

// Warn reports recoverable problems, such as a backend going away.
func Warn(format string, args ...any) { emit(levelWarn, format, args...) }

// Section marks the start of a pipeline stage in the diagnostic stream.
func Section(name string) {
	if !enabled.Load() {
		return
	}
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(out, "\n=== %s ===\n", name)
}
