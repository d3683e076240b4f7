// Package diag is the only place this module writes output on its own
// initiative: consistency-check reports and the fatal-abort path that fires
// when a debug build catches an invariant violation. Nothing in the
// allocation or free hot path ever touches this package.
package diag

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// L is the package logger. It discards everything until Init is called
// with a real handler, matching the rest of this module's rule that
// nothing is logged by default.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures Init.
type Options struct {
	Writer io.Writer  // destination for log records; os.Stderr if nil
	Level  slog.Level // minimum level; slog.LevelInfo if zero
}

// Init swaps in a real handler. Call it once, before any allocator
// activity, if diagnostic output is wanted.
func Init(opts Options) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	L = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level}))
}

// stopped is flipped by Abort and checked by every Alloc/Free call in debug
// builds; once set, the allocator refuses further work rather than operate
// on structures it has already found to be inconsistent.
var stopped atomic.Bool

// Stopped reports whether Abort has ever been called in this process.
func Stopped() bool { return stopped.Load() }

// Abort records a fatal invariant violation, flips the process-wide
// stopped flag, and panics. It is only ever called from lfslab_debug
// builds; release builds never call it.
func Abort(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	stopped.Store(true)
	L.Error("lfslab: consistency violation", "detail", msg)
	panic("lfslab: " + msg)
}
