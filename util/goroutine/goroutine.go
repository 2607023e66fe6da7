// Package goroutine runs background work that must never take the process
// down with it.
package goroutine

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"
)

const stackBufferSize = 4096

// Go runs fn on a new goroutine. A panic inside fn is logged under name and
// swallowed.
func Go(name string, logger *zap.SugaredLogger, fn func()) {
	go func() {
		defer Recover(name, logger)
		fn()
	}()
}

// Recover must be deferred directly. It logs a recovered panic with a stack
// trace; with a nil logger the report goes to stderr.
func Recover(name string, logger *zap.SugaredLogger) {
	rec := recover()
	if rec == nil {
		return
	}

	buf := make([]byte, stackBufferSize)
	buf = buf[:runtime.Stack(buf, false)]

	if logger == nil {
		fmt.Fprintf(os.Stderr, "panic in background task %s: %v\n%s\n", name, rec, buf)
		return
	}
	logger.Errorw("Background task panicked",
		"task", name,
		"panic", rec,
		"stack", string(buf),
	)
}
