package api

import (
	"io"
	"net/http"
	"sync"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

// lockedWriter serializes writes; zapio.Writer keeps a line buffer and the
// logging handler writes from every request goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// CombinedLog writes one Apache combined-format line per request through
// the logger.
func CombinedLog(logger *zap.SugaredLogger) mux.MiddlewareFunc {
	out := &lockedWriter{w: &zapio.Writer{
		Log:   logger.Desugar().WithOptions(zap.WithCaller(false)),
		Level: zapcore.InfoLevel,
	}}
	return func(next http.Handler) http.Handler {
		return handlers.CombinedLoggingHandler(out, next)
	}
}

// DevLog writes a short colorless line per request:
// METHOD URL STATUS DURATION ms - BYTES.
func DevLog(logger *zap.SugaredLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			url := r.URL.RequestURI()
			m := httpsnoop.CaptureMetrics(next, w, r)
			logger.Infof("%s %s %d %.3f ms - %d",
				r.Method, url, m.Code, float64(m.Duration.Microseconds())/1000, m.Written)
		})
	}
}
