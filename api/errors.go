package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync/atomic"

	"shopfront/metrics"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HTTPError is an error that knows which status it should be answered with.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

// NewHTTPError builds an HTTPError; err may be nil.
func NewHTTPError(status int, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Message: message, Err: err}
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Err }

var (
	ErrNotFound         = NewHTTPError(http.StatusNotFound, "Not found", nil)
	ErrMethodNotAllowed = NewHTTPError(http.StatusMethodNotAllowed, "Method not allowed", nil)
)

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) && he.Status >= 400 {
		return he.Status
	}
	return http.StatusInternalServerError
}

// HandlerFunc is an http.Handler that may fail. A returned error is passed
// to the request's error handler.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		Fail(w, r, err)
	}
}

// ErrorHandler turns an error reported during a request into a response.
type ErrorHandler interface {
	ServeError(w http.ResponseWriter, r *http.Request, err error)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// ServeError calls f(w, r, err).
func (f ErrorHandlerFunc) ServeError(w http.ResponseWriter, r *http.Request, err error) {
	f(w, r, err)
}

// plainError answers with the bare status text. It is used when no error
// handler was attached.
func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusOf(err)
	http.Error(w, http.StatusText(status), status)
}

type errorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorHandler returns the JSON error handler. HTTPError messages are
// passed to the client after redaction; any other error is reported as a
// generic 500 and only logged in full.
func NewErrorHandler(logger *zap.SugaredLogger) ErrorHandler {
	return ErrorHandlerFunc(func(w http.ResponseWriter, r *http.Request, err error) {
		status := StatusOf(err)
		message := "Internal server error"
		var he *HTTPError
		if errors.As(err, &he) && he.Message != "" {
			message = he.Message
		}
		requestID, _ := GetRequestID(r.Context())

		fields := []interface{}{
			"error", sanitizeLogMessage(err.Error()),
			"status_code", status,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
		}
		if status >= http.StatusInternalServerError {
			logger.Errorw("Request failed", fields...)
		} else {
			logger.Warnw("Request rejected", fields...)
		}
		metrics.HTTPErrors.WithLabelValues(strconv.Itoa(status)).Inc()

		_ = WriteJSON(w, status, errorResponse{
			Status:    status,
			Message:   sanitizeErrorMessage(message),
			RequestID: requestID,
		})
	})
}

// errorScope is what ErrorBoundary leaves in the request context.
type errorScope struct {
	handler ErrorHandler
	logger  *zap.SugaredLogger
	written atomic.Bool
}

// Fail reports err for the current request. Inside an ErrorBoundary the
// boundary's handler answers; outside one the client gets the bare status.
// If a response was already started the error is only logged.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	scope, ok := r.Context().Value(ContextKeyErrorScope).(*errorScope)
	if !ok {
		plainError(w, r, err)
		return
	}
	if scope.written.Load() {
		scope.logger.Warnw("Error reported after the response was started",
			"error", sanitizeLogMessage(err.Error()),
			"path", r.URL.Path,
			"request_id", GetRequestIDOrDefault(r.Context()))
		return
	}
	scope.handler.ServeError(w, r, err)
}

// ErrorBoundary must wrap the whole middleware chain. It makes eh (or the
// bare status fallback when eh is nil) the destination of Fail for every
// request and recovers panics raised outside the terminal Recover stage.
func ErrorBoundary(eh ErrorHandler, logger *zap.SugaredLogger) mux.MiddlewareFunc {
	if eh == nil {
		eh = ErrorHandlerFunc(plainError)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := &errorScope{handler: eh, logger: logger}
			tracked := httpsnoop.Wrap(w, httpsnoop.Hooks{
				WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
					return func(code int) {
						// 1xx responses do not start the final response.
						if code >= http.StatusOK {
							scope.written.Store(true)
						}
						next(code)
					}
				},
				Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
					return func(b []byte) (int, error) {
						scope.written.Store(true)
						return next(b)
					}
				},
				ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
					return func(src io.Reader) (int64, error) {
						scope.written.Store(true)
						return next(src)
					}
				},
			})
			r = r.WithContext(context.WithValue(r.Context(), ContextKeyErrorScope, scope))

			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logPanic(logger, r, rec)
					Fail(tracked, r, NewHTTPError(http.StatusInternalServerError, "Internal server error", fmt.Errorf("panic: %v", rec)))
				}
			}()

			next.ServeHTTP(tracked, r)
		})
	}
}

// Recover is the terminal error-handling stage: it sits right in front of
// the router, so panics from any route are turned into 500 responses while
// the outer middleware (access log, metrics) still sees the response.
func Recover(logger *zap.SugaredLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logPanic(logger, r, rec)
					Fail(w, r, NewHTTPError(http.StatusInternalServerError, "Internal server error", fmt.Errorf("panic: %v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func logPanic(logger *zap.SugaredLogger, r *http.Request, rec interface{}) {
	// Stack trace is logged server-side only, never sent to client
	logger.Errorw("PANIC RECOVERED",
		"error", sanitizeLogMessage(fmt.Sprintf("%v", rec)),
		"request_id", GetRequestIDOrDefault(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"stack_trace", string(debug.Stack()),
	)
}

// NotFound and MethodNotAllowed route the router's own misses through the
// error handler.
var (
	NotFound         = HandlerFunc(func(http.ResponseWriter, *http.Request) error { return ErrNotFound })
	MethodNotAllowed = HandlerFunc(func(http.ResponseWriter, *http.Request) error { return ErrMethodNotAllowed })
)
