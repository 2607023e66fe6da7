// Package api holds the HTTP plumbing shared by the shopfront application:
// route descriptors, the middleware stages and the terminal error handler.
//
// Handlers that can fail are written as HandlerFunc and return their error;
// middleware and plain handlers report through Fail. Either way the error
// reaches the ErrorHandler installed by ErrorBoundary, which writes the
// response.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Route is a bundle of handlers mounted at the application root.
type Route interface {
	Mount(r *mux.Router)
}

// RouteFunc adapts a plain function to Route.
type RouteFunc func(r *mux.Router)

// Mount calls f(r).
func (f RouteFunc) Mount(r *mux.Router) { f(r) }

// Chain wraps h with the given middleware; middleware[0] sees the request
// first.
func Chain(h http.Handler, middleware ...mux.MiddlewareFunc) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
