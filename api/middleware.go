package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shopfront/metrics"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
)

// CORSOptions configures the CORS stage.
type CORSOptions struct {
	// AllowedOrigins are reflected verbatim when they match the request's
	// Origin. An empty list allows no cross-origin caller.
	AllowedOrigins []string
	// ReflectOrigin reflects any Origin, ignoring AllowedOrigins.
	ReflectOrigin bool
	// AllowCredentials sets Access-Control-Allow-Credentials: true.
	AllowCredentials bool
}

const corsAllowedMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"

// CORS adds cross-origin headers and answers preflight requests with 204.
func CORS(opts CORSOptions) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin != "" && (opts.ReflectOrigin || allowed[origin]) {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if opts.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
				if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
					h.Add("Vary", "Access-Control-Request-Headers")
					h.Set("Access-Control-Allow-Headers", requested)
				}
				h.Set("Content-Length", "0")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ParameterPollution collapses repeated query parameters to their last
// value so handlers never see an unexpected list. The original lists are
// kept in the context (see PollutedQuery). Keys in whitelist may repeat.
func ParameterPollution(whitelist ...string) mux.MiddlewareFunc {
	keep := make(map[string]bool, len(whitelist))
	for _, key := range whitelist {
		keep[key] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery == "" {
				next.ServeHTTP(w, r)
				return
			}

			query := r.URL.Query()
			polluted := url.Values{}
			for key, values := range query {
				if len(values) > 1 && !keep[key] {
					polluted[key] = values
					query[key] = values[len(values)-1:]
				}
			}
			if len(polluted) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			r2 := r.WithContext(withPollutedQuery(r.Context(), polluted))
			u := *r.URL
			u.RawQuery = query.Encode()
			r2.URL = &u
			r2.Form = nil
			next.ServeHTTP(w, r2)
		})
	}
}

const (
	defaultCSP = "default-src 'self';base-uri 'self';font-src 'self' https: data:;" +
		"form-action 'self';frame-ancestors 'self';img-src 'self' data:;object-src 'none';" +
		"script-src 'self';script-src-attr 'none';style-src 'self' https: 'unsafe-inline';" +
		"upgrade-insecure-requests"

	// The Swagger UI page bootstraps itself with an inline script.
	swaggerCSP = "default-src 'self';base-uri 'self';font-src 'self' https: data:;" +
		"frame-ancestors 'self';img-src 'self' data:;object-src 'none';" +
		"script-src 'self' 'unsafe-inline';style-src 'self' https: 'unsafe-inline'"
)

// SecurityHeaders sets the usual hardening headers on every response.
func SecurityHeaders() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			csp := defaultCSP
			if r.URL.Path == "/swagger" || strings.HasPrefix(r.URL.Path, "/swagger/") {
				csp = swaggerCSP
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			h.Set("Origin-Agent-Cluster", "?1")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-DNS-Prefetch-Control", "off")
			h.Set("X-Download-Options", "noopen")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
			h.Set("X-XSS-Protection", "0")
			h.Del("X-Powered-By")

			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records request counts and latency.
func Metrics() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(m.Code)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method).Observe(m.Duration.Seconds())
		})
	}
}
