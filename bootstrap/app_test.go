package bootstrap

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"shopfront/api"
	"shopfront/config"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestConfig(env string) *config.Config {
	return &config.Config{
		Env:  env,
		Port: 0,
		MongoDB: config.MongoDBConfig{
			Database:       "shopfront",
			ConnectTimeout: time.Second,
		},
		API:   config.APIConfig{BodyLimit: 1024},
		Docs:  config.DocsConfig{Enabled: true, Path: filepath.Join("..", "docs", "swagger.yaml")},
		Cache: config.CacheConfig{PaletteSize: 8},
	}
}

func newObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func newTestApp(t *testing.T, cfg *config.Config, routes ...api.Route) (*App, *observer.ObservedLogs) {
	t.Helper()
	logger, logs := newObservedLogger()
	app, err := NewApp(context.Background(), cfg, logger, nil, routes...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app, logs
}

func serve(app *App, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	return rec
}

func echoRoute(path, body string) api.Route {
	return api.RouteFunc(func(r *mux.Router) {
		r.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}).Methods(http.MethodGet)
	})
}

func TestNewApp_ProductionFlag(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"Production", false},
		{"development", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			app, _ := newTestApp(t, newTestConfig(tt.env))
			assert.Equal(t, tt.want, app.Production)
		})
	}
}

func TestNewApp_MissingDatabaseURI(t *testing.T) {
	app, logs := newTestApp(t, newTestConfig("development"))

	assert.Equal(t, 1, logs.FilterMessage("Connection string is invalid").Len())
	assert.False(t, app.Database.IsReady())

	rec := serve(app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, healthResponse{Status: "ok", Database: "disconnected"}, health)
}

func TestNewApp_InvalidDatabaseURI(t *testing.T) {
	cfg := newTestConfig("development")
	cfg.MongoDB.URI = "postgres://not-mongo"

	app, logs := newTestApp(t, cfg)

	assert.NotNil(t, app)
	assert.Equal(t, 1, logs.FilterMessage("Database setup failed").Len())
	entries := logs.FilterMessage("Continuing without database").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["remediation"], "not a valid connection string")
}

func TestNewApp_UnreachableDatabaseDoesNotBlock(t *testing.T) {
	cfg := newTestConfig("development")
	cfg.MongoDB.URI = "mongodb://127.0.0.1:1/shop"

	start := time.Now()
	app, logs := newTestApp(t, cfg)
	assert.Less(t, time.Since(start), cfg.MongoDB.ConnectTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Database.Wait(ctx))
	assert.False(t, app.Database.IsReady())

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Continuing without database").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewApp_MissingDocs(t *testing.T) {
	cfg := newTestConfig("development")
	cfg.Docs.Path = filepath.Join(t.TempDir(), "missing.yaml")

	logger, _ := newObservedLogger()
	_, err := NewApp(context.Background(), cfg, logger, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load API docs")
}

func TestNewApp_MalformedDocs(t *testing.T) {
	cfg := newTestConfig("development")
	cfg.Docs.Path = filepath.Join(t.TempDir(), "swagger.yaml")
	require.NoError(t, os.WriteFile(cfg.Docs.Path, []byte("swagger: [\n"), 0o644))

	logger, _ := newObservedLogger()
	_, err := NewApp(context.Background(), cfg, logger, nil)

	assert.Error(t, err)
}

func TestProductionMiddleware(t *testing.T) {
	app, logs := newTestApp(t, newTestConfig("production"), echoRoute("/hello", "hi"))

	header := http.Header{"Origin": []string{"https://evil.example.com"}, "User-Agent": []string{"probe"}}
	rec := serve(app, http.MethodGet, "/hello?x=1&x=2", header)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rec.Header().Get(api.RequestIDHeader))

	var combined int
	for _, entry := range logs.All() {
		if strings.Contains(entry.Message, `"GET /hello?x=1&x=2 HTTP/1.1" 200 2`) {
			combined++
		}
	}
	assert.Equal(t, 1, combined)
}

func TestProductionMiddleware_AllowedOrigin(t *testing.T) {
	cfg := newTestConfig("production")
	cfg.API.AllowedOrigins = []string{"https://shop.example.com"}
	app, _ := newTestApp(t, cfg, echoRoute("/hello", "hi"))

	rec := serve(app, http.MethodGet, "/hello", http.Header{"Origin": []string{"https://shop.example.com"}})

	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDevelopmentMiddleware(t *testing.T) {
	app, logs := newTestApp(t, newTestConfig("development"), echoRoute("/hello", "hi"))

	rec := serve(app, http.MethodGet, "/hello", http.Header{"Origin": []string{"http://localhost:3000"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, rec.Header().Get("X-Frame-Options"), "security headers are production only")

	var dev int
	for _, entry := range logs.All() {
		if strings.HasPrefix(entry.Message, "GET /hello 200 ") {
			dev++
		}
	}
	assert.Equal(t, 1, dev)
}

func TestRoutes_OrderPreserved(t *testing.T) {
	app, _ := newTestApp(t, newTestConfig("development"),
		echoRoute("/dup", "first"),
		echoRoute("/dup", "second"),
		echoRoute("/only-second", "second"),
	)

	assert.Equal(t, "first", serve(app, http.MethodGet, "/dup", nil).Body.String())
	assert.Equal(t, "second", serve(app, http.MethodGet, "/only-second", nil).Body.String())
}

func TestErrorHandling(t *testing.T) {
	failing := api.RouteFunc(func(r *mux.Router) {
		r.Handle("/teapot", api.HandlerFunc(func(http.ResponseWriter, *http.Request) error {
			return api.NewHTTPError(http.StatusTeapot, "short and stout", nil)
		}))
		r.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
		r.HandleFunc("/get-only", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet)
	})
	app, _ := newTestApp(t, newTestConfig("production"), failing)

	tests := []struct {
		name    string
		method  string
		target  string
		status  int
		message string
	}{
		{"returned error", http.MethodGet, "/teapot", http.StatusTeapot, "short and stout"},
		{"panic", http.MethodGet, "/panic", http.StatusInternalServerError, "Internal server error"},
		{"not found", http.MethodGet, "/nowhere", http.StatusNotFound, "Not found"},
		{"method not allowed", http.MethodPost, "/get-only", http.StatusMethodNotAllowed, "Method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(app, tt.method, tt.target, nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, rec.Header().Get(api.RequestIDHeader), body["request_id"])
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), "error responses keep security headers")
		})
	}
}

func TestSwagger(t *testing.T) {
	app, _ := newTestApp(t, newTestConfig("production"))

	rec := serve(app, http.MethodGet, "/swagger", nil)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/swagger/index.html", rec.Header().Get("Location"))

	rec = serve(app, http.MethodGet, "/swagger/doc.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc["swagger"])
	assert.Contains(t, doc["paths"], "/palettes")

	rec = serve(app, http.MethodGet, "/swagger/index.html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swagger-ui")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "script-src 'self' 'unsafe-inline'")
}

func TestSwagger_Disabled(t *testing.T) {
	cfg := newTestConfig("development")
	cfg.Docs.Enabled = false
	app, _ := newTestApp(t, cfg)

	assert.Equal(t, http.StatusNotFound, serve(app, http.MethodGet, "/swagger/doc.json", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, newTestConfig("development"))
	serve(app, http.MethodGet, "/health", nil)

	rec := serve(app, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shopfront_http_requests_total")
}

func TestServe_LogsPort(t *testing.T) {
	app, logs := newTestApp(t, newTestConfig("development"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	done := make(chan error, 1)
	go func() { done <- app.Serve(ln) }()

	require.Eventually(t, func() bool {
		return logs.FilterMessageSnippet("Server is listening on port").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("Server is listening on port "+itoa(port)).Len())

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}

func TestListen(t *testing.T) {
	app, logs := newTestApp(t, newTestConfig("development"))

	done := make(chan error, 1)
	go func() { done <- app.Listen() }()

	require.Eventually(t, func() bool {
		return logs.FilterMessageSnippet("Server is listening on port").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, app.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}

func TestListen_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := newTestConfig("development")
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	app, _ := newTestApp(t, cfg)

	err = app.Listen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
