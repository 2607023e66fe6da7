package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"shopfront/api"
	"shopfront/config"
	"shopfront/docs"
	"shopfront/storage"
	"shopfront/util/goroutine"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// App is the HTTP application: router, middleware chain, database handle
// and API docs.
type App struct {
	// Configuration
	Config     *config.Config
	Sugar      *zap.SugaredLogger
	Production bool

	// Storage
	Database *storage.Database

	// HTTP
	Router     *mux.Router
	middleware []mux.MiddlewareFunc
	handler    http.Handler
	server     *http.Server

	// Lifecycle
	shutdownOnce sync.Once
	watchWg      sync.WaitGroup
}

// NewApp builds the application. db may be nil, in which case a handle is
// created from cfg. A database that cannot be reached does not fail
// construction; a missing or malformed API definition does.
func NewApp(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger, db *storage.Database, routes ...api.Route) (*App, error) {
	app := &App{
		Config:     cfg,
		Sugar:      sugar,
		Production: cfg.Production(),
		Database:   db,
	}
	if app.Database == nil {
		app.Database = storage.NewDatabase(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.ConnectTimeout, sugar)
	}

	app.connectToDatabase(ctx)
	app.initializeMiddleware()
	app.initializeRoutes(routes)
	app.initializeErrorHandling()
	if err := app.initializeSwagger(); err != nil {
		return nil, err
	}

	app.server = &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return app, nil
}

// connectToDatabase starts connecting. Failures are logged and the app
// keeps going without a database.
func (a *App) connectToDatabase(ctx context.Context) {
	err := a.Database.Connect(ctx)
	switch {
	case errors.Is(err, storage.ErrMissingURI):
		return
	case err != nil:
		a.Sugar.Warnw("Continuing without database",
			"remediation", ClassifyConnectionError(err, a.Config.MongoDB.Database))
		return
	}

	a.watchWg.Add(1)
	goroutine.Go("database-watch", a.Sugar, func() {
		defer a.watchWg.Done()
		if a.Database.Wait(context.Background()) != nil || a.Database.IsReady() {
			return
		}
		if err := a.Database.Err(); err != nil {
			a.Sugar.Warnw("Continuing without database",
				"remediation", ClassifyConnectionError(err, a.Config.MongoDB.Database))
		}
	})
}

// initializeMiddleware builds the middleware chain. Order matters: the
// first stage sees the request first.
func (a *App) initializeMiddleware() {
	mw := []mux.MiddlewareFunc{
		api.RequestID(),
		api.Metrics(),
	}

	if a.Production {
		mw = append(mw,
			api.ParameterPollution(a.Config.API.ParameterWhitelist...),
			api.SecurityHeaders(),
			api.CombinedLog(a.Sugar),
			api.CORS(api.CORSOptions{
				AllowedOrigins:   a.Config.API.AllowedOrigins,
				AllowCredentials: true,
			}),
		)
	} else {
		mw = append(mw,
			api.DevLog(a.Sugar),
			api.CORS(api.CORSOptions{
				ReflectOrigin:    true,
				AllowCredentials: true,
			}),
		)
	}

	mw = append(mw,
		api.JSONBodyParser(a.Config.API.BodyLimit),
		api.FormBodyParser(a.Config.API.BodyLimit),
	)
	a.middleware = mw
}

// initializeRoutes mounts every route descriptor at the root, in order.
// Each descriptor gets its own subrouter so an earlier descriptor wins
// when two define the same path.
func (a *App) initializeRoutes(routes []api.Route) {
	a.Router = mux.NewRouter()
	for _, route := range routes {
		if route == nil {
			continue
		}
		route.Mount(a.Router.PathPrefix("/").Subrouter())
	}

	a.Router.Handle("/health", api.HandlerFunc(a.health)).Methods(http.MethodGet, http.MethodHead)
	a.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (a *App) health(w http.ResponseWriter, r *http.Request) error {
	database := "disconnected"
	if a.Database.IsReady() {
		database = "connected"
	}
	return api.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: database})
}

// initializeErrorHandling installs the terminal error handler. It answers
// router misses and anything a route or middleware reports or panics with.
func (a *App) initializeErrorHandling() {
	a.Router.NotFoundHandler = api.NotFound
	a.Router.MethodNotAllowedHandler = api.MethodNotAllowed

	chain := make([]mux.MiddlewareFunc, 0, len(a.middleware)+1)
	chain = append(chain, a.middleware...)
	chain = append(chain, api.Recover(a.Sugar))
	a.handler = api.ErrorBoundary(api.NewErrorHandler(a.Sugar), a.Sugar)(api.Chain(a.Router, chain...))
}

// initializeSwagger loads the API definition and serves the UI under
// /swagger.
func (a *App) initializeSwagger() error {
	if !a.Config.Docs.Enabled {
		return nil
	}

	doc, err := docs.Load(a.Config.Docs.Path)
	if err != nil {
		return fmt.Errorf("failed to load API docs: %w", err)
	}
	docs.Register(doc)

	toIndex := http.RedirectHandler("/swagger/index.html", http.StatusMovedPermanently)
	a.Router.Handle("/swagger", toIndex)
	a.Router.Handle("/swagger/", toIndex)
	a.Router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
		httpSwagger.InstanceName(docs.InstanceName),
	))

	a.Sugar.Infow("API docs available", "path", "/swagger", "version", doc.Version)
	return nil
}

// Handler returns the complete HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Listen binds the configured port and serves until Shutdown.
func (a *App) Listen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.Config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", a.Config.Port, err)
	}
	return a.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (a *App) Serve(ln net.Listener) error {
	port := a.Config.Port
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	a.Sugar.Infof("Server is listening on port %d", port)

	if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the server and closes the database handle.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.shutdownOnce.Do(func() {
		a.Sugar.Info("Shutting down...")
		if serr := a.server.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("failed to stop server: %w", serr)
		}
		if cerr := a.Database.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
		a.watchWg.Wait()
	})
	return err
}
