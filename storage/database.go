package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"shopfront/metrics"
	"shopfront/util/goroutine"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"
)

// Database is a MongoDB handle whose connection is verified in the
// background. Until the first successful ping, Collection returns
// ErrNotReady.
type Database struct {
	uri            string
	name           string
	connectTimeout time.Duration
	logger         *zap.SugaredLogger

	mu       sync.Mutex
	client   *mongo.Client
	database *mongo.Database
	cancel   context.CancelFunc
	done     chan struct{}
	lastErr  error

	ready atomic.Bool
}

// NewDatabase creates an unconnected handle. name is used when uri does
// not carry a database name.
func NewDatabase(uri, name string, connectTimeout time.Duration, logger *zap.SugaredLogger) *Database {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	return &Database{
		uri:            uri,
		name:           name,
		connectTimeout: connectTimeout,
		logger:         logger,
	}
}

// Connect sets up the client and starts verifying the connection in the
// background. It never waits for the server. A missing URI and failures
// while building the client are logged and returned; a failed ping is only
// logged.
func (d *Database) Connect(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("database setup panicked: %v", rec)
			d.logger.Errorw("Database setup failed",
				"error", err,
				"database", d.name,
			)
		}
	}()

	if d.uri == "" {
		d.logger.Error("Connection string is invalid")
		return ErrMissingURI
	}

	cs, err := connstring.ParseAndValidate(d.uri)
	if err != nil {
		d.logger.Errorw("Database setup failed",
			"error", err,
			"stage", "parse_uri",
		)
		return fmt.Errorf("failed to parse MongoDB URI: %w", err)
	}
	name := d.name
	if cs.Database != "" {
		name = cs.Database
	}

	clientOptions := options.Client().
		ApplyURI(d.uri).
		SetServerSelectionTimeout(d.connectTimeout)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		d.logger.Errorw("Database setup failed",
			"error", err,
			"stage", "connect",
			"database", name,
		)
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	d.mu.Lock()
	d.client = client
	d.database = client.Database(name)
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()

	goroutine.Go("database-verify", d.logger, func() { d.verify(pingCtx, client, name, done) })
	return nil
}

// verify pings the server once and records the outcome.
func (d *Database) verify(ctx context.Context, client *mongo.Client, name string, done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithTimeout(ctx, d.connectTimeout)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		d.mu.Lock()
		d.lastErr = err
		d.mu.Unlock()
		d.logger.Errorw("Database connection failed",
			"error", err,
			"database", name,
			"timeout", d.connectTimeout,
		)
		return
	}

	d.ready.Store(true)
	metrics.DatabaseReady.Set(1)
	d.logger.Infow("Database connected...", "database", name)
}

// Wait blocks until the background verification has finished or ctx is
// done. It returns immediately when Connect did not start one.
func (d *Database) Wait(ctx context.Context) error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the error of the last failed verification, if any.
func (d *Database) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// IsReady reports whether the connection has been verified.
func (d *Database) IsReady() bool {
	return d.ready.Load()
}

// Collection returns the named collection once the database is ready.
func (d *Database) Collection(name string) (*mongo.Collection, error) {
	if !d.IsReady() {
		return nil, ErrNotReady
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.database == nil {
		return nil, ErrNotReady
	}
	return d.database.Collection(name), nil
}

// HealthCheck pings the server.
func (d *Database) HealthCheck(ctx context.Context) error {
	d.mu.Lock()
	client := d.client
	d.mu.Unlock()
	if client == nil {
		return ErrNotReady
	}
	return client.Ping(ctx, readpref.Primary())
}

// Close stops a pending verification and disconnects the client.
func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	client, cancel, done := d.client, d.cancel, d.done
	d.client, d.database, d.cancel = nil, nil, nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	d.ready.Store(false)
	metrics.DatabaseReady.Set(0)

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

// useClient attaches an already connected client, marking the handle ready.
// Tests use it with mock deployments.
func (d *Database) useClient(client *mongo.Client, name string) {
	d.mu.Lock()
	d.client = client
	d.database = client.Database(name)
	d.mu.Unlock()
	d.ready.Store(true)
}
