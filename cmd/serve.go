package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"shopfront/bootstrap"
	"shopfront/palette"
	"shopfront/storage"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configFile *string) *cobra.Command {
	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server.

The environment decides the middleware chain: NODE_ENV=production enables
security headers, parameter pollution protection and combined access logs.
PORT sets the listening port (default 5000) and MONGODB_URI the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configFile, port)
		},
	}

	serveCmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides PORT)")
	return serveCmd
}

// runServe runs the server until SIGINT or SIGTERM. port overrides the
// configured port when non-zero.
func runServe(ctx context.Context, configFile string, port int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if port != 0 {
		viper.Set("port", port)
	}

	cfg, err := bootstrap.InitConfig(configFile)
	if err != nil {
		return err
	}

	logger, sugar, err := bootstrap.InitLogger(cfg.Production())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	bootstrap.LogConfig(cfg, sugar)

	db := storage.NewDatabase(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.ConnectTimeout, sugar)
	store, err := storage.NewCachedPaletteStorage(storage.NewPaletteStorage(db, sugar), cfg.Cache.PaletteSize)
	if err != nil {
		return err
	}

	app, err := bootstrap.NewApp(ctx, cfg, sugar, db, palette.NewRoutes(store, sugar))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen() }()

	select {
	case err := <-errCh:
		_ = app.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Shutdown failed", "error", err)
		return err
	}
	return <-errCh
}
