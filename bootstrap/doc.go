// Package bootstrap assembles the shopfront HTTP application from its
// configuration and route descriptors.
//
// Usage:
//
//	db := storage.NewDatabase(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.ConnectTimeout, sugar)
//	app, err := bootstrap.NewApp(ctx, cfg, sugar, db, palette.NewRoutes(store, sugar))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Shutdown(ctx)
//
//	if err := app.Listen(); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
