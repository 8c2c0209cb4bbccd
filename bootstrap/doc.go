// Package bootstrap assembles an apikit process from its Config: logger,
// OpenTelemetry providers, HTTP clients, the options store, the
// authorization-header provider and the downstream API. It also owns the
// process lifecycle (signals, stop hooks, graceful shutdown).
//
//	cfg, loader, _ := config.Load("apikit")
//	app, _ := bootstrap.New(ctx, cfg, bootstrap.WithLoader(loader))
//	err := app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := downstream.Get[Order](ctx, app.API, "orders")
//	    return err
//	})
package bootstrap
