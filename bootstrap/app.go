package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/auth/jwt"
	"github.com/kbukum/apikit/authheader"
	"github.com/kbukum/apikit/config"
	"github.com/kbukum/apikit/downstream"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/observability"
	"github.com/kbukum/apikit/redis"
	"github.com/kbukum/apikit/server"
	"github.com/kbukum/apikit/server/middleware"
)

// CredentialsClient is the httpclient name used to reach the token endpoint.
const CredentialsClient = "credentials"

// App is an assembled apikit process.
type App struct {
	Name    string
	Version string
	Cfg     *config.Config
	Logger  *logger.Logger

	Clients  *httpclient.Factory
	Options  *downstream.OptionsStore
	JWT      *jwt.Service[*jwt.Claims]
	Provider downstream.AuthorizationHeaderProvider
	Metrics  *observability.Metrics
	API      *downstream.API

	tokens          authheader.TokenStore
	gracefulTimeout time.Duration
	onStop          []Hook
}

// New builds every collaborator described by cfg. It applies defaults and
// validates cfg first. Resources acquired before a failure are released.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (app *App, err error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	app = &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		app.Logger = logger.New(&cfg.Logging, cfg.Name)
		logger.SetGlobalLogger(app.Logger)
	}
	defer func() {
		if err != nil {
			_ = app.stop()
		}
	}()

	if err := app.initTelemetry(ctx); err != nil {
		return nil, err
	}

	app.Clients, err = cfg.Downstream.NewFactory(httpclient.WithLogger(app.Logger.WithComponent("httpclient")))
	if err != nil {
		return nil, err
	}
	app.OnStop(func(context.Context) error {
		app.Clients.Close()
		return nil
	})

	app.Options = cfg.Downstream.NewStore()
	if o.loader != nil {
		err := o.loader.Watch(app.Options, func(dc config.DownstreamConfig) {
			app.Logger.Info("Downstream APIs reloaded", logger.Fields("apis", len(dc.APIs)))
		})
		if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
			return nil, err
		}
	}

	if cfg.JWT != nil {
		app.JWT, err = jwt.NewService(cfg.JWT, func() *jwt.Claims { return &jwt.Claims{} })
		if err != nil {
			return nil, err
		}
	}

	if err := app.initTokenCache(ctx); err != nil {
		return nil, err
	}

	app.Provider = o.provider
	if app.Provider == nil {
		if app.Provider, err = app.buildProvider(); err != nil {
			return nil, err
		}
	}

	apiOpts := []downstream.Option{downstream.WithLogger(app.Logger.WithComponent("downstream"))}
	if app.Metrics != nil {
		apiOpts = append(apiOpts, downstream.WithMetrics(app.Metrics))
	}
	app.API = downstream.New(app.Provider, app.Clients, app.Options, apiOpts...)

	app.Logger.Info("Application assembled", map[string]interface{}{
		"name":    app.Name,
		"version": app.Version,
		"apis":    app.Options.Names(),
	})
	return app, nil
}

func (a *App) initTelemetry(ctx context.Context) error {
	if a.Cfg.TracingEnabled {
		tp, err := observability.InitTracer(ctx, &a.Cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		a.OnStop(tp.Shutdown)
	}
	if a.Cfg.MetricsEnabled {
		mp, err := observability.InitMeter(ctx, &a.Cfg.Metrics)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		a.OnStop(mp.Shutdown)
		if a.Metrics, err = observability.NewMetrics(mp.Meter("github.com/kbukum/apikit/downstream")); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

// initTokenCache connects the shared token cache when enabled. Only the
// client credentials provider uses it.
func (a *App) initTokenCache(ctx context.Context) error {
	if !a.Cfg.TokenCache.Enabled || a.Cfg.Credentials == nil {
		return nil
	}
	client, err := redis.New(a.Cfg.TokenCache, a.Logger.WithComponent("redis"))
	if err != nil {
		return fmt.Errorf("token cache: %w", err)
	}
	a.OnStop(func(context.Context) error { return client.Close() })
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("token cache: %w", err)
	}
	sealer, err := a.Cfg.TokenCache.Sealer()
	if err != nil {
		return fmt.Errorf("token cache: %w", err)
	}
	a.tokens = redis.NewTypedStore[oauth2.Token](client, client.Config().KeyPrefix, redis.WithSealer(sealer))
	return nil
}

// buildProvider picks client credentials for the application flow and
// signed assertions for the user flow, whichever are configured.
func (a *App) buildProvider() (downstream.AuthorizationHeaderProvider, error) {
	var signed *authheader.Signed
	if a.JWT != nil {
		var err error
		if signed, err = authheader.NewSigned(a.JWT, a.Name); err != nil {
			return nil, err
		}
	}
	if a.Cfg.Credentials == nil {
		return signed, nil
	}

	ccOpts := []authheader.ClientCredentialsOption{
		authheader.WithHTTPClient(a.Clients.Client(CredentialsClient)),
		authheader.WithLogger(a.Logger.WithComponent("authheader")),
	}
	if a.tokens != nil {
		ccOpts = append(ccOpts, authheader.WithTokenStore(a.tokens))
	}
	cc, err := authheader.NewClientCredentials(*a.Cfg.Credentials, ccOpts...)
	if err != nil {
		return nil, err
	}
	if signed == nil {
		return cc, nil
	}
	return authheader.Split{App: cc, User: signed}, nil
}

// NewServer returns the gateway server for this app. Inbound tokens are
// verified with the jwt service; without one every gateway request must be
// anonymous.
func (a *App) NewServer() *server.Server {
	parser := middleware.TokenParser(func(string) (*auth.Principal, error) {
		return nil, errors.New("no token verifier configured")
	})
	if a.JWT != nil {
		parser = middleware.JWTParser(a.JWT)
	}
	srv := server.New(a.Cfg.Server, a.Logger)
	srv.ApplyMiddleware()
	srv.MountGateway(a.Name, a.API, parser)
	return srv
}

// Serve runs the gateway server until a signal arrives or ctx is done, then
// shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := a.NewServer()
	if err := srv.Start(ctx); err != nil {
		_ = a.stop()
		return err
	}
	a.OnStop(srv.Stop)

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask runs a finite task and shuts down gracefully when it returns or
// the process receives SIGINT/SIGTERM.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling task", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown runs the stop hooks. Use it when managing your own lifecycle.
func (a *App) Shutdown() error {
	return a.stop()
}

func (a *App) stop() error {
	hooks := a.onStop
	a.onStop = nil
	if len(hooks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	if err := runHooks(ctx, hooks); err != nil {
		a.Logger.Error("Shutdown completed with errors", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	a.Logger.Info("Application shutdown complete")
	return nil
}
