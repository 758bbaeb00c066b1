// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the approuter components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/approuter/internal/api"
	"github.com/wingedpig/approuter/internal/config"
	"github.com/wingedpig/approuter/internal/events"
	"github.com/wingedpig/approuter/internal/logging"
	"github.com/wingedpig/approuter/internal/metrics"
	"github.com/wingedpig/approuter/internal/navigation"
	"github.com/wingedpig/approuter/internal/proxy"
	"github.com/wingedpig/approuter/internal/router"
	"github.com/wingedpig/approuter/internal/watcher"
)

// App is the main application container.
type App struct {
	mu sync.Mutex

	configPath string
	version    string
	config     *config.Config
	log        *logrus.Logger
	eventBus   events.EventBus
	history    *navigation.History
	gateway    *proxy.Gateway
	loader     *proxy.Loader
	router     *router.Router
	apiServer  *api.Server
	watcher    *watcher.ConfigWatcher

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath  string
	Host        string
	Port        int
	InitialPath string // overrides router.initial_path
	Debug       bool
	Version     string         // Application version string
	Logger      *logrus.Logger // nil builds one from the logging config
}

// New loads and validates the config and creates the event bus.
func New(opts Options) (*App, error) {
	app := &App{
		configPath: opts.ConfigPath,
		version:    opts.Version,
		done:       make(chan struct{}),
	}

	// Load configuration
	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	app.config = cfg

	// Override host/port if specified
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.InitialPath != "" {
		cfg.Router.InitialPath = opts.InitialPath
	}

	app.log = opts.Logger
	if app.log == nil {
		app.log, err = logging.New(cfg.Logging)
		if err != nil {
			return nil, err
		}
	}
	if opts.Debug {
		app.log.SetLevel(logrus.DebugLevel)
	}

	// Initialize event bus
	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
		Logger:           app.log,
	})

	return app, nil
}

// Initialize builds the history, gateway, router, API server and config
// watcher. Nothing listens until Run.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	app.history = navigation.NewHistory(cfg.Router.InitialPath)

	gateway, err := proxy.NewGateway(cfg.Gateway, app.log.WithField("component", "gateway"))
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	app.gateway = gateway

	app.loader = proxy.NewLoader(proxy.LoaderConfig{
		Probe:        cfg.Gateway.Probe,
		ProbeTimeout: config.ParseDuration(cfg.Gateway.ProbeTimeout, 5*time.Second),
		Logger:       app.log.WithField("component", "loader"),
	})

	app.router = router.New(router.Config{
		Loader: app.loader,
		Source: app.history,
		Host:   app.gateway,
		Bus:    app.eventBus,
		Logger: app.log.WithField("component", "router"),
		OnError: func(name string, err error) {
			app.log.WithError(err).WithField("app", name).Error("App transition failed")
		},
	})

	app.apiServer = api.NewServer(api.ServerConfig{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		TLSCert: cfg.Server.TLSCert,
		TLSKey:  cfg.Server.TLSKey,
	}, api.Dependencies{
		Router:        app.router,
		Navigator:     app.history,
		Gateway:       app.gateway,
		EventBus:      app.eventBus,
		Validator:     config.NewValidator(),
		Metrics:       metrics.Handler(),
		Logger:        app.log.WithField("component", "api"),
		NavigateRate:  cfg.API.NavigateRate,
		NavigateBurst: cfg.API.NavigateBurst,
	})

	if cfg.Watch.IsEnabled() && app.configPath != "" {
		w, err := watcher.NewConfigWatcher(watcher.ConfigWatcherConfig{
			Path:     app.configPath,
			Debounce: config.ParseDuration(cfg.Watch.Debounce, 100*time.Millisecond),
			Current:  cfg,
			Bus:      app.eventBus,
			Logger:   app.log.WithField("component", "watcher"),
			OnReload: app.reload,
		})
		if err != nil {
			app.log.WithError(err).Warn("Config watching disabled")
		} else {
			app.watcher = w
		}
	}

	return nil
}

// Start bootstraps routing for the configured apps.
func (app *App) Start(ctx context.Context) error {
	opts, err := app.config.Options()
	if err != nil {
		return fmt.Errorf("failed to build routing options: %w", err)
	}
	opts.OnNotMatch = app.onNotMatch

	if err := app.router.Bootstrap(ctx, opts); err != nil {
		return fmt.Errorf("failed to start router: %w", err)
	}

	app.log.WithFields(logrus.Fields{
		"apps":     len(opts.Apps),
		"location": app.history.Path(),
	}).Info("Router started")
	return nil
}

// onNotMatch replaces an unmatched location with the configured fallback.
// The fallback itself is never replaced, so an unmatched fallback stops
// there.
func (app *App) onNotMatch(path string) {
	fallback := app.config.Router.Fallback
	if fallback == "" {
		app.log.WithField("path", path).Debug("No app matches location")
		return
	}
	if navigation.Clean(path) == navigation.Clean(fallback) {
		app.log.WithField("path", path).Warn("Fallback location matches no app")
		return
	}
	app.log.WithFields(logrus.Fields{"path": path, "fallback": fallback}).Info("Redirecting to fallback")
	app.history.Replace(fallback)
}

// reload registers apps added to the config file. Changed and removed apps
// need a restart.
func (app *App) reload(ctx context.Context, cfg *config.Config, diff watcher.AppDiff) error {
	for _, name := range diff.Changed {
		app.log.WithField("app", name).Warn("App changed in config; restart to apply")
	}
	for _, name := range diff.Removed {
		app.log.WithField("app", name).Warn("App removed from config; restart to apply")
	}
	if len(diff.Added) == 0 {
		return nil
	}

	descriptors := make([]router.AppDescriptor, 0, len(diff.Added))
	for i := range diff.Added {
		d, err := diff.Added[i].Descriptor()
		if err != nil {
			return fmt.Errorf("app %s: %w", diff.Added[i].Name, err)
		}
		descriptors = append(descriptors, d)
	}
	if err := app.router.RegisterApp(ctx, descriptors...); err != nil {
		return fmt.Errorf("failed to register apps: %w", err)
	}
	app.log.WithField("count", len(descriptors)).Info("Registered apps from config")
	return nil
}

// Run starts the app and blocks until shutdown.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.gateway.ListenAndServe()
	})

	g.Go(func() error {
		// Wait for shutdown signal
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			app.log.WithField("signal", sig.String()).Info("Received signal, shutting down")
		case <-gctx.Done():
			app.log.Info("Context cancelled, shutting down")
		case <-app.done:
			app.log.Info("Shutdown requested")
		}

		return app.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown gracefully shuts down all components.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop API server first to stop accepting new requests
	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			app.log.WithError(err).Error("Error shutting down API server")
		}
	}

	// Stop config watcher
	if app.watcher != nil {
		app.watcher.Close()
	}

	// Unmount everything before the gateway goes away
	if app.router != nil {
		if err := app.router.Close(shutdownCtx); err != nil {
			app.log.WithError(err).Error("Error closing router")
		}
	}

	if app.gateway != nil {
		if err := app.gateway.Shutdown(shutdownCtx); err != nil {
			app.log.WithError(err).Error("Error shutting down gateway")
		}
	}

	// Close event bus
	if app.eventBus != nil {
		app.eventBus.Close()
	}

	app.log.Info("Shutdown complete")
	return nil
}

// Stop signals the app to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}

// Config returns the loaded configuration.
func (app *App) Config() *config.Config {
	return app.config
}

// Router returns the router. Nil before Initialize.
func (app *App) Router() *router.Router {
	return app.router
}

// History returns the navigation history. Nil before Initialize.
func (app *App) History() *navigation.History {
	return app.history
}

// Gateway returns the gateway. Nil before Initialize.
func (app *App) Gateway() *proxy.Gateway {
	return app.gateway
}
