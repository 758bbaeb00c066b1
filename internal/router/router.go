// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wingedpig/approuter/internal/events"
	"github.com/wingedpig/approuter/internal/navigation"
)

// ErrAlreadyRunning is returned by a second Bootstrap call.
var ErrAlreadyRunning = errors.New("router already bootstrapped")

// Config holds the collaborators of a Router.
type Config struct {
	Loader  Loader
	Source  navigation.Source
	Host    HostTable // nil uses an in-memory ActiveApps table
	Bus     events.EventBus
	Logger  logrus.FieldLogger
	OnError func(name string, err error) // called for failed listener-driven transitions
}

// Router is the entry point: Bootstrap once, then RegisterApp as apps
// arrive.
type Router struct {
	mu       sync.Mutex
	cfg      Config
	log      logrus.FieldLogger
	registry *Registry

	running  bool
	ctx      context.Context
	opts     Options
	apps     []AppDescriptor
	coord    *Coordinator
	listener *Listener
}

// New creates a router.
func New(cfg Config) *Router {
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	return &Router{
		cfg:      cfg,
		log:      cfg.Logger,
		registry: NewRegistry(cfg.Host),
	}
}

// Bootstrap starts routing for opts.Apps. With no routable app no listener
// is installed and routing stays idle until a routable app is registered.
func (r *Router) Bootstrap(ctx context.Context, opts Options) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	if err := checkNames(nil, opts.Apps); err != nil {
		r.mu.Unlock()
		return err
	}

	r.running = true
	r.ctx = ctx
	r.opts = opts
	r.apps = append([]AppDescriptor(nil), opts.Apps...)
	r.coord = NewCoordinator(CoordinatorConfig{
		Loader:    r.cfg.Loader,
		Registry:  r.registry,
		Bus:       r.cfg.Bus,
		Logger:    r.log,
		DOMGetter: opts.DOMGetter,
	})

	routable := filterRoutable(opts.Apps)
	if len(routable) == 0 {
		r.mu.Unlock()
		r.log.Info("No routable apps, routing disabled")
		return nil
	}

	listener := r.newListener(routable)
	r.mu.Unlock()

	r.log.WithField("apps", len(routable)).Info("Router bootstrapped")
	listener.Start(ctx)
	return nil
}

// RegisterApp adds apps after Bootstrap and re-evaluates the current
// location so a matching app activates without a navigation.
func (r *Router) RegisterApp(ctx context.Context, apps ...AppDescriptor) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	if err := checkNames(r.apps, apps); err != nil {
		r.mu.Unlock()
		return err
	}
	r.apps = append(r.apps, apps...)

	for _, app := range apps {
		r.publish(ctx, events.Event{Type: events.EventAppRegistered, App: app.Name})
	}

	routable := filterRoutable(apps)
	if len(routable) == 0 {
		r.mu.Unlock()
		return nil
	}

	if r.listener == nil {
		listener := r.newListener(routable)
		startCtx := r.ctx
		r.mu.Unlock()
		listener.Start(startCtx)
		return nil
	}

	listener := r.listener
	r.mu.Unlock()

	listener.AddApps(routable...)
	listener.InitRedirect()
	return nil
}

// newListener creates and records the listener. Caller must hold r.mu.
func (r *Router) newListener(apps []AppDescriptor) *Listener {
	r.listener = NewListener(ListenerConfig{
		Source:      r.cfg.Source,
		Coordinator: r.coord,
		Basename:    r.opts.Basename,
		AutoRefresh: r.opts.IsAutoRefresh(),
		OnNotMatch:  r.opts.OnNotMatch,
		OnError:     r.cfg.OnError,
		Apps:        apps,
		Bus:         r.cfg.Bus,
		Logger:      r.log,
	})
	return r.listener
}

// InitRedirect re-evaluates the current location. It is a no-op while no
// listener is installed.
func (r *Router) InitRedirect() {
	r.mu.Lock()
	listener := r.listener
	r.mu.Unlock()

	if listener != nil {
		listener.InitRedirect()
	}
}

// Running returns true after Bootstrap.
func (r *Router) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Listening returns true if a navigation listener is installed.
func (r *Router) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listener != nil
}

// Options returns the options passed to Bootstrap.
func (r *Router) Options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

// Apps returns every registered app, routable or not.
func (r *Router) Apps() []AppDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	apps := make([]AppDescriptor, len(r.apps))
	copy(apps, r.apps)
	return apps
}

// App returns the registered app called name.
func (r *Router) App(name string) (AppDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.Name == name {
			return app, true
		}
	}
	return AppDescriptor{}, false
}

// Active returns the names currently held in the registry.
func (r *Router) Active() []string {
	return r.registry.Names()
}

// Matched returns the names the listener considers matched.
func (r *Router) Matched() []string {
	r.mu.Lock()
	listener := r.listener
	r.mu.Unlock()

	if listener == nil {
		return nil
	}
	return listener.Active()
}

// State returns the activation state of name.
func (r *Router) State(name string) State {
	r.mu.Lock()
	coord := r.coord
	r.mu.Unlock()

	if coord == nil {
		return StateInactive
	}
	return coord.State(name)
}

// Registry returns the router's registry.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Wait blocks until in-flight activations finish.
func (r *Router) Wait() {
	r.mu.Lock()
	listener := r.listener
	r.mu.Unlock()

	if listener != nil {
		listener.Wait()
	}
}

// Close stops listening and removes every registered app from view. It
// returns early if ctx is done before in-flight activations return.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	listener := r.listener
	coord := r.coord
	r.listener = nil
	r.running = false
	r.mu.Unlock()

	if listener != nil {
		if err := listener.Stop(ctx); err != nil {
			return fmt.Errorf("stop listener: %w", err)
		}
	}
	if coord == nil {
		return nil
	}

	var errs []error
	for _, name := range r.registry.Names() {
		d, ok := r.App(name)
		if !ok {
			d = AppDescriptor{Name: name}
		}
		// Custom hooks belong to the host; teardown always goes through
		// the registry.
		d.Custom = nil
		if err := coord.Deactivate(ctx, d, ""); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to remove %d app(s): %w", len(errs), errs[0])
	}
	return nil
}

func (r *Router) publish(ctx context.Context, event events.Event) {
	if r.cfg.Bus == nil {
		return
	}
	if err := r.cfg.Bus.Publish(ctx, event); err != nil {
		r.log.WithError(err).WithField("type", event.Type).Debug("Failed to publish event")
	}
}

// checkNames rejects empty names and names that are already taken.
func checkNames(existing, added []AppDescriptor) error {
	seen := make(map[string]bool, len(existing)+len(added))
	for _, app := range existing {
		seen[app.Name] = true
	}
	for _, app := range added {
		if app.Name == "" {
			return errors.New("app name is required")
		}
		if seen[app.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateApp, app.Name)
		}
		seen[app.Name] = true
	}
	return nil
}
