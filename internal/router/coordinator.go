// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wingedpig/approuter/internal/events"
	"github.com/wingedpig/approuter/internal/metrics"
)

// ActivationToken identifies the activation currently in progress. The
// zero value means none.
type ActivationToken string

func newToken() ActivationToken {
	return ActivationToken(uuid.NewString())
}

// CoordinatorConfig holds the collaborators of a Coordinator.
type CoordinatorConfig struct {
	Loader    Loader
	Registry  *Registry
	Bus       events.EventBus
	Logger    logrus.FieldLogger
	DOMGetter string // used when a descriptor has none
}

// Coordinator moves apps between inactive, loading and active. Only the
// most recent activation may render; a deactivation supersedes any
// activation in flight.
type Coordinator struct {
	mu        sync.Mutex
	loader    Loader
	registry  *Registry
	bus       events.EventBus
	log       logrus.FieldLogger
	domGetter string
	token     ActivationToken
	states    map[string]State
	pending   map[string]ActivationToken // app name -> token of its latest activation
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	return &Coordinator{
		loader:    cfg.Loader,
		registry:  cfg.Registry,
		bus:       cfg.Bus,
		log:       cfg.Logger,
		domGetter: cfg.DOMGetter,
		states:    make(map[string]State),
		pending:   make(map[string]ActivationToken),
	}
}

// Registry returns the registry the coordinator writes to.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Token returns the current activation token.
func (c *Coordinator) Token() ActivationToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// State returns the activation state of name.
func (c *Coordinator) State(name string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[name]
}

// Activate loads d and renders it unless a newer activation or a
// deactivation started while the load was running. A superseded load is
// never rendered. It is kept in the registry only while it is still the
// latest activation of d; an instance from an older activation of the same
// app is dropped.
func (c *Coordinator) Activate(ctx context.Context, d AppDescriptor, rootPath string) error {
	log := c.log.WithField("app", d.Name)

	if d.Kind() == KindCustom && d.Custom.Active != nil {
		log.Debug("Delegating activation to custom hook")
		metrics.RecordActivation(d.Name, metrics.OutcomeCustom)
		return d.Custom.Active(ctx, d, rootPath)
	}

	c.mu.Lock()
	token := newToken()
	c.token = token
	c.pending[d.Name] = token
	c.states[d.Name] = StateLoading
	c.mu.Unlock()

	c.publish(ctx, events.Event{Type: events.EventAppLoading, App: d.Name, Path: rootPath})

	domGetter := d.DOMGetter
	if domGetter == "" {
		domGetter = c.domGetter
	}

	start := time.Now()
	app, err := c.loader.Load(ctx, d.Name, LoadOptions{
		Basename:  rootPath,
		Entry:     d.Entry,
		DOMGetter: domGetter,
		Cache:     d.Cache,
	})
	metrics.ObserveLoad(d.Name, time.Since(start))
	if err == nil && app == nil {
		err = ErrNoInstance
	}
	if err != nil {
		c.mu.Lock()
		c.settle(d.Name, token)
		c.mu.Unlock()

		log.WithError(err).Error("Failed to load app")
		metrics.RecordActivation(d.Name, metrics.OutcomeFailed)
		c.publish(ctx, events.Event{
			Type:    events.EventAppFailed,
			App:     d.Name,
			Path:    rootPath,
			Payload: map[string]interface{}{"error": err.Error()},
		})
		return fmt.Errorf("load app %q: %w", d.Name, err)
	}

	c.mu.Lock()
	cache := d.Cache
	if c.pending[d.Name] == token {
		c.registry.Set(d.Name, app, func() (Operation, error) {
			return Derender(app, cache)
		})
		metrics.SetActiveApps(c.registry.Len())
	}

	if c.token != token {
		c.settle(d.Name, token)
		c.mu.Unlock()

		log.Debug("Activation superseded, skipping render")
		metrics.RecordActivation(d.Name, metrics.OutcomeSuperseded)
		c.publish(ctx, events.Event{Type: events.EventAppSuperseded, App: d.Name, Path: rootPath})
		return nil
	}

	op, err := Render(app, cache)
	if err != nil {
		c.settle(d.Name, token)
		c.mu.Unlock()

		log.WithError(err).Errorf("Failed to %s app", op)
		metrics.RecordActivation(d.Name, metrics.OutcomeFailed)
		c.publish(ctx, events.Event{
			Type:    events.EventAppFailed,
			App:     d.Name,
			Path:    rootPath,
			Payload: map[string]interface{}{"error": err.Error(), "operation": string(op)},
		})
		return fmt.Errorf("%s app %q: %w", op, d.Name, err)
	}
	c.states[d.Name] = StateActive
	delete(c.pending, d.Name)
	c.mu.Unlock()

	log.WithField("operation", op).Info("App rendered")
	metrics.RecordActivation(d.Name, metrics.OutcomeRendered)
	c.publish(ctx, events.Event{Type: renderEvent(op), App: d.Name, Path: rootPath})
	return nil
}

// settle marks name inactive if token is still its latest activation.
// Caller must hold c.mu.
func (c *Coordinator) settle(name string, token ActivationToken) {
	if c.pending[name] != token {
		return
	}
	delete(c.pending, name)
	c.states[name] = StateInactive
}

// Deactivate clears the activation token and removes d from view. An app
// that never finished loading has nothing to remove.
func (c *Coordinator) Deactivate(ctx context.Context, d AppDescriptor, rootPath string) error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	log := c.log.WithField("app", d.Name)

	if d.Kind() == KindCustom && d.Custom.Deactive != nil {
		log.Debug("Delegating deactivation to custom hook")
		return d.Custom.Deactive(ctx, d, rootPath)
	}

	c.mu.Lock()
	unmount, ok := c.registry.Get(d.Name)
	if !ok {
		c.states[d.Name] = StateInactive
		c.mu.Unlock()
		return nil
	}

	op, err := unmount()
	c.registry.Delete(d.Name)
	c.states[d.Name] = StateInactive
	delete(c.pending, d.Name)
	metrics.SetActiveApps(c.registry.Len())
	c.mu.Unlock()

	metrics.RecordDeactivation(d.Name, string(op))
	if err != nil {
		log.WithError(err).Errorf("Failed to %s app", op)
		c.publish(ctx, events.Event{
			Type:    events.EventAppFailed,
			App:     d.Name,
			Path:    rootPath,
			Payload: map[string]interface{}{"error": err.Error(), "operation": string(op)},
		})
		return fmt.Errorf("%s app %q: %w", op, d.Name, err)
	}

	log.WithField("operation", op).Info("App removed from view")
	c.publish(ctx, events.Event{Type: derenderEvent(op), App: d.Name, Path: rootPath})
	return nil
}

// Refresh tells an active app about navigation inside its route.
func (c *Coordinator) Refresh(ctx context.Context, name, path string) error {
	c.mu.Lock()
	app, ok := c.registry.App(name)
	active := c.states[name] == StateActive
	c.mu.Unlock()

	if !ok || !active {
		return nil
	}
	refresher, ok := app.(Refresher)
	if !ok {
		return nil
	}
	if err := refresher.Refresh(path); err != nil {
		return fmt.Errorf("refresh app %q: %w", name, err)
	}
	return nil
}

func (c *Coordinator) publish(ctx context.Context, event events.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, event); err != nil {
		c.log.WithError(err).WithField("type", event.Type).Debug("Failed to publish event")
	}
}

func renderEvent(op Operation) string {
	if op == OpShow {
		return events.EventAppShown
	}
	return events.EventAppMounted
}

func derenderEvent(op Operation) string {
	if op == OpHide {
		return events.EventAppHidden
	}
	return events.EventAppUnmounted
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
