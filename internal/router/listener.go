// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wingedpig/approuter/internal/events"
	"github.com/wingedpig/approuter/internal/metrics"
	"github.com/wingedpig/approuter/internal/navigation"
)

// Transitioner performs activations and deactivations. *Coordinator is
// the production implementation.
type Transitioner interface {
	Activate(ctx context.Context, d AppDescriptor, rootPath string) error
	Deactivate(ctx context.Context, d AppDescriptor, rootPath string) error
	Refresh(ctx context.Context, name, path string) error
}

// ListenerConfig configures a Listener.
type ListenerConfig struct {
	Source      navigation.Source
	Coordinator Transitioner
	Basename    string
	AutoRefresh bool
	OnNotMatch  func(path string)
	OnError     func(name string, err error)
	Apps        []AppDescriptor
	Bus         events.EventBus
	Logger      logrus.FieldLogger
}

// Listener turns location changes into transitions.
type Listener struct {
	mu          sync.Mutex
	source      navigation.Source
	coord       Transitioner
	basename    string
	autoRefresh bool
	onNotMatch  func(path string)
	onError     func(name string, err error)
	bus         events.EventBus
	log         logrus.FieldLogger

	apps     []AppDescriptor
	active   map[string]string // app name -> root path it was activated with
	lastPath string
	queue    []string // navigations waiting for the current redirect
	draining bool

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewListener creates a listener. Start must be called to begin listening.
func NewListener(cfg ListenerConfig) *Listener {
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	return &Listener{
		source:      cfg.Source,
		coord:       cfg.Coordinator,
		basename:    cfg.Basename,
		autoRefresh: cfg.AutoRefresh,
		onNotMatch:  cfg.OnNotMatch,
		onError:     cfg.OnError,
		bus:         cfg.Bus,
		log:         cfg.Logger,
		apps:        filterRoutable(cfg.Apps),
		active:      make(map[string]string),
		ctx:         context.Background(),
	}
}

// Start subscribes to the source and treats the current location as the
// first navigation. Activations run under ctx.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.unsubscribe = l.source.Subscribe(l.redirect)
	l.mu.Unlock()

	l.InitRedirect()
}

// Stop unsubscribes from the source, cancels in-flight activations and
// waits for them to return. It gives up when ctx is done.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	cancel := l.cancel
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InitRedirect re-evaluates the current location without waiting for a
// navigation.
func (l *Listener) InitRedirect() {
	l.redirect(l.source.Path())
}

// AddApps appends routable apps to the rule set.
func (l *Listener) AddApps(apps ...AppDescriptor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.apps = append(l.apps, filterRoutable(apps)...)
}

// Apps returns the routable apps in registration order.
func (l *Listener) Apps() []AppDescriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	apps := make([]AppDescriptor, len(l.apps))
	copy(apps, l.apps)
	return apps
}

// Active returns the names the listener has activated, sorted.
func (l *Listener) Active() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.active))
	for name := range l.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Wait blocks until every activation started so far has finished.
func (l *Listener) Wait() {
	l.wg.Wait()
}

// transition is the work one navigation produces.
type transition struct {
	ctx       context.Context
	path      string
	result    Result
	rootPaths map[string]string // deactivated app name -> its root path
	refresh   []string
	activate  []Match
	notMatch  func(path string)
}

// redirect handles one navigation. Deactivations complete before it
// returns; activations continue in the background, in match order.
// Transitions run without l.mu held, so a hook may navigate. Such a
// navigation is queued and handled by the call already in progress.
func (l *Listener) redirect(location string) {
	l.mu.Lock()
	l.queue = append(l.queue, location)
	if l.draining {
		l.mu.Unlock()
		return
	}
	l.draining = true
	for len(l.queue) > 0 {
		next := l.queue[0]
		l.queue = l.queue[1:]
		t := l.plan(next)
		l.mu.Unlock()

		l.apply(t)

		l.mu.Lock()
	}
	l.draining = false
	l.mu.Unlock()
}

// plan classifies location and records the outcome in l.active. Caller
// must hold l.mu.
func (l *Listener) plan(location string) transition {
	p := navigation.Clean(location)
	t := transition{
		ctx:      l.ctx,
		path:     p,
		result:   l.classify(p),
		notMatch: l.onNotMatch,
	}

	deactivated := make(map[string]string, len(t.result.Deactivate))
	for _, d := range t.result.Deactivate {
		deactivated[d.Name] = l.active[d.Name]
		delete(l.active, d.Name)
	}
	t.rootPaths = deactivated

	if l.autoRefresh && l.lastPath != "" && p != l.lastPath {
		for _, m := range t.result.Matched {
			if _, ok := l.active[m.App.Name]; ok {
				t.refresh = append(t.refresh, m.App.Name)
			}
		}
	}
	l.lastPath = p

	for _, m := range t.result.Activate {
		m.RootPath = JoinBasename(l.basename, m.RootPath)
		l.active[m.App.Name] = m.RootPath
		t.activate = append(t.activate, m)
	}
	if len(t.activate) > 0 {
		l.wg.Add(1)
	}
	return t
}

// apply runs the transitions of one navigation.
func (l *Listener) apply(t transition) {
	ctx := t.ctx

	l.publish(ctx, events.Event{
		Type: events.EventRouteChanged,
		Path: t.path,
		Payload: map[string]interface{}{
			"activate":   len(t.result.Activate),
			"deactivate": len(t.result.Deactivate),
		},
	})

	for _, d := range t.result.Deactivate {
		if err := l.coord.Deactivate(ctx, d, t.rootPaths[d.Name]); err != nil {
			l.fail(d.Name, err)
		}
	}

	for _, name := range t.refresh {
		if err := l.coord.Refresh(ctx, name, t.path); err != nil {
			l.fail(name, err)
		}
	}

	if len(t.activate) > 0 {
		go func() {
			defer l.wg.Done()
			for _, m := range t.activate {
				if err := l.coord.Activate(ctx, m.App, m.RootPath); err != nil {
					l.fail(m.App.Name, err)
				}
			}
		}()
	}

	if t.result.NoMatch() {
		l.log.WithField("path", t.path).Info("No app matched path")
		metrics.RecordNotMatched()
		l.publish(ctx, events.Event{Type: events.EventRouteNotMatched, Path: t.path})
		if t.notMatch != nil {
			t.notMatch(t.path)
		}
	}
}

// classify runs the matcher on path relative to the basename. A path
// outside the basename matches nothing. Caller must hold l.mu.
func (l *Listener) classify(path string) Result {
	activeSet := make(map[string]bool, len(l.active))
	for name := range l.active {
		activeSet[name] = true
	}

	relative, inside := StripBasename(path, l.basename)
	if inside {
		return Classify(relative, l.apps, activeSet)
	}

	var result Result
	for _, app := range l.apps {
		if activeSet[app.Name] {
			result.Deactivate = append(result.Deactivate, app)
		}
	}
	return result
}

func (l *Listener) fail(name string, err error) {
	l.log.WithField("app", name).WithError(err).Warn("Transition failed")
	if l.onError != nil {
		l.onError(name, err)
	}
}

func (l *Listener) publish(ctx context.Context, event events.Event) {
	if l.bus == nil {
		return
	}
	if err := l.bus.Publish(ctx, event); err != nil {
		l.log.WithError(err).WithField("type", event.Type).Debug("Failed to publish event")
	}
}
