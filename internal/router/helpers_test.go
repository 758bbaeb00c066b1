// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"sync"
)

// recorder collects lifecycle calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

type fakeApp struct {
	mu        sync.Mutex
	name      string
	rec       *recorder
	mounted   bool
	visible   bool
	refreshed []string
	mountErr  error
}

func newFakeApp(name string, rec *recorder) *fakeApp {
	return &fakeApp{name: name, rec: rec}
}

func (a *fakeApp) Mount() error {
	a.rec.add("mount:" + a.name)
	if a.mountErr != nil {
		return a.mountErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mounted = true
	a.visible = true
	return nil
}

func (a *fakeApp) Unmount() error {
	a.rec.add("unmount:" + a.name)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mounted = false
	a.visible = false
	return nil
}

func (a *fakeApp) Show() error {
	a.rec.add("show:" + a.name)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.visible = true
	return nil
}

func (a *fakeApp) Hide() error {
	a.rec.add("hide:" + a.name)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.visible = false
	return nil
}

func (a *fakeApp) Mounted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mounted
}

func (a *fakeApp) Refresh(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshed = append(a.refreshed, path)
	return nil
}

func (a *fakeApp) refreshes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.refreshed...)
}

// fakeLoader returns one cached instance per app name, like a host that
// keeps loaded apps around.
type fakeLoader struct {
	mu    sync.Mutex
	rec   *recorder
	apps  map[string]*fakeApp
	errs  map[string]error
	opts  map[string]LoadOptions
	loads []string
}

func newFakeLoader(rec *recorder) *fakeLoader {
	return &fakeLoader{
		rec:  rec,
		apps: make(map[string]*fakeApp),
		errs: make(map[string]error),
		opts: make(map[string]LoadOptions),
	}
}

func (l *fakeLoader) Load(ctx context.Context, name string, opts LoadOptions) (App, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads = append(l.loads, name)
	l.opts[name] = opts
	if err := l.errs[name]; err != nil {
		return nil, err
	}
	app, ok := l.apps[name]
	if !ok {
		app = newFakeApp(name, l.rec)
		l.apps[name] = app
	}
	return app, nil
}

func (l *fakeLoader) app(name string) *fakeApp {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.apps[name]
}

func (l *fakeLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loads)
}

func (l *fakeLoader) options(name string) LoadOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opts[name]
}

func app(name, pattern string) AppDescriptor {
	return AppDescriptor{Name: name, Entry: "http://localhost/" + name, ActiveWhen: MustPath(pattern)}
}
