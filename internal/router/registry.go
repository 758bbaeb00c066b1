// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"sort"
	"sync"
)

// HostTable is the host's view of which app instances are active.
type HostTable interface {
	Set(name string, app App)
	Delete(name string)
}

// UnmountFunc tears down or hides one loaded app.
type UnmountFunc func() (Operation, error)

type registryEntry struct {
	app     App
	unmount UnmountFunc
}

// Registry maps active app names to their unmount thunks and keeps the
// host table in step with it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
	host    HostTable
}

// NewRegistry creates a registry mirrored into host. A nil host gets an
// in-memory ActiveApps table.
func NewRegistry(host HostTable) *Registry {
	if host == nil {
		host = NewActiveApps()
	}
	return &Registry{
		entries: make(map[string]registryEntry),
		host:    host,
	}
}

// Set records app and its unmount thunk.
func (r *Registry) Set(name string, app App, unmount UnmountFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registryEntry{app: app, unmount: unmount}
	r.host.Set(name, app)
}

// Get returns the unmount thunk for name.
func (r *Registry) Get(name string) (UnmountFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.unmount, true
}

// App returns the loaded instance for name.
func (r *Registry) App(name string) (App, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.app, true
}

// Delete forgets name.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
	r.host.Delete(name)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered apps.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ActiveApps is an in-memory HostTable.
type ActiveApps struct {
	mu   sync.RWMutex
	apps map[string]App
}

// NewActiveApps creates an empty table.
func NewActiveApps() *ActiveApps {
	return &ActiveApps{apps: make(map[string]App)}
}

// Set implements HostTable.
func (a *ActiveApps) Set(name string, app App) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apps[name] = app
}

// Delete implements HostTable.
func (a *ActiveApps) Delete(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.apps, name)
}

// Get returns the instance recorded for name.
func (a *ActiveApps) Get(name string) (App, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	app, ok := a.apps[name]
	return app, ok
}

// Names returns the recorded names in sorted order.
func (a *ActiveApps) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.apps))
	for name := range a.apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
