// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
)

// Request headers added to proxied requests.
const (
	HeaderMicroApp    = "X-Micro-App"
	HeaderMountTarget = "X-Mount-Target"
)

// App is a micro-app served from a remote entry. Mount and Show make it
// reachable through the Gateway; Hide and Unmount take it out of
// rotation.
type App struct {
	name      string
	entry     *url.URL
	domGetter string
	proxy     *httputil.ReverseProxy

	mu       sync.RWMutex
	basename string
	mounted  bool
	visible  bool
	path     string
}

// NewApp creates an app that proxies to entry.
func NewApp(name string, entry *url.URL, basename, domGetter string, log logrus.FieldLogger) *App {
	a := &App{
		name:      name,
		entry:     entry,
		domGetter: domGetter,
		basename:  basename,
	}

	proxy := httputil.NewSingleHostReverseProxy(entry)
	proxy.FlushInterval = -1 // Immediate flushing for streaming

	// Custom director to set proper headers
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = entry.Host
		req.Header.Set(HeaderMicroApp, name)
		if a.domGetter != "" {
			req.Header.Set(HeaderMountTarget, a.domGetter)
		}
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		log.WithFields(logrus.Fields{
			"app":  name,
			"path": req.URL.Path,
			"host": entry.Host,
		}).WithError(err).Warn("Proxy error")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}

	a.proxy = proxy
	return a
}

// Name returns the app name.
func (a *App) Name() string { return a.name }

// Entry returns the upstream entry URL.
func (a *App) Entry() *url.URL { return a.entry }

// DOMGetter returns the mount target forwarded to the upstream.
func (a *App) DOMGetter() string { return a.domGetter }

// Basename returns the route prefix the app is served under.
func (a *App) Basename() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.basename
}

func (a *App) setBasename(basename string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.basename = basename
}

// Mount implements router.App.
func (a *App) Mount() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mounted = true
	a.visible = true
	return nil
}

// Unmount implements router.App.
func (a *App) Unmount() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mounted = false
	a.visible = false
	a.path = ""
	return nil
}

// Show implements router.App.
func (a *App) Show() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.visible = true
	return nil
}

// Hide implements router.App.
func (a *App) Hide() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.visible = false
	return nil
}

// Mounted implements router.App.
func (a *App) Mounted() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mounted
}

// Visible returns true if the gateway should route to the app.
func (a *App) Visible() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.visible
}

// Refresh implements router.Refresher by recording the in-app path.
func (a *App) Refresh(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.path = path
	return nil
}

// Path returns the last in-app path passed to Refresh.
func (a *App) Path() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.path
}

// ServeHTTP proxies r to the entry.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.proxy.ServeHTTP(w, r)
}

// Status is a snapshot of an app for display.
type Status struct {
	Name      string `json:"name"`
	Entry     string `json:"entry"`
	Basename  string `json:"basename"`
	DOMGetter string `json:"dom_getter,omitempty"`
	Mounted   bool   `json:"mounted"`
	Visible   bool   `json:"visible"`
	Path      string `json:"path,omitempty"`
}

// Status returns a snapshot of the app.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Status{
		Name:      a.name,
		Entry:     a.entry.String(),
		Basename:  a.basename,
		DOMGetter: a.domGetter,
		Mounted:   a.mounted,
		Visible:   a.visible,
		Path:      a.path,
	}
}
