// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package proxy serves mounted micro-apps through a reverse proxy.
package proxy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tailscale/tscert"

	"github.com/wingedpig/approuter/internal/config"
	"github.com/wingedpig/approuter/internal/router"
)

// Gateway is the host table of active apps. Requests go to the visible
// app with the longest basename that prefixes the request path.
type Gateway struct {
	mu   sync.RWMutex
	apps map[string]*App
	log  logrus.FieldLogger

	addr   string
	server *http.Server
}

// NewGateway creates a gateway from config. TLS certificates are loaded
// up front so a bad path fails at startup.
func NewGateway(cfg config.GatewayConfig, log logrus.FieldLogger) (*Gateway, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	g := &Gateway{
		apps: make(map[string]*App),
		log:  log,
		addr: cfg.Listen,
	}

	g.server = &http.Server{
		Addr:    cfg.Listen,
		Handler: g,
	}

	// Configure TLS
	if cfg.TLSTailscale {
		// Use Tailscale daemon for automatic TLS certificates
		g.server.TLSConfig = &tls.Config{
			GetCertificate: tscert.GetCertificate,
		}
	} else if cfg.TLSCert != "" && cfg.TLSKey != "" {
		cert, err := tls.LoadX509KeyPair(config.ExpandPath(cfg.TLSCert), config.ExpandPath(cfg.TLSKey))
		if err != nil {
			return nil, fmt.Errorf("load TLS cert/key: %w", err)
		}
		g.server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
		}
	}

	return g, nil
}

// Set implements router.HostTable. Apps that the gateway cannot proxy are
// ignored.
func (g *Gateway) Set(name string, app router.App) {
	a, ok := app.(*App)
	if !ok {
		g.log.WithField("app", name).Debug("Not a proxied app, gateway will not serve it")
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.apps[name] = a
}

// Delete implements router.HostTable.
func (g *Gateway) Delete(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.apps, name)
}

// Get returns the app recorded for name.
func (g *Gateway) Get(name string) (*App, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.apps[name]
	return a, ok
}

// Statuses returns a snapshot of every recorded app, sorted by name.
func (g *Gateway) Statuses() []Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Status, 0, len(g.apps))
	for _, a := range g.apps {
		out = append(out, a.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve returns the visible app serving path.
func (g *Gateway) Resolve(path string) (*App, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var best *App
	bestLen := -1
	for _, a := range g.apps {
		if !a.Visible() {
			continue
		}
		base := a.Basename()
		if _, ok := router.StripBasename(path, base); !ok {
			continue
		}
		n := len(strings.TrimRight(base, "/"))
		// Ties go to the lower name so routing is stable.
		if n > bestLen || (n == bestLen && a.name < best.name) {
			best, bestLen = a, n
		}
	}
	return best, best != nil
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app, ok := g.Resolve(r.URL.Path)
	if !ok {
		writeNotFound(w, r.URL.Path)
		return
	}

	// Check for WebSocket upgrade
	if isWebSocket(r) {
		g.serveWebSocket(w, r, app)
		return
	}
	app.ServeHTTP(w, r)
}

func writeNotFound(w http.ResponseWriter, path string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    "NOT_FOUND",
			"message": fmt.Sprintf("no app is active for %s", path),
		},
	})
}

// serveWebSocket handles WebSocket upgrade requests by tunneling the
// connection to the app's entry.
func (g *Gateway) serveWebSocket(w http.ResponseWriter, r *http.Request, app *App) {
	log := g.log.WithField("app", app.Name())
	target := app.Entry()

	// Dial upstream
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	upstreamConn, err := dialer.Dial("tcp", target.Host)
	if err != nil {
		log.WithError(err).Warnf("WebSocket proxy: failed to connect to %s", target.Host)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	// Hijack the client connection
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		upstreamConn.Close()
		http.Error(w, "WebSocket hijack not supported", http.StatusInternalServerError)
		return
	}
	clientConn, clientBuf, err := hijacker.Hijack()
	if err != nil {
		upstreamConn.Close()
		log.WithError(err).Warn("WebSocket proxy: hijack failed")
		return
	}

	// Write the original HTTP request to the upstream connection (preserving Upgrade headers)
	r.Host = target.Host
	r.Header.Set(HeaderMicroApp, app.Name())
	if app.DOMGetter() != "" {
		r.Header.Set(HeaderMountTarget, app.DOMGetter())
	}
	if err := r.Write(upstreamConn); err != nil {
		clientConn.Close()
		upstreamConn.Close()
		log.WithError(err).Warn("WebSocket proxy: failed to write request to upstream")
		return
	}

	// Bidirectional copy
	var wg sync.WaitGroup
	wg.Add(2)

	// upstream -> client
	go func() {
		defer wg.Done()
		io.Copy(clientConn, upstreamConn)
		clientConn.Close()
	}()

	// client -> upstream (flush any buffered data first)
	go func() {
		defer wg.Done()
		if clientBuf.Reader.Buffered() > 0 {
			buffered := make([]byte, clientBuf.Reader.Buffered())
			clientBuf.Read(buffered)
			upstreamConn.Write(buffered)
		}
		io.Copy(upstreamConn, clientConn)
		upstreamConn.Close()
	}()

	wg.Wait()
}

// isWebSocket returns true if the request is a WebSocket upgrade request.
func isWebSocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// ListenAndServe runs the gateway until Shutdown.
func (g *Gateway) ListenAndServe() error {
	var err error
	if g.server.TLSConfig != nil {
		g.log.WithField("addr", g.addr).Info("Gateway starting (TLS)")
		// TLS certs are already loaded in TLSConfig, use empty paths
		err = g.server.ListenAndServeTLS("", "")
	} else {
		g.log.WithField("addr", g.addr).Info("Gateway starting")
		err = g.server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway %s: %w", g.addr, err)
	}
	return nil
}

// Shutdown gracefully stops the gateway.
func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}
