// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api serves the approuter control API.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/wingedpig/approuter/internal/api/handlers"
	"github.com/wingedpig/approuter/internal/api/middleware"
	"github.com/wingedpig/approuter/internal/api/version"
	"github.com/wingedpig/approuter/internal/config"
	"github.com/wingedpig/approuter/internal/events"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host    string
	Port    int
	TLSCert string // Path to TLS certificate file
	TLSKey  string // Path to TLS private key file
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Router    handlers.AppRouter
	Navigator handlers.Navigator
	Gateway   handlers.GatewayApps // optional
	EventBus  events.EventBus
	Validator *config.Validator
	Metrics   http.Handler // served at /metrics when set
	Logger    logrus.FieldLogger

	NavigateRate  float64 // navigations per second; 0 disables limiting
	NavigateBurst int
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS)
	r.Use(version.Middleware)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics).Methods("GET")
	}

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// App handlers
	appHandler := handlers.NewAppHandler(deps.Router, deps.Gateway, deps.Validator)
	api.HandleFunc("/apps", appHandler.List).Methods("GET")
	api.HandleFunc("/apps", appHandler.Register).Methods("POST")
	api.HandleFunc("/apps/{name}", appHandler.Get).Methods("GET")

	// Navigation handlers share one limiter
	var limiter *rate.Limiter
	if deps.NavigateRate > 0 {
		burst := deps.NavigateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(deps.NavigateRate), burst)
	}
	limited := middleware.RateLimit(limiter)

	navHandler := handlers.NewNavigationHandler(deps.Navigator, deps.Router)
	api.HandleFunc("/location", navHandler.Location).Methods("GET")
	api.Handle("/navigate", limited(http.HandlerFunc(navHandler.Navigate))).Methods("POST")
	api.Handle("/back", limited(http.HandlerFunc(navHandler.Back))).Methods("POST")
	api.Handle("/forward", limited(http.HandlerFunc(navHandler.Forward))).Methods("POST")
	api.Handle("/redirect", limited(http.HandlerFunc(navHandler.Redirect))).Methods("POST")

	// Event handlers
	eventHandler := handlers.NewEventHandler(deps.EventBus, deps.Navigator)
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
	log    logrus.FieldLogger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		router: NewRouter(deps),
		cfg:    cfg,
		log:    log,
	}
	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// ListenAndServe starts the server.
// If TLS is configured (tls_cert and tls_key), uses HTTPS.
func (s *Server) ListenAndServe() error {
	addr := s.server.Addr

	certPath, keyPath, tlsEnabled, err := config.TLSFiles(s.cfg.TLSCert, s.cfg.TLSKey)
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	if tlsEnabled {
		s.log.WithField("addr", addr).Info("API server listening (TLS enabled)")
		return s.server.ListenAndServeTLS(certPath, keyPath)
	}

	s.log.WithField("addr", addr).Info("API server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down API server")

	// Create a timeout context if none provided
	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return s.server.Shutdown(shutdownCtx)
}
