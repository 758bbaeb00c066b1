// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON and YAML configuration loading.
package config

import (
	"time"

	"github.com/wingedpig/approuter/internal/router"
)

// Config is the root configuration structure for approuter.
type Config struct {
	Version string        `json:"version"`
	EnvFile string        `json:"env_file"` // dotenv file supplying ${VAR} values`
	Server  ServerConfig  `json:"server"`
	Gateway GatewayConfig `json:"gateway"`
	Router  RouterConfig  `json:"router"`
	Apps    []AppConfig   `json:"apps"`
	Events  EventsConfig  `json:"events"`
	Watch   WatchConfig   `json:"watch"`
	Logging LoggingConfig `json:"logging"`
	API     APIConfig     `json:"api"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port    int    `json:"port"`
	Host    string `json:"host"`
	TLSCert string `json:"tls_cert"` // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey  string `json:"tls_key"`  // Path to TLS private key file
}

// GatewayConfig configures the reverse proxy that serves mounted apps.
type GatewayConfig struct {
	Listen       string `json:"listen"`
	TLSCert      string `json:"tls_cert"`
	TLSKey       string `json:"tls_key"`
	TLSTailscale bool   `json:"tls_tailscale"` // Use Tailscale certificates
	Probe        bool   `json:"probe"`         // GET the entry before an app is considered loaded
	ProbeTimeout string `json:"probe_timeout"`
}

// RouterConfig configures routing.
type RouterConfig struct {
	Basename       string `json:"basename"`
	AutoRefreshApp *bool  `json:"auto_refresh_app"`
	DOMGetter      string `json:"dom_getter"`
	InitialPath    string `json:"initial_path"`
	Fallback       string `json:"fallback"` // Location to replace an unmatched one with
}

// AppConfig defines one micro-app.
type AppConfig struct {
	Name       string `json:"name"`
	Entry      string `json:"entry"`
	ActiveWhen string `json:"active_when"` // Path pattern; empty means never routed
	Cache      bool   `json:"cache"`
	DOMGetter  string `json:"dom_getter"`
	Disabled   bool   `json:"disabled"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	History EventHistoryConfig `json:"history"`
}

// EventHistoryConfig configures event history retention.
type EventHistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// WatchConfig configures config file watching.
type WatchConfig struct {
	Enabled  *bool  `json:"enabled"`
	Debounce string `json:"debounce"`
}

// LoggingConfig configures approuter's own logging.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "json" or "text"
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	NavigateRate  float64 `json:"navigate_rate"` // Navigations per second
	NavigateBurst int     `json:"navigate_burst"`
}

// ParseDuration parses a duration string, returning a default if empty.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := parseDurationWithDays(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// IsAutoRefresh returns whether active apps are refreshed on in-app
// navigation.
func (r *RouterConfig) IsAutoRefresh() bool {
	if r.AutoRefreshApp == nil {
		return true // Default to true
	}
	return *r.AutoRefreshApp
}

// IsEnabled returns whether the config file is watched.
func (w *WatchConfig) IsEnabled() bool {
	if w.Enabled == nil {
		return true // Default to true
	}
	return *w.Enabled
}

// Descriptor converts the app config into a router descriptor. The
// active_when pattern must already be valid; see Validator.
func (a *AppConfig) Descriptor() (router.AppDescriptor, error) {
	d := router.AppDescriptor{
		Name:      a.Name,
		Entry:     a.Entry,
		Cache:     a.Cache,
		DOMGetter: a.DOMGetter,
	}
	if a.ActiveWhen != "" {
		rule, err := router.Path(a.ActiveWhen)
		if err != nil {
			return router.AppDescriptor{}, err
		}
		d.ActiveWhen = rule
	}
	return d, nil
}

// Descriptors converts every enabled app.
func (c *Config) Descriptors() ([]router.AppDescriptor, error) {
	var out []router.AppDescriptor
	for i := range c.Apps {
		if c.Apps[i].Disabled {
			continue
		}
		d, err := c.Apps[i].Descriptor()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Options builds the routing options for Bootstrap. Callers add OnNotMatch.
func (c *Config) Options() (router.Options, error) {
	apps, err := c.Descriptors()
	if err != nil {
		return router.Options{}, err
	}
	auto := c.Router.IsAutoRefresh()
	return router.Options{
		Basename:       c.Router.Basename,
		AutoRefreshApp: &auto,
		DOMGetter:      c.Router.DOMGetter,
		Apps:           apps,
	}, nil
}
