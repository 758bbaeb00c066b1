// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Router: RouterConfig{
			Basename: "/portal",
			Fallback: "/home",
		},
		Apps: []AppConfig{
			{
				Name:       "orders",
				Entry:      "http://localhost:3001",
				ActiveWhen: "/orders",
			},
		},
	}
}

func TestValidator_Validate_ValidConfig(t *testing.T) {
	validator := NewValidator()
	err := validator.Validate(validConfig())
	assert.NoError(t, err)
}

func TestValidator_Validate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(cfg *Config)
		errContains string
	}{
		{
			name:        "missing version",
			mutate:      func(cfg *Config) { cfg.Version = "" },
			errContains: "version",
		},
		{
			name:        "port out of range",
			mutate:      func(cfg *Config) { cfg.Server.Port = 70000 },
			errContains: "server.port",
		},
		{
			name:        "server cert without key",
			mutate:      func(cfg *Config) { cfg.Server.TLSCert = "cert.pem" },
			errContains: "tls_cert and tls_key",
		},
		{
			name: "gateway tailscale with cert",
			mutate: func(cfg *Config) {
				cfg.Gateway.TLSTailscale = true
				cfg.Gateway.TLSCert = "cert.pem"
				cfg.Gateway.TLSKey = "key.pem"
			},
			errContains: "mutually exclusive",
		},
		{
			name:        "relative basename",
			mutate:      func(cfg *Config) { cfg.Router.Basename = "portal" },
			errContains: "router.basename",
		},
		{
			name:        "relative fallback",
			mutate:      func(cfg *Config) { cfg.Router.Fallback = "home" },
			errContains: "router.fallback",
		},
		{
			name:        "trailing slash basename",
			mutate:      func(cfg *Config) { cfg.Router.Basename = "/portal/" },
			errContains: "must not end with '/'",
		},
		{
			name:        "app name with space",
			mutate:      func(cfg *Config) { cfg.Apps[0].Name = "order list" },
			errContains: "invalid app name",
		},
		{
			name:        "entry without host",
			mutate:      func(cfg *Config) { cfg.Apps[0].Entry = "http:///orders" },
			errContains: "must include a host",
		},
		{
			name:        "missing app name",
			mutate:      func(cfg *Config) { cfg.Apps[0].Name = "" },
			errContains: "apps[0].name",
		},
		{
			name: "duplicate app name",
			mutate: func(cfg *Config) {
				cfg.Apps = append(cfg.Apps, AppConfig{Name: "orders", Entry: "http://localhost:3002"})
			},
			errContains: "duplicate app name 'orders'",
		},
		{
			name:        "missing entry",
			mutate:      func(cfg *Config) { cfg.Apps[0].Entry = "" },
			errContains: "apps[0].entry",
		},
		{
			name:        "entry scheme",
			mutate:      func(cfg *Config) { cfg.Apps[0].Entry = "ftp://localhost/app" },
			errContains: "unsupported scheme",
		},
		{
			name:        "bad pattern",
			mutate:      func(cfg *Config) { cfg.Apps[0].ActiveWhen = "/a/*/b" },
			errContains: "apps[0].active_when",
		},
		{
			name:        "bad log level",
			mutate:      func(cfg *Config) { cfg.Logging.Level = "verbose" },
			errContains: "logging.level",
		},
		{
			name:        "bad log format",
			mutate:      func(cfg *Config) { cfg.Logging.Format = "xml" },
			errContains: "logging.format",
		},
		{
			name:        "bad debounce",
			mutate:      func(cfg *Config) { cfg.Watch.Debounce = "soon" },
			errContains: "watch.debounce",
		},
		{
			name:        "negative probe timeout",
			mutate:      func(cfg *Config) { cfg.Gateway.ProbeTimeout = "-1s" },
			errContains: "gateway.probe_timeout",
		},
		{
			name:        "negative rate",
			mutate:      func(cfg *Config) { cfg.API.NavigateRate = -1 },
			errContains: "api.navigate_rate",
		},
	}

	validator := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validator.Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidator_Validate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Apps: []AppConfig{
			{Name: "", Entry: ""},
		},
		Logging: LoggingConfig{Level: "loud"},
	}

	err := NewValidator().Validate(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 4)
}

func TestValidator_ValidateApps(t *testing.T) {
	validator := NewValidator()

	assert.NoError(t, validator.ValidateApps([]AppConfig{
		{Name: "a", Entry: "https://a.example.com", ActiveWhen: "/a"},
		{Name: "b", Entry: "http://localhost:3002"},
	}))

	err := validator.ValidateApps([]AppConfig{{Name: "a", Entry: "http://localhost", ActiveWhen: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "active_when")
}
