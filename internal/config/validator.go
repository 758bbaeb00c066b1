// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/wingedpig/approuter/internal/router"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateRequired(cfg, errs)
	v.validateServer(cfg, errs)
	v.validateGateway(cfg, errs)
	v.validateRouter(cfg, errs)
	v.validateApps(cfg.Apps, "apps", errs)
	v.validateLogging(cfg, errs)
	v.validateDurations(cfg, errs)
	v.validateAPI(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

// ValidateApps checks a list of apps on its own, as submitted through the
// API.
func (v *Validator) ValidateApps(apps []AppConfig) error {
	errs := &ValidationError{}
	v.validateApps(apps, "apps", errs)
	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateRequired(cfg *Config, errs *ValidationError) {
	if cfg.Version == "" {
		errs.Add("version", "is required")
	}
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port != 0 {
		if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
			errs.Add("server.port", "must be between 0 and 65535")
		}
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs.Add("server", "both tls_cert and tls_key must be specified together")
	}
}

func (v *Validator) validateGateway(cfg *Config, errs *ValidationError) {
	gw := cfg.Gateway

	// Validate TLS: tls_tailscale and tls_cert/tls_key are mutually exclusive
	hasCertKey := gw.TLSCert != "" || gw.TLSKey != ""
	if gw.TLSTailscale && hasCertKey {
		errs.Add("gateway", "tls_tailscale and tls_cert/tls_key are mutually exclusive")
	}
	// If using cert/key, both must be specified
	if !gw.TLSTailscale && (gw.TLSCert == "") != (gw.TLSKey == "") {
		errs.Add("gateway", "both tls_cert and tls_key must be specified together")
	}
}

func (v *Validator) validateRouter(cfg *Config, errs *ValidationError) {
	for _, p := range []struct{ field, value string }{
		{"router.basename", cfg.Router.Basename},
		{"router.initial_path", cfg.Router.InitialPath},
		{"router.fallback", cfg.Router.Fallback},
	} {
		if p.value != "" && !strings.HasPrefix(p.value, "/") {
			errs.Add(p.field, "must start with '/'")
		}
	}
	if b := cfg.Router.Basename; len(b) > 1 && strings.HasSuffix(b, "/") {
		errs.Add("router.basename", "must not end with '/'")
	}
}

// appName is what may appear in the X-Micro-App header and in
// /api/v1/apps/{name}.
var appName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func (v *Validator) validateApps(apps []AppConfig, field string, errs *ValidationError) {
	seenNames := make(map[string]bool)

	for i, app := range apps {
		prefix := fmt.Sprintf("%s[%d]", field, i)

		if app.Name == "" {
			errs.Add(prefix+".name", "is required")
		} else if !appName.MatchString(app.Name) {
			errs.Add(prefix+".name", fmt.Sprintf("invalid app name '%s', use letters, digits, '.', '_' or '-'", app.Name))
		} else if seenNames[app.Name] {
			errs.Add(prefix+".name", fmt.Sprintf("duplicate app name '%s'", app.Name))
		} else {
			seenNames[app.Name] = true
		}

		if app.Entry == "" {
			errs.Add(prefix+".entry", "is required")
		} else if u, err := url.Parse(app.Entry); err != nil {
			errs.Add(prefix+".entry", fmt.Sprintf("invalid url: %s", err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs.Add(prefix+".entry", fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme))
		} else if u.Host == "" {
			errs.Add(prefix+".entry", "must include a host")
		}

		if app.ActiveWhen != "" {
			if _, err := router.Path(app.ActiveWhen); err != nil {
				errs.Add(prefix+".active_when", err.Error())
			}
		}
	}
}

func (v *Validator) validateLogging(cfg *Config, errs *ValidationError) {
	if cfg.Logging.Level != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[cfg.Logging.Level] {
			errs.Add("logging.level", fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", cfg.Logging.Level))
		}
	}

	if cfg.Logging.Format != "" {
		validFormats := map[string]bool{
			"json": true,
			"text": true,
		}
		if !validFormats[cfg.Logging.Format] {
			errs.Add("logging.format", fmt.Sprintf("invalid format '%s', must be one of: json, text", cfg.Logging.Format))
		}
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	durations := []struct {
		field string
		value string
	}{
		{"watch.debounce", cfg.Watch.Debounce},
		{"events.history.max_age", cfg.Events.History.MaxAge},
		{"gateway.probe_timeout", cfg.Gateway.ProbeTimeout},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := parseDurationWithDays(d.value)
		if err != nil {
			errs.Add(d.field, fmt.Sprintf("invalid duration format: %s", err))
		} else if parsed < 0 {
			errs.Add(d.field, "must be positive")
		}
	}
}

func (v *Validator) validateAPI(cfg *Config, errs *ValidationError) {
	if cfg.API.NavigateRate < 0 {
		errs.Add("api.navigate_rate", "must not be negative")
	}
	if cfg.API.NavigateBurst < 0 {
		errs.Add("api.navigate_burst", "must not be negative")
	}
}

// parseDurationWithDays parses a duration string that may include days (e.g., "7d").
func parseDurationWithDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
