// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader reads approuter config files. String values may reference
// variables as ${NAME} or ${NAME:-default}; an env_file next to the config
// supplies values that take precedence over the process environment.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// NewLoader returns a Loader that resolves variables from the process
// environment.
func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv}
}

// Load parses the config at path without defaults. YAML is chosen by
// extension, everything else is read as HJSON.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = hjson.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	vars, err := l.envFile(raw, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	var missing []string
	expanded := expandTree(raw, func(ref string) string {
		m := varRef.FindStringSubmatch(ref)
		name, def, hasDef := m[1], m[3], m[2] != ""
		if v, ok := vars[name]; ok {
			return v
		}
		if v, ok := l.lookupEnv(name); ok && v != "" {
			return v
		}
		if !hasDef {
			missing = append(missing, name)
		}
		return def
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("config references unset variables: %s", strings.Join(missing, ", "))
	}

	// Round-trip through JSON so both formats decode with the json tags.
	jsonData, err := json.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// envFile reads the dotenv file named by the top-level env_file key,
// resolved against dir.
func (l *Loader) envFile(raw map[string]interface{}, dir string) (map[string]string, error) {
	name, _ := raw["env_file"].(string)
	if name == "" {
		return nil, nil
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(dir, ExpandPath(name))
	}
	vars, err := godotenv.Read(name)
	if err != nil {
		return nil, fmt.Errorf("read env_file: %w", err)
	}
	return vars, nil
}

// varRef matches ${NAME} and ${NAME:-default}. A bare $ is left alone.
var varRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandTree substitutes variable references in every string of a
// decoded document.
func expandTree(v interface{}, mapping func(string) string) interface{} {
	switch t := v.(type) {
	case string:
		return varRef.ReplaceAllStringFunc(t, mapping)
	case map[string]interface{}:
		for k, child := range t {
			t[k] = expandTree(child, mapping)
		}
		return t
	case []interface{}:
		for i, child := range t {
			t[i] = expandTree(child, mapping)
		}
		return t
	default:
		return v
	}
}

// LoadWithDefaults loads path and fills unset fields with defaults.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// configNames are the file names FindConfig looks for, in order.
var configNames = []string{
	"approuter.hjson",
	"approuter.json",
	"approuter.yaml",
	"approuter.yml",
}

// FindConfig searches for a config file in the current directory.
func (l *Loader) FindConfig() (string, error) {
	return l.FindConfigIn(".")
}

// FindConfigIn searches dir for a config file.
func (l *Loader) FindConfigIn(dir string) (string, error) {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for %s)", strings.Join(configNames, ", "))
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 1000
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	// Gateway defaults
	if cfg.Gateway.Listen == "" {
		cfg.Gateway.Listen = ":8080"
	}
	if cfg.Gateway.ProbeTimeout == "" {
		cfg.Gateway.ProbeTimeout = "5s"
	}

	// Router defaults
	if cfg.Router.InitialPath == "" {
		cfg.Router.InitialPath = "/"
	}
	if cfg.Router.AutoRefreshApp == nil {
		auto := true
		cfg.Router.AutoRefreshApp = &auto
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Watch defaults
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "100ms"
	}

	// Events defaults
	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 10000
	}
	if cfg.Events.History.MaxAge == "" {
		cfg.Events.History.MaxAge = "1h"
	}

	// API defaults
	if cfg.API.NavigateRate == 0 {
		cfg.API.NavigateRate = 20
	}
	if cfg.API.NavigateBurst == 0 {
		cfg.API.NavigateBurst = 40
	}
}
