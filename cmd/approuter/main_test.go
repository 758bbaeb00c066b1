// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/approuter/internal/config"
)

func loadGenerated(t *testing.T, content string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "approuter.hjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.NewLoader().LoadWithDefaults(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, config.NewValidator().Validate(cfg))
	return cfg
}

func TestGenerateConfig(t *testing.T) {
	content := generateConfig(1500, "/portal", "/home", []initApp{
		{Name: "home", Entry: "http://localhost:3000", ActiveWhen: "/home"},
		{Name: "orders", Entry: "http://localhost:3001", ActiveWhen: "/orders/:id", Cache: true},
	})

	cfg := loadGenerated(t, content)
	assert.Equal(t, 1500, cfg.Server.Port)
	assert.Equal(t, "/portal", cfg.Router.Basename)
	assert.Equal(t, "/home", cfg.Router.Fallback)
	require.Len(t, cfg.Apps, 2)
	assert.Equal(t, "/orders/:id", cfg.Apps[1].ActiveWhen)
	assert.True(t, cfg.Apps[1].Cache)
	assert.True(t, cfg.Watch.IsEnabled())
}

func TestGenerateConfig_NoApps(t *testing.T) {
	cfg := loadGenerated(t, generateConfig(1000, "", "", nil))
	assert.Empty(t, cfg.Apps)
	assert.Empty(t, cfg.Router.Basename)
	assert.Empty(t, cfg.Router.Fallback)
}

func TestGenerateConfig_Escaping(t *testing.T) {
	cfg := loadGenerated(t, generateConfig(1000, "", "", []initApp{
		{Name: `odd"name`, Entry: "http://localhost:3000"},
	}))
	require.Len(t, cfg.Apps, 1)
	assert.Equal(t, `odd"name`, cfg.Apps[0].Name)
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	answers := strings.Join([]string{
		"2000",                  // port
		"",                      // basename
		"y",                     // add app
		"dashboard",             // name
		"http://localhost:4000", // entry
		"",                      // active_when default
		"y",                     // cache
		"n",                     // no more apps
		"",                      // fallback default
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, runInit([]string{"-dir", dir}, strings.NewReader(answers), &out))
	assert.Contains(t, out.String(), "Created")

	cfg := loadGenerated(t, mustRead(t, filepath.Join(dir, initConfigFile)))
	assert.Equal(t, 2000, cfg.Server.Port)
	require.Len(t, cfg.Apps, 1)
	assert.Equal(t, "dashboard", cfg.Apps[0].Name)
	assert.Equal(t, "/dashboard", cfg.Apps[0].ActiveWhen)
	assert.True(t, cfg.Apps[0].Cache)
	assert.Equal(t, "/dashboard", cfg.Router.Fallback)

	// A second run refuses to overwrite.
	err := runInit([]string{"-dir", dir}, strings.NewReader(answers), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRunInit_Help(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runInit([]string{"-h"}, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Usage: approuter init")
}

func TestEnvInt(t *testing.T) {
	t.Setenv("APPROUTER_TEST_PORT", "1234")
	assert.Equal(t, 1234, envInt("APPROUTER_TEST_PORT"))
	t.Setenv("APPROUTER_TEST_PORT", "abc")
	assert.Equal(t, 0, envInt("APPROUTER_TEST_PORT"))
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
