// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// App is a registered micro-app.
type App struct {
	Name       string         `json:"name"`
	Entry      string         `json:"entry"`
	ActiveWhen string         `json:"active_when,omitempty"`
	Kind       string         `json:"kind"`
	Routable   bool           `json:"routable"`
	Cache      bool           `json:"cache"`
	DOMGetter  string         `json:"dom_getter,omitempty"`
	State      string         `json:"state"` // "inactive", "loading" or "active"
	Matched    bool           `json:"matched"`
	Gateway    *GatewayStatus `json:"gateway,omitempty"`
}

// GatewayStatus is the gateway's view of a loaded app.
type GatewayStatus struct {
	Name      string `json:"name"`
	Entry     string `json:"entry"`
	Basename  string `json:"basename"`
	DOMGetter string `json:"dom_getter,omitempty"`
	Mounted   bool   `json:"mounted"`
	Visible   bool   `json:"visible"`
	Path      string `json:"path,omitempty"`
}

// AppConfig describes an app to register. It has the same shape as an
// entry in the apps section of the config file.
type AppConfig struct {
	Name       string `json:"name"`
	Entry      string `json:"entry"`
	ActiveWhen string `json:"active_when,omitempty"`
	Cache      bool   `json:"cache,omitempty"`
	DOMGetter  string `json:"dom_getter,omitempty"`
	Disabled   bool   `json:"disabled,omitempty"`
}

// Location is the current location and the apps mounted for it.
type Location struct {
	Path    string   `json:"path"`
	Entries []string `json:"entries"`
	Index   int      `json:"index"`
	Active  []string `json:"active"`
	Matched []string `json:"matched"`
}

// Event is a record from the event log.
type Event struct {
	ID        string                 `json:"id"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	App       string                 `json:"app,omitempty"`
	Path      string                 `json:"path,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}
