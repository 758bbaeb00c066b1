// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// AppClient lists and registers micro-apps.
//
// Access this client through [Client.Apps].
type AppClient struct {
	c *Client
}

// List returns every registered app sorted by name.
func (a *AppClient) List(ctx context.Context) ([]App, error) {
	data, err := a.c.get(ctx, "/api/v1/apps")
	if err != nil {
		return nil, err
	}

	var apps []App
	if err := json.Unmarshal(data, &apps); err != nil {
		return nil, fmt.Errorf("failed to parse apps: %w", err)
	}
	return apps, nil
}

// Get returns a single app.
func (a *AppClient) Get(ctx context.Context, name string) (*App, error) {
	data, err := a.c.get(ctx, "/api/v1/apps/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}

	var app App
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse app: %w", err)
	}
	return &app, nil
}

// Register adds apps to the running router. The current location is
// re-evaluated so a matching app mounts without a navigation.
func (a *AppClient) Register(ctx context.Context, apps ...AppConfig) ([]App, error) {
	if len(apps) == 0 {
		return nil, fmt.Errorf("no apps to register")
	}

	data, err := a.c.postJSON(ctx, "/api/v1/apps", apps)
	if err != nil {
		return nil, err
	}

	var registered []App
	if err := json.Unmarshal(data, &registered); err != nil {
		return nil, fmt.Errorf("failed to parse apps: %w", err)
	}
	return registered, nil
}
