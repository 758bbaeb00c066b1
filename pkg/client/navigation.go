// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// NavigationClient reads and changes the current location.
//
// Access this client through [Client.Navigation].
type NavigationClient struct {
	c *Client
}

// NavigateOptions configures a navigation.
type NavigateOptions struct {
	// Replace swaps the current history entry instead of pushing one.
	Replace bool

	// Wait returns only after the resulting activations have settled.
	Wait bool
}

// Location returns the current location.
func (n *NavigationClient) Location(ctx context.Context) (*Location, error) {
	data, err := n.c.get(ctx, "/api/v1/location")
	if err != nil {
		return nil, err
	}
	return parseLocation(data)
}

// Navigate moves to path.
func (n *NavigationClient) Navigate(ctx context.Context, path string, opts *NavigateOptions) (*Location, error) {
	body := struct {
		Path    string `json:"path"`
		Replace bool   `json:"replace,omitempty"`
	}{Path: path}

	endpoint := "/api/v1/navigate"
	if opts != nil {
		body.Replace = opts.Replace
		if opts.Wait {
			endpoint += "?wait=true"
		}
	}

	data, err := n.c.postJSON(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}
	return parseLocation(data)
}

// Back moves one history entry back. It fails with CONFLICT at the first
// entry.
func (n *NavigationClient) Back(ctx context.Context) (*Location, error) {
	data, err := n.c.post(ctx, "/api/v1/back")
	if err != nil {
		return nil, err
	}
	return parseLocation(data)
}

// Forward moves one history entry forward. It fails with CONFLICT at the
// last entry.
func (n *NavigationClient) Forward(ctx context.Context) (*Location, error) {
	data, err := n.c.post(ctx, "/api/v1/forward")
	if err != nil {
		return nil, err
	}
	return parseLocation(data)
}

// Redirect re-evaluates the current location without navigating.
func (n *NavigationClient) Redirect(ctx context.Context) (*Location, error) {
	data, err := n.c.post(ctx, "/api/v1/redirect")
	if err != nil {
		return nil, err
	}
	return parseLocation(data)
}

func parseLocation(data json.RawMessage) (*Location, error) {
	var loc Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("failed to parse location: %w", err)
	}
	return &loc, nil
}
