// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// EventClient reads the router's event log, both recorded ([EventClient.List])
// and live ([EventClient.Stream]).
type EventClient struct {
	c *Client
}

// ListOptions narrows an event listing. Zero fields are not sent.
type ListOptions struct {
	Limit int      // newest N after filtering
	Types []string // type patterns such as "app.*" or "route.changed"
	App   string
	Path  string // location or a segment prefix of it, e.g. "/orders"
	Since time.Time
	Until time.Time
}

func (o *ListOptions) values() url.Values {
	v := url.Values{}
	if o == nil {
		return v
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	v["type"] = append([]string(nil), o.Types...)
	for key, val := range map[string]string{"app": o.App, "path": o.Path} {
		if val != "" {
			v.Set(key, val)
		}
	}
	for key, t := range map[string]time.Time{"since": o.Since, "until": o.Until} {
		if !t.IsZero() {
			v.Set(key, t.Format(time.RFC3339))
		}
	}
	if len(v["type"]) == 0 {
		delete(v, "type")
	}
	return v
}

// List returns recorded events, oldest first.
func (e *EventClient) List(ctx context.Context, opts *ListOptions) ([]Event, error) {
	path := "/api/v1/events"
	if q := opts.values().Encode(); q != "" {
		path += "?" + q
	}

	data, err := e.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}
	return events, nil
}
