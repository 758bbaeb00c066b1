// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the approuter API.
//
// approuter decides which micro-apps are mounted for the current location.
// This client reads the registered apps and the current location, drives
// navigation, registers new apps and reads the event log.
//
// # Getting Started
//
//	c := client.New("http://localhost:1000")
//
//	// Navigate and wait for the matching apps to mount
//	loc, err := c.Navigation.Navigate(ctx, "/orders/7", &client.NavigateOptions{Wait: true})
//
//	// Register an app at runtime
//	apps, err := c.Apps.Register(ctx, client.AppConfig{
//	    Name:       "reports",
//	    Entry:      "http://localhost:3005",
//	    ActiveWhen: "/reports",
//	})
//
// # API Versioning
//
// The API uses date-based versions. Pin one with [WithVersion]; it is sent
// in the Approuter-Version header on each request.
//
// # Error Handling
//
// API errors are returned as *APIError values carrying the error code:
//
//	_, err := c.Apps.Get(ctx, "unknown")
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == "NOT_FOUND" {
//	    // ...
//	}
//
// or more briefly with [IsCode]. Rate-limited requests are retried when
// [WithRetries] is set.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running approuter. It is safe for concurrent use.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
	retries    int

	Apps       *AppClient
	Navigation *NavigationClient
	Events     *EventClient
}

// Option customizes a [Client] built by [New].
type Option func(*Client)

// New returns a client for the API rooted at baseURL, for example
// "http://localhost:1000". It pins [LatestVersion], times out after 30
// seconds and does not retry.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		version:    LatestVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Apps = &AppClient{c: c}
	c.Navigation = &NavigationClient{c: c}
	c.Events = &EventClient{c: c}
	return c
}

// WithVersion pins a dated API version such as "2026-10-19".
func WithVersion(v string) Option {
	return func(c *Client) { c.version = v }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Navigations with Wait may
// need more than the default when app entries are probed.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries retries a request up to n times when the server answers
// 429, sleeping for its Retry-After between attempts.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// Version returns the pinned API version.
func (c *Client) Version() string { return c.version }

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// APIError is an error envelope returned by the server. Codes include
// NOT_FOUND, BAD_REQUEST, VALIDATION_ERROR, CONFLICT, ROUTER_ERROR,
// RATE_LIMITED and INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`

	// Status is the HTTP status the error arrived with.
	Status int `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, data)
}

// do sends one request, retrying rate-limited attempts, and unwraps the
// response envelope.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		status, header, raw, err := c.send(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
		if status == http.StatusTooManyRequests && attempt < c.retries {
			if err := sleepCtx(ctx, retryAfter(header)); err != nil {
				return nil, err
			}
			continue
		}
		return decode(status, raw)
	}
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (int, http.Header, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(VersionHeader, c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, resp.Header, raw, nil
}

// decode unwraps an envelope. Bodies that are not envelopes pass through
// on success and become errors otherwise.
func decode(status int, raw []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if status >= 400 {
			return nil, fmt.Errorf("request failed with status %d: %s", status, string(raw))
		}
		return raw, nil
	}
	if env.Error != nil {
		env.Error.Status = status
		return nil, env.Error
	}
	if status >= 400 {
		return nil, &APIError{Message: fmt.Sprintf("request failed with status %d", status), Status: status}
	}
	return env.Data, nil
}

// retryAfter reads a Retry-After in seconds, defaulting to one second.
func retryAfter(h http.Header) time.Duration {
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
