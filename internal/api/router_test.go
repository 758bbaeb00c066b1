// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/approuter/internal/api/version"
	"github.com/wingedpig/approuter/internal/events"
	"github.com/wingedpig/approuter/internal/metrics"
	"github.com/wingedpig/approuter/internal/navigation"
	"github.com/wingedpig/approuter/internal/router"
)

type nopApp struct{ mounted bool }

func (a *nopApp) Mount() error   { a.mounted = true; return nil }
func (a *nopApp) Unmount() error { a.mounted = false; return nil }
func (a *nopApp) Show() error    { return nil }
func (a *nopApp) Hide() error    { return nil }
func (a *nopApp) Mounted() bool  { return a.mounted }

func newTestDeps(t *testing.T) Dependencies {
	t.Helper()
	log, _ := test.NewNullLogger()

	history := navigation.NewHistory("/")
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{Logger: log})
	r := router.New(router.Config{
		Loader: router.LoaderFunc(func(ctx context.Context, name string, opts router.LoadOptions) (router.App, error) {
			return &nopApp{}, nil
		}),
		Source: history,
		Bus:    bus,
		Logger: log,
	})
	require.NoError(t, r.Bootstrap(context.Background(), router.Options{
		Apps: []router.AppDescriptor{
			{Name: "orders", Entry: "http://localhost:3001", ActiveWhen: router.MustPath("/orders")},
		},
	}))
	t.Cleanup(func() {
		r.Close(context.Background())
		bus.Close()
	})

	return Dependencies{
		Router:    r,
		Navigator: history,
		EventBus:  bus,
		Metrics:   metrics.Handler(),
		Logger:    log,
	}
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_Routes(t *testing.T) {
	r := NewRouter(newTestDeps(t))

	tests := []struct {
		method string
		target string
		body   string
		status int
	}{
		{"GET", "/api/v1/apps", "", http.StatusOK},
		{"GET", "/api/v1/apps/orders", "", http.StatusOK},
		{"GET", "/api/v1/apps/nope", "", http.StatusNotFound},
		{"GET", "/api/v1/location", "", http.StatusOK},
		{"POST", "/api/v1/navigate", `{"path":"/orders"}`, http.StatusOK},
		{"POST", "/api/v1/back", "", http.StatusOK},
		{"POST", "/api/v1/forward", "", http.StatusOK},
		{"POST", "/api/v1/redirect", "", http.StatusOK},
		{"GET", "/api/v1/events", "", http.StatusOK},
		{"GET", "/metrics", "", http.StatusOK},
		{"GET", "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := serve(r, tt.method, tt.target, tt.body)
		assert.Equal(t, tt.status, rec.Code, "%s %s: %s", tt.method, tt.target, rec.Body.String())
	}
}

func TestNewRouter_VersionAndCORS(t *testing.T) {
	r := NewRouter(newTestDeps(t))

	rec := serve(r, "GET", "/api/v1/apps", "")
	assert.Equal(t, version.LatestVersion, rec.Header().Get(version.Header))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_NavigateRateLimit(t *testing.T) {
	deps := newTestDeps(t)
	deps.NavigateRate = 0.001
	deps.NavigateBurst = 1
	r := NewRouter(deps)

	rec := serve(r, "POST", "/api/v1/navigate", `{"path":"/orders"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, "POST", "/api/v1/navigate", `{"path":"/"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads are never limited.
	rec = serve(r, "GET", "/api/v1/location", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Addr(t *testing.T) {
	s := NewServer(ServerConfig{Host: "127.0.0.1", Port: 1000}, newTestDeps(t))
	assert.Equal(t, "127.0.0.1:1000", s.Addr())
	assert.NotNil(t, s.Router())
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestServer_ListenAndServe_BadTLS(t *testing.T) {
	s := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0, TLSCert: "/nonexistent/cert.pem", TLSKey: "/nonexistent/key.pem"}, newTestDeps(t))
	err := s.ListenAndServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLS configuration error")
}
