// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package e2e

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/approuter/internal/api"
	"github.com/wingedpig/approuter/internal/config"
	"github.com/wingedpig/approuter/internal/events"
	"github.com/wingedpig/approuter/internal/navigation"
	"github.com/wingedpig/approuter/internal/proxy"
	"github.com/wingedpig/approuter/internal/router"
	"github.com/wingedpig/approuter/pkg/client"
)

type stack struct {
	router  *router.Router
	history *navigation.History
	gateway *httptest.Server
	api     *httptest.Server
	client  *client.Client
}

// upstream answers with its name, the path it saw and the app header the
// gateway set.
func upstream(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s %s %s", name, r.URL.Path, r.Header.Get(proxy.HeaderMicroApp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log, _ := test.NewNullLogger()
	ctx := context.Background()

	orders := upstream(t, "orders")
	billing := upstream(t, "billing")

	bus := events.NewMemoryEventBus(events.MemoryBusConfig{Logger: log})
	history := navigation.NewHistory("/")
	gw, err := proxy.NewGateway(config.GatewayConfig{}, log)
	require.NoError(t, err)

	r := router.New(router.Config{
		Loader: proxy.NewLoader(proxy.LoaderConfig{Logger: log}),
		Source: history,
		Host:   gw,
		Bus:    bus,
		Logger: log,
	})
	require.NoError(t, r.Bootstrap(ctx, router.Options{
		Apps: []router.AppDescriptor{
			{Name: "orders", Entry: orders.URL, ActiveWhen: router.MustPath("/orders"), Cache: true},
			{Name: "billing", Entry: billing.URL, ActiveWhen: router.MustPath("/billing/:tenant")},
		},
	}))

	apiServer := httptest.NewServer(api.NewRouter(api.Dependencies{
		Router:    r,
		Navigator: history,
		Gateway:   gw,
		EventBus:  bus,
		Validator: config.NewValidator(),
		Logger:    log,
	}))
	gwServer := httptest.NewServer(gw)

	t.Cleanup(func() {
		apiServer.Close()
		gwServer.Close()
		r.Close(ctx)
		bus.Close()
	})

	return &stack{
		router:  r,
		history: history,
		gateway: gwServer,
		api:     apiServer,
		client:  client.New(apiServer.URL),
	}
}

func (s *stack) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(s.gateway.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestNavigateRoutesGatewayToActiveApp(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	// Nothing matches the root, so the gateway has no app to serve.
	status, _ := s.get(t, "/orders/42")
	assert.Equal(t, http.StatusNotFound, status)

	loc, err := s.client.Navigation.Navigate(ctx, "/orders/42", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)
	assert.Equal(t, "/orders/42", loc.Path)
	assert.Equal(t, []string{"orders"}, loc.Active)
	assert.Equal(t, []string{"orders"}, loc.Matched)

	status, body := s.get(t, "/orders/42")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "orders /orders/42 orders", body)

	loc, err = s.client.Navigation.Navigate(ctx, "/billing/acme/invoices", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"billing"}, loc.Active)

	status, body = s.get(t, "/billing/acme/invoices")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "billing /billing/acme/invoices billing", body)

	status, _ = s.get(t, "/orders/42")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBackAndForward(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.client.Navigation.Navigate(ctx, "/orders", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)
	_, err = s.client.Navigation.Navigate(ctx, "/billing/acme", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)

	loc, err := s.client.Navigation.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/orders", loc.Path)
	assert.Equal(t, []string{"/", "/orders", "/billing/acme"}, loc.Entries)
	assert.Equal(t, 1, loc.Index)

	s.router.Wait()
	status, body := s.get(t, "/orders")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "orders /orders orders", body)

	loc, err = s.client.Navigation.Forward(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/billing/acme", loc.Path)

	_, err = s.client.Navigation.Forward(ctx)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "CONFLICT", apiErr.Code)
}

func TestRegisterAppAtRuntime(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	reports := upstream(t, "reports")

	apps, err := s.client.Apps.Register(ctx, client.AppConfig{
		Name:       "reports",
		Entry:      reports.URL,
		ActiveWhen: "/reports",
	})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "reports", apps[0].Name)
	assert.True(t, apps[0].Routable)

	_, err = s.client.Navigation.Navigate(ctx, "/reports/2026", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)

	app, err := s.client.Apps.Get(ctx, "reports")
	require.NoError(t, err)
	assert.Equal(t, "active", app.State)
	assert.True(t, app.Matched)
	require.NotNil(t, app.Gateway)
	assert.True(t, app.Gateway.Visible)
	assert.Equal(t, "/reports", app.Gateway.Basename)

	status, body := s.get(t, "/reports/2026")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "reports /reports/2026 reports", body)

	// Registering the same name again is rejected.
	_, err = s.client.Apps.Register(ctx, client.AppConfig{Name: "reports", Entry: reports.URL})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "CONFLICT", apiErr.Code)

	list, err := s.client.Apps.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestCachedAppKeepsInstance(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.client.Navigation.Navigate(ctx, "/orders", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)
	app, err := s.client.Apps.Get(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, app.Cache)
	require.NotNil(t, app.Gateway)
	assert.True(t, app.Gateway.Mounted)

	_, err = s.client.Navigation.Navigate(ctx, "/billing/acme", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)
	app, err = s.client.Apps.Get(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "inactive", app.State)
	assert.Nil(t, app.Gateway)

	_, err = s.client.Navigation.Navigate(ctx, "/orders", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)
	status, body := s.get(t, "/orders")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "orders /orders orders", body)
}

func TestEventsRecordLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.client.Navigation.Navigate(ctx, "/orders", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)
	_, err = s.client.Navigation.Navigate(ctx, "/nowhere", &client.NavigateOptions{Wait: true})
	require.NoError(t, err)

	mounted, err := s.client.Events.List(ctx, &client.ListOptions{
		Types: []string{events.EventAppMounted},
		App:   "orders",
	})
	require.NoError(t, err)
	require.Len(t, mounted, 1)
	assert.Equal(t, "orders", mounted[0].App)

	hidden, err := s.client.Events.List(ctx, &client.ListOptions{Types: []string{"app.hidden"}})
	require.NoError(t, err)
	require.Len(t, hidden, 1)
	assert.Equal(t, "orders", hidden[0].App)

	notMatched, err := s.client.Events.List(ctx, &client.ListOptions{Types: []string{events.EventRouteNotMatched}})
	require.NoError(t, err)
	var paths []string
	for _, e := range notMatched {
		paths = append(paths, e.Path)
	}
	// The initial location matches nothing either.
	assert.ElementsMatch(t, []string{"/", "/nowhere"}, paths)
}

func TestServerStartup(t *testing.T) {
	s := newStack(t)
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	defer bus.Close()

	server := api.NewServer(api.ServerConfig{Host: "127.0.0.1", Port: 0}, api.Dependencies{
		Router:    s.router,
		Navigator: s.history,
		EventBus:  bus,
	})
	require.NotNil(t, server)
	require.NotNil(t, server.Router())
	assert.Equal(t, "127.0.0.1:0", server.Addr())
}

func TestEventStreamDrivesNavigation(t *testing.T) {
	s := newStack(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := s.client.Events.Stream(ctx, &client.StreamOptions{Pattern: "app.*", App: "billing"})
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, stream.Navigate("/billing/acme", false))

	var acked, mounted bool
	for !(acked && mounted) {
		msg, err := stream.Recv()
		require.NoError(t, err)
		if msg.Reply != nil {
			assert.Equal(t, "ack", msg.Reply.Type)
			assert.Equal(t, "/billing/acme", msg.Reply.Path)
			acked = true
			continue
		}
		assert.Equal(t, "billing", msg.Event.App)
		if msg.Event.Type == events.EventAppMounted {
			mounted = true
		}
	}

	s.router.Wait()
	code, body := s.get(t, "/billing/acme")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "billing /billing/acme billing", body)
}
