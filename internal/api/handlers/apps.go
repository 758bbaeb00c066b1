// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"

	"github.com/wingedpig/approuter/internal/config"
	"github.com/wingedpig/approuter/internal/proxy"
	"github.com/wingedpig/approuter/internal/router"
)

// maxBodySize caps request bodies accepted by the API.
const maxBodySize = 1 << 20

// AppRouter is the part of the router the API drives.
type AppRouter interface {
	Apps() []router.AppDescriptor
	App(name string) (router.AppDescriptor, bool)
	Active() []string
	Matched() []string
	State(name string) router.State
	RegisterApp(ctx context.Context, apps ...router.AppDescriptor) error
	InitRedirect()
	Wait()
}

// GatewayApps looks up the proxy serving a loaded app.
type GatewayApps interface {
	Get(name string) (*proxy.App, bool)
}

// AppHandler handles app-related API requests.
type AppHandler struct {
	router    AppRouter
	gateway   GatewayApps
	validator *config.Validator
}

// NewAppHandler creates a new app handler. gateway may be nil.
func NewAppHandler(r AppRouter, gateway GatewayApps, validator *config.Validator) *AppHandler {
	if validator == nil {
		validator = config.NewValidator()
	}
	return &AppHandler{router: r, gateway: gateway, validator: validator}
}

// AppInfo is the API view of a registered app.
type AppInfo struct {
	Name       string        `json:"name"`
	Entry      string        `json:"entry"`
	ActiveWhen string        `json:"active_when,omitempty"`
	Kind       string        `json:"kind"`
	Routable   bool          `json:"routable"`
	Cache      bool          `json:"cache"`
	DOMGetter  string        `json:"dom_getter,omitempty"`
	State      router.State  `json:"state"`
	Matched    bool          `json:"matched"`
	Gateway    *proxy.Status `json:"gateway,omitempty"`
}

// List returns every registered app sorted by name.
func (h *AppHandler) List(w http.ResponseWriter, r *http.Request) {
	matched := toSet(h.router.Matched())

	apps := h.router.Apps()
	infos := make([]AppInfo, 0, len(apps))
	for _, app := range apps {
		infos = append(infos, h.info(app, matched))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	WriteVersioned(w, r, http.StatusOK, "apps.list", infos)
}

// Get returns a single app.
func (h *AppHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	app, ok := h.router.App(name)
	if !ok {
		WriteError(w, http.StatusNotFound, ErrNotFound, fmt.Sprintf("app not found: %s", name))
		return
	}

	WriteVersioned(w, r, http.StatusOK, "apps.get", h.info(app, toSet(h.router.Matched())))
}

// Register adds apps to the running router. The body is one app object or
// an array of them, in the same shape as the apps config section.
func (h *AppHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "Failed to read request body")
		return
	}

	apps, err := decodeApps(body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	if err := h.validator.ValidateApps(apps); err != nil {
		writeValidationError(w, err)
		return
	}

	descriptors := make([]router.AppDescriptor, 0, len(apps))
	for i := range apps {
		if apps[i].Disabled {
			continue
		}
		d, err := apps[i].Descriptor()
		if err != nil {
			WriteRouterError(w, err)
			return
		}
		descriptors = append(descriptors, d)
	}

	if err := h.router.RegisterApp(r.Context(), descriptors...); err != nil {
		WriteRouterError(w, err)
		return
	}

	matched := toSet(h.router.Matched())
	infos := make([]AppInfo, 0, len(descriptors))
	for _, d := range descriptors {
		infos = append(infos, h.info(d, matched))
	}
	WriteVersioned(w, r, http.StatusCreated, "apps.register", infos)
}

func (h *AppHandler) info(app router.AppDescriptor, matched map[string]bool) AppInfo {
	info := AppInfo{
		Name:      app.Name,
		Entry:     app.Entry,
		Kind:      app.Kind().String(),
		Routable:  app.Routable(),
		Cache:     app.Cache,
		DOMGetter: app.DOMGetter,
		State:     h.router.State(app.Name),
		Matched:   matched[app.Name],
	}
	if s, ok := app.ActiveWhen.(fmt.Stringer); ok {
		info.ActiveWhen = s.String()
	}
	if h.gateway != nil {
		if p, ok := h.gateway.Get(app.Name); ok {
			status := p.Status()
			info.Gateway = &status
		}
	}
	return info
}

// decodeApps accepts either a single app object or an array of apps.
func decodeApps(body []byte) ([]config.AppConfig, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("Invalid JSON body")
	}

	parsed := gjson.ParseBytes(body)
	var apps []config.AppConfig
	switch {
	case parsed.IsArray():
		if err := json.Unmarshal(body, &apps); err != nil {
			return nil, fmt.Errorf("Invalid app list: %w", err)
		}
	case parsed.IsObject():
		var app config.AppConfig
		if err := json.Unmarshal(body, &app); err != nil {
			return nil, fmt.Errorf("Invalid app: %w", err)
		}
		apps = append(apps, app)
	default:
		return nil, errors.New("Body must be an app object or an array of apps")
	}

	if len(apps) == 0 {
		return nil, errors.New("No apps given")
	}
	return apps, nil
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		WriteError(w, http.StatusBadRequest, ErrValidation, err.Error())
		return
	}

	fields := make([]map[string]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		fields = append(fields, map[string]string{"field": fe.Field, "message": fe.Message})
	}
	WriteErrorWithDetails(w, http.StatusBadRequest, ErrValidation, err.Error(), map[string]interface{}{
		"fields": fields,
	})
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
