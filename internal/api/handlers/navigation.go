// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Navigator is the location source the API navigates.
type Navigator interface {
	Path() string
	Push(path string)
	Replace(path string)
	Back() bool
	Forward() bool
	Entries() ([]string, int)
}

// NavigationHandler handles location and navigation requests.
type NavigationHandler struct {
	nav    Navigator
	router AppRouter
}

// NewNavigationHandler creates a new navigation handler.
func NewNavigationHandler(nav Navigator, r AppRouter) *NavigationHandler {
	return &NavigationHandler{nav: nav, router: r}
}

// Location describes the current location and what is mounted for it.
type Location struct {
	Path    string   `json:"path"`
	Entries []string `json:"entries"`
	Index   int      `json:"index"`
	Active  []string `json:"active"`
	Matched []string `json:"matched"`
}

// NavigateRequest is the body of a navigate call.
type NavigateRequest struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
}

// Location returns the current location.
func (h *NavigationHandler) Location(w http.ResponseWriter, r *http.Request) {
	h.writeLocation(w, r)
}

// Navigate pushes or replaces the current location. With ?wait=true the
// response is written once the resulting activations have settled.
func (h *NavigationHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "Invalid request body")
		return
	}
	if !strings.HasPrefix(req.Path, "/") {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "path must start with '/'")
		return
	}

	if req.Replace {
		h.nav.Replace(req.Path)
	} else {
		h.nav.Push(req.Path)
	}
	h.writeLocation(w, r)
}

// Back moves one entry back in history.
func (h *NavigationHandler) Back(w http.ResponseWriter, r *http.Request) {
	if !h.nav.Back() {
		WriteError(w, http.StatusConflict, ErrConflict, "no earlier history entry")
		return
	}
	h.writeLocation(w, r)
}

// Forward moves one entry forward in history.
func (h *NavigationHandler) Forward(w http.ResponseWriter, r *http.Request) {
	if !h.nav.Forward() {
		WriteError(w, http.StatusConflict, ErrConflict, "no later history entry")
		return
	}
	h.writeLocation(w, r)
}

// Redirect re-evaluates the current location without navigating.
func (h *NavigationHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	h.router.InitRedirect()
	h.writeLocation(w, r)
}

func (h *NavigationHandler) writeLocation(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") == "true" {
		h.router.Wait()
	}

	entries, index := h.nav.Entries()
	loc := Location{
		Path:    h.nav.Path(),
		Entries: entries,
		Index:   index,
		Active:  nonNil(h.router.Active()),
		Matched: nonNil(h.router.Matched()),
	}
	WriteVersioned(w, r, http.StatusOK, "location.get", loc)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
