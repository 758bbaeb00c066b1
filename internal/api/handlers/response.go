// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wingedpig/approuter/internal/api/version"
	"github.com/wingedpig/approuter/internal/router"
)

// Response is the envelope every endpoint answers with: data on success,
// error otherwise, and meta always.
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MetaInfo carries response metadata.
type MetaInfo struct {
	Timestamp time.Time `json:"timestamp"`
}

// Error codes.
const (
	ErrNotFound      = "NOT_FOUND"
	ErrBadRequest    = "BAD_REQUEST"
	ErrInternalError = "INTERNAL_ERROR"
	ErrConflict      = "CONFLICT"
	ErrRouterError   = "ROUTER_ERROR"
	ErrValidation    = "VALIDATION_ERROR"
)

func write(w http.ResponseWriter, status int, resp Response) {
	resp.Meta = &MetaInfo{Timestamp: time.Now()}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes data in the envelope.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Response{Data: data})
}

// WriteVersioned writes data shaped for the API version pinned on r.
// endpoint names the transformer set, e.g. "apps.get".
func WriteVersioned(w http.ResponseWriter, r *http.Request, status int, endpoint string, data interface{}) {
	WriteJSON(w, status, version.Transform(version.FromContext(r.Context()), endpoint, data))
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithDetails(w, status, code, message, nil)
}

// WriteErrorWithDetails writes an error envelope with structured details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	write(w, status, Response{Error: &ErrorInfo{Code: code, Message: message, Details: details}})
}

// routerErrors maps router sentinels to a status and code. Anything else
// is a bad request.
var routerErrors = []struct {
	err    error
	status int
	code   string
}{
	{router.ErrDuplicateApp, http.StatusConflict, ErrConflict},
	{router.ErrInvalidPattern, http.StatusBadRequest, ErrValidation},
	{router.ErrNotRunning, http.StatusServiceUnavailable, ErrRouterError},
	{router.ErrNoInstance, http.StatusBadGateway, ErrRouterError},
}

// WriteRouterError writes err as returned by the router.
func WriteRouterError(w http.ResponseWriter, err error) {
	for _, m := range routerErrors {
		if errors.Is(err, m.err) {
			WriteError(w, m.status, m.code, err.Error())
			return
		}
	}
	WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
}
