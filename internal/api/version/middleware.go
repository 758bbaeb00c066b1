// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"encoding/json"
	"net/http"
	"time"
)

// Middleware pins each request to the API version named in the
// Approuter-Version header, or LatestVersion when the header is absent.
// A malformed or future version is rejected with 400 before next runs.
// The resolved version is echoed back in the response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, err := Resolve(r.Header.Get(Header))
		if err != nil {
			rejectVersion(w, err)
			return
		}

		w.Header().Set(Header, v)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), v)))
	})
}

// rejectVersion writes the standard error envelope without depending on
// the handlers package.
func rejectVersion(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(Header, LatestVersion)
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    "BAD_REQUEST",
			"message": err.Error(),
		},
		"meta": map[string]time.Time{"timestamp": time.Now()},
	})
}
