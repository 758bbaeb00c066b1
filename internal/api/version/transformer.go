// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"sort"
	"sync"
)

// Transformer rewrites a response from the shape of the next newer version
// into the shape a client pinned to an older version expects, e.g. by
// mapping a renamed field back to its old name.
type Transformer func(data interface{}) interface{}

// registry holds transformers keyed by the last version that still uses
// the old shape, then by endpoint. Nothing is registered yet since
// 2026-10-19 is the initial version.
var registry = struct {
	sync.RWMutex
	byVersion map[string]map[string]Transformer
	versions  []string // newest first
}{byVersion: map[string]map[string]Transformer{}}

// Transform shapes data for a client pinned to version. Every transformer
// registered for endpoint at a version on or after the pinned one is
// applied, newest first, so changes compose across several versions.
// Endpoints are identifiers such as "apps.get" or "location.get".
func Transform(version, endpoint string, data interface{}) interface{} {
	if version == LatestVersion {
		return data
	}

	registry.RLock()
	defer registry.RUnlock()
	for _, v := range registry.versions {
		if v < version {
			break
		}
		if t, ok := registry.byVersion[v][endpoint]; ok {
			data = t(data)
		}
	}
	return data
}

// RegisterTransformer adds t for endpoint, applied to clients pinned to
// version or earlier. Typically called from init().
func RegisterTransformer(version, endpoint string, t Transformer) {
	registry.Lock()
	defer registry.Unlock()
	if registry.byVersion[version] == nil {
		registry.byVersion[version] = make(map[string]Transformer)
		registry.versions = append(registry.versions, version)
		sort.Sort(sort.Reverse(sort.StringSlice(registry.versions)))
	}
	registry.byVersion[version][endpoint] = t
}

// unregister drops every transformer registered at version.
func unregister(version string) {
	registry.Lock()
	defer registry.Unlock()
	delete(registry.byVersion, version)
	for i, v := range registry.versions {
		if v == version {
			registry.versions = append(registry.versions[:i], registry.versions[i+1:]...)
			break
		}
	}
}
