// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package navigation provides the location source the router listens to.
package navigation

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Source reports the current location and notifies on change.
type Source interface {
	// Path returns the current location path.
	Path() string

	// Subscribe registers fn for every later location change. The
	// returned function removes the subscription.
	Subscribe(fn func(path string)) (cancel func())
}

// History is an in-memory browser-style history: a list of entries and a
// cursor. Push drops any forward entries.
type History struct {
	mu      sync.Mutex
	entries []string
	index   int
	subs    map[int]func(string)
	nextID  int
}

// NewHistory creates a history positioned at initial.
func NewHistory(initial string) *History {
	return &History{
		entries: []string{Clean(initial)},
		subs:    make(map[int]func(string)),
	}
}

// Path returns the current location.
func (h *History) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Subscribe implements Source.
func (h *History) Subscribe(fn func(path string)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Push navigates to path, adding a new entry.
func (h *History) Push(path string) {
	path = Clean(path)
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], path)
	h.index = len(h.entries) - 1
	h.mu.Unlock()
	h.notify(path)
}

// Replace navigates to path, overwriting the current entry.
func (h *History) Replace(path string) {
	path = Clean(path)
	h.mu.Lock()
	h.entries[h.index] = path
	h.mu.Unlock()
	h.notify(path)
}

// Back moves one entry back. Returns false at the first entry.
func (h *History) Back() bool {
	return h.Go(-1)
}

// Forward moves one entry forward. Returns false at the last entry.
func (h *History) Forward() bool {
	return h.Go(1)
}

// Go moves delta entries. Returns false, without moving, if the target is
// out of range or delta is zero.
func (h *History) Go(delta int) bool {
	h.mu.Lock()
	target := h.index + delta
	if delta == 0 || target < 0 || target >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = target
	path := h.entries[target]
	h.mu.Unlock()

	h.notify(path)
	return true
}

// Entries returns a copy of the history entries and the cursor position.
func (h *History) Entries() ([]string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := make([]string, len(h.entries))
	copy(entries, h.entries)
	return entries, h.index
}

// notify calls subscribers outside the lock, in subscription order.
func (h *History) notify(path string) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(string), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(path)
	}
}

// Clean normalizes a location to its path: query and fragment are
// dropped, a leading slash is added and a trailing slash removed.
func Clean(location string) string {
	if u, err := url.Parse(location); err == nil {
		location = u.Path
	} else if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	if !strings.HasPrefix(location, "/") {
		location = "/" + location
	}
	if len(location) > 1 {
		location = strings.TrimRight(location, "/")
		if location == "" {
			location = "/"
		}
	}
	return location
}
