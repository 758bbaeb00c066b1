// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// EventHistoryConfig configures event history.
type EventHistoryConfig struct {
	MaxEvents int
	MaxAge    time.Duration
}

// EventHistory keeps recent events in publish order, bounded by count and
// age.
type EventHistory struct {
	mu        sync.RWMutex
	events    []Event
	maxEvents int
	maxAge    time.Duration
	now       func() time.Time
}

// NewEventHistory creates a new event history.
func NewEventHistory(cfg EventHistoryConfig) *EventHistory {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 10000
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}
	return &EventHistory{
		maxEvents: cfg.MaxEvents,
		maxAge:    cfg.MaxAge,
		now:       time.Now,
	}
}

// Add appends an event, dropping the oldest once the count limit is hit.
func (h *EventHistory) Add(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, event)
	if over := len(h.events) - h.maxEvents; over > 0 {
		// Copy so the dropped prefix can be collected.
		h.events = append([]Event(nil), h.events[over:]...)
	}
}

// Len returns the number of retained events.
func (h *EventHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

// Query returns matching events, oldest first. With a limit the newest
// matches are kept.
func (h *EventHistory) Query(filter EventFilter) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var patterns []Pattern
	for _, raw := range filter.Types {
		if p, err := ParsePattern(raw); err == nil {
			patterns = append(patterns, p)
		}
	}
	if len(filter.Types) > 0 && len(patterns) == 0 {
		return []Event{}
	}

	// Walk backwards so a limit stops the scan early.
	result := make([]Event, 0)
	for i := len(h.events) - 1; i >= 0; i-- {
		e := h.events[i]
		if !filter.matches(e, patterns) {
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

func (f EventFilter) matches(e Event, patterns []Pattern) bool {
	if len(patterns) > 0 {
		ok := false
		for _, p := range patterns {
			if p.Match(e.Type) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.App != "" && e.App != f.App {
		return false
	}
	if f.Path != "" && !underPath(e.Path, f.Path) {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// underPath reports whether location equals prefix or lies below it on a
// segment boundary.
func underPath(location, prefix string) bool {
	if location == "" {
		return false
	}
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	return location == prefix || strings.HasPrefix(location, prefix+"/")
}

// Prune drops events older than the max age. Events are stored in publish
// order, so the cutoff is found by binary search.
func (h *EventHistory) Prune() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-h.maxAge)
	i := sort.Search(len(h.events), func(i int) bool {
		return h.events[i].Timestamp.After(cutoff)
	})
	if i > 0 {
		h.events = append([]Event(nil), h.events[i:]...)
	}
}

// Clear drops every event.
func (h *EventHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}
