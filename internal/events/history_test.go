// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed adds events one second apart ending at base.
func seed(h *EventHistory, base time.Time, events ...Event) {
	for i, e := range events {
		e.Timestamp = base.Add(time.Duration(i-len(events)+1) * time.Second)
		h.Add(e)
	}
}

func TestEventHistory_QueryOldestFirst(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{})
	seed(h, time.Now(),
		Event{Type: EventAppLoading, App: "orders"},
		Event{Type: EventAppMounted, App: "orders"},
		Event{Type: EventRouteChanged, Path: "/orders"},
	)

	got := h.Query(EventFilter{})
	require.Len(t, got, 3)
	assert.Equal(t, EventAppLoading, got[0].Type)
	assert.Equal(t, EventRouteChanged, got[2].Type)
	assert.Equal(t, 3, h.Len())
}

func TestEventHistory_MaxEvents(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 3})
	for i := 0; i < 5; i++ {
		h.Add(Event{Type: EventRouteChanged, Path: fmt.Sprintf("/p%d", i), Timestamp: time.Now()})
	}

	got := h.Query(EventFilter{})
	require.Len(t, got, 3)
	assert.Equal(t, "/p2", got[0].Path)
	assert.Equal(t, "/p4", got[2].Path)
}

func TestEventHistory_LimitKeepsNewest(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{})
	seed(h, time.Now(),
		Event{Type: EventAppMounted, App: "a"},
		Event{Type: EventAppMounted, App: "b"},
		Event{Type: EventRouteChanged},
		Event{Type: EventAppMounted, App: "c"},
	)

	got := h.Query(EventFilter{Types: []string{"app.*"}, Limit: 2})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].App)
	assert.Equal(t, "c", got[1].App)
}

func TestEventHistory_Filters(t *testing.T) {
	now := time.Now()
	h := NewEventHistory(EventHistoryConfig{})
	seed(h, now,
		Event{Type: EventAppMounted, App: "orders", Path: "/orders"},
		Event{Type: EventAppMounted, App: "detail", Path: "/orders/detail"},
		Event{Type: EventAppFailed, App: "billing", Path: "/billing"},
		Event{Type: EventRouteNotMatched, Path: "/ordersx"},
		Event{Type: EventConfigReloaded},
	)

	tests := []struct {
		name   string
		filter EventFilter
		want   int
	}{
		{"all", EventFilter{}, 5},
		{"type", EventFilter{Types: []string{EventAppMounted}}, 2},
		{"types", EventFilter{Types: []string{"*.failed", "route.*"}}, 2},
		{"invalid types only", EventFilter{Types: []string{"app.mount*"}}, 0},
		{"app", EventFilter{App: "billing"}, 1},
		{"path prefix", EventFilter{Path: "/orders"}, 2},
		{"path trailing slash", EventFilter{Path: "/orders/"}, 2},
		{"path leaf", EventFilter{Path: "/orders/detail"}, 1},
		{"path root", EventFilter{Path: "/"}, 4},
		{"since", EventFilter{Since: now.Add(-1500 * time.Millisecond)}, 2},
		{"until", EventFilter{Until: now.Add(-3500 * time.Millisecond)}, 1},
		{"combined", EventFilter{Types: []string{"app.*"}, Path: "/orders", Since: now.Add(-10 * time.Second)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, h.Query(tt.filter), tt.want)
		})
	}
}

func TestEventHistory_Prune(t *testing.T) {
	now := time.Now()
	h := NewEventHistory(EventHistoryConfig{MaxAge: time.Minute})
	h.now = func() time.Time { return now }

	h.Add(Event{Type: EventAppMounted, App: "old", Timestamp: now.Add(-2 * time.Minute)})
	h.Add(Event{Type: EventAppMounted, App: "older-but-kept", Timestamp: now.Add(-30 * time.Second)})
	h.Add(Event{Type: EventAppMounted, App: "new", Timestamp: now})

	h.Prune()

	got := h.Query(EventFilter{})
	require.Len(t, got, 2)
	assert.Equal(t, "older-but-kept", got[0].App)

	h.now = func() time.Time { return now.Add(time.Hour) }
	h.Prune()
	assert.Equal(t, 0, h.Len())
}

func TestEventHistory_Clear(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{})
	h.Add(Event{Type: EventAppMounted, Timestamp: time.Now()})
	h.Clear()
	assert.Empty(t, h.Query(EventFilter{}))
}

func TestEventHistory_Concurrency(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 500})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Add(Event{Type: EventRouteChanged, App: fmt.Sprintf("app-%d", n), Timestamp: time.Now()})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				h.Query(EventFilter{Types: []string{"route.*"}, Limit: 10})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, h.Len())
}
