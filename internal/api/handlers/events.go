// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/wingedpig/approuter/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventHandler handles event-related API requests.
type EventHandler struct {
	bus events.EventBus
	nav Navigator
}

// NewEventHandler creates a new event handler. When nav is set, clients on
// the WebSocket may send navigation commands.
func NewEventHandler(bus events.EventBus, nav Navigator) *EventHandler {
	return &EventHandler{bus: bus, nav: nav}
}

// parseFilter reads type, app, path, limit, since and until. Malformed
// limit or times are errors rather than silently ignored.
func parseFilter(q url.Values) (events.EventFilter, error) {
	filter := events.EventFilter{
		Types: q["type"],
		App:   q.Get("app"),
		Path:  q.Get("path"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid limit %q", v)
		}
		filter.Limit = n
	}
	for name, dst := range map[string]*time.Time{"since": &filter.Since, "until": &filter.Until} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid %s %q: want RFC 3339", name, v)
		}
		*dst = t
	}
	if filter.Path != "" && !strings.HasPrefix(filter.Path, "/") {
		return filter, fmt.Errorf("path must start with '/'")
	}
	return filter, nil
}

// History returns recorded events matching the query, oldest first.
func (h *EventHandler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	eventList, err := h.bus.History(filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}
	WriteVersioned(w, r, http.StatusOK, "events.list", eventList)
}

// Reply is sent back on the WebSocket for each client command.
type Reply struct {
	Type    string `json:"type"` // "ack" or "error"
	Command string `json:"command,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// command applies one client frame such as {"type":"navigate","path":"/a"}.
func (h *EventHandler) command(msg []byte) Reply {
	if h.nav == nil {
		return Reply{Type: "error", Message: "navigation is not available"}
	}
	if !gjson.ValidBytes(msg) {
		return Reply{Type: "error", Message: "invalid JSON"}
	}

	cmd := gjson.GetBytes(msg, "type").String()
	path := gjson.GetBytes(msg, "path").String()

	switch cmd {
	case "navigate", "replace":
		if !strings.HasPrefix(path, "/") {
			return Reply{Type: "error", Command: cmd, Message: "path must start with '/'"}
		}
		if cmd == "replace" {
			h.nav.Replace(path)
		} else {
			h.nav.Push(path)
		}
	case "back":
		if !h.nav.Back() {
			return Reply{Type: "error", Command: cmd, Message: "no earlier history entry"}
		}
	case "forward":
		if !h.nav.Forward() {
			return Reply{Type: "error", Command: cmd, Message: "no later history entry"}
		}
	default:
		return Reply{Type: "error", Command: cmd, Message: "unknown command"}
	}
	return Reply{Type: "ack", Command: cmd, Path: h.nav.Path()}
}

// WebSocket handles the WebSocket connection for real-time events.
func (h *EventHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}
	app := r.URL.Query().Get("app")

	// Create channel for events
	eventCh := make(chan events.Event, 100)
	replyCh := make(chan Reply, 16)
	done := make(chan struct{})

	// Subscribe to events
	subID, err := h.bus.SubscribeAsync(pattern, func(_ context.Context, event events.Event) error {
		if app != "" && event.App != app {
			return nil
		}
		select {
		case eventCh <- event:
		case <-done:
		default:
			// Drop if buffer full
		}
		return nil
	}, 100)

	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	defer h.bus.Unsubscribe(subID)

	// Set up ping/pong
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Start ping ticker
	pingTicker := time.NewTicker(54 * time.Second)
	defer pingTicker.Stop()

	// Read goroutine: client commands and close detection
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case replyCh <- h.command(msg):
			default:
			}
		}
	}()

	// Write loop
	for {
		select {
		case event := <-eventCh:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case reply := <-replyCh:
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
