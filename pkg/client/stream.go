// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// StreamOptions selects which live events a [Stream] receives.
type StreamOptions struct {
	// Pattern is an event type pattern such as "app.*". Empty means all.
	Pattern string

	// App limits the stream to events about one app.
	App string
}

// Stream is a live event feed over a WebSocket. Besides receiving events
// it can send navigation commands, whose acknowledgements are delivered
// through Recv as well.
type Stream struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Message is one frame read from a [Stream]. Exactly one of Event and
// Reply is set.
type Message struct {
	Event *Event
	Reply *Reply
}

// Reply acknowledges or rejects a command sent on a [Stream].
type Reply struct {
	Type    string `json:"type"` // "ack" or "error"
	Command string `json:"command,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// Stream opens the live event feed.
//
//	s, err := c.Events.Stream(ctx, &client.StreamOptions{Pattern: "app.*"})
//	defer s.Close()
//	for {
//	    msg, err := s.Recv()
//	    ...
//	}
func (e *EventClient) Stream(ctx context.Context, opts *StreamOptions) (*Stream, error) {
	u, err := url.Parse(e.c.baseURL + "/api/v1/events/ws")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	if opts != nil {
		params := url.Values{}
		if opts.Pattern != "" {
			params.Set("pattern", opts.Pattern)
		}
		if opts.App != "" {
			params.Set("app", opts.App)
		}
		u.RawQuery = params.Encode()
	}

	header := http.Header{}
	header.Set(VersionHeader, e.c.version)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stream failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("stream failed: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// Recv blocks for the next frame.
func (s *Stream) Recv() (Message, error) {
	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		return Message{}, err
	}

	var probe struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Message{}, fmt.Errorf("failed to parse frame: %w", err)
	}
	if probe.Error != "" {
		return Message{}, &APIError{Code: "BAD_REQUEST", Message: probe.Error}
	}

	if probe.Type == "ack" || probe.Type == "error" {
		var r Reply
		if err := json.Unmarshal(raw, &r); err != nil {
			return Message{}, fmt.Errorf("failed to parse reply: %w", err)
		}
		return Message{Reply: &r}, nil
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Message{}, fmt.Errorf("failed to parse event: %w", err)
	}
	return Message{Event: &ev}, nil
}

// Navigate asks the router to push path. Replace swaps the current entry.
func (s *Stream) Navigate(path string, replace bool) error {
	cmd := "navigate"
	if replace {
		cmd = "replace"
	}
	return s.send(map[string]string{"type": cmd, "path": path})
}

// Back steps the router's history back.
func (s *Stream) Back() error { return s.send(map[string]string{"type": "back"}) }

// Forward steps the router's history forward.
func (s *Stream) Forward() error { return s.send(map[string]string{"type": "forward"}) }

func (s *Stream) send(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close ends the stream.
func (s *Stream) Close() error {
	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return s.conn.Close()
}
