// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the event bus for approuter.
package events

import (
	"context"
	"time"
)

// SchemaVersion is stamped on events published without a Version.
const SchemaVersion = "1.0"

// Event records one router transition. App and Path are empty when the
// event concerns neither, as with config reloads.
type Event struct {
	ID        string                 `json:"id"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	App       string                 `json:"app,omitempty"`
	Path      string                 `json:"path,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// EventHandler reacts to one event. Its error is logged, never returned
// to the publisher.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID names a subscription for Unsubscribe.
type SubscriptionID string

// EventFilter selects recorded events. Zero fields match everything.
type EventFilter struct {
	Types []string  // type patterns, any may match
	App   string    // exact app name
	Path  string    // location or a segment prefix of it
	Since time.Time // inclusive lower bound
	Until time.Time // inclusive upper bound
	Limit int       // newest N after filtering
}

// EventBus carries router events to subscribers and keeps a bounded
// history of them.
type EventBus interface {
	// Publish records event and hands it to every subscriber whose
	// pattern matches its type.
	Publish(ctx context.Context, event Event) error

	// Subscribe runs handler on the publisher's goroutine.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync runs handler on its own goroutine behind a queue of
	// bufferSize events; overflow is dropped.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	Unsubscribe(id SubscriptionID) error

	// History returns recorded events matching filter, oldest first.
	History(filter EventFilter) ([]Event, error)

	Close() error
}

// Event types.
const (
	EventAppRegistered = "app.registered"
	EventAppLoading    = "app.loading"
	EventAppMounted    = "app.mounted"
	EventAppShown      = "app.shown"
	EventAppHidden     = "app.hidden"
	EventAppUnmounted  = "app.unmounted"
	EventAppSuperseded = "app.superseded"
	EventAppFailed     = "app.failed"

	EventRouteChanged    = "route.changed"
	EventRouteNotMatched = "route.notmatched"

	EventConfigReloaded = "config.reloaded"
)
