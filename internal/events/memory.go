// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrBusClosed is returned when operating on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrSubscriptionNotFound is returned when unsubscribing with invalid ID.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// MemoryBusConfig configures the memory event bus.
type MemoryBusConfig struct {
	HistoryMaxEvents int
	HistoryMaxAge    time.Duration
	Logger           logrus.FieldLogger
}

// MemoryEventBus is an in-memory event bus. Every published event is
// recorded in history before subscribers see it.
type MemoryEventBus struct {
	mu     sync.RWMutex
	subs   map[SubscriptionID]*subscription
	nextID atomic.Uint64

	history *EventHistory
	closed  atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
	log     logrus.FieldLogger
}

type subscription struct {
	id      SubscriptionID
	pattern Pattern
	handler EventHandler

	// Set for async subscriptions only.
	queue chan Event
	stop  chan struct{}
}

// NewMemoryEventBus creates a bus and starts its history pruner.
func NewMemoryEventBus(cfg MemoryBusConfig) *MemoryEventBus {
	bus := &MemoryEventBus{
		subs: make(map[SubscriptionID]*subscription),
		history: NewEventHistory(EventHistoryConfig{
			MaxEvents: cfg.HistoryMaxEvents,
			MaxAge:    cfg.HistoryMaxAge,
		}),
		stop: make(chan struct{}),
		log:  cfg.Logger,
	}
	if bus.log == nil {
		bus.log = logrus.StandardLogger()
	}

	// Prune ten times per max age, between once a minute and once an hour.
	interval := bus.history.maxAge / 10
	if interval < time.Minute {
		interval = time.Minute
	}
	if interval > time.Hour {
		interval = time.Hour
	}
	bus.wg.Add(1)
	go bus.pruneLoop(interval)

	return bus
}

func (bus *MemoryEventBus) pruneLoop(interval time.Duration) {
	defer bus.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-bus.stop:
			return
		case <-ticker.C:
			bus.history.Prune()
		}
	}
}

// Publish records event and delivers it to matching subscribers. Sync
// handlers run on the caller's goroutine; async ones drop the event when
// their queue is full.
func (bus *MemoryEventBus) Publish(ctx context.Context, event Event) error {
	if bus.closed.Load() {
		return ErrBusClosed
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Version == "" {
		event.Version = SchemaVersion
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	bus.history.Add(event)

	bus.mu.RLock()
	var matched []*subscription
	for _, sub := range bus.subs {
		if sub.pattern.Match(event.Type) {
			matched = append(matched, sub)
		}
	}
	bus.mu.RUnlock()

	for _, sub := range matched {
		if sub.queue == nil {
			bus.call(ctx, sub, event)
			continue
		}
		select {
		case sub.queue <- event:
		default:
			bus.log.WithFields(logrus.Fields{
				"type":         event.Type,
				"subscription": sub.id,
			}).Warn("Dropped event, subscriber queue full")
		}
	}
	return nil
}

// call runs a handler, logging its error or panic.
func (bus *MemoryEventBus) call(ctx context.Context, sub *subscription, event Event) {
	log := bus.log.WithFields(logrus.Fields{"type": event.Type, "subscription": sub.id})
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Event handler panic: %v", r)
		}
	}()
	if err := sub.handler(ctx, event); err != nil {
		log.WithError(err).Debug("Event handler failed")
	}
}

// Subscribe registers a synchronous handler for events matching pattern.
func (bus *MemoryEventBus) Subscribe(pattern string, handler EventHandler) (SubscriptionID, error) {
	sub, err := bus.add(pattern, handler, 0)
	if err != nil {
		return "", err
	}
	return sub.id, nil
}

// SubscribeAsync registers a handler fed from a queue of bufferSize events
// (100 when not positive) on its own goroutine.
func (bus *MemoryEventBus) SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error) {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	sub, err := bus.add(pattern, handler, bufferSize)
	if err != nil {
		return "", err
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		for {
			select {
			case <-sub.stop:
				return
			case event := <-sub.queue:
				bus.call(context.Background(), sub, event)
			}
		}
	}()
	return sub.id, nil
}

func (bus *MemoryEventBus) add(pattern string, handler EventHandler, queue int) (*subscription, error) {
	if bus.closed.Load() {
		return nil, ErrBusClosed
	}
	p, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}

	sub := &subscription{
		id:      SubscriptionID("sub-" + strconv.FormatUint(bus.nextID.Add(1), 10)),
		pattern: p,
		handler: handler,
	}
	if queue > 0 {
		sub.queue = make(chan Event, queue)
		sub.stop = make(chan struct{})
	}

	bus.mu.Lock()
	bus.subs[sub.id] = sub
	bus.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes a subscription.
func (bus *MemoryEventBus) Unsubscribe(id SubscriptionID) error {
	bus.mu.Lock()
	sub, ok := bus.subs[id]
	delete(bus.subs, id)
	bus.mu.Unlock()

	if !ok {
		return ErrSubscriptionNotFound
	}
	if sub.stop != nil {
		close(sub.stop)
	}
	return nil
}

// History retrieves past events matching filter.
func (bus *MemoryEventBus) History(filter EventFilter) ([]Event, error) {
	return bus.history.Query(filter), nil
}

// Close stops async handlers and the pruner, then drops history. Closing
// twice is a no-op.
func (bus *MemoryEventBus) Close() error {
	if bus.closed.Swap(true) {
		return nil
	}
	close(bus.stop)

	bus.mu.Lock()
	for id, sub := range bus.subs {
		if sub.stop != nil {
			close(sub.stop)
		}
		delete(bus.subs, id)
	}
	bus.mu.Unlock()

	bus.wg.Wait()
	bus.history.Clear()
	return nil
}
