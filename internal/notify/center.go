// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

// Package notify shows transient, self-expiring messages to the user.
//
// Every notification is independent: there is no queue and no
// de-duplication, and each one disappears on its own timer.
package notify

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flagdeck/flagdeck/internal/observability"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 3 * time.Second

// Kind is the visual class of a notification.
type Kind string

// Notification kinds.
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is one transient message.
type Notification struct {
	ID        ulid.ULID
	Message   string
	Kind      Kind
	CreatedAt time.Time
	ExpiresAt time.Time
}

// EventType distinguishes appearance from expiry.
type EventType string

// Event types.
const (
	EventShown   EventType = "shown"
	EventExpired EventType = "expired"
)

// Event is delivered to subscribers when a notification appears or expires.
type Event struct {
	Type         EventType
	Notification Notification
}

// Option configures a Center.
type Option func(*Center)

// WithTTL overrides the notification lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Center) { c.ttl = ttl }
}

// WithLogger sets the center logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Center) { c.logger = l }
}

// WithMetrics counts shown notifications by kind.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Center) { c.metrics = m }
}

// Center tracks live notifications and expires them.
type Center struct {
	mu      sync.Mutex
	active  map[ulid.ULID]Notification
	timers  map[ulid.ULID]*time.Timer
	closed  bool
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
	bus     *broadcaster
}

// NewCenter creates a notification center.
func NewCenter(opts ...Option) *Center {
	c := &Center{
		active: make(map[ulid.ULID]Notification),
		timers: make(map[ulid.ULID]*time.Timer),
		ttl:    DefaultTTL,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	c.bus = &broadcaster{logger: c.logger}
	return c
}

// Notify shows message and schedules its removal.
// After Close the notification is dropped.
func (c *Center) Notify(message string, kind Kind) Notification {
	now := time.Now()
	n := Notification{
		ID:        ulid.Make(),
		Message:   message,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return n
	}
	c.active[n.ID] = n
	c.timers[n.ID] = time.AfterFunc(c.ttl, func() { c.expire(n.ID) })
	c.mu.Unlock()

	c.metrics.Notification(string(kind))
	c.logger.Debug("notification shown", "notification_id", n.ID.String(), "kind", string(kind), "message", message)
	c.bus.broadcast(Event{Type: EventShown, Notification: n})
	return n
}

// Success shows a success notification.
func (c *Center) Success(message string) Notification {
	return c.Notify(message, KindSuccess)
}

// Error shows an error notification.
func (c *Center) Error(message string) Notification {
	return c.Notify(message, KindError)
}

func (c *Center) expire(id ulid.ULID) {
	c.mu.Lock()
	n, ok := c.active[id]
	if ok {
		delete(c.active, id)
		delete(c.timers, id)
	}
	c.mu.Unlock()

	if ok {
		c.bus.broadcast(Event{Type: EventExpired, Notification: n})
	}
}

// Active returns live notifications, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	out := make([]Notification, 0, len(c.active))
	for _, n := range c.active {
		out = append(out, n)
	}
	c.mu.Unlock()

	// ULIDs minted in one process sort by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out
}

// Subscribe returns a channel of notification events.
// The channel is closed by Unsubscribe or Close.
func (c *Center) Subscribe() <-chan Event {
	return c.bus.subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (c *Center) Unsubscribe(ch <-chan Event) {
	c.bus.unsubscribe(ch)
}

// Close stops all pending expiry timers and closes subscriber channels.
// Live notifications are discarded without expiry events.
func (c *Center) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
	clear(c.active)
	c.mu.Unlock()

	c.bus.close()
}
