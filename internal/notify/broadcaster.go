// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package notify

import (
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber event backlog.
const subscriberBuffer = 64

// broadcaster fans events out to subscribers without blocking the sender.
type broadcaster struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool
	logger *slog.Logger
}

func (b *broadcaster) subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

func (b *broadcaster) unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

func (b *broadcaster) broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// The notification is still tracked in Active; only this
			// subscriber misses the event.
			b.logger.Warn("notification event dropped: subscriber buffer full",
				"notification_id", event.Notification.ID.String(),
				"event_type", event.Type,
			)
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
