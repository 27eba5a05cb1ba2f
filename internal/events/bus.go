/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// EventActiveChanged fires when the active-event identity or the
	// fallback flag changes; payload carries "event_id" (empty when
	// playback went idle) and "fallback".
	EventActiveChanged EventType = "playout.active_changed"

	// EventTrackChanged fires when the current track identity changes,
	// including with an empty "track_id" when playback stops or between
	// events.
	EventTrackChanged EventType = "playout.track_changed"

	// EventAnchorUpdated fires each time the time sync anchor is re-set.
	EventAnchorUpdated EventType = "timesync.anchor_updated"

	// EventScheduleLoaded fires after a schedule snapshot refresh.
	EventScheduleLoaded EventType = "schedule.loaded"

	// EventFallbackEngaged fires when default-program playback begins.
	EventFallbackEngaged EventType = "playout.fallback_engaged"

	// EventPlayoutStopped fires when the playback loop reaches its
	// terminal state.
	EventPlayoutStopped EventType = "playout.stopped"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Delivery is non-blocking; a full
// subscriber drops the payload rather than stalling the publisher. The
// read lock is held across the sends so an Unsubscribe cannot close a
// channel mid-delivery.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
