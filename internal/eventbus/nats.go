/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus fans in-process playout notifications out to NATS so
// other station services (stream metadata, now-playing sites, loggers)
// can follow along. Subject pattern: polaris.events.<event_type>.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/events"
)

const subjectPrefix = "polaris.events."

// envelope is the wire form of a bridged notification.
type envelope struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// Bridge relays every in-process bus event to NATS.
type Bridge struct {
	conn   *nats.Conn
	bus    *events.Bus
	logger zerolog.Logger
	nodeID string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBridge(url string, bus *events.Bus, logger zerolog.Logger) (*Bridge, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	host, _ := os.Hostname()
	return &Bridge{
		conn:   conn,
		bus:    bus,
		logger: logger.With().Str("component", "eventbus").Logger(),
		nodeID: fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
	}, nil
}

// Start subscribes to every playout event type and relays each event
// until the context ends or Close is called.
func (b *Bridge) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	types := []events.EventType{
		events.EventActiveChanged,
		events.EventTrackChanged,
		events.EventAnchorUpdated,
		events.EventScheduleLoaded,
		events.EventFallbackEngaged,
		events.EventPlayoutStopped,
	}

	for _, et := range types {
		sub := b.bus.Subscribe(et)
		b.wg.Add(1)
		go b.relay(ctx, et, sub)
	}

	b.logger.Info().Str("node_id", b.nodeID).Msg("nats event bridge started")
}

func (b *Bridge) relay(ctx context.Context, eventType events.EventType, sub events.Subscriber) {
	defer b.wg.Done()
	defer b.bus.Unsubscribe(eventType, sub)

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			b.publish(eventType, payload)
		}
	}
}

func (b *Bridge) publish(eventType events.EventType, payload events.Payload) {
	data, err := json.Marshal(envelope{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    b.nodeID,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		b.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to marshal event envelope")
		return
	}

	if err := b.conn.Publish(subjectPrefix+string(eventType), data); err != nil {
		b.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("nats publish failed")
	}
}

// Close stops the relays and drains the connection.
func (b *Bridge) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	if err := b.conn.Drain(); err != nil {
		b.logger.Warn().Err(err).Msg("nats drain failed")
	}
}
