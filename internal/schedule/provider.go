/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/cache"
	"github.com/polarisfm/polaris/internal/events"
	"github.com/polarisfm/polaris/internal/models"
	"github.com/polarisfm/polaris/internal/telemetry"
)

// Provider holds the latest validated schedule snapshot. The playback
// loop treats one snapshot as immutable for a whole resolve cycle; a
// concurrent refresh replaces the slice, never mutates it.
type Provider struct {
	source Source
	cache  *cache.Cache
	bus    *events.Bus
	logger zerolog.Logger

	mu       sync.RWMutex
	snapshot []models.Event
	issues   []Issue
	loaded   bool
}

// NewProvider creates a snapshot provider over the given source. cache
// and bus may be nil.
func NewProvider(source Source, c *cache.Cache, bus *events.Bus, logger zerolog.Logger) *Provider {
	return &Provider{
		source: source,
		cache:  c,
		bus:    bus,
		logger: logger.With().Str("component", "schedule").Logger(),
	}
}

// Refresh loads, validates, and installs a new snapshot, bypassing the
// shared cache so upstream edits are picked up immediately. A load
// failure keeps the previous snapshot in place.
func (p *Provider) Refresh(ctx context.Context) error {
	return p.refresh(ctx, true)
}

func (p *Provider) refresh(ctx context.Context, force bool) error {
	docs, err := p.load(ctx, force)
	if err != nil {
		telemetry.ScheduleLoadErrorsTotal.Inc()
		p.logger.Warn().Err(err).Msg("schedule load failed, keeping previous snapshot")
		return err
	}

	validated, issues := Validate(docs, p.logger)

	p.mu.Lock()
	p.snapshot = validated
	p.issues = issues
	p.loaded = true
	p.mu.Unlock()

	p.logger.Info().
		Int("events", len(validated)).
		Int("issues", len(issues)).
		Msg("schedule snapshot installed")

	if p.bus != nil {
		p.bus.Publish(events.EventScheduleLoaded, events.Payload{
			"events": len(validated),
			"issues": len(issues),
		})
	}
	return nil
}

// load reads the schedule documents. Unless forced, a fresh cached copy
// is served first so replicas do not all hit the upstream source.
func (p *Provider) load(ctx context.Context, force bool) ([]EventDocument, error) {
	if p.cache != nil && !force {
		var docs []EventDocument
		if p.cache.GetSnapshot(ctx, &docs) {
			return docs, nil
		}
	}

	docs, err := p.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.SetSnapshot(ctx, docs); err != nil {
			p.logger.Debug().Err(err).Msg("snapshot cache write failed")
		}
	}
	return docs, nil
}

// Snapshot returns the current validated collection. Callers must treat
// the returned slice as read-only.
func (p *Provider) Snapshot(ctx context.Context) []models.Event {
	p.mu.RLock()
	loaded := p.loaded
	snap := p.snapshot
	p.mu.RUnlock()

	if !loaded {
		if err := p.refresh(ctx, false); err != nil {
			return nil
		}
		p.mu.RLock()
		snap = p.snapshot
		p.mu.RUnlock()
	}
	return snap
}

// Issues returns the data errors found during the last validation pass.
func (p *Provider) Issues() []Issue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Issue(nil), p.issues...)
}
