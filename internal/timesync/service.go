/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timesync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/events"
	"github.com/polarisfm/polaris/internal/telemetry"
)

// Service maintains a monotonic estimate of current UTC time anchored to a
// periodically refreshed external reading. Between refreshes elapsed time
// is derived purely from the local monotonic clock, so Now never blocks,
// never fails, and never jumps backwards mid-derivation.
type Service struct {
	source   Source
	bus      *events.Bus
	logger   zerolog.Logger
	interval time.Duration
	timeout  time.Duration

	mu         sync.RWMutex
	base       time.Time // authoritative UTC at anchor time
	anchoredAt time.Time // local reading (monotonic) at anchor time
	anchored   bool
	overridden bool

	initOnce sync.Once
	ready    chan struct{}
}

// New constructs the time sync service. A nil source is allowed; the
// service then anchors to the local wall clock on initialization.
func New(source Source, bus *events.Bus, interval, timeout time.Duration, logger zerolog.Logger) *Service {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		source:   source,
		bus:      bus,
		logger:   logger.With().Str("component", "timesync").Logger(),
		interval: interval,
		timeout:  timeout,
		ready:    make(chan struct{}),
	}
}

// Now returns the current estimated UTC time. Falls back to the local
// wall clock when no anchor has been established yet.
func (s *Service) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.anchored {
		return time.Now().UTC()
	}
	return s.base.Add(time.Since(s.anchoredAt))
}

// EnsureInitialized blocks until at least one anchor, real or fallback,
// has been established. The first caller performs a single bounded fetch;
// on failure the anchor degrades to the local wall clock so this always
// completes.
func (s *Service) EnsureInitialized(ctx context.Context) error {
	s.initOnce.Do(func() {
		defer close(s.ready)
		s.refresh(ctx, true)
	})

	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Override anchors the service directly to the supplied timestamp,
// bypassing network fetch entirely. Subsequent periodic refreshes are
// suppressed; intended for deterministic testing and previews.
func (s *Service) Override(ts time.Time) {
	s.mu.Lock()
	s.base = ts.UTC()
	s.anchoredAt = time.Now()
	s.anchored = true
	s.overridden = true
	s.mu.Unlock()

	s.initOnce.Do(func() { close(s.ready) })
	s.notifyAnchor(ts.UTC(), "override")
}

// Anchored reports whether a time base has been established and whether
// it came from an override.
func (s *Service) Anchored() (anchored, overridden bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anchored, s.overridden
}

// Run re-anchors on a fixed interval until context cancellation. A failed
// re-fetch leaves the previous anchor extrapolating silently.
func (s *Service) Run(ctx context.Context) error {
	if err := s.EnsureInitialized(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("time sync loop started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("time sync loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.mu.RLock()
			overridden := s.overridden
			s.mu.RUnlock()
			if overridden {
				continue
			}
			s.refresh(ctx, false)
		}
	}
}

// refresh attempts one fetch and re-anchors on success. When initial is
// set, a failure anchors to the local wall clock instead so that
// initialization always completes.
func (s *Service) refresh(ctx context.Context, initial bool) {
	if s.source != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
		ts, err := s.source.FetchUTC(fetchCtx)
		cancel()
		if err == nil {
			s.anchor(ts, "source")
			return
		}
		telemetry.TimeSyncFailuresTotal.Inc()
		s.logger.Warn().Err(err).Bool("initial", initial).Msg("time fetch failed")
	}

	if !initial {
		// Keep extrapolating from the last good anchor.
		return
	}

	s.anchor(time.Now().UTC(), "local_fallback")
}

func (s *Service) anchor(ts time.Time, origin string) {
	s.mu.Lock()
	if s.overridden {
		// A fetch that was already in flight when Override landed must
		// not displace the pinned base.
		s.mu.Unlock()
		return
	}
	s.base = ts
	s.anchoredAt = time.Now()
	s.anchored = true
	s.mu.Unlock()

	s.logger.Debug().Time("base", ts).Str("origin", origin).Msg("time anchor updated")
	s.notifyAnchor(ts, origin)
}

func (s *Service) notifyAnchor(ts time.Time, origin string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.EventAnchorUpdated, events.Payload{
		"base":   ts,
		"origin": origin,
	})
}
