/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Player starts and stops audio output for local clips. The director
// times out clip durations itself; Play only has to begin audible output
// at the requested offset.
type Player interface {
	Play(ctx context.Context, path string, offset time.Duration) error
	Stop() error
}

// Manager owns the single playout pipeline for this instance.
type Manager struct {
	playerBin string
	logger    zerolog.Logger

	mu       sync.Mutex
	pipeline *Pipeline
}

// NewManager creates a playout manager.
func NewManager(playerBin string, logger zerolog.Logger) *Manager {
	return &Manager{playerBin: playerBin, logger: logger}
}

// Play stops any current output and starts the given clip.
func (m *Manager) Play(ctx context.Context, path string, offset time.Duration) error {
	m.mu.Lock()
	pipeline := m.pipeline
	if pipeline == nil {
		pipeline = NewPipeline(m.playerBin, m.logger)
		m.pipeline = pipeline
	}
	m.mu.Unlock()

	if err := pipeline.Stop(); err != nil {
		m.logger.Debug().Err(err).Msg("stop before play failed")
	}
	return pipeline.Start(ctx, path, offset)
}

// Stop halts audio output.
func (m *Manager) Stop() error {
	m.mu.Lock()
	pipeline := m.pipeline
	m.mu.Unlock()

	if pipeline == nil {
		return nil
	}
	return pipeline.Stop()
}

// Shutdown stops playback and drops the pipeline.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	pipeline := m.pipeline
	m.pipeline = nil
	m.mu.Unlock()

	if pipeline == nil {
		return nil
	}
	return pipeline.Stop()
}
