/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"sync"

	"github.com/polarisfm/polaris/internal/models"
)

// Phase names the director's current position in its state machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseResolving Phase = "resolving"
	PhaseWaiting   Phase = "waiting"
	PhasePlaying   Phase = "playing"
	PhaseFallback  Phase = "fallback"
)

// Snapshot is a read-only copy of the playback state.
type Snapshot struct {
	Phase          Phase         `json:"phase"`
	ActiveEvent    *models.Event `json:"active_event,omitempty"`
	CurrentTrack   *models.Track `json:"current_track,omitempty"`
	FallbackActive bool          `json:"fallback_active"`
}

// State is the single-writer playback state record. Only the director
// mutates it; everything else reads copies via Snapshot. Event and track
// always transition as a coherent pair: changing the active event clears
// the current track first.
type State struct {
	mu             sync.RWMutex
	phase          Phase
	activeEvent    *models.Event
	currentTrack   *models.Track
	fallbackActive bool
}

// NewState creates an idle state record.
func NewState() *State {
	return &State{phase: PhaseIdle}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Phase:          s.phase,
		ActiveEvent:    s.activeEvent,
		CurrentTrack:   s.currentTrack,
		FallbackActive: s.fallbackActive,
	}
}

func (s *State) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// setActive installs a new active event (or nil), clearing the current
// track as part of the same update.
func (s *State) setActive(e *models.Event, fallback bool) {
	s.mu.Lock()
	s.activeEvent = e
	s.currentTrack = nil
	s.fallbackActive = fallback
	s.mu.Unlock()
}

func (s *State) setTrack(t *models.Track) {
	s.mu.Lock()
	s.currentTrack = t
	s.mu.Unlock()
}

// reset clears everything back to idle.
func (s *State) reset() {
	s.mu.Lock()
	s.phase = PhaseIdle
	s.activeEvent = nil
	s.currentTrack = nil
	s.fallbackActive = false
	s.mu.Unlock()
}
