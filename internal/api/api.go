/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the read-mostly HTTP surface: health, playout
// status, and the validated schedule.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/playout"
	"github.com/polarisfm/polaris/internal/schedule"
	"github.com/polarisfm/polaris/internal/telemetry"
	"github.com/polarisfm/polaris/internal/timesync"
	"github.com/polarisfm/polaris/internal/version"
)

// Leadership is the slice of the election the API needs.
type Leadership interface {
	IsLeader() bool
}

// API serves the HTTP endpoints.
type API struct {
	provider *schedule.Provider
	clock    *timesync.Service
	state    *playout.State
	leader   Leadership // nil when leader election is disabled
	logger   zerolog.Logger
}

func New(provider *schedule.Provider, clock *timesync.Service, state *playout.State, leader Leadership, logger zerolog.Logger) *API {
	return &API{
		provider: provider,
		clock:    clock,
		state:    state,
		leader:   leader,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Router builds the chi router with the standard middleware chain.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.MetricsMiddleware)

	r.Get("/healthz", a.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", a.handleStatus)
		r.Get("/schedule", a.handleSchedule)
		r.Get("/schedule/active", a.handleActive)
		r.Post("/schedule/reload", a.handleReload)
		r.Post("/clock/override", a.handleClockOverride)
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	anchored, overridden := a.clock.Anchored()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    version.Version,
		"anchored":   anchored,
		"overridden": overridden,
	})
}

// handleStatus reports the playback phase, the current event/track, and
// the clock estimate.
func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	anchored, overridden := a.clock.Anchored()

	resp := map[string]any{
		"playout": a.state.Snapshot(),
		"clock": map[string]any{
			"now":        a.clock.Now().UTC().Format(time.RFC3339Nano),
			"anchored":   anchored,
			"overridden": overridden,
		},
	}
	if a.leader != nil {
		resp["leader"] = a.leader.IsLeader()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSchedule returns the validated schedule snapshot plus any
// validation issues recorded during the last load.
func (a *API) handleSchedule(w http.ResponseWriter, r *http.Request) {
	snapshot := a.provider.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"events": schedule.Documents(snapshot),
		"issues": a.provider.Issues(),
	})
}

// handleActive evaluates event selection at an arbitrary instant,
// defaulting to now. Useful for previewing what would play.
func (a *API) handleActive(w http.ResponseWriter, r *http.Request) {
	at := a.clock.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := schedule.ParseTimestamp(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at timestamp")
			return
		}
		at = parsed
	}

	sel := playout.Select(a.provider.Snapshot(r.Context()), at)
	resp := map[string]any{
		"at":   at.UTC().Format(time.RFC3339Nano),
		"kind": sel.Kind.String(),
	}
	if sel.Event != nil {
		doc := schedule.Document(sel.Event)
		resp["event"] = doc
	}
	if sel.Kind == playout.SelectionUpcoming {
		resp["starts_in_seconds"] = sel.StartsIn.Seconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := a.provider.Refresh(r.Context()); err != nil {
		a.logger.Warn().Err(err).Msg("manual schedule reload failed")
		writeError(w, http.StatusBadGateway, "schedule reload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": len(a.provider.Snapshot(r.Context())),
		"issues": len(a.provider.Issues()),
	})
}

// handleClockOverride pins the clock to a fixed instant for dry runs.
func (a *API) handleClockOverride(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Timestamp == "" {
		writeError(w, http.StatusBadRequest, "timestamp required")
		return
	}

	ts, err := schedule.ParseTimestamp(body.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timestamp")
		return
	}

	a.clock.Override(ts)
	a.logger.Warn().Time("timestamp", ts).Msg("clock override engaged")
	writeJSON(w, http.StatusOK, map[string]any{"now": a.clock.Now().UTC().Format(time.RFC3339Nano)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
