/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/playout"
	"github.com/polarisfm/polaris/internal/schedule"
	"github.com/polarisfm/polaris/internal/timesync"
)

type staticSource struct {
	docs []schedule.EventDocument
}

func (s *staticSource) Load(ctx context.Context) ([]schedule.EventDocument, error) {
	return s.docs, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	src := &staticSource{docs: []schedule.EventDocument{
		{
			ID:    "e1",
			Name:  "Morning Show",
			Start: "2026-03-01T08:00:00Z",
			End:   "2026-03-01T10:00:00Z",
			Tracks: []schedule.TrackDocument{
				{ID: "t1", Name: "Opener", Locator: "opener.mp3", DurationSeconds: 7200},
			},
		},
	}}

	provider := schedule.NewProvider(src, nil, nil, zerolog.Nop())
	clock := timesync.New(nil, nil, time.Hour, time.Second, zerolog.Nop())
	a := New(provider, clock, playout.NewState(), nil, zerolog.Nop())

	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]any
	if status := getJSON(t, srv.URL+"/healthz", &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestScheduleEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Events []schedule.EventDocument `json:"events"`
	}
	if status := getJSON(t, srv.URL+"/api/schedule", &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(body.Events) != 1 || body.Events[0].ID != "e1" {
		t.Fatalf("unexpected events: %+v", body.Events)
	}
}

func TestActiveEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]any
	status := getJSON(t, srv.URL+"/api/schedule/active?at=2026-03-01T09:00:00Z", &body)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["kind"] != "active" {
		t.Fatalf("expected active at 09:00, got %v", body["kind"])
	}

	status = getJSON(t, srv.URL+"/api/schedule/active?at=2026-03-01T07:00:00Z", &body)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["kind"] != "upcoming" {
		t.Fatalf("expected upcoming at 07:00, got %v", body["kind"])
	}

	if status := getJSON(t, srv.URL+"/api/schedule/active?at=banana", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timestamp, got %d", status)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Playout playout.Snapshot `json:"playout"`
		Clock   map[string]any   `json:"clock"`
	}
	if status := getJSON(t, srv.URL+"/api/status", &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body.Playout.Phase != playout.PhaseIdle {
		t.Fatalf("expected idle phase, got %v", body.Playout.Phase)
	}
	if body.Clock["anchored"] != false {
		t.Fatalf("expected unanchored clock, got %v", body.Clock)
	}
}

func TestClockOverrideEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/clock/override", "application/json",
		strings.NewReader(`{"timestamp":"2030-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]any
	getJSON(t, srv.URL+"/healthz", &body)
	if body["overridden"] != true {
		t.Fatalf("expected overridden clock, got %v", body)
	}
}
