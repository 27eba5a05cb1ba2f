/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"testing"
	"time"

	"github.com/polarisfm/polaris/internal/models"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mkEvent(id string, start, end time.Time, trackSeconds ...int) models.Event {
	e := models.Event{ID: id, Name: id, StartsAt: start, EndsAt: end}
	for i, secs := range trackSeconds {
		e.Tracks = append(e.Tracks, models.Track{
			ID:       id + "-t" + string(rune('a'+i)),
			EventID:  id,
			Position: i,
			Name:     "track",
			Locator:  "track.mp3",
			Duration: time.Duration(secs) * time.Second,
		})
	}
	return e
}

func TestSelectActive(t *testing.T) {
	schedule := []models.Event{
		mkEvent("past", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Hour), 3600),
		mkEvent("current", baseTime.Add(-10*time.Minute), baseTime.Add(20*time.Minute), 1800),
		mkEvent("later", baseTime.Add(time.Hour), baseTime.Add(2*time.Hour), 3600),
	}

	sel := Select(schedule, baseTime)
	if sel.Kind != SelectionActive {
		t.Fatalf("expected active, got %v", sel.Kind)
	}
	if sel.Event.ID != "current" {
		t.Fatalf("expected current, got %s", sel.Event.ID)
	}
}

func TestSelectUpcoming(t *testing.T) {
	schedule := []models.Event{
		mkEvent("far", baseTime.Add(3*time.Hour), baseTime.Add(4*time.Hour), 3600),
		mkEvent("near", baseTime.Add(time.Hour), baseTime.Add(2*time.Hour), 3600),
	}

	sel := Select(schedule, baseTime)
	if sel.Kind != SelectionUpcoming {
		t.Fatalf("expected upcoming, got %v", sel.Kind)
	}
	if sel.Event.ID != "near" {
		t.Fatalf("expected near, got %s", sel.Event.ID)
	}
	if sel.StartsIn != time.Hour {
		t.Fatalf("expected starts_in 1h, got %v", sel.StartsIn)
	}
}

func TestSelectUpcomingTieBreaksBySourceOrder(t *testing.T) {
	start := baseTime.Add(time.Hour)
	schedule := []models.Event{
		mkEvent("first", start, start.Add(time.Hour), 3600),
		mkEvent("second", start, start.Add(time.Hour), 3600),
	}

	sel := Select(schedule, baseTime)
	if sel.Event.ID != "first" {
		t.Fatalf("expected first in source order, got %s", sel.Event.ID)
	}
}

func TestSelectNone(t *testing.T) {
	schedule := []models.Event{
		mkEvent("past", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Hour), 3600),
	}

	if sel := Select(schedule, baseTime); sel.Kind != SelectionNone {
		t.Fatalf("expected none, got %v", sel.Kind)
	}
	if sel := Select(nil, baseTime); sel.Kind != SelectionNone {
		t.Fatalf("expected none for empty schedule, got %v", sel.Kind)
	}
}

func TestSelectEffectiveEndTruncatesWindow(t *testing.T) {
	// One hour slot but only 10 minutes of audio: the event stops being
	// active once its content runs out.
	e := mkEvent("short", baseTime, baseTime.Add(time.Hour), 300, 300)
	schedule := []models.Event{e}

	if sel := Select(schedule, baseTime.Add(9*time.Minute)); sel.Kind != SelectionActive {
		t.Fatalf("expected active inside content window, got %v", sel.Kind)
	}
	if sel := Select(schedule, baseTime.Add(10*time.Minute)); sel.Kind != SelectionNone {
		t.Fatalf("expected none at effective end, got %v", sel.Kind)
	}
	if sel := Select(schedule, baseTime.Add(30*time.Minute)); sel.Kind != SelectionNone {
		t.Fatalf("expected none past effective end, got %v", sel.Kind)
	}
}

func TestSelectBoundaryInstants(t *testing.T) {
	e := mkEvent("e", baseTime, baseTime.Add(time.Hour), 3600)
	schedule := []models.Event{e}

	if sel := Select(schedule, baseTime); sel.Kind != SelectionActive {
		t.Fatalf("start instant should be active, got %v", sel.Kind)
	}
	if sel := Select(schedule, baseTime.Add(time.Hour)); sel.Kind != SelectionNone {
		t.Fatalf("end instant should not be active, got %v", sel.Kind)
	}
}

func TestSelectSkipsInvalidEvents(t *testing.T) {
	schedule := []models.Event{
		mkEvent("inverted", baseTime, baseTime.Add(-time.Hour), 3600),
		mkEvent("ok", baseTime.Add(-time.Minute), baseTime.Add(time.Hour), 3600),
	}

	sel := Select(schedule, baseTime)
	if sel.Kind != SelectionActive || sel.Event.ID != "ok" {
		t.Fatalf("expected ok active, got %v %v", sel.Kind, sel.Event)
	}
}

func TestSelectOverlapFirstInSourceOrderWins(t *testing.T) {
	schedule := []models.Event{
		mkEvent("a", baseTime.Add(-time.Minute), baseTime.Add(time.Hour), 7200),
		mkEvent("b", baseTime.Add(-time.Minute), baseTime.Add(time.Hour), 7200),
	}

	for i := 0; i < 5; i++ {
		sel := Select(schedule, baseTime)
		if sel.Event.ID != "a" {
			t.Fatalf("pass %d: expected a, got %s", i, sel.Event.ID)
		}
	}
}

func TestSelectIsPure(t *testing.T) {
	schedule := []models.Event{
		mkEvent("x", baseTime.Add(-time.Minute), baseTime.Add(time.Hour), 3600),
		mkEvent("y", baseTime.Add(2*time.Hour), baseTime.Add(3*time.Hour), 3600),
	}

	first := Select(schedule, baseTime)
	second := Select(schedule, baseTime)
	if first.Kind != second.Kind || first.Event.ID != second.Event.ID {
		t.Fatalf("selection not stable: %v vs %v", first, second)
	}
}
