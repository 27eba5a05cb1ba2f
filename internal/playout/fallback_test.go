/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/models"
)

func TestResolveFallbackExplicitWins(t *testing.T) {
	explicit := mkEvent("explicit", baseTime, baseTime.Add(time.Hour), 60)
	schedule := []models.Event{mkEvent("default", baseTime, baseTime.Add(time.Hour), 60)}

	got := ResolveFallback(&explicit, schedule, "default", zerolog.Nop())
	if got == nil || got.ID != "explicit" {
		t.Fatalf("expected explicit payload, got %v", got)
	}
}

func TestResolveFallbackExplicitWithoutTracksDisables(t *testing.T) {
	explicit := models.Event{ID: "empty", StartsAt: baseTime, EndsAt: baseTime.Add(time.Hour)}
	schedule := []models.Event{mkEvent("default", baseTime, baseTime.Add(time.Hour), 60)}

	if got := ResolveFallback(&explicit, schedule, "", zerolog.Nop()); got != nil {
		t.Fatalf("trackless explicit payload must disable fallback, got %v", got)
	}
}

func TestResolveFallbackByConfiguredID(t *testing.T) {
	schedule := []models.Event{
		mkEvent("a", baseTime, baseTime.Add(time.Hour), 60),
		mkEvent("filler", baseTime, baseTime.Add(time.Hour), 60),
	}

	got := ResolveFallback(nil, schedule, "filler", zerolog.Nop())
	if got == nil || got.ID != "filler" {
		t.Fatalf("expected filler, got %v", got)
	}
}

func TestResolveFallbackByNameCaseInsensitive(t *testing.T) {
	e := mkEvent("x", baseTime, baseTime.Add(time.Hour), 60)
	e.Name = "DEFAULT"
	schedule := []models.Event{mkEvent("a", baseTime, baseTime.Add(time.Hour), 60), e}

	got := ResolveFallback(nil, schedule, "", zerolog.Nop())
	if got == nil || got.ID != "x" {
		t.Fatalf("expected name match, got %v", got)
	}
}

func TestResolveFallbackMissingIDFallsThroughToName(t *testing.T) {
	e := mkEvent("x", baseTime, baseTime.Add(time.Hour), 60)
	e.Name = "default"
	schedule := []models.Event{e}

	got := ResolveFallback(nil, schedule, "no-such-id", zerolog.Nop())
	if got == nil || got.ID != "x" {
		t.Fatalf("expected name match after id miss, got %v", got)
	}
}

func TestResolveFallbackNothingResolves(t *testing.T) {
	schedule := []models.Event{mkEvent("a", baseTime, baseTime.Add(time.Hour), 60)}

	if got := ResolveFallback(nil, schedule, "", zerolog.Nop()); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
