/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"errors"
	"testing"
	"time"

	"github.com/polarisfm/polaris/internal/models"
)

func TestLocate(t *testing.T) {
	e := mkEvent("e", baseTime, baseTime.Add(time.Hour), 180, 240, 60)

	tests := []struct {
		name       string
		elapsed    time.Duration
		wantIndex  int
		wantOffset time.Duration
	}{
		{"start", 0, 0, 0},
		{"mid first track", 90 * time.Second, 0, 90 * time.Second},
		{"exact first boundary", 180 * time.Second, 1, 0},
		{"mid second track", 200 * time.Second, 1, 20 * time.Second},
		{"mid last track", 450 * time.Second, 2, 30 * time.Second},
		{"negative clamps to zero", -5 * time.Second, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, offset, err := Locate(&e, tt.elapsed)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if idx != tt.wantIndex || offset != tt.wantOffset {
				t.Fatalf("got (%d, %v), want (%d, %v)", idx, offset, tt.wantIndex, tt.wantOffset)
			}
		})
	}
}

func TestLocateExhausted(t *testing.T) {
	e := mkEvent("e", baseTime, baseTime.Add(time.Hour), 180, 240)

	for _, elapsed := range []time.Duration{420 * time.Second, time.Hour} {
		if _, _, err := Locate(&e, elapsed); !errors.Is(err, ErrExhausted) {
			t.Fatalf("elapsed %v: expected ErrExhausted, got %v", elapsed, err)
		}
	}
}

func TestLocateSkipsUnknownDurations(t *testing.T) {
	e := models.Event{
		ID:       "e",
		StartsAt: baseTime,
		EndsAt:   baseTime.Add(time.Hour),
		Tracks: []models.Track{
			{ID: "a", Duration: 0},
			{ID: "b", Duration: 120 * time.Second},
			{ID: "c", Duration: -1},
			{ID: "d", Duration: 60 * time.Second},
		},
	}

	// Zero-duration tracks consume no elapsed time.
	idx, offset, err := Locate(&e, 30*time.Second)
	if err != nil || idx != 1 || offset != 30*time.Second {
		t.Fatalf("got (%d, %v, %v), want (1, 30s, nil)", idx, offset, err)
	}

	idx, offset, err = Locate(&e, 130*time.Second)
	if err != nil || idx != 3 || offset != 10*time.Second {
		t.Fatalf("got (%d, %v, %v), want (3, 10s, nil)", idx, offset, err)
	}
}

func TestLocateAllTracksUnknown(t *testing.T) {
	e := models.Event{
		ID:       "e",
		StartsAt: baseTime,
		EndsAt:   baseTime.Add(time.Hour),
		Tracks:   []models.Track{{ID: "a"}, {ID: "b"}},
	}

	if _, _, err := Locate(&e, 0); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

// The cursor position must advance monotonically with elapsed time.
func TestLocateMonotonic(t *testing.T) {
	e := mkEvent("e", baseTime, baseTime.Add(time.Hour), 45, 90, 30, 120)

	var prevIdx int
	var prevOffset time.Duration
	for elapsed := time.Duration(0); elapsed < e.TotalRuntime(); elapsed += 7 * time.Second {
		idx, offset, err := Locate(&e, elapsed)
		if err != nil {
			t.Fatalf("elapsed %v: unexpected error %v", elapsed, err)
		}
		if idx < prevIdx || (idx == prevIdx && offset < prevOffset) {
			t.Fatalf("cursor moved backwards at elapsed %v: (%d, %v) after (%d, %v)",
				elapsed, idx, offset, prevIdx, prevOffset)
		}
		prevIdx, prevOffset = idx, offset
	}
}
