/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"errors"
	"time"

	"github.com/polarisfm/polaris/internal/models"
)

// ErrExhausted reports that an event's audio content is fully consumed
// relative to the elapsed time, i.e. no track can host the offset.
var ErrExhausted = errors.New("event content exhausted")

// Locate maps elapsed time within an event to (track index, offset into
// that track) by walking cumulative track durations. Tracks with unknown
// (zero or negative) durations are stepped over without consuming any of
// the elapsed time. Negative elapsed clamps to zero.
func Locate(e *models.Event, elapsed time.Duration) (int, time.Duration, error) {
	remaining := elapsed
	if remaining < 0 {
		remaining = 0
	}

	for i := range e.Tracks {
		d := e.Tracks[i].Duration
		if d <= 0 {
			continue
		}
		if remaining < d {
			return i, remaining, nil
		}
		remaining -= d
	}

	return 0, 0, ErrExhausted
}
