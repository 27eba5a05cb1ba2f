/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"time"

	"github.com/polarisfm/polaris/internal/models"
)

// SelectionKind classifies a resolve outcome.
type SelectionKind int

const (
	// SelectionNone means nothing is active and nothing is upcoming.
	SelectionNone SelectionKind = iota
	// SelectionUpcoming means the soonest event has not started yet.
	SelectionUpcoming
	// SelectionActive means an event window contains the given instant.
	SelectionActive
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionUpcoming:
		return "upcoming"
	case SelectionActive:
		return "active"
	default:
		return "none"
	}
}

// Selection is the result of one resolve pass.
type Selection struct {
	Kind     SelectionKind
	Event    *models.Event
	StartsIn time.Duration // only meaningful for SelectionUpcoming
}

// Select picks the single relevant event for the given instant. Pure and
// stable: identical inputs always yield identical output.
//
// Invalid events (end <= start) are never returned. An event is active
// while start <= now < effective end, where the effective end accounts
// for the event's total track runtime. When several windows overlap at
// the same instant the first in source order wins; that is a documented
// deterministic tie-break for malformed schedules, not a priority rule.
func Select(eventsList []models.Event, now time.Time) Selection {
	var (
		upcoming *models.Event
		soonest  time.Duration
	)

	for i := range eventsList {
		e := &eventsList[i]
		if !e.Valid() {
			continue
		}

		if !now.Before(e.StartsAt) && now.Before(e.EffectiveEnd()) {
			return Selection{Kind: SelectionActive, Event: e}
		}

		if e.StartsAt.After(now) {
			wait := e.StartsAt.Sub(now)
			if upcoming == nil || wait < soonest {
				upcoming = e
				soonest = wait
			}
		}
	}

	if upcoming != nil {
		return Selection{Kind: SelectionUpcoming, Event: upcoming, StartsIn: soonest}
	}
	return Selection{Kind: SelectionNone}
}
