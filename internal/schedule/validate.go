/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/models"
	"github.com/polarisfm/polaris/internal/telemetry"
)

// IssueKind classifies a data error found during validation.
type IssueKind string

const (
	IssueBadTimestamp   IssueKind = "bad_timestamp"
	IssueInvertedWindow IssueKind = "inverted_window"
	IssueBadDuration    IssueKind = "bad_duration"
	IssueEmptyTracks    IssueKind = "empty_tracks"
	IssueMissingLocator IssueKind = "missing_locator"
)

// Issue records one per-item data error. Issues never abort a resolve;
// the offending event (or track property) is skipped and the rest of the
// collection stands.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	EventID string    `json:"event_id"`
	Track   string    `json:"track,omitempty"`
	Detail  string    `json:"detail"`
}

// Validate converts wire documents into the typed, playable collection.
// Events with unparseable timestamps or inverted windows are excluded;
// tracks with zero or missing durations are kept (the cursor skips them)
// but recorded as issues. Source order is preserved.
func Validate(docs []EventDocument, logger zerolog.Logger) ([]models.Event, []Issue) {
	out := make([]models.Event, 0, len(docs))
	var issues []Issue

	for i := range docs {
		doc := &docs[i]
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}

		start, err := ParseTimestamp(doc.Start)
		if err != nil {
			issues = append(issues, Issue{Kind: IssueBadTimestamp, EventID: id, Detail: err.Error()})
			telemetry.ScheduleInvalidEventsTotal.Inc()
			logger.Warn().Str("event", id).Str("start", doc.Start).Msg("event excluded: unparseable start")
			continue
		}
		end, err := ParseTimestamp(doc.End)
		if err != nil {
			issues = append(issues, Issue{Kind: IssueBadTimestamp, EventID: id, Detail: err.Error()})
			telemetry.ScheduleInvalidEventsTotal.Inc()
			logger.Warn().Str("event", id).Str("end", doc.End).Msg("event excluded: unparseable end")
			continue
		}
		if !end.After(start) {
			issues = append(issues, Issue{Kind: IssueInvertedWindow, EventID: id, Detail: "end <= start"})
			telemetry.ScheduleInvalidEventsTotal.Inc()
			logger.Warn().Str("event", id).Time("start", start).Time("end", end).Msg("event excluded: inverted window")
			continue
		}

		event := models.Event{
			ID:       id,
			Name:     doc.Name,
			Artist:   doc.Artist,
			StartsAt: start,
			EndsAt:   end,
			Tracks:   make([]models.Track, 0, len(doc.Tracks)),
		}

		for pos := range doc.Tracks {
			td := &doc.Tracks[pos]
			trackID := td.ID
			if trackID == "" {
				trackID = uuid.NewString()
			}
			if td.Locator == "" {
				issues = append(issues, Issue{Kind: IssueMissingLocator, EventID: id, Track: td.Name, Detail: "locator is empty"})
				logger.Warn().Str("event", id).Str("track", td.Name).Msg("track has no locator")
			}
			if td.DurationSeconds <= 0 {
				issues = append(issues, Issue{Kind: IssueBadDuration, EventID: id, Track: td.Name, Detail: "duration missing or zero"})
				logger.Warn().Str("event", id).Str("track", td.Name).Msg("track duration unknown, cursor will skip it")
			}
			event.Tracks = append(event.Tracks, models.Track{
				ID:       trackID,
				EventID:  id,
				Position: pos,
				Name:     td.Name,
				Locator:  td.Locator,
				Duration: time.Duration(td.DurationSeconds * float64(time.Second)),
			})
		}

		if len(event.Tracks) == 0 {
			issues = append(issues, Issue{Kind: IssueEmptyTracks, EventID: id, Detail: "event has no tracks"})
			logger.Warn().Str("event", id).Msg("event has an empty track list")
		}

		out = append(out, event)
	}

	return out, issues
}
