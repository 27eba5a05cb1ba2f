/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"
	"time"

	"github.com/polarisfm/polaris/internal/models"
)

// EventDocument is the wire form of an event as carried by schedule
// files and the export surface. Timestamps stay strings here; the
// validation pass is the only place they are parsed.
type EventDocument struct {
	ID     string          `json:"id" yaml:"id"`
	Name   string          `json:"name" yaml:"name"`
	Artist string          `json:"artist,omitempty" yaml:"artist,omitempty"`
	Start  string          `json:"start" yaml:"start"`
	End    string          `json:"end" yaml:"end"`
	Tracks []TrackDocument `json:"tracks" yaml:"tracks"`
}

// TrackDocument is the wire form of a track.
type TrackDocument struct {
	ID              string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name            string  `json:"name" yaml:"name"`
	Locator         string  `json:"locator" yaml:"locator"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
}

// timestampLayouts are tried in order. Layouts without a zone designator
// are interpreted as UTC.
var timestampLayouts = []struct {
	layout  string
	noZone  bool
}{
	{time.RFC3339Nano, false},
	{time.RFC3339, false},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
}

// ParseTimestamp parses an ISO-8601 timestamp, normalizing to UTC.
// Explicit offsets are honored; an absent offset is assumed UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	for _, candidate := range timestampLayouts {
		var (
			ts  time.Time
			err error
		)
		if candidate.noZone {
			ts, err = time.ParseInLocation(candidate.layout, raw, time.UTC)
		} else {
			ts, err = time.Parse(candidate.layout, raw)
		}
		if err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// Document converts a validated event back to its wire form. Timestamps
// are rendered as RFC 3339 UTC.
func Document(e *models.Event) EventDocument {
	doc := EventDocument{
		ID:     e.ID,
		Name:   e.Name,
		Artist: e.Artist,
		Start:  e.StartsAt.UTC().Format(time.RFC3339),
		End:    e.EndsAt.UTC().Format(time.RFC3339),
		Tracks: make([]TrackDocument, 0, len(e.Tracks)),
	}
	for i := range e.Tracks {
		t := &e.Tracks[i]
		doc.Tracks = append(doc.Tracks, TrackDocument{
			ID:              t.ID,
			Name:            t.Name,
			Locator:         t.Locator,
			DurationSeconds: t.DurationSeconds(),
		})
	}
	return doc
}

// Documents converts a validated collection to wire form.
func Documents(eventsList []models.Event) []EventDocument {
	docs := make([]EventDocument, 0, len(eventsList))
	for i := range eventsList {
		docs = append(docs, Document(&eventsList[i]))
	}
	return docs
}
