/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-03-01T08:00:00Z", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		{"2026-03-01T08:00:00.250Z", time.Date(2026, 3, 1, 8, 0, 0, 250000000, time.UTC)},
		{"2026-03-01T10:00:00+02:00", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		// No zone designator: assumed UTC.
		{"2026-03-01T08:00:00", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		{"2026-03-01 08:00:00", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.True(t, got.Equal(tt.want), "%s: got %v, want %v", tt.raw, got, tt.want)
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-time", "03/01/2026", "2026-13-40T99:00:00Z"} {
		_, err := ParseTimestamp(raw)
		assert.Error(t, err, raw)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	docs := []EventDocument{
		doc("e1", "Evening Mix", "2026-03-01T20:00:00Z", "2026-03-01T22:00:00Z",
			TrackDocument{ID: "t1", Name: "Set One", Locator: "s3://audio/set1.mp3", DurationSeconds: 3600},
			TrackDocument{ID: "t2", Name: "Set Two", Locator: "set2.mp3", DurationSeconds: 1800},
		),
	}

	validated, issues := Validate(docs, zerolog.Nop())
	require.Empty(t, issues)

	back := Documents(validated)
	require.Len(t, back, 1)
	assert.Equal(t, docs[0].ID, back[0].ID)
	assert.Equal(t, docs[0].Start, back[0].Start)
	assert.Equal(t, docs[0].End, back[0].End)
	require.Len(t, back[0].Tracks, 2)
	assert.Equal(t, docs[0].Tracks[0], back[0].Tracks[0])
	assert.Equal(t, docs[0].Tracks[1], back[0].Tracks[1])
}

func TestFileSourceReadsJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "schedule.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[
		{"id":"e1","name":"Show","start":"2026-03-01T08:00:00Z","end":"2026-03-01T10:00:00Z",
		 "tracks":[{"name":"a","locator":"a.mp3","duration_seconds":60}]}
	]`), 0o644))

	yamlPath := filepath.Join(dir, "schedule.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- id: e1
  name: Show
  start: "2026-03-01T08:00:00Z"
  end: "2026-03-01T10:00:00Z"
  tracks:
    - name: a
      locator: a.mp3
      duration_seconds: 60
`), 0o644))

	for _, path := range []string{jsonPath, yamlPath} {
		docs, err := NewFileSource(path).Load(t.Context())
		require.NoError(t, err, path)
		require.Len(t, docs, 1, path)
		assert.Equal(t, "e1", docs[0].ID)
		require.Len(t, docs[0].Tracks, 1)
		assert.Equal(t, 60.0, docs[0].Tracks[0].DurationSeconds)
	}
}
