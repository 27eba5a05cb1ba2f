package models

import (
	"time"
)

// Event is a time-boxed program slot with an ordered track list.
// StartsAt/EndsAt are UTC; an event is only playable when EndsAt > StartsAt.
type Event struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"index" json:"name"`
	Artist    string    `json:"artist,omitempty"`
	StartsAt  time.Time `gorm:"index" json:"start"`
	EndsAt    time.Time `json:"end"`
	Tracks    []Track   `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"tracks"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Valid reports whether the event window is well formed.
func (e *Event) Valid() bool {
	return !e.StartsAt.IsZero() && !e.EndsAt.IsZero() && e.EndsAt.After(e.StartsAt)
}

// TotalRuntime sums the valid track durations. Tracks with zero or
// negative duration contribute nothing.
func (e *Event) TotalRuntime() time.Duration {
	var total time.Duration
	for i := range e.Tracks {
		if d := e.Tracks[i].Duration; d > 0 {
			total += d
		}
	}
	return total
}

// EffectiveEnd is the earlier of the declared end and the point at which
// the event's audio content runs out. Playback must never outlast it.
func (e *Event) EffectiveEnd() time.Time {
	slot := e.EndsAt.Sub(e.StartsAt)
	runtime := e.TotalRuntime()
	if runtime < slot {
		return e.StartsAt.Add(runtime)
	}
	return e.EndsAt
}

// Track is one playable item inside an event. Locator is opaque to the
// core; the audio fetcher decides how to resolve it. Duration <= 0 means
// the duration is unknown and the track is skipped by cursor logic.
type Track struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   string        `gorm:"type:uuid;index" json:"-"`
	Position  int           `gorm:"index" json:"-"`
	Name      string        `json:"name"`
	Locator   string        `json:"locator"`
	Duration  time.Duration `json:"-"`
	CreatedAt time.Time     `json:"-"`
	UpdatedAt time.Time     `json:"-"`
}

// DurationSeconds exposes the duration the way schedule documents carry it.
func (t *Track) DurationSeconds() float64 {
	return t.Duration.Seconds()
}
