/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/events"
	"github.com/polarisfm/polaris/internal/models"
	"github.com/polarisfm/polaris/internal/telemetry"
)

// playableEpsilon is the smallest in-track remainder worth starting the
// player for. A resume offset landing closer than this to the end of a
// track skips the track instead.
const playableEpsilon = time.Second

// Clock supplies the current UTC estimate for all scheduling decisions.
type Clock interface {
	Now() time.Time
}

// Clip is a fetched, locally playable audio resource.
type Clip struct {
	Path     string
	Duration time.Duration
}

// Fetcher resolves a track locator into a playable clip. Failure aborts
// only the current event attempt, never the loop.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (Clip, error)
}

// Snapshots supplies the newest validated schedule collection. The
// director treats each returned slice as immutable for one resolve cycle.
type Snapshots interface {
	Snapshot(ctx context.Context) []models.Event
}

// Director drives schedule execution: it repeatedly resolves the
// relevant event, locates the resume point, sequences through tracks,
// and emits change notifications. One logical sequential control flow;
// all waits are cancellable via Stop.
type Director struct {
	snapshots     Snapshots
	clock         Clock
	fetcher       Fetcher
	player        Player
	bus           *events.Bus
	logger        zerolog.Logger
	state         *State
	fallback      *models.Event
	checkInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Announcement dedupe state, touched only by the run goroutine.
	lastActiveID string
	lastFallback bool
	lastTrackID  string
}

// NewDirector creates a playout director. fallback may be nil, which
// makes "nothing relevant" a terminal stop.
func NewDirector(snapshots Snapshots, clock Clock, fetcher Fetcher, player Player, fallback *models.Event, checkInterval time.Duration, bus *events.Bus, logger zerolog.Logger) *Director {
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}
	return &Director{
		snapshots:     snapshots,
		clock:         clock,
		fetcher:       fetcher,
		player:        player,
		bus:           bus,
		logger:        logger.With().Str("component", "director").Logger(),
		state:         NewState(),
		fallback:      fallback,
		checkInterval: checkInterval,
	}
}

// State exposes the read-only playback state record.
func (d *Director) State() *State {
	return d.state
}

// Start launches the playback loop. Starting while already running is a
// no-op, not a second parallel loop.
func (d *Director) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		d.logger.Debug().Msg("director already running, ignoring start")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.wg.Add(1)
	go d.run(runCtx)
}

// Stop aborts any pending wait, releases audio resources, and blocks
// until the loop has fully unwound.
func (d *Director) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

func (d *Director) run(ctx context.Context) {
	defer d.wg.Done()
	defer d.shutdown()

	d.logger.Info().Msg("playout director started")

	for {
		if ctx.Err() != nil {
			return
		}

		d.state.setPhase(PhaseResolving)
		snapshot := d.snapshots.Snapshot(ctx)
		now := d.clock.Now()
		sel := Select(snapshot, now)

		switch sel.Kind {
		case SelectionNone:
			if d.fallback == nil {
				telemetry.ResolveCyclesTotal.WithLabelValues("none").Inc()
				d.logger.Info().Msg("no relevant event and no fallback program, stopping")
				return
			}
			telemetry.ResolveCyclesTotal.WithLabelValues("fallback").Inc()
			d.playFallback(ctx)

		case SelectionUpcoming:
			telemetry.ResolveCyclesTotal.WithLabelValues("upcoming").Inc()
			d.announceActive(nil, false)
			d.state.setPhase(PhaseWaiting)
			wait := sel.StartsIn
			if wait < 0 {
				wait = 0
			}
			d.logger.Info().
				Str("event", sel.Event.ID).
				Str("name", sel.Event.Name).
				Dur("starts_in", wait).
				Msg("waiting for upcoming event")
			// Wake and re-resolve rather than trusting one fixed sleep;
			// the anchor may have been corrected while we slept.
			if !d.sleep(ctx, wait) {
				return
			}

		case SelectionActive:
			telemetry.ResolveCyclesTotal.WithLabelValues("active").Inc()
			d.playEvent(ctx, sel.Event)
		}
	}
}

// playEvent sequences through the event's tracks from the resume point
// until the track list is exhausted or the effective end is reached.
func (d *Director) playEvent(ctx context.Context, event *models.Event) {
	now := d.clock.Now()
	elapsed := now.Sub(event.StartsAt)

	startIdx, offset, err := Locate(event, elapsed)
	if err != nil {
		// Content exhausted relative to elapsed time; re-resolve.
		d.logger.Debug().Str("event", event.ID).Dur("elapsed", elapsed).Msg("event content exhausted")
		return
	}

	d.announceActive(event, false)
	d.state.setPhase(PhasePlaying)
	effectiveEnd := event.EffectiveEnd()

	d.logger.Info().
		Str("event", event.ID).
		Str("name", event.Name).
		Int("track_index", startIdx).
		Dur("offset", offset).
		Time("effective_end", effectiveEnd).
		Msg("playing event")

	played := false
	for i := startIdx; i < len(event.Tracks); i++ {
		if ctx.Err() != nil {
			return
		}

		track := &event.Tracks[i]
		trackOffset := time.Duration(0)
		if i == startIdx {
			trackOffset = offset
		}

		if track.Duration <= 0 {
			d.logger.Warn().Str("event", event.ID).Str("track", track.Name).Msg("track duration unknown, skipping")
			continue
		}
		if trackOffset > 0 && track.Duration-trackOffset <= playableEpsilon {
			d.logger.Debug().Str("track", track.Name).Dur("offset", trackOffset).Msg("no audible time remains in track, skipping")
			continue
		}

		clip, err := d.fetcher.Fetch(ctx, track.Locator)
		if err != nil {
			telemetry.AudioFetchFailuresTotal.Inc()
			d.logger.Warn().Err(err).
				Str("event", event.ID).
				Str("locator", track.Locator).
				Msg("audio fetch failed, abandoning event attempt")
			d.announceTrack(nil)
			// Pace the retry; the event may still be active on re-resolve.
			d.sleep(ctx, d.checkInterval)
			return
		}

		clipDuration := clip.Duration
		if clipDuration <= 0 {
			clipDuration = track.Duration
		}

		now = d.clock.Now()
		if !now.Before(effectiveEnd) {
			break
		}
		if clipDuration <= trackOffset {
			// The real file is shorter than the declared resume point.
			// Later tracks still play; breaking here would drop them.
			d.logger.Warn().
				Str("event", event.ID).
				Str("track", track.Name).
				Dur("offset", trackOffset).
				Dur("clip", clipDuration).
				Msg("clip shorter than resume offset, skipping")
			continue
		}
		remaining := clipDuration - trackOffset
		if until := effectiveEnd.Sub(now); until < remaining {
			remaining = until
		}

		if err := d.player.Play(ctx, clip.Path, trackOffset); err != nil {
			d.logger.Warn().Err(err).Str("track", track.Name).Msg("player start failed, abandoning event attempt")
			d.announceTrack(nil)
			d.sleep(ctx, d.checkInterval)
			return
		}
		d.announceTrack(track)
		played = true

		if !d.sleep(ctx, remaining) {
			_ = d.player.Stop()
			return
		}
		_ = d.player.Stop()

		if !d.clock.Now().Before(effectiveEnd) {
			break
		}
	}

	d.announceTrack(nil)
	if !played {
		// Every clip ran short of the declared timeline. Locate will
		// land on the same resume point until more wall time passes, so
		// wait instead of refetching immediately.
		d.sleep(ctx, d.checkInterval)
	}
}

// playFallback loops the default program's tracks unconditionally while
// polling for a scheduled event at bounded intervals, capped so the
// check always lands by the next scheduled start.
func (d *Director) playFallback(ctx context.Context) {
	program := d.fallback
	d.state.setPhase(PhaseFallback)
	d.announceActive(program, true)
	telemetry.FallbackEngagedTotal.Inc()
	if d.bus != nil {
		d.bus.Publish(events.EventFallbackEngaged, events.Payload{"event_id": program.ID, "name": program.Name})
	}
	d.logger.Info().Str("event", program.ID).Msg("fallback program engaged")

	for {
		if ctx.Err() != nil {
			return
		}

		if program.TotalRuntime() <= 0 {
			// Nothing playable; just poll for a scheduled event.
			if d.scheduledEventActive(ctx) {
				d.announceTrack(nil)
				return
			}
			if !d.sleep(ctx, d.checkInterval) {
				return
			}
			continue
		}

		for i := range program.Tracks {
			if ctx.Err() != nil {
				return
			}

			track := &program.Tracks[i]
			if track.Duration <= 0 {
				continue
			}

			clip, err := d.fetcher.Fetch(ctx, track.Locator)
			if err != nil {
				telemetry.AudioFetchFailuresTotal.Inc()
				d.logger.Warn().Err(err).Str("locator", track.Locator).Msg("fallback track fetch failed")
				if !d.sleep(ctx, d.checkInterval) {
					return
				}
				continue
			}
			clipDuration := clip.Duration
			if clipDuration <= 0 {
				clipDuration = track.Duration
			}

			if err := d.player.Play(ctx, clip.Path, 0); err != nil {
				d.logger.Warn().Err(err).Str("track", track.Name).Msg("fallback player start failed")
				if !d.sleep(ctx, d.checkInterval) {
					return
				}
				continue
			}
			d.announceTrack(track)

			deadline := time.Now().Add(clipDuration)
			for {
				wait := time.Until(deadline)
				if wait <= 0 {
					break
				}
				if wait > d.checkInterval {
					wait = d.checkInterval
				}

				// Never let the next check drift past a scheduled start.
				sel := Select(d.snapshots.Snapshot(ctx), d.clock.Now())
				if sel.Kind == SelectionActive {
					_ = d.player.Stop()
					d.announceTrack(nil)
					return
				}
				if sel.Kind == SelectionUpcoming && sel.StartsIn >= 0 && sel.StartsIn < wait {
					wait = sel.StartsIn
				}

				if !d.sleep(ctx, wait) {
					_ = d.player.Stop()
					return
				}
			}
			_ = d.player.Stop()

			if d.scheduledEventActive(ctx) {
				d.announceTrack(nil)
				return
			}
		}
	}
}

func (d *Director) scheduledEventActive(ctx context.Context) bool {
	sel := Select(d.snapshots.Snapshot(ctx), d.clock.Now())
	return sel.Kind == SelectionActive
}

// announceActive fires ActiveEventChanged exactly when the active-event
// identity or the fallback flag changes. Changing the active event
// clears the current track as part of the same transition.
func (d *Director) announceActive(event *models.Event, fallback bool) {
	id := ""
	if event != nil {
		id = event.ID
	}
	if id == d.lastActiveID && fallback == d.lastFallback {
		return
	}
	d.lastActiveID = id
	d.lastFallback = fallback

	hadTrack := d.lastTrackID != ""
	d.state.setActive(event, fallback)

	if d.bus != nil {
		payload := events.Payload{"event_id": id, "fallback": fallback}
		if event != nil {
			payload["name"] = event.Name
		}
		d.bus.Publish(events.EventActiveChanged, payload)
	}

	if hadTrack {
		d.lastTrackID = ""
		d.publishTrack(nil)
	}
}

// announceTrack fires TrackChanged only when the track identity actually
// differs from the previous value, including nil between events.
func (d *Director) announceTrack(track *models.Track) {
	id := ""
	if track != nil {
		id = track.ID
	}
	if id == d.lastTrackID {
		return
	}
	d.lastTrackID = id
	d.state.setTrack(track)
	d.publishTrack(track)
}

func (d *Director) publishTrack(track *models.Track) {
	telemetry.TrackChangesTotal.Inc()
	if d.bus == nil {
		return
	}
	payload := events.Payload{"track_id": ""}
	if track != nil {
		payload["track_id"] = track.ID
		payload["name"] = track.Name
		payload["locator"] = track.Locator
	}
	d.bus.Publish(events.EventTrackChanged, payload)
}

// shutdown runs exactly once as the loop unwinds: audio released, state
// cleared, no partial state left behind.
func (d *Director) shutdown() {
	_ = d.player.Stop()
	d.announceActive(nil, false)
	d.announceTrack(nil)
	d.state.reset()

	if d.bus != nil {
		d.bus.Publish(events.EventPlayoutStopped, events.Payload{})
	}

	d.mu.Lock()
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	d.logger.Info().Msg("playout director stopped")
}

// sleep waits for the duration or until cancellation; returns false when
// cancelled.
func (d *Director) sleep(ctx context.Context, duration time.Duration) bool {
	if duration <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
