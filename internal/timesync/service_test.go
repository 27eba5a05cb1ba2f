/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timesync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// anchorBase is deliberately far from the real wall clock so tests can
// tell which one Now derives from.
var anchorBase = time.Date(2030, 6, 15, 9, 0, 0, 0, time.UTC)

type fakeTimeSource struct {
	mu    sync.Mutex
	ts    time.Time
	err   error
	calls int
}

func (f *fakeTimeSource) FetchUTC(ctx context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return time.Time{}, f.err
	}
	return f.ts, nil
}

func (f *fakeTimeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func newService(src Source) *Service {
	return New(src, nil, time.Hour, time.Second, zerolog.Nop())
}

func TestNowBeforeInitializationUsesLocalClock(t *testing.T) {
	s := newService(&fakeTimeSource{ts: anchorBase})

	if diff := time.Since(s.Now()); diff < -time.Second || diff > time.Second {
		t.Fatalf("uninitialized Now should track the local clock, diff %v", diff)
	}
}

func TestEnsureInitializedAnchorsToSource(t *testing.T) {
	s := newService(&fakeTimeSource{ts: anchorBase})

	if err := s.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	anchored, overridden := s.Anchored()
	if !anchored || overridden {
		t.Fatalf("expected anchored without override, got %v %v", anchored, overridden)
	}
	if diff := s.Now().Sub(anchorBase); diff < 0 || diff > time.Second {
		t.Fatalf("Now should extrapolate from the anchor, diff %v", diff)
	}
}

func TestNowAdvancesMonotonically(t *testing.T) {
	s := newService(&fakeTimeSource{ts: anchorBase})
	if err := s.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := s.Now()
	time.Sleep(50 * time.Millisecond)
	second := s.Now()

	if advanced := second.Sub(first); advanced < 45*time.Millisecond {
		t.Fatalf("Now advanced only %v over a 50ms sleep", advanced)
	}
}

func TestInitialFetchFailureFallsBackToLocalClock(t *testing.T) {
	s := newService(&fakeTimeSource{err: fmt.Errorf("unreachable")})

	if err := s.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("initialization must complete despite fetch failure: %v", err)
	}

	anchored, _ := s.Anchored()
	if !anchored {
		t.Fatal("expected local fallback anchor")
	}
	if diff := time.Since(s.Now()); diff < -time.Second || diff > time.Second {
		t.Fatalf("fallback anchor should match the local clock, diff %v", diff)
	}
}

func TestFailedRefreshKeepsExtrapolating(t *testing.T) {
	src := &fakeTimeSource{ts: anchorBase}
	s := newService(src)
	if err := s.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src.setErr(fmt.Errorf("unreachable"))
	s.refresh(context.Background(), false)

	// Still derived from the original anchor, not the local clock.
	if diff := s.Now().Sub(anchorBase); diff < 0 || diff > time.Second {
		t.Fatalf("anchor lost after failed refresh, diff %v", diff)
	}
}

func TestOverridePinsTheBase(t *testing.T) {
	src := &fakeTimeSource{ts: anchorBase}
	s := newService(src)

	pinned := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Override(pinned)

	anchored, overridden := s.Anchored()
	if !anchored || !overridden {
		t.Fatalf("expected overridden anchor, got %v %v", anchored, overridden)
	}
	if diff := s.Now().Sub(pinned); diff < 0 || diff > time.Second {
		t.Fatalf("Now should derive from the override, diff %v", diff)
	}

	// Override also satisfies initialization without touching the source.
	if err := s.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	if calls != 0 {
		t.Fatalf("override should suppress the initial fetch, saw %d calls", calls)
	}
}

func TestRefreshCannotClobberOverride(t *testing.T) {
	src := &fakeTimeSource{ts: anchorBase}
	s := newService(src)
	if err := s.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pinned := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Override(pinned)

	// A fetch that was already in flight when Override landed completes
	// afterwards; the pinned base must survive it.
	s.refresh(context.Background(), false)

	if diff := s.Now().Sub(pinned); diff < 0 || diff > time.Second {
		t.Fatalf("override displaced by a late refresh, diff %v", diff)
	}
}
