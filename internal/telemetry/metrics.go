/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ResolveCyclesTotal counts passes of the playback loop's resolve step.
	ResolveCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polaris_resolve_cycles_total",
		Help: "Resolve cycles executed, labelled by outcome (active, upcoming, fallback, none).",
	}, []string{"outcome"})

	// TrackChangesTotal counts emitted track transitions.
	TrackChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polaris_track_changes_total",
		Help: "Track change notifications emitted.",
	})

	// FallbackEngagedTotal counts entries into default-program playback.
	FallbackEngagedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polaris_fallback_engaged_total",
		Help: "Times the fallback program was engaged.",
	})

	// TimeSyncFailuresTotal counts failed external time fetches.
	TimeSyncFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polaris_timesync_failures_total",
		Help: "Failed fetches from the external time source.",
	})

	// AudioFetchFailuresTotal counts failed audio resource fetches.
	AudioFetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polaris_audio_fetch_failures_total",
		Help: "Failed audio resource fetches (aborts the current event attempt).",
	})

	// ScheduleLoadErrorsTotal counts failed schedule snapshot refreshes.
	ScheduleLoadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polaris_schedule_load_errors_total",
		Help: "Failed schedule source loads.",
	})

	// ScheduleInvalidEventsTotal counts events excluded by validation.
	ScheduleInvalidEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polaris_schedule_invalid_events_total",
		Help: "Schedule events excluded by the validation pass.",
	})

	// LeaderStatus is 1 while this instance holds the playout lease.
	LeaderStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polaris_leader_status",
		Help: "Whether this instance currently holds the playout leadership lease.",
	})

	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polaris_api_requests_total",
		Help: "HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP API latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polaris_api_request_duration_seconds",
		Help:    "HTTP API request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polaris_api_active_connections",
		Help: "In-flight HTTP API requests.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
