/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POLARIS_SCHEDULE_FILE", "/srv/polaris/schedule.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("http port = %d", cfg.HTTPPort)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Errorf("db backend = %q", cfg.DBBackend)
	}
	if cfg.ScheduleBackend != ScheduleFile {
		t.Errorf("schedule backend = %q", cfg.ScheduleBackend)
	}
	if cfg.PlayerBin != "ffplay" || cfg.ProbeBin != "ffprobe" {
		t.Errorf("player binaries = %q %q", cfg.PlayerBin, cfg.ProbeBin)
	}
	if !cfg.FallbackEnabled {
		t.Error("fallback should default to enabled")
	}
	if cfg.TimeFetchTimeout != 5*time.Second {
		t.Errorf("time fetch timeout = %v", cfg.TimeFetchTimeout)
	}
	if cfg.TimeSyncInterval != 15*time.Minute {
		t.Errorf("time sync interval = %v", cfg.TimeSyncInterval)
	}
	if cfg.FallbackCheckInterval != 30*time.Second {
		t.Errorf("fallback check interval = %v", cfg.FallbackCheckInterval)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("POLARIS_SCHEDULE_BACKEND", "http")
	t.Setenv("POLARIS_SCHEDULE_URL", "https://schedule.example.com/today.json")
	t.Setenv("POLARIS_HTTP_PORT", "9090")
	t.Setenv("POLARIS_FALLBACK_ENABLED", "false")
	t.Setenv("POLARIS_TIME_SYNC_INTERVAL_MINUTES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ScheduleBackend != ScheduleHTTP {
		t.Errorf("schedule backend = %q", cfg.ScheduleBackend)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("http port = %d", cfg.HTTPPort)
	}
	if cfg.FallbackEnabled {
		t.Error("fallback should be disabled")
	}
	if cfg.TimeSyncInterval != 5*time.Minute {
		t.Errorf("time sync interval = %v", cfg.TimeSyncInterval)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"file backend without file", map[string]string{
			"POLARIS_SCHEDULE_BACKEND": "file",
		}},
		{"http backend without url", map[string]string{
			"POLARIS_SCHEDULE_BACKEND": "http",
		}},
		{"unknown schedule backend", map[string]string{
			"POLARIS_SCHEDULE_BACKEND": "carrier-pigeon",
		}},
		{"unknown db backend", map[string]string{
			"POLARIS_SCHEDULE_FILE": "/srv/schedule.json",
			"POLARIS_DB_BACKEND":    "oracle",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
