/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Schedule source selection.
type ScheduleBackend string

const (
	ScheduleFile ScheduleBackend = "file"
	ScheduleHTTP ScheduleBackend = "http"
	ScheduleDB   ScheduleBackend = "db"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	DBBackend DatabaseBackend
	DBDSN     string

	// Schedule source
	ScheduleBackend    ScheduleBackend
	ScheduleFile       string
	ScheduleURL        string
	ScheduleReloadSpec string // cron spec for periodic schedule reload

	// Time source
	TimeSourceURL    string
	TimeSourceField  string // JSON field carrying the ISO-8601 datetime
	TimeFetchTimeout time.Duration
	TimeSyncInterval time.Duration

	// Fallback program
	FallbackEnabled       bool
	FallbackEventID       string
	FallbackFile          string
	FallbackCheckInterval time.Duration

	// Audio
	MediaRoot     string
	AudioCacheDir string
	PlayerBin     string
	ProbeBin      string

	// S3 locators (s3://bucket/key)
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Endpoint        string
	S3UsePathStyle    bool

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InstanceID            string

	// External notification fan-out
	NATSURL string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("POLARIS_ENV", "development"),
		HTTPBind:    getEnv("POLARIS_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("POLARIS_HTTP_PORT", 8080),
		MetricsBind: getEnv("POLARIS_METRICS_BIND", "127.0.0.1:9000"),

		DBBackend: DatabaseBackend(getEnv("POLARIS_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("POLARIS_DB_DSN", "polaris.db"),

		ScheduleBackend:    ScheduleBackend(getEnv("POLARIS_SCHEDULE_BACKEND", string(ScheduleFile))),
		ScheduleFile:       getEnv("POLARIS_SCHEDULE_FILE", ""),
		ScheduleURL:        getEnv("POLARIS_SCHEDULE_URL", ""),
		ScheduleReloadSpec: getEnv("POLARIS_SCHEDULE_RELOAD", "@every 1m"),

		TimeSourceURL:    getEnv("POLARIS_TIME_SOURCE_URL", "https://worldtimeapi.org/api/timezone/Etc/UTC"),
		TimeSourceField:  getEnv("POLARIS_TIME_SOURCE_FIELD", "datetime"),
		TimeFetchTimeout: time.Duration(getEnvInt("POLARIS_TIME_FETCH_TIMEOUT_SECONDS", 5)) * time.Second,
		TimeSyncInterval: time.Duration(getEnvInt("POLARIS_TIME_SYNC_INTERVAL_MINUTES", 15)) * time.Minute,

		FallbackEnabled:       getEnvBool("POLARIS_FALLBACK_ENABLED", true),
		FallbackEventID:       getEnv("POLARIS_FALLBACK_EVENT_ID", ""),
		FallbackFile:          getEnv("POLARIS_FALLBACK_FILE", ""),
		FallbackCheckInterval: time.Duration(getEnvInt("POLARIS_FALLBACK_CHECK_SECONDS", 30)) * time.Second,

		MediaRoot:     getEnv("POLARIS_MEDIA_ROOT", "./media"),
		AudioCacheDir: getEnv("POLARIS_AUDIO_CACHE_DIR", "./cache"),
		PlayerBin:     getEnv("POLARIS_PLAYER_BIN", "ffplay"),
		ProbeBin:      getEnv("POLARIS_PROBE_BIN", "ffprobe"),

		S3AccessKeyID:     getEnvAny([]string{"POLARIS_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"POLARIS_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"POLARIS_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Endpoint:        getEnvAny([]string{"POLARIS_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBool("POLARIS_S3_USE_PATH_STYLE", false),

		TracingEnabled:    getEnvBool("POLARIS_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("POLARIS_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("POLARIS_TRACING_SAMPLE_RATE", 1.0),

		LeaderElectionEnabled: getEnvBool("POLARIS_LEADER_ELECTION_ENABLED", false),
		RedisAddr:             getEnv("POLARIS_REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("POLARIS_REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("POLARIS_REDIS_DB", 0),
		InstanceID:            getEnv("POLARIS_INSTANCE_ID", ""),

		NATSURL: getEnv("POLARIS_NATS_URL", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	switch cfg.ScheduleBackend {
	case ScheduleFile:
		if cfg.ScheduleFile == "" {
			return nil, fmt.Errorf("POLARIS_SCHEDULE_FILE must be provided for the file schedule backend")
		}
	case ScheduleHTTP:
		if cfg.ScheduleURL == "" {
			return nil, fmt.Errorf("POLARIS_SCHEDULE_URL must be provided for the http schedule backend")
		}
	case ScheduleDB:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("POLARIS_DB_DSN must be provided for the db schedule backend")
		}
	default:
		return nil, fmt.Errorf("unsupported schedule backend %q", cfg.ScheduleBackend)
	}

	if cfg.TimeSourceURL == "" {
		return nil, fmt.Errorf("POLARIS_TIME_SOURCE_URL must be provided")
	}

	if cfg.TimeFetchTimeout <= 0 {
		cfg.TimeFetchTimeout = 5 * time.Second
	}
	if cfg.TimeSyncInterval <= 0 {
		cfg.TimeSyncInterval = 15 * time.Minute
	}
	if cfg.FallbackCheckInterval <= 0 {
		cfg.FallbackCheckInterval = 30 * time.Second
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
