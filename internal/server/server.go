/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration into running services: schedule
// provider, time sync, playout director, HTTP API, and the optional
// multi-instance machinery.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/polarisfm/polaris/internal/api"
	"github.com/polarisfm/polaris/internal/audio"
	"github.com/polarisfm/polaris/internal/cache"
	"github.com/polarisfm/polaris/internal/config"
	"github.com/polarisfm/polaris/internal/db"
	"github.com/polarisfm/polaris/internal/eventbus"
	"github.com/polarisfm/polaris/internal/events"
	"github.com/polarisfm/polaris/internal/leadership"
	"github.com/polarisfm/polaris/internal/models"
	"github.com/polarisfm/polaris/internal/playout"
	"github.com/polarisfm/polaris/internal/schedule"
	"github.com/polarisfm/polaris/internal/telemetry"
	"github.com/polarisfm/polaris/internal/timesync"
)

// Server bundles the HTTP surface and supporting services.
type Server struct {
	cfg     *config.Config
	logger  zerolog.Logger
	closers []func() error

	database *gorm.DB
	cache    *cache.Cache
	provider *schedule.Provider
	clock    *timesync.Service
	fetcher  *audio.Fetcher
	manager  *playout.Manager
	director *playout.Director
	bus      *events.Bus
	api      *api.API
	reloader *cron.Cron
	bridge   *eventbus.Bridge
	election *leadership.Election

	httpServer    *http.Server
	metricsServer *http.Server

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	srv := &Server{
		cfg:    cfg,
		logger: logger,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(ctx); err != nil {
		_ = srv.Close()
		return nil, err
	}

	var leader api.Leadership
	if srv.election != nil {
		leader = srv.election
	}
	srv.api = api.New(srv.provider, srv.clock, srv.director.State(), leader, logger)

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           srv.api.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	srv.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           metricsMux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies(ctx context.Context) error {
	var source schedule.Source
	switch s.cfg.ScheduleBackend {
	case config.ScheduleDB:
		database, err := db.Connect(s.cfg)
		if err != nil {
			return fmt.Errorf("connecting database: %w", err)
		}
		s.database = database
		s.DeferClose(func() error { return db.Close(database) })

		store := schedule.NewStore(database, s.logger)
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrating schedule store: %w", err)
		}
		source = schedule.NewStoreSource(store)
	case config.ScheduleHTTP:
		source = schedule.NewHTTPSource(s.cfg.ScheduleURL, 30*time.Second)
	default:
		source = schedule.NewFileSource(s.cfg.ScheduleFile)
	}

	s.cache = cache.New(cache.Config{
		RedisAddr:     s.cfg.RedisAddr,
		RedisPassword: s.cfg.RedisPassword,
		RedisDB:       s.cfg.RedisDB,
	}, s.logger)
	s.DeferClose(func() error { return s.cache.Close() })

	s.provider = schedule.NewProvider(source, s.cache, s.bus, s.logger)

	timeSource := timesync.NewHTTPSource(s.cfg.TimeSourceURL, s.cfg.TimeSourceField, s.cfg.TimeFetchTimeout)
	s.clock = timesync.New(timeSource, s.bus, s.cfg.TimeSyncInterval, s.cfg.TimeFetchTimeout, s.logger)

	if err := os.MkdirAll(s.cfg.MediaRoot, 0o755); err != nil {
		return fmt.Errorf("creating media root %s: %w", s.cfg.MediaRoot, err)
	}

	fetcher, err := audio.NewFetcher(ctx, audio.FetcherOptions{
		MediaRoot:         s.cfg.MediaRoot,
		CacheDir:          s.cfg.AudioCacheDir,
		ProbeBin:          s.cfg.ProbeBin,
		S3Region:          s.cfg.S3Region,
		S3AccessKeyID:     s.cfg.S3AccessKeyID,
		S3SecretAccessKey: s.cfg.S3SecretAccessKey,
		S3Endpoint:        s.cfg.S3Endpoint,
		S3UsePathStyle:    s.cfg.S3UsePathStyle,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("initializing audio fetcher: %w", err)
	}
	s.fetcher = fetcher

	s.manager = playout.NewManager(s.cfg.PlayerBin, s.logger)
	s.DeferClose(func() error { return s.manager.Shutdown() })

	fallback, err := s.resolveFallback(ctx)
	if err != nil {
		return err
	}

	s.director = playout.NewDirector(
		s.provider, s.clock, s.fetcher, s.manager,
		fallback, s.cfg.FallbackCheckInterval, s.bus, s.logger,
	)

	if s.cfg.LeaderElectionEnabled {
		election, err := leadership.NewElection(leadership.Config{
			RedisAddr:     s.cfg.RedisAddr,
			RedisPassword: s.cfg.RedisPassword,
			RedisDB:       s.cfg.RedisDB,
			InstanceID:    s.cfg.InstanceID,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("creating leader election: %w", err)
		}
		s.election = election
		s.DeferClose(election.Stop)
	}

	if s.cfg.NATSURL != "" {
		bridge, err := eventbus.NewBridge(s.cfg.NATSURL, s.bus, s.logger)
		if err != nil {
			return fmt.Errorf("connecting nats: %w", err)
		}
		s.bridge = bridge
	}

	s.reloader = cron.New()
	if _, err := s.reloader.AddFunc(s.cfg.ScheduleReloadSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.provider.Refresh(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("scheduled reload failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule reload spec %q: %w", s.cfg.ScheduleReloadSpec, err)
	}

	return nil
}

// resolveFallback loads the explicit fallback document when configured,
// otherwise the director resolves against the schedule itself.
func (s *Server) resolveFallback(ctx context.Context) (*models.Event, error) {
	if !s.cfg.FallbackEnabled {
		return nil, nil
	}

	var explicit *models.Event
	if s.cfg.FallbackFile != "" {
		docs, err := schedule.NewFileSource(s.cfg.FallbackFile).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading fallback file: %w", err)
		}
		validated, _ := schedule.Validate(docs, s.logger)
		if len(validated) > 0 {
			explicit = &validated[0]
		}
	}

	return playout.ResolveFallback(explicit, s.provider.Snapshot(ctx), s.cfg.FallbackEventID, s.logger), nil
}

// Run starts everything and blocks until the context ends or the HTTP
// server fails.
func (s *Server) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(ctx)
	s.bgCancel = cancel

	// Anchor the clock before any playback decision. Failure falls back
	// to the local clock inside the service; this only bounds the wait.
	if err := s.clock.EnsureInitialized(bgCtx); err != nil {
		return fmt.Errorf("initializing time sync: %w", err)
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.clock.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("time sync loop exited")
		}
	}()

	if s.bridge != nil {
		s.bridge.Start(bgCtx)
		s.DeferClose(func() error { s.bridge.Close(); return nil })
	}

	s.reloader.Start()

	if s.election != nil {
		s.election.Start(bgCtx)
		s.bgWG.Add(1)
		go s.followLeadership(bgCtx)
	} else {
		s.director.Start(bgCtx)
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.logger.Info().Str("addr", s.metricsServer.Addr).Msg("metrics server listening")
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics server exited")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// followLeadership starts the director while this instance holds the
// lease and stops it when the lease is lost.
func (s *Server) followLeadership(ctx context.Context) {
	defer s.bgWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case isLeader := <-s.election.LeaderCh():
			if isLeader {
				s.logger.Info().Msg("leadership acquired, starting playout")
				s.director.Start(ctx)
			} else {
				s.logger.Warn().Msg("leadership lost, stopping playout")
				s.director.Stop()
			}
		}
	}
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpServer != nil {
		_ = s.httpServer.Shutdown(shutdownCtx)
	}
	if s.metricsServer != nil {
		_ = s.metricsServer.Shutdown(shutdownCtx)
	}
	if s.reloader != nil {
		s.reloader.Stop()
	}
	if s.director != nil {
		s.director.Stop()
	}

	if s.bgCancel != nil {
		s.bgCancel()
		s.bgWG.Wait()
		s.bgCancel = nil
	}

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
