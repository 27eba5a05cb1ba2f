/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package leadership elects a single playout owner per station using a
// Redis lease. Only the leader runs the playback loop; followers keep
// campaigning and take over when the lease lapses.
package leadership

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/telemetry"
)

const (
	defaultElectionKey   = "polaris:leader:playout"
	defaultLeaseDuration = 15 * time.Second
	defaultRetryInterval = 2 * time.Second
)

// Config tunes the election lease.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ElectionKey   string
	LeaseDuration time.Duration
	RetryInterval time.Duration
	InstanceID    string
}

// Election campaigns for and renews the playout leadership lease.
type Election struct {
	client     *redis.Client
	logger     zerolog.Logger
	config     Config
	instanceID string

	isLeader atomic.Bool
	cancel   context.CancelFunc
	leaderCh chan bool
}

func NewElection(config Config, logger zerolog.Logger) (*Election, error) {
	if config.ElectionKey == "" {
		config.ElectionKey = defaultElectionKey
	}
	if config.LeaseDuration == 0 {
		config.LeaseDuration = defaultLeaseDuration
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = defaultRetryInterval
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.New().String()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Election{
		client:     client,
		logger:     logger.With().Str("component", "leadership").Logger(),
		config:     config,
		instanceID: config.InstanceID,
		leaderCh:   make(chan bool, 1),
	}, nil
}

// Start begins campaigning. The first attempt runs immediately so a
// single-instance deployment becomes leader without waiting a tick.
func (e *Election) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.logger.Info().
		Str("instance_id", e.instanceID).
		Dur("lease", e.config.LeaseDuration).
		Msg("starting leader election")

	go func() {
		e.campaign(ctx)
		ticker := time.NewTicker(e.config.RetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.campaign(ctx)
			}
		}
	}()
}

// Stop ends campaigning and releases the lease if held.
func (e *Election) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	if e.isLeader.Load() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.release(ctx); err != nil {
			e.logger.Error().Err(err).Msg("failed to release leadership lease")
		}
	}
	return e.client.Close()
}

func (e *Election) IsLeader() bool {
	return e.isLeader.Load()
}

// LeaderCh delivers leadership transitions. Buffered by one; a missed
// send is recovered by the next transition.
func (e *Election) LeaderCh() <-chan bool {
	return e.leaderCh
}

// Leader reports the instance currently holding the lease, "" when none.
func (e *Election) Leader(ctx context.Context) (string, error) {
	id, err := e.client.Get(ctx, e.config.ElectionKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get leader: %w", err)
	}
	return id, nil
}

func (e *Election) campaign(ctx context.Context) {
	acquired, err := e.acquire(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("leadership attempt failed")
		e.transition(false)
		return
	}
	e.transition(acquired)
}

// acquire takes the lease with SETNX, or renews it when we already hold
// the key.
func (e *Election) acquire(ctx context.Context) (bool, error) {
	ok, err := e.client.SetNX(ctx, e.config.ElectionKey, e.instanceID, e.config.LeaseDuration).Result()
	if err != nil {
		return false, fmt.Errorf("set lease: %w", err)
	}
	if ok {
		return true, nil
	}

	current, err := e.client.Get(ctx, e.config.ElectionKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get current leader: %w", err)
	}
	if current != e.instanceID {
		return false, nil
	}

	if err := e.client.Expire(ctx, e.config.ElectionKey, e.config.LeaseDuration).Err(); err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	return true, nil
}

// release deletes the lease only if this instance still owns it.
func (e *Election) release(ctx context.Context) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`
	if err := e.client.Eval(ctx, script, []string{e.config.ElectionKey}, e.instanceID).Err(); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	e.logger.Info().Msg("released leadership lease")
	return nil
}

func (e *Election) transition(isLeader bool) {
	if !e.isLeader.CompareAndSwap(!isLeader, isLeader) {
		return
	}

	if isLeader {
		e.logger.Info().Str("instance_id", e.instanceID).Msg("acquired leadership")
		telemetry.LeaderStatus.Set(1)
	} else {
		e.logger.Warn().Str("instance_id", e.instanceID).Msg("lost leadership")
		telemetry.LeaderStatus.Set(0)
	}

	select {
	case e.leaderCh <- isLeader:
	default:
	}
}
