/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const snapshotKey = "polaris:schedule:snapshot"

// Cache shares the latest raw schedule snapshot between instances so
// that replicas do not all hit the upstream source. Redis-backed with an
// in-memory fallback when Redis is unreachable.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	mu        sync.RWMutex
	memValue  []byte
	memExpiry time.Time
}

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// New creates a cache. A failed Redis ping is not fatal; the cache
// silently degrades to process-local memory.
func New(cfg Config, logger zerolog.Logger) *Cache {
	c := &Cache{
		ttl:    cfg.TTL,
		logger: logger.With().Str("component", "cache").Logger(),
	}
	if c.ttl <= 0 {
		c.ttl = time.Minute
	}

	if cfg.RedisAddr == "" {
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis unavailable, using in-memory cache only")
		return c
	}

	c.client = client
	return c
}

// GetSnapshot returns the cached raw snapshot, if present and fresh.
func (c *Cache) GetSnapshot(ctx context.Context, out any) bool {
	if c.client != nil {
		data, err := c.client.Get(ctx, snapshotKey).Bytes()
		if err == nil {
			if err := json.Unmarshal(data, out); err == nil {
				return true
			}
		} else if err != redis.Nil {
			c.logger.Debug().Err(err).Msg("redis snapshot read failed")
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.memValue == nil || time.Now().After(c.memExpiry) {
		return false
	}
	return json.Unmarshal(c.memValue, out) == nil
}

// SetSnapshot stores the raw snapshot. Writes are idempotent; a second
// concurrent writer merely overwrites with an equivalent value.
func (c *Cache) SetSnapshot(ctx context.Context, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.memValue = data
	c.memExpiry = time.Now().Add(c.ttl)
	c.mu.Unlock()

	if c.client != nil {
		if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
			c.logger.Debug().Err(err).Msg("redis snapshot write failed")
		}
	}
	return nil
}

// Invalidate drops the snapshot everywhere.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.memValue = nil
	c.mu.Unlock()

	if c.client != nil {
		if err := c.client.Del(ctx, snapshotKey).Err(); err != nil {
			c.logger.Debug().Err(err).Msg("redis snapshot invalidate failed")
		}
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
