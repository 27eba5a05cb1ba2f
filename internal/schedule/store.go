/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/polarisfm/polaris/internal/models"
)

// Store persists the schedule collection. Import replaces the whole
// collection; Export round-trips it back to wire documents including the
// nested track arrays.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates a schedule store.
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "schedule_store").Logger(),
	}
}

// Migrate creates the schedule tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.Event{}, &models.Track{})
}

// Import replaces the stored collection with the given validated events.
func (s *Store) Import(ctx context.Context, eventsList []models.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Track{}).Error; err != nil {
			return fmt.Errorf("clear tracks: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&models.Event{}).Error; err != nil {
			return fmt.Errorf("clear events: %w", err)
		}
		if len(eventsList) == 0 {
			return nil
		}
		if err := tx.Create(&eventsList).Error; err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		return nil
	})
}

// Load returns the stored collection in start order, tracks in position
// order. Implements Source via LoadDocuments.
func (s *Store) Load(ctx context.Context) ([]models.Event, error) {
	var eventsList []models.Event
	err := s.db.WithContext(ctx).
		Preload("Tracks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("starts_at ASC").
		Find(&eventsList).Error
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	for i := range eventsList {
		tracks := eventsList[i].Tracks
		sort.SliceStable(tracks, func(a, b int) bool {
			return tracks[a].Position < tracks[b].Position
		})
	}
	return eventsList, nil
}

// StoreSource adapts the store to the Source interface.
type StoreSource struct {
	store *Store
}

// NewStoreSource wraps a store as a schedule source.
func NewStoreSource(store *Store) *StoreSource {
	return &StoreSource{store: store}
}

// Load exports the stored collection as wire documents.
func (s *StoreSource) Load(ctx context.Context) ([]EventDocument, error) {
	eventsList, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Documents(eventsList), nil
}
