/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/polarisfm/polaris/internal/models"
)

// ResolveFallback picks the default filler program. Preference order: an
// explicitly supplied standalone payload, then a schedule event matching
// the configured default id, then an event named "default" (case
// insensitive). Returns nil when nothing resolves; fallback is then
// disabled for this run, which is logged, not fatal.
func ResolveFallback(explicit *models.Event, eventsList []models.Event, defaultID string, logger zerolog.Logger) *models.Event {
	if explicit != nil {
		if len(explicit.Tracks) == 0 {
			logger.Warn().Str("event", explicit.ID).Msg("explicit fallback payload has no tracks, fallback disabled")
			return nil
		}
		return explicit
	}

	if defaultID != "" {
		for i := range eventsList {
			if eventsList[i].ID == defaultID {
				return &eventsList[i]
			}
		}
		logger.Warn().Str("default_id", defaultID).Msg("configured default event not found in schedule")
	}

	for i := range eventsList {
		if strings.EqualFold(eventsList[i].Name, "default") {
			return &eventsList[i]
		}
	}

	logger.Info().Msg("no fallback program resolved, fallback disabled for this run")
	return nil
}
