/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timesync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Source supplies an authoritative UTC reading on demand.
type Source interface {
	FetchUTC(ctx context.Context) (time.Time, error)
}

// HTTPSource fetches UTC time from an HTTP endpoint returning a JSON
// object with a single ISO-8601 datetime string field.
type HTTPSource struct {
	url    string
	field  string
	client *http.Client
}

// NewHTTPSource creates a time source for the given endpoint. field names
// the JSON member carrying the datetime string, e.g. "datetime".
func NewHTTPSource(url, field string, timeout time.Duration) *HTTPSource {
	if field == "" {
		field = "datetime"
	}
	return &HTTPSource{
		url:   url,
		field: field,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// FetchUTC performs a single GET; no retries, the caller decides policy.
func (s *HTTPSource) FetchUTC(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("build time request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch time: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("time source returned status %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("decode time response: %w", err)
	}

	raw, ok := body[s.field].(string)
	if !ok || raw == "" {
		return time.Time{}, fmt.Errorf("time response missing field %q", s.field)
	}

	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		if ts, err = time.Parse(time.RFC3339, raw); err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", raw, err)
		}
	}
	return ts.UTC(), nil
}
