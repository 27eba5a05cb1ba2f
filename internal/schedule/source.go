/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source supplies an ordered collection of event documents. The playback
// core consumes validated snapshots; how the documents were fetched or
// edited is this collaborator's concern.
type Source interface {
	Load(ctx context.Context) ([]EventDocument, error)
}

// FileSource reads a schedule from a local JSON or YAML file. The format
// is picked by extension; anything not .yaml/.yml is treated as JSON.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed schedule source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and decodes the schedule file.
func (s *FileSource) Load(ctx context.Context) ([]EventDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}
	return decodeDocuments(data, filepath.Ext(s.path))
}

// HTTPSource fetches a JSON schedule document over HTTP.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates an HTTP-backed schedule source.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Load performs a GET and decodes the response body.
func (s *HTTPSource) Load(ctx context.Context) ([]EventDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build schedule request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schedule source returned status %d", resp.StatusCode)
	}

	var docs []EventDocument
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	return docs, nil
}

func decodeDocuments(data []byte, ext string) ([]EventDocument, error) {
	var docs []EventDocument
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("decode yaml schedule: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("decode json schedule: %w", err)
		}
	}
	return docs, nil
}
