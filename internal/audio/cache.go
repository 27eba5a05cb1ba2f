/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Cache is a content-addressed store for downloaded clips. Files are
// keyed by the locator hash so re-fetching the same locator is free.
type Cache struct {
	dir string
}

func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "polaris-audio")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audio cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) keyPath(locator string) string {
	sum := sha256.Sum256([]byte(locator))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:16])+filepath.Ext(locator))
}

// Lookup returns the cached path for a locator, or "" when absent.
func (c *Cache) Lookup(locator string) string {
	path := c.keyPath(locator)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path
	}
	return ""
}

// Store writes the reader's content for the locator and returns the
// final path. The write goes through a temp file so a concurrent reader
// never observes a partial clip.
func (c *Cache) Store(locator string, r io.Reader) (string, error) {
	path := c.keyPath(locator)

	tmp, err := os.CreateTemp(c.dir, "fetch-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing clip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("installing clip: %w", err)
	}
	return path, nil
}
