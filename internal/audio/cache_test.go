/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"os"
	"strings"
	"testing"
)

func TestCacheStoreAndLookup(t *testing.T) {
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	locator := "https://audio.example.com/show/opener.mp3"
	if path := c.Lookup(locator); path != "" {
		t.Fatalf("lookup before store returned %q", path)
	}

	path, err := c.Store(locator, strings.NewReader("clip-bytes"))
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stored clip: %v", err)
	}
	if string(data) != "clip-bytes" {
		t.Fatalf("stored content = %q", data)
	}

	// Same locator resolves to the same file.
	if again := c.Lookup(locator); again != path {
		t.Fatalf("lookup = %q, want %q", again, path)
	}

	// Different locators never collide.
	other, err := c.Store("https://audio.example.com/show/other.mp3", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if other == path {
		t.Fatal("distinct locators mapped to the same cache path")
	}
}

func TestCacheIgnoresEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	locator := "broken.mp3"
	if _, err := c.Store(locator, strings.NewReader("")); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if path := c.Lookup(locator); path != "" {
		t.Fatalf("empty cached file should not be served, got %q", path)
	}
}
