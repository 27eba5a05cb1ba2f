/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version carries build-time version information.
package version

// Version is the current version of Polaris.
// Set at build time via ldflags:
//
//	-X github.com/polarisfm/polaris/internal/version.Version=X.Y.Z
var Version = "0.4.0"
