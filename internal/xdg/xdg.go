// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

// Package xdg provides XDG Base Directory paths for netdodge.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "netdodge"

// ConfigDir returns the XDG config directory for netdodge.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default client config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
