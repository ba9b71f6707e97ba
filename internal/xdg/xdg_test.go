// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDir(t *testing.T) {
	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{name: "env var", xdg: "/custom/config", want: "/custom/config/witherpass"},
		{name: "default", xdg: "", want: "/home/testuser/.config/witherpass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", tt.xdg)
			t.Setenv("HOME", "/home/testuser")
			assert.Equal(t, tt.want, ConfigDir())
		})
	}
}

func TestDataDir(t *testing.T) {
	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{name: "env var", xdg: "/custom/data", want: "/custom/data/witherpass"},
		{name: "default", xdg: "", want: "/home/testuser/.local/share/witherpass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_DATA_HOME", tt.xdg)
			t.Setenv("HOME", "/home/testuser")
			assert.Equal(t, tt.want, DataDir())
		})
	}
}

func TestModulesDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/srv/data")
	assert.Equal(t, "/srv/data/witherpass/modules", ModulesDir())
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, EnsureDir(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}
