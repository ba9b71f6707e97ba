// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCmd_StartsAndShutsDown(t *testing.T) {
	dir := isolate(t)
	modules := filepath.Join(dir, "modules")
	writeFile(t, filepath.Join(modules, "citizens", "module.yaml"), "name: Citizens\nversion: 2.0.30\n")
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, `
disabled-plugin-hooks: [foo]
hooks:
  - name: Citizens
  - name: Foo
  - name: Bar
`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	logs := &syncBuffer{}
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(logs)
	cmd.SetArgs([]string{
		"--config", cfgPath,
		"run",
		"--modules-dir", modules,
		"--metrics-addr", "127.0.0.1:0",
		"--control-addr", "127.0.0.1:0",
		"--log-format", "text",
		"--recheck-interval", "1h",
	})

	errCh := make(chan error, 1)
	go func() { errCh <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Hook runner started")
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not shut down")
	}

	text := logs.String()
	assert.Contains(t, text, "hooked into dependency")
	assert.Contains(t, text, "hook=Citizens")
	assert.Contains(t, text, "observability server started")
	assert.Contains(t, text, "health server started")
	assert.Contains(t, text, "shutdown complete")
	assert.Contains(t, text, "registered listener")
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	isolate(t)

	cmd := NewRootCmd()
	cmd.SetOut(&syncBuffer{})
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs([]string{"run", "--max-attempts", "0", "--metrics-addr", ""})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max-attempts")
}
