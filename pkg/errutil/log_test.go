// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Foxius/wither-pass/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("VERSION_SEGMENT_EMPTY").
		With("raw", "3.2.x").
		Errorf("version segment has no digits")

	errutil.LogError(logger, "version check failed", err)

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "version check failed", entry["msg"])
	assert.Equal(t, "VERSION_SEGMENT_EMPTY", entry["code"])
	assert.Equal(t, map[string]any{"raw": "3.2.x"}, entry["context"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("standard error"))

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "standard error")
	assert.NotContains(t, entry, "code")
}

func TestLogWarn_KeepsCallerArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("CONSTRAINT_INVALID").Errorf("bad constraint")
	errutil.LogWarn(logger, "skipping hook", err, "hook", "Citizens")

	entry := decode(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "Citizens", entry["hook"])
	assert.Equal(t, "CONSTRAINT_INVALID", entry["code"])
}

func TestAttrs_OopsWithoutCode(t *testing.T) {
	attrs := errutil.Attrs(oops.Errorf("plain"))
	assert.Equal(t, []any{"error", "plain"}, attrs)
}
