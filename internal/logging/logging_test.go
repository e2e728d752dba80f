package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: LevelDebug, Format: "json", Output: &buf})

	l.WithFields(map[string]any{"path": "a.sql"}).Info("extracted", map[string]any{"snippets": 2})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "extracted", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "a.sql", entry["path"])
	assert.EqualValues(t, 2, entry["snippets"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: LevelWarn, Format: "json", Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}

func TestLogger_ErrorErr(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: LevelInfo, Format: "json", Output: &buf})

	l.ErrorErr("lint failed", errors.New("boom"), map[string]any{"code": 2})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["error"])
	assert.EqualValues(t, 2, entry["code"])
}

func TestGlobal(t *testing.T) {
	prev := Global()
	defer SetGlobal(prev)

	var buf bytes.Buffer
	SetGlobal(New(Options{Level: LevelInfo, Format: "console", Output: &buf}))
	Warn("careful", map[string]any{"k": "v"})

	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "careful")
}
