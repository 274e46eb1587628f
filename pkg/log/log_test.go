package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewHandler(&buf, "info", "json"))
	logger.Debug("hidden")
	logger.Info("workflow matched", "workflow_id", "wf-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "workflow matched", line["msg"])
	assert.Equal(t, "wf-1", line["workflow_id"])
}

func TestNewHandler_Pretty(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewHandler(&buf, "debug", "pretty"))
	logger.Debug("evaluating", "field", "status")

	assert.Contains(t, buf.String(), "evaluating")
	assert.Contains(t, buf.String(), "status")
}
