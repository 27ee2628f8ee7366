package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelRouter(t *testing.T) {
	var out, errOut bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	logger := slog.New(&levelRouter{
		level:  slog.LevelWarn,
		stdout: slog.NewTextHandler(&out, opts),
		stderr: slog.NewTextHandler(&errOut, opts),
	})

	logger.Info("dropped")
	logger.Warn("to stdout")
	logger.Error("to stderr")

	assert.NotContains(t, out.String(), "dropped")
	assert.Contains(t, out.String(), "to stdout")
	assert.NotContains(t, out.String(), "to stderr")
	assert.Contains(t, errOut.String(), "to stderr")
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}
