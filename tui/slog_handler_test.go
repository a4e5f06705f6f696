package tui

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnabledOverrideHandler(t *testing.T) {
	ctx := context.Background()
	var output strings.Builder
	handler := NewEnabledOverrideHandler(
		slog.NewTextHandler(&output, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(handler).With("port-name", "/dev/ttyUSB0").WithGroup("Control")

	require.False(t, handler.Enabled(ctx, slog.LevelInfo))
	require.True(t, handler.Enabled(ctx, slog.LevelWarn))

	logger.Info("Connecting")
	logger.Warn("Saved port not available")
	require.NotContains(t, output.String(), "Connecting")
	require.Contains(t, output.String(), "Saved port not available")
	require.Contains(t, output.String(), "port-name=/dev/ttyUSB0")

	// derived handlers share the disabled state
	handler.Disable()
	require.False(t, handler.Enabled(ctx, slog.LevelError))
	require.False(t, logger.Handler().Enabled(ctx, slog.LevelError))
	logger.Error("Stopping App")
	require.NotContains(t, output.String(), "Stopping App")
}
