package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		"INFO":   zapcore.InfoLevel,
		" warn ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"panic":  zapcore.PanicLevel,
		"fatal":  zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextHelpers ensures named loggers and key-values travel through the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "engine")
	ctx = WithKV(ctx, "name", "Security system")

	InfoKV(ctx, "Current mode (Away)", "arming", false)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "engine", entries[0].LoggerName)
	require.Equal(t, "Current mode (Away)", entries[0].Message)
	require.Equal(t, "Security system", entries[0].ContextMap()["name"])
	require.Equal(t, false, entries[0].ContextMap()["arming"])
}

// TestFromContextFallsBackToGlobal ensures a bare context still yields a logger.
func TestFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
	require.NotNil(t, New(FormatJSON))
}
