package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_LevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))
	ctx := context.Background()

	l.Debug(ctx, "dbg")
	l.Info(ctx, "inf", "shop", "A")
	l.With("module", "sync").Warn(ctx, "wrn", "n", 2)
	l.Error(ctx, "err")

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "A", entries[1].ContextMap()["shop"])

	warn := entries[2].ContextMap()
	assert.Equal(t, "sync", warn["module"])
	assert.EqualValues(t, 2, warn["n"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestNop_DiscardsAndChains(t *testing.T) {
	l := Nop()
	l.Info(context.Background(), "x")
	assert.NotNil(t, l.With("a", 1))
}
