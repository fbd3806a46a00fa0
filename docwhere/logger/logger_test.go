package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWarnCarriesErrorAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Warn("field skipped", errors.New("boom"), map[string]interface{}{
		"collection": "articles",
		"field":      "missing",
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "field skipped", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "articles", ctx["collection"])
	assert.Equal(t, "missing", ctx["field"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core))

	l.Debug("hidden", nil)
	l.Info("shown", nil)
	l.Error("also shown", nil)

	assert.Equal(t, 2, logs.Len())
}

func TestLevelNames(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, level(Debug))
	assert.Equal(t, zapcore.WarnLevel, level(Warning))
	assert.Equal(t, zapcore.WarnLevel, level("warn"))
	assert.Equal(t, zapcore.ErrorLevel, level(Error))
	assert.Equal(t, zapcore.InfoLevel, level(""))
	assert.Equal(t, zapcore.InfoLevel, level("verbose"))
}

func TestNewBuildsLogger(t *testing.T) {
	l, err := New(Config{Level: Debug})
	require.NoError(t, err)
	require.NotNil(t, l.Zap)
	assert.True(t, l.Zap.Core().Enabled(zapcore.DebugLevel))
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Error("nothing", errors.New("x"))
	assert.False(t, l.Zap.Core().Enabled(zapcore.ErrorLevel))
}
