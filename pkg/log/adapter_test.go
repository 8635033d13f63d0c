package log

import (
	"testing"

	kratoslog "github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedAdapter(t *testing.T) (kratoslog.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewKratosAdapter(zap.New(core)), logs
}

func TestKratosAdapter_LevelsAndFields(t *testing.T) {
	adapter, logs := newObservedAdapter(t)

	err := adapter.Log(kratoslog.LevelInfo, "service", "payment-api", "state", "open")
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "payment-api", fields["service"])
	assert.Equal(t, "open", fields["state"])
}

func TestKratosAdapter_ErrorLevel(t *testing.T) {
	adapter, logs := newObservedAdapter(t)

	err := adapter.Log(kratoslog.LevelError, "error", "connection refused")
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestKratosAdapter_EmptyKeyvals(t *testing.T) {
	adapter, logs := newObservedAdapter(t)

	err := adapter.Log(kratoslog.LevelInfo)
	require.NoError(t, err)
	assert.Empty(t, logs.All())
}

func TestKratosAdapter_OddKeyvalsDropsDangler(t *testing.T) {
	adapter, logs := newObservedAdapter(t)

	err := adapter.Log(kratoslog.LevelWarn, "service", "payment-api", "dangling")
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "payment-api", fields["service"])
	assert.NotContains(t, fields, "dangling")
}
