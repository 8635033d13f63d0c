package biz

import (
	"context"
	"os"
	"testing"
	"time"

	"FuseGate/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_NoTrackedServices(t *testing.T) {
	s := newTestStack(t, nil)
	logger := log.NewStdLogger(os.Stdout)
	task := NewSweepTask(s.metrics, data.NewRegistryRepo(s.rdb, logger), logger)

	removed, err := task.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestSweep_KeepsFreshEvents(t *testing.T) {
	s := newTestStack(t, nil)
	ctx := context.Background()

	recordCalls(t, s, "payment-api", 2, 1)

	logger := log.NewStdLogger(os.Stdout)
	task := NewSweepTask(s.metrics, data.NewRegistryRepo(s.rdb, logger), logger)

	removed, err := task.Sweep(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	counts, err := s.metrics.Counts(ctx, "payment-api")
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Total())
}

func TestSweep_RefreshesRegistry(t *testing.T) {
	s := newTestStack(t, nil)
	ctx := context.Background()

	recordCalls(t, s, "payment-api", 1, 0)

	logger := log.NewStdLogger(os.Stdout)
	registry := data.NewRegistryRepo(s.rdb, logger)
	task := NewSweepTask(s.metrics, registry, logger)

	s.mr.FastForward(12 * time.Hour)

	_, err := task.Sweep(ctx)
	assert.NoError(t, err)

	ttl := s.rdb.TTL(ctx, "circuit:tracked_services").Val()
	assert.Greater(t, ttl, 23*time.Hour)
}
