package data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackAndList(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	defer rdb.Close()

	logger := log.NewStdLogger(os.Stdout)
	repo := NewRegistryRepo(rdb, logger)
	ctx := context.Background()

	require.NoError(t, repo.Track(ctx, "payment-api"))
	require.NoError(t, repo.Track(ctx, "user-api"))
	// Tracking twice is idempotent.
	require.NoError(t, repo.Track(ctx, "payment-api"))

	services, err := repo.List(ctx)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"payment-api", "user-api"}, services)
}

func TestList_Empty(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	defer rdb.Close()

	logger := log.NewStdLogger(os.Stdout)
	repo := NewRegistryRepo(rdb, logger)

	services, err := repo.List(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, services)
}

func TestTrack_SetsTTL(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	defer rdb.Close()

	logger := log.NewStdLogger(os.Stdout)
	repo := NewRegistryRepo(rdb, logger)
	ctx := context.Background()

	require.NoError(t, repo.Track(ctx, "payment-api"))

	ttl := rdb.TTL(ctx, trackedServicesKey).Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, registryTTL)
}

func TestRefreshTTL(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	defer rdb.Close()

	logger := log.NewStdLogger(os.Stdout)
	repo := NewRegistryRepo(rdb, logger)
	ctx := context.Background()

	require.NoError(t, repo.Track(ctx, "payment-api"))

	// Age the key, then refresh back to the full TTL.
	mr.FastForward(12 * time.Hour)
	require.NoError(t, repo.RefreshTTL(ctx))

	ttl := rdb.TTL(ctx, trackedServicesKey).Val()
	assert.Greater(t, ttl, 23*time.Hour)
}
