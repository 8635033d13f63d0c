package data

import (
	"context"
	"os"
	"testing"
	"time"

	"FuseGate/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return rdb, mr
}

func newTestStateRepo(t *testing.T) (*CircuitStateRepo, *redis.Client, *miniredis.Miniredis) {
	rdb, mr := setupTestRedis(t)
	t.Cleanup(func() { rdb.Close() })

	logger := log.NewStdLogger(os.Stdout)
	return NewCircuitStateRepo(rdb, logger), rdb, mr
}

func TestGetState_UnknownServiceReadsClosed(t *testing.T) {
	repo, _, _ := newTestStateRepo(t)
	ctx := context.Background()

	state, err := repo.GetState(ctx, "payment-api")
	assert.NoError(t, err)
	assert.Equal(t, model.StateClosed, state)
}

func TestGetState_InvalidStoredValueReadsClosed(t *testing.T) {
	repo, rdb, _ := newTestStateRepo(t)
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, stateKey("payment-api"), "exploded", 0).Err())

	state, err := repo.GetState(ctx, "payment-api")
	assert.NoError(t, err)
	assert.Equal(t, model.StateClosed, state)
}

func TestSetState_RoundTrip(t *testing.T) {
	repo, _, _ := newTestStateRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, "payment-api", model.StateOpen))

	state, err := repo.GetState(ctx, "payment-api")
	assert.NoError(t, err)
	assert.Equal(t, model.StateOpen, state)
}

func TestCompareAndSwapState_UnseenServiceComparesAsClosed(t *testing.T) {
	repo, _, _ := newTestStateRepo(t)
	ctx := context.Background()

	// No key exists yet; from=closed must still match.
	swapped, err := repo.CompareAndSwapState(ctx, "payment-api", model.StateClosed, model.StateOpen)
	assert.NoError(t, err)
	assert.True(t, swapped)

	state, err := repo.GetState(ctx, "payment-api")
	assert.NoError(t, err)
	assert.Equal(t, model.StateOpen, state)
}

func TestCompareAndSwapState_WrongFromStateDoesNothing(t *testing.T) {
	repo, _, _ := newTestStateRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, "payment-api", model.StateOpen))

	swapped, err := repo.CompareAndSwapState(ctx, "payment-api", model.StateHalfOpen, model.StateClosed)
	assert.NoError(t, err)
	assert.False(t, swapped)

	state, err := repo.GetState(ctx, "payment-api")
	assert.NoError(t, err)
	assert.Equal(t, model.StateOpen, state)
}

func TestCompareAndSwapState_OnlyOneWinner(t *testing.T) {
	repo, _, _ := newTestStateRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, "payment-api", model.StateOpen))

	first, err := repo.CompareAndSwapState(ctx, "payment-api", model.StateOpen, model.StateHalfOpen)
	assert.NoError(t, err)
	second, err := repo.CompareAndSwapState(ctx, "payment-api", model.StateOpen, model.StateHalfOpen)
	assert.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestOpenedAt_RoundTrip(t *testing.T) {
	repo, _, _ := newTestStateRepo(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.StampOpenedAt(ctx, "payment-api", now))

	openedAt, ok, err := repo.GetOpenedAt(ctx, "payment-api")
	assert.NoError(t, err)
	assert.True(t, ok)
	// Stored at millisecond precision.
	assert.WithinDuration(t, now, openedAt, time.Millisecond)
}

func TestGetOpenedAt_MissingTimestamp(t *testing.T) {
	repo, _, _ := newTestStateRepo(t)
	ctx := context.Background()

	_, ok, err := repo.GetOpenedAt(ctx, "payment-api")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestClearOpenedAt(t *testing.T) {
	repo, _, _ := newTestStateRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.StampOpenedAt(ctx, "payment-api", time.Now()))
	require.NoError(t, repo.ClearOpenedAt(ctx, "payment-api"))

	_, ok, err := repo.GetOpenedAt(ctx, "payment-api")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrHalfOpenSuccess_CountsAndExpires(t *testing.T) {
	repo, rdb, _ := newTestStateRepo(t)
	ctx := context.Background()

	count, err := repo.IncrHalfOpenSuccess(ctx, "payment-api")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.IncrHalfOpenSuccess(ctx, "payment-api")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// TTL is set on first increment so a stale counter cannot linger.
	ttl := rdb.TTL(ctx, halfOpenSuccessKey("payment-api")).Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, halfOpenCounterTTL)
}

func TestResetHalfOpenSuccess(t *testing.T) {
	repo, _, _ := newTestStateRepo(t)
	ctx := context.Background()

	_, err := repo.IncrHalfOpenSuccess(ctx, "payment-api")
	require.NoError(t, err)
	require.NoError(t, repo.ResetHalfOpenSuccess(ctx, "payment-api"))

	count, err := repo.IncrHalfOpenSuccess(ctx, "payment-api")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStateRepo_NilClient(t *testing.T) {
	logger := log.NewStdLogger(os.Stdout)
	repo := NewCircuitStateRepo(nil, logger)
	ctx := context.Background()

	_, err := repo.GetState(ctx, "payment-api")
	assert.Error(t, err)

	err = repo.SetState(ctx, "payment-api", model.StateOpen)
	assert.Error(t, err)

	_, err = repo.CompareAndSwapState(ctx, "payment-api", model.StateClosed, model.StateOpen)
	assert.Error(t, err)
}
