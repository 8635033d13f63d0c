package data

import (
	"context"
	"fmt"
	"time"

	"FuseGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// analysisWindow is the rolling window over which failure rates are
	// computed. Store-level constant, not runtime-configurable.
	analysisWindow = 5 * time.Minute
	// rawRetention is how long raw events are kept before being pruned.
	rawRetention = 10 * time.Minute
)

// windowedCountScript removes events older than the raw retention cutoff and
// counts the events inside the analysis window, in a single round trip.
// KEYS[1] = event set, ARGV[1] = retention cutoff, ARGV[2] = window cutoff.
var windowedCountScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
return redis.call('ZCOUNT', KEYS[1], ARGV[2], '+inf')
`)

// CircuitMetricsRepo implements biz.MetricsRepo on Redis sorted sets.
// Each service owns two event sets (success and failure) with
// score = unix timestamp, so window queries are score-range reads.
type CircuitMetricsRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewCircuitMetricsRepo creates a new circuit metrics repository.
func NewCircuitMetricsRepo(rdb *redis.Client, logger log.Logger) *CircuitMetricsRepo {
	return &CircuitMetricsRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// RecordSuccess appends a success event with the current timestamp.
func (r *CircuitMetricsRepo) RecordSuccess(ctx context.Context, service string) error {
	return r.recordEvent(ctx, successEventsKey(service))
}

// RecordFailure appends a failure event with the current timestamp.
func (r *CircuitMetricsRepo) RecordFailure(ctx context.Context, service string) error {
	return r.recordEvent(ctx, failureEventsKey(service))
}

// recordEvent adds a uniquely-named member scored by the current time.
// Concurrent appends from many callers never collide or overwrite.
func (r *CircuitMetricsRepo) recordEvent(ctx context.Context, key string) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	now := time.Now()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())

	pipe := r.rdb.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  unixScore(now),
		Member: member,
	})
	// Keep the key from outliving its events if the service goes quiet.
	pipe.Expire(ctx, key, rawRetention+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return nil
}

// Counts returns the per-outcome event counts inside the analysis window.
// Expired entries are pruned as part of the same atomic query.
func (r *CircuitMetricsRepo) Counts(ctx context.Context, service string) (model.WindowedCounts, error) {
	if r.rdb == nil {
		return model.WindowedCounts{}, fmt.Errorf("redis client is nil")
	}

	now := time.Now()
	retentionCutoff := unixScore(now.Add(-rawRetention))
	windowCutoff := unixScore(now.Add(-analysisWindow))

	successes, err := windowedCountScript.Run(ctx, r.rdb,
		[]string{successEventsKey(service)}, retentionCutoff, windowCutoff).Int64()
	if err != nil {
		return model.WindowedCounts{}, fmt.Errorf("failed to count success events: %w", err)
	}

	failures, err := windowedCountScript.Run(ctx, r.rdb,
		[]string{failureEventsKey(service)}, retentionCutoff, windowCutoff).Int64()
	if err != nil {
		return model.WindowedCounts{}, fmt.Errorf("failed to count failure events: %w", err)
	}

	return model.WindowedCounts{
		Successes: successes,
		Failures:  failures,
	}, nil
}

// LastEventAt returns the timestamp of the most recent event of either
// outcome. The second return is false when no events exist.
func (r *CircuitMetricsRepo) LastEventAt(ctx context.Context, service string) (time.Time, bool, error) {
	if r.rdb == nil {
		return time.Time{}, false, fmt.Errorf("redis client is nil")
	}

	pipe := r.rdb.Pipeline()
	successCmd := pipe.ZRevRangeWithScores(ctx, successEventsKey(service), 0, 0)
	failureCmd := pipe.ZRevRangeWithScores(ctx, failureEventsKey(service), 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last event: %w", err)
	}

	var latest float64
	for _, cmd := range []*redis.ZSliceCmd{successCmd, failureCmd} {
		if members := cmd.Val(); len(members) > 0 && members[0].Score > latest {
			latest = members[0].Score
		}
	}

	if latest == 0 {
		return time.Time{}, false, nil
	}

	return time.Unix(0, int64(latest*float64(time.Second))), true, nil
}

// Reset drops all windowed events for a service. Used when a circuit closes
// (fresh start) and on manual metrics reset.
func (r *CircuitMetricsRepo) Reset(ctx context.Context, service string) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	keys := []string{successEventsKey(service), failureEventsKey(service)}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to reset circuit metrics: %w", err)
	}

	return nil
}

// Prune removes events older than the raw retention and returns how many
// entries were dropped. Called periodically by the sweep job so idle
// services do not accumulate stale members.
func (r *CircuitMetricsRepo) Prune(ctx context.Context, service string) (int64, error) {
	if r.rdb == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	cutoff := fmt.Sprintf("%f", unixScore(time.Now().Add(-rawRetention)))

	var removed int64
	for _, key := range []string{successEventsKey(service), failureEventsKey(service)} {
		n, err := r.rdb.ZRemRangeByScore(ctx, key, "-inf", cutoff).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to prune events: %w", err)
		}
		removed += n
	}

	if removed > 0 {
		r.logger.Debugw("pruned expired circuit events",
			"service", service,
			"removed", removed)
	}

	return removed, nil
}

// unixScore converts a time to a fractional unix-seconds sorted set score.
func unixScore(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// successEventsKey generates the Redis key for the success event set.
// Format: circuit:{service}:success_events
func successEventsKey(service string) string {
	return fmt.Sprintf("circuit:%s:success_events", service)
}

// failureEventsKey generates the Redis key for the failure event set.
func failureEventsKey(service string) string {
	return fmt.Sprintf("circuit:%s:failure_events", service)
}
