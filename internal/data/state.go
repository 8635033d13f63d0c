package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"FuseGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// halfOpenCounterTTL bounds how long a stale half-open success counter can
// survive if a circuit never finishes its probe cycle.
const halfOpenCounterTTL = 10 * time.Minute

// casStateScript performs a compare-and-set on the state key with a
// from-state guard. A missing key compares equal to "closed", so an unseen
// service can transition out of its implicit default. Returns 1 when the
// swap happened.
var casStateScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false then
  cur = 'closed'
end
if cur ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

// CircuitStateRepo implements biz.StateRepo on Redis. Each service owns a
// small namespace of keys: declared state, open-transition timestamp, and
// the half-open trial success counter.
type CircuitStateRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewCircuitStateRepo creates a new circuit state repository.
func NewCircuitStateRepo(rdb *redis.Client, logger log.Logger) *CircuitStateRepo {
	return &CircuitStateRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// GetState returns the declared state of a service.
// A service that was never written reads as Closed: absence means healthy.
func (r *CircuitStateRepo) GetState(ctx context.Context, service string) (model.CircuitState, error) {
	if r.rdb == nil {
		return model.StateClosed, fmt.Errorf("redis client is nil")
	}

	val, err := r.rdb.Get(ctx, stateKey(service)).Result()
	if errors.Is(err, redis.Nil) {
		return model.StateClosed, nil
	}
	if err != nil {
		return model.StateClosed, fmt.Errorf("failed to get circuit state: %w", err)
	}

	state := model.CircuitState(val)
	if !state.Valid() {
		r.logger.Warnw("unknown circuit state in store, treating as closed",
			"service", service,
			"state", val)
		return model.StateClosed, nil
	}

	return state, nil
}

// SetState unconditionally writes the declared state (manual overrides).
func (r *CircuitStateRepo) SetState(ctx context.Context, service string, state model.CircuitState) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.rdb.Set(ctx, stateKey(service), string(state), 0).Err(); err != nil {
		return fmt.Errorf("failed to set circuit state: %w", err)
	}

	return nil
}

// CompareAndSwapState transitions from -> to atomically. It returns false
// when another caller already moved the circuit out of the from state, so
// concurrent threshold crossings stamp their side effects only once.
func (r *CircuitStateRepo) CompareAndSwapState(ctx context.Context, service string, from, to model.CircuitState) (bool, error) {
	if r.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	res, err := casStateScript.Run(ctx, r.rdb, []string{stateKey(service)}, string(from), string(to)).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to swap circuit state: %w", err)
	}

	return res == 1, nil
}

// StampOpenedAt records the instant a circuit transitioned into Open.
// Stored as unix milliseconds so short recovery timeouts stay accurate.
func (r *CircuitStateRepo) StampOpenedAt(ctx context.Context, service string, t time.Time) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.rdb.Set(ctx, openedAtKey(service), t.UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("failed to stamp opened_at: %w", err)
	}

	return nil
}

// GetOpenedAt returns the open-transition timestamp. The second return is
// false when no timestamp is recorded; callers treat that as immediately
// eligible for recovery, which keeps a circuit from getting stuck open.
func (r *CircuitStateRepo) GetOpenedAt(ctx context.Context, service string) (time.Time, bool, error) {
	if r.rdb == nil {
		return time.Time{}, false, fmt.Errorf("redis client is nil")
	}

	val, err := r.rdb.Get(ctx, openedAtKey(service)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get opened_at: %w", err)
	}

	millis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse opened_at: %w", err)
	}

	return time.UnixMilli(millis), true, nil
}

// ClearOpenedAt removes the open-transition timestamp.
func (r *CircuitStateRepo) ClearOpenedAt(ctx context.Context, service string) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.rdb.Del(ctx, openedAtKey(service)).Err(); err != nil {
		return fmt.Errorf("failed to clear opened_at: %w", err)
	}

	return nil
}

// IncrHalfOpenSuccess atomically increments the half-open trial success
// counter and returns the new value. A single increment-and-read avoids the
// read-modify-write race on concurrent trial completions.
func (r *CircuitStateRepo) IncrHalfOpenSuccess(ctx context.Context, service string) (int64, error) {
	if r.rdb == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	key := halfOpenSuccessKey(service)

	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment half-open success count: %w", err)
	}

	// Set TTL on first increment
	if count == 1 {
		if err := r.rdb.Expire(ctx, key, halfOpenCounterTTL).Err(); err != nil {
			r.logger.Warnw("failed to set half-open counter TTL", "service", service, "error", err)
		}
	}

	return count, nil
}

// ResetHalfOpenSuccess zeroes the half-open trial success counter. Called on
// every entry into HalfOpen and on every exit.
func (r *CircuitStateRepo) ResetHalfOpenSuccess(ctx context.Context, service string) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.rdb.Del(ctx, halfOpenSuccessKey(service)).Err(); err != nil {
		return fmt.Errorf("failed to reset half-open success count: %w", err)
	}

	return nil
}

// stateKey generates the Redis key for the declared state.
// Format: circuit:{service}:state
func stateKey(service string) string {
	return fmt.Sprintf("circuit:%s:state", service)
}

// openedAtKey generates the Redis key for the open-transition timestamp.
func openedAtKey(service string) string {
	return fmt.Sprintf("circuit:%s:opened_at", service)
}

// halfOpenSuccessKey generates the Redis key for the half-open success counter.
func halfOpenSuccessKey(service string) string {
	return fmt.Sprintf("circuit:%s:half_open_success", service)
}
