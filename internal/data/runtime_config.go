package data

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// runtimeConfigKey is the shared hash of runtime threshold overrides.
// Keeping overrides in Redis means every instance converges on the same
// effective configuration without a redeploy.
const runtimeConfigKey = "circuit:config"

// RuntimeConfigRepo implements biz.ConfigRepo on a Redis hash.
type RuntimeConfigRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewRuntimeConfigRepo creates a new runtime config repository.
func NewRuntimeConfigRepo(rdb *redis.Client, logger log.Logger) *RuntimeConfigRepo {
	return &RuntimeConfigRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// GetOverrides returns the current override fields. An empty map means no
// overrides are in effect and the deployment defaults apply unchanged.
func (r *RuntimeConfigRepo) GetOverrides(ctx context.Context) (map[string]string, error) {
	if r.rdb == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	overrides, err := r.rdb.HGetAll(ctx, runtimeConfigKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get config overrides: %w", err)
	}

	return overrides, nil
}

// SetOverride writes a single validated override field.
func (r *RuntimeConfigRepo) SetOverride(ctx context.Context, field string, value float64) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw := strconv.FormatFloat(value, 'f', -1, 64)
	if err := r.rdb.HSet(ctx, runtimeConfigKey, field, raw).Err(); err != nil {
		return fmt.Errorf("failed to set config override: %w", err)
	}

	r.logger.Debugw("config override written", "field", field, "value", raw)

	return nil
}
