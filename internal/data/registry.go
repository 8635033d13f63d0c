package data

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	// trackedServicesKey is the global set of every service the breaker
	// has ever observed. Drives aggregate health checks and bulk metrics.
	trackedServicesKey = "circuit:tracked_services"
	// registryTTL keeps the set alive as long as any instance keeps
	// touching circuits; SADD merges are append-only and race-free.
	registryTTL = 24 * time.Hour
)

// RegistryRepo implements biz.RegistryRepo on a Redis set.
type RegistryRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewRegistryRepo creates a new tracked-services registry repository.
func NewRegistryRepo(rdb *redis.Client, logger log.Logger) *RegistryRepo {
	return &RegistryRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// Track adds a service to the tracked set and refreshes the set TTL.
// Idempotent; concurrent additions merge safely.
func (r *RegistryRepo) Track(ctx context.Context, service string) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	pipe := r.rdb.Pipeline()
	pipe.SAdd(ctx, trackedServicesKey, service)
	pipe.Expire(ctx, trackedServicesKey, registryTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to track service: %w", err)
	}

	return nil
}

// List returns every tracked service identifier.
func (r *RegistryRepo) List(ctx context.Context) ([]string, error) {
	if r.rdb == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	services, err := r.rdb.SMembers(ctx, trackedServicesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked services: %w", err)
	}

	return services, nil
}

// RefreshTTL extends the registry lifetime; called by the sweep job.
func (r *RegistryRepo) RefreshTTL(ctx context.Context) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.rdb.Expire(ctx, trackedServicesKey, registryTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh registry TTL: %w", err)
	}

	return nil
}
