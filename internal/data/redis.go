// Package data provides data access layer implementations.
package data

import (
	"context"
	"time"

	"FuseGate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a new Redis client with connection pool configuration.
// It returns the client and a cleanup function.
// Connection failure does not prevent application startup (graceful degradation);
// store operations will surface errors to their callers until Redis recovers.
func NewRedisClient(c *conf.Data, logger log.Logger) (*redis.Client, func(), error) {
	helper := log.NewHelper(logger)

	if c == nil || c.Redis == nil || c.Redis.Addr == "" {
		helper.Warn("Redis configuration is missing, circuit state will be unavailable")
		return nil, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Network:         c.Redis.Network,
		Addr:            c.Redis.Addr,
		PoolSize:        100,
		MinIdleConns:    10,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     c.Redis.ReadTimeout,
		WriteTimeout:    c.Redis.WriteTimeout,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	// Health check: verify connection with ping
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		helper.Warnf("failed to connect to Redis at %s: %v (application will continue and retry on demand)", c.Redis.Addr, err)
	} else {
		helper.Infof("connected to Redis at %s", c.Redis.Addr)
	}

	cleanup := func() {
		helper.Info("closing Redis client")
		if err := rdb.Close(); err != nil {
			helper.Errorf("failed to close Redis client: %v", err)
		}
	}

	return rdb, cleanup, nil
}
