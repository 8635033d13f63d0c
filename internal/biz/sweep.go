package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
)

// SweepTask prunes expired events for every tracked service and refreshes
// the registry TTL. Expiry is already enforced lazily at query time; the
// sweep keeps idle services from holding stale sorted-set members.
type SweepTask struct {
	metrics  MetricsRepo
	registry RegistryRepo
	logger   *log.Helper
}

// NewSweepTask creates the periodic sweep task.
func NewSweepTask(metrics MetricsRepo, registry RegistryRepo, logger log.Logger) *SweepTask {
	return &SweepTask{
		metrics:  metrics,
		registry: registry,
		logger:   log.NewHelper(logger),
	}
}

// Sweep prunes every tracked service, continuing past per-service failures,
// and returns the total number of removed events.
func (t *SweepTask) Sweep(ctx context.Context) (int64, error) {
	services, err := t.registry.List(ctx)
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, service := range services {
		n, err := t.metrics.Prune(ctx, service)
		if err != nil {
			t.logger.Warnw("failed to prune service events", "service", service, "error", err)
			continue
		}
		removed += n
	}

	if err := t.registry.RefreshTTL(ctx); err != nil {
		t.logger.Warnw("failed to refresh registry TTL", "error", err)
	}

	t.logger.Debugw("sweep completed",
		"services", len(services),
		"removed_events", removed)

	return removed, nil
}
