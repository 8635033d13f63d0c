package biz

import (
	"context"
	"fmt"
	"time"

	"FuseGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// AdminUsecase implements the read-only metrics/health aggregation and the
// manual override operations. It never participates in the hot path.
type AdminUsecase struct {
	breaker  *CircuitBreakerUsecase
	state    StateRepo
	metrics  MetricsRepo
	registry RegistryRepo
	config   *ConfigUsecase
	audit    AuditLogger
	notifier AlertNotifier
	logger   *log.Helper
}

// NewAdminUsecase creates the admin use case.
func NewAdminUsecase(
	breaker *CircuitBreakerUsecase,
	state StateRepo,
	metrics MetricsRepo,
	registry RegistryRepo,
	config *ConfigUsecase,
	audit AuditLogger,
	notifier AlertNotifier,
	logger log.Logger,
) *AdminUsecase {
	return &AdminUsecase{
		breaker:  breaker,
		state:    state,
		metrics:  metrics,
		registry: registry,
		config:   config,
		audit:    audit,
		notifier: notifier,
		logger:   log.NewHelper(logger),
	}
}

// GetMetrics returns the admin snapshot of a single circuit. An unknown
// service is a fresh Closed circuit with zero counters, not an error.
func (uc *AdminUsecase) GetMetrics(ctx context.Context, service string) (model.MetricsSnapshot, error) {
	state, err := uc.state.GetState(ctx, service)
	if err != nil {
		return model.MetricsSnapshot{}, fmt.Errorf("circuit %s: %w", service, err)
	}

	counts, err := uc.metrics.Counts(ctx, service)
	if err != nil {
		return model.MetricsSnapshot{}, fmt.Errorf("circuit %s: %w", service, err)
	}

	remaining, err := uc.breaker.RecoveryTimeRemaining(ctx, service)
	if err != nil {
		return model.MetricsSnapshot{}, fmt.Errorf("circuit %s: %w", service, err)
	}

	lastUpdated, _, err := uc.metrics.LastEventAt(ctx, service)
	if err != nil {
		return model.MetricsSnapshot{}, fmt.Errorf("circuit %s: %w", service, err)
	}

	return model.MetricsSnapshot{
		Service:               service,
		State:                 state,
		Successes:             counts.Successes,
		Failures:              counts.Failures,
		TotalRequests:         counts.Total(),
		FailureRatePct:        counts.FailureRatePct(),
		RecoveryTimeRemaining: int64(remaining.Round(time.Second) / time.Second),
		LastUpdated:           lastUpdated,
	}, nil
}

// GetAllMetrics returns snapshots for every tracked service. Per-service
// read failures are skipped with a warning so one bad circuit does not hide
// the rest of the fleet.
func (uc *AdminUsecase) GetAllMetrics(ctx context.Context) (map[string]model.MetricsSnapshot, error) {
	services, err := uc.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked services: %w", err)
	}

	all := make(map[string]model.MetricsSnapshot, len(services))
	for _, service := range services {
		snapshot, err := uc.GetMetrics(ctx, service)
		if err != nil {
			uc.logger.Warnw("failed to read circuit metrics", "service", service, "error", err)
			continue
		}
		all[service] = snapshot
	}

	return all, nil
}

// HealthCheck aggregates fleet-wide circuit health. The status is degraded
// when any circuit is open and unhealthy when more than half are open.
func (uc *AdminUsecase) HealthCheck(ctx context.Context) (model.HealthReport, error) {
	all, err := uc.GetAllMetrics(ctx)
	if err != nil {
		return model.HealthReport{}, err
	}

	summary := model.HealthSummary{Total: len(all)}
	for _, snapshot := range all {
		switch snapshot.State {
		case model.StateOpen:
			summary.Open++
		case model.StateHalfOpen:
			summary.HalfOpen++
		default:
			summary.Closed++
		}
	}

	status := model.HealthHealthy
	switch {
	case summary.Total > 0 && summary.Open*2 > summary.Total:
		status = model.HealthUnhealthy
	case summary.Open > 0:
		status = model.HealthDegraded
	}

	return model.HealthReport{
		Status:   status,
		Services: all,
		Summary:  summary,
	}, nil
}

// OpenCircuit forces a circuit open, regardless of its metrics.
func (uc *AdminUsecase) OpenCircuit(ctx context.Context, service, reason string) error {
	if err := uc.registry.Track(ctx, service); err != nil {
		uc.logger.Warnw("failed to track service", "service", service, "error", err)
	}

	from, err := uc.state.GetState(ctx, service)
	if err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}

	if err := uc.state.SetState(ctx, service, model.StateOpen); err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}
	if err := uc.state.StampOpenedAt(ctx, service, time.Now()); err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}
	if err := uc.state.ResetHalfOpenSuccess(ctx, service); err != nil {
		uc.logger.Warnw("failed to reset half-open counter", "service", service, "error", err)
	}

	uc.logger.Warnw("circuit manually opened",
		"service", service,
		"reason", reason)
	uc.audit.LogTransition(ctx, service, from, model.StateOpen, reason, true)
	uc.notifier.NotifyStateChange(ctx, service, from, model.StateOpen, reason)

	return nil
}

// CloseCircuit forces a circuit closed and resets its metrics. Closing an
// already-closed circuit is a no-op for state but still resets metrics.
func (uc *AdminUsecase) CloseCircuit(ctx context.Context, service, reason string) error {
	if err := uc.registry.Track(ctx, service); err != nil {
		uc.logger.Warnw("failed to track service", "service", service, "error", err)
	}

	from, err := uc.state.GetState(ctx, service)
	if err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}

	if err := uc.state.SetState(ctx, service, model.StateClosed); err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}
	if err := uc.metrics.Reset(ctx, service); err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}
	if err := uc.state.ClearOpenedAt(ctx, service); err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}
	if err := uc.state.ResetHalfOpenSuccess(ctx, service); err != nil {
		uc.logger.Warnw("failed to reset half-open counter", "service", service, "error", err)
	}

	uc.logger.Infow("circuit manually closed",
		"service", service,
		"reason", reason)
	uc.audit.LogTransition(ctx, service, from, model.StateClosed, reason, true)
	uc.notifier.NotifyStateChange(ctx, service, from, model.StateClosed, reason)

	return nil
}

// ResetMetrics clears the windowed counters, the half-open counter, and the
// open timestamp without changing the declared state.
func (uc *AdminUsecase) ResetMetrics(ctx context.Context, service string) error {
	if err := uc.metrics.Reset(ctx, service); err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}
	if err := uc.state.ClearOpenedAt(ctx, service); err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}
	if err := uc.state.ResetHalfOpenSuccess(ctx, service); err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}

	uc.logger.Infow("circuit metrics reset", "service", service)
	uc.audit.LogMetricsReset(ctx, service)

	return nil
}

// GetConfiguration returns the effective breaker configuration.
func (uc *AdminUsecase) GetConfiguration(ctx context.Context) model.BreakerConfig {
	return uc.config.Get(ctx)
}

// UpdateConfiguration applies a partial runtime config update, auditing
// each accepted field.
func (uc *AdminUsecase) UpdateConfiguration(ctx context.Context, partial map[string]interface{}) (map[string]float64, error) {
	applied, err := uc.config.Update(ctx, partial)
	for field, value := range applied {
		uc.audit.LogConfigUpdate(ctx, field, value)
	}
	return applied, err
}
