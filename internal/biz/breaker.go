package biz

import (
	"context"
	"fmt"
	"time"

	"FuseGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// CircuitBreakerUsecase is the decision engine: it evaluates and drives the
// per-service circuit state machine.
//
//	Closed   --(failure rate >= threshold AND total >= minimum)--> Open
//	Open     --(recovery timeout elapsed, on next IsOpen)-------> HalfOpen
//	HalfOpen --(success count >= success threshold)-------------> Closed
//	HalfOpen --(any failure)------------------------------------> Open
//
// All state lives in the shared store, so every instance of the application
// observes the same circuit per service. Store errors are propagated to the
// caller rather than silently failing open or closed; the caller owns that
// safety decision.
type CircuitBreakerUsecase struct {
	state    StateRepo
	metrics  MetricsRepo
	registry RegistryRepo
	config   *ConfigUsecase
	audit    AuditLogger
	notifier AlertNotifier
	logger   *log.Helper
}

// NewCircuitBreakerUsecase creates the decision engine.
func NewCircuitBreakerUsecase(
	state StateRepo,
	metrics MetricsRepo,
	registry RegistryRepo,
	config *ConfigUsecase,
	audit AuditLogger,
	notifier AlertNotifier,
	logger log.Logger,
) *CircuitBreakerUsecase {
	return &CircuitBreakerUsecase{
		state:    state,
		metrics:  metrics,
		registry: registry,
		config:   config,
		audit:    audit,
		notifier: notifier,
		logger:   log.NewHelper(logger),
	}
}

// IsOpen reports whether the circuit must currently block calls.
//
// An open circuit whose recovery timeout has elapsed transitions to HalfOpen
// and returns false: the caller goes through as a trial request. The
// transition is a compare-and-set, so under concurrent callers only one
// performs the transition, but every caller that observed the elapsed
// timeout is admitted as a trial. The half-open request budget is advisory
// and not enforced here.
func (uc *CircuitBreakerUsecase) IsOpen(ctx context.Context, service string) (bool, error) {
	uc.track(ctx, service)

	state, err := uc.state.GetState(ctx, service)
	if err != nil {
		return false, fmt.Errorf("circuit %s: %w", service, err)
	}

	if state != model.StateOpen {
		// Closed and HalfOpen both admit the call.
		return false, nil
	}

	recover, err := uc.shouldTryRecovery(ctx, service)
	if err != nil {
		return false, fmt.Errorf("circuit %s: %w", service, err)
	}
	if !recover {
		return true, nil
	}

	swapped, err := uc.state.CompareAndSwapState(ctx, service, model.StateOpen, model.StateHalfOpen)
	if err != nil {
		return false, fmt.Errorf("circuit %s: %w", service, err)
	}

	if swapped {
		if err := uc.state.ResetHalfOpenSuccess(ctx, service); err != nil {
			uc.logger.Warnw("failed to reset half-open counter", "service", service, "error", err)
		}
		uc.logger.Infow("circuit entering half-open",
			"service", service)
		uc.audit.LogTransition(ctx, service, model.StateOpen, model.StateHalfOpen, "recovery timeout elapsed", false)
		uc.notifier.NotifyStateChange(ctx, service, model.StateOpen, model.StateHalfOpen, "recovery timeout elapsed")
	}

	return false, nil
}

// RecordSuccess reports a successful protected call.
func (uc *CircuitBreakerUsecase) RecordSuccess(ctx context.Context, service string) error {
	uc.track(ctx, service)

	state, err := uc.state.GetState(ctx, service)
	if err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}

	switch state {
	case model.StateHalfOpen:
		count, err := uc.state.IncrHalfOpenSuccess(ctx, service)
		if err != nil {
			return fmt.Errorf("circuit %s: %w", service, err)
		}

		cfg := uc.config.Get(ctx)
		if count < cfg.SuccessThreshold {
			return nil
		}

		swapped, err := uc.state.CompareAndSwapState(ctx, service, model.StateHalfOpen, model.StateClosed)
		if err != nil {
			return fmt.Errorf("circuit %s: %w", service, err)
		}
		if swapped {
			uc.closeCleanup(ctx, service)
			uc.logger.Infow("circuit closed after recovery",
				"service", service,
				"trial_successes", count)
			uc.audit.LogTransition(ctx, service, model.StateHalfOpen, model.StateClosed, "recovery probes succeeded", false)
			uc.notifier.NotifyStateChange(ctx, service, model.StateHalfOpen, model.StateClosed, "recovery probes succeeded")
		}
		return nil

	case model.StateClosed:
		if err := uc.metrics.RecordSuccess(ctx, service); err != nil {
			return fmt.Errorf("circuit %s: %w", service, err)
		}
		return nil

	default:
		// Open: a stale caller finished after the circuit tripped. Ignore.
		return nil
	}
}

// RecordFailure reports a failed protected call.
//
// In HalfOpen a single failure reopens the circuit immediately; there is no
// failure-count threshold during a probe. In Closed the failure joins the
// window and the open condition is evaluated.
func (uc *CircuitBreakerUsecase) RecordFailure(ctx context.Context, service string) error {
	uc.track(ctx, service)

	state, err := uc.state.GetState(ctx, service)
	if err != nil {
		return fmt.Errorf("circuit %s: %w", service, err)
	}

	switch state {
	case model.StateHalfOpen:
		swapped, err := uc.state.CompareAndSwapState(ctx, service, model.StateHalfOpen, model.StateOpen)
		if err != nil {
			return fmt.Errorf("circuit %s: %w", service, err)
		}
		if swapped {
			uc.openCleanup(ctx, service)
			uc.logger.Warnw("circuit reopened: recovery probe failed",
				"service", service)
			uc.audit.LogTransition(ctx, service, model.StateHalfOpen, model.StateOpen, "recovery probe failed", false)
			uc.notifier.NotifyStateChange(ctx, service, model.StateHalfOpen, model.StateOpen, "recovery probe failed")
		}
		return nil

	case model.StateClosed:
		if err := uc.metrics.RecordFailure(ctx, service); err != nil {
			return fmt.Errorf("circuit %s: %w", service, err)
		}

		open, counts, err := uc.shouldOpenCircuit(ctx, service)
		if err != nil {
			return fmt.Errorf("circuit %s: %w", service, err)
		}
		if !open {
			return nil
		}

		swapped, err := uc.state.CompareAndSwapState(ctx, service, model.StateClosed, model.StateOpen)
		if err != nil {
			return fmt.Errorf("circuit %s: %w", service, err)
		}
		if swapped {
			uc.openCleanup(ctx, service)
			uc.logger.Warnw("circuit opened: failure threshold crossed",
				"service", service,
				"failures", counts.Failures,
				"total", counts.Total(),
				"failure_rate_pct", counts.FailureRatePct())
			uc.audit.LogTransition(ctx, service, model.StateClosed, model.StateOpen, "failure threshold crossed", false)
			uc.notifier.NotifyStateChange(ctx, service, model.StateClosed, model.StateOpen, "failure threshold crossed")
		}
		return nil

	default:
		// Open: already tripped, nothing to record.
		return nil
	}
}

// GetState returns the declared state of a service.
func (uc *CircuitBreakerUsecase) GetState(ctx context.Context, service string) (model.CircuitState, error) {
	return uc.state.GetState(ctx, service)
}

// RecoveryTimeRemaining returns how long until an open circuit becomes
// eligible for a recovery probe; zero for circuits that are not open.
func (uc *CircuitBreakerUsecase) RecoveryTimeRemaining(ctx context.Context, service string) (time.Duration, error) {
	state, err := uc.state.GetState(ctx, service)
	if err != nil {
		return 0, err
	}
	if state != model.StateOpen {
		return 0, nil
	}

	openedAt, ok, err := uc.state.GetOpenedAt(ctx, service)
	if err != nil {
		return 0, err
	}
	if !ok {
		// No timestamp: immediately eligible.
		return 0, nil
	}

	cfg := uc.config.Get(ctx)
	remaining := cfg.RecoveryTimeout - time.Since(openedAt)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// shouldOpenCircuit evaluates the open condition over the current window.
// Totals below minimum_requests never open the circuit, regardless of the
// failure rate; small samples are too noisy to act on.
func (uc *CircuitBreakerUsecase) shouldOpenCircuit(ctx context.Context, service string) (bool, model.WindowedCounts, error) {
	counts, err := uc.metrics.Counts(ctx, service)
	if err != nil {
		return false, counts, err
	}

	cfg := uc.config.Get(ctx)
	if counts.Total() < cfg.MinimumRequests {
		return false, counts, nil
	}

	return counts.FailureRatePct() >= cfg.FailureThresholdPct, counts, nil
}

// shouldTryRecovery reports whether an open circuit may admit a probe.
// A missing opened_at timestamp counts as immediately eligible so a circuit
// can never get stuck open.
func (uc *CircuitBreakerUsecase) shouldTryRecovery(ctx context.Context, service string) (bool, error) {
	openedAt, ok, err := uc.state.GetOpenedAt(ctx, service)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	cfg := uc.config.Get(ctx)
	return time.Since(openedAt) >= cfg.RecoveryTimeout, nil
}

// openCleanup stamps the open transition and resets the trial counter.
func (uc *CircuitBreakerUsecase) openCleanup(ctx context.Context, service string) {
	if err := uc.state.StampOpenedAt(ctx, service, time.Now()); err != nil {
		uc.logger.Warnw("failed to stamp opened_at", "service", service, "error", err)
	}
	if err := uc.state.ResetHalfOpenSuccess(ctx, service); err != nil {
		uc.logger.Warnw("failed to reset half-open counter", "service", service, "error", err)
	}
}

// closeCleanup gives the circuit a fresh start: windowed metrics, the open
// timestamp, and the trial counter are all cleared.
func (uc *CircuitBreakerUsecase) closeCleanup(ctx context.Context, service string) {
	if err := uc.metrics.Reset(ctx, service); err != nil {
		uc.logger.Warnw("failed to reset metrics", "service", service, "error", err)
	}
	if err := uc.state.ClearOpenedAt(ctx, service); err != nil {
		uc.logger.Warnw("failed to clear opened_at", "service", service, "error", err)
	}
	if err := uc.state.ResetHalfOpenSuccess(ctx, service); err != nil {
		uc.logger.Warnw("failed to reset half-open counter", "service", service, "error", err)
	}
}

// track registers the service in the tracked set, best-effort.
func (uc *CircuitBreakerUsecase) track(ctx context.Context, service string) {
	if err := uc.registry.Track(ctx, service); err != nil {
		uc.logger.Warnw("failed to track service", "service", service, "error", err)
	}
}
