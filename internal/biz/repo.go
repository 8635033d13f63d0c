package biz

import (
	"context"
	"time"

	"FuseGate/internal/model"
)

// StateRepo defines the per-service circuit state store.
// Following Kratos v2 DDD architecture, interfaces are defined in the biz
// layer; implementations live in the data layer.
type StateRepo interface {
	// GetState returns the declared state; unseen services read as Closed.
	GetState(ctx context.Context, service string) (model.CircuitState, error)
	// SetState unconditionally writes the declared state (manual overrides).
	SetState(ctx context.Context, service string, state model.CircuitState) error
	// CompareAndSwapState transitions from -> to atomically, returning
	// false if the circuit was not in the from state.
	CompareAndSwapState(ctx context.Context, service string, from, to model.CircuitState) (bool, error)

	// Open-transition timestamp operations
	StampOpenedAt(ctx context.Context, service string, t time.Time) error
	GetOpenedAt(ctx context.Context, service string) (time.Time, bool, error)
	ClearOpenedAt(ctx context.Context, service string) error

	// Half-open trial success counter operations
	IncrHalfOpenSuccess(ctx context.Context, service string) (int64, error)
	ResetHalfOpenSuccess(ctx context.Context, service string) error
}

// MetricsRepo defines the time-windowed per-service event store.
type MetricsRepo interface {
	RecordSuccess(ctx context.Context, service string) error
	RecordFailure(ctx context.Context, service string) error
	// Counts returns windowed per-outcome totals, pruning expired entries
	// in the same atomic query.
	Counts(ctx context.Context, service string) (model.WindowedCounts, error)
	LastEventAt(ctx context.Context, service string) (time.Time, bool, error)
	Reset(ctx context.Context, service string) error
	Prune(ctx context.Context, service string) (int64, error)
}

// RegistryRepo defines the tracked-services set.
type RegistryRepo interface {
	Track(ctx context.Context, service string) error
	List(ctx context.Context) ([]string, error)
	RefreshTTL(ctx context.Context) error
}

// ConfigRepo defines the shared runtime config override store.
type ConfigRepo interface {
	GetOverrides(ctx context.Context) (map[string]string, error)
	SetOverride(ctx context.Context, field string, value float64) error
}

// AuditLogger records circuit lifecycle events durably. Implementations
// must never block the caller.
type AuditLogger interface {
	LogTransition(ctx context.Context, service string, from, to model.CircuitState, reason string, manual bool)
	LogMetricsReset(ctx context.Context, service string)
	LogConfigUpdate(ctx context.Context, field string, value float64)
}

// AlertNotifier delivers state change notifications. Delivery channels are
// out of scope here; the default implementation is a no-op.
type AlertNotifier interface {
	NotifyStateChange(ctx context.Context, service string, from, to model.CircuitState, reason string)
}
