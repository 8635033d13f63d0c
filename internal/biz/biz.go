// Package biz contains business logic layer implementations.
// This layer holds the circuit breaker decision engine and its admin surface.
package biz

import (
	"FuseGate/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCircuitBreakerUsecase,
	NewAdminUsecase,
	NewConfigUsecase,
	NewSweepTask,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(StateRepo), new(*data.CircuitStateRepo)),
	wire.Bind(new(MetricsRepo), new(*data.CircuitMetricsRepo)),
	wire.Bind(new(RegistryRepo), new(*data.RegistryRepo)),
	wire.Bind(new(ConfigRepo), new(*data.RuntimeConfigRepo)),
	wire.Bind(new(AuditLogger), new(*data.AuditLoggerImpl)),
	wire.Bind(new(AlertNotifier), new(*data.NoopAlertNotifier)),
)
