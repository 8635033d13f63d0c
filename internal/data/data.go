// Package data provides data access layer implementations.
// It owns the Redis-backed circuit stores and the optional MySQL audit trail.
package data

import (
	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewMySQLClient,
	NewCircuitStateRepo,
	NewCircuitMetricsRepo,
	NewRegistryRepo,
	NewRuntimeConfigRepo,
	NewAuditLogger,
	NewNoopAlertNotifier,
)
