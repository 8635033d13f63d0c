// Package model contains domain models shared between layers.
package model

import "time"

// CircuitState is the declared state of a circuit.
// An unseen service reads as StateClosed: absence means healthy.
type CircuitState string

const (
	// StateClosed allows all traffic through.
	StateClosed CircuitState = "closed"
	// StateOpen blocks traffic until the recovery timeout elapses.
	StateOpen CircuitState = "open"
	// StateHalfOpen admits trial traffic to probe recovery.
	StateHalfOpen CircuitState = "half_open"
)

// Valid reports whether s is one of the three known states.
func (s CircuitState) Valid() bool {
	switch s {
	case StateClosed, StateOpen, StateHalfOpen:
		return true
	}
	return false
}

// WindowedCounts are the per-outcome event counts inside the analysis window.
type WindowedCounts struct {
	Successes int64
	Failures  int64
}

// Total returns the windowed request total.
func (w WindowedCounts) Total() int64 {
	return w.Successes + w.Failures
}

// FailureRatePct returns failures / total as a percentage, 0 when empty.
func (w WindowedCounts) FailureRatePct() float64 {
	total := w.Total()
	if total == 0 {
		return 0
	}
	return float64(w.Failures) / float64(total) * 100
}

// MetricsSnapshot is the admin view of a single circuit.
type MetricsSnapshot struct {
	Service               string       `json:"service"`
	State                 CircuitState `json:"state"`
	Successes             int64        `json:"successes"`
	Failures              int64        `json:"failures"`
	TotalRequests         int64        `json:"total_requests"`
	FailureRatePct        float64      `json:"failure_rate_pct"`
	RecoveryTimeRemaining int64        `json:"recovery_time_remaining_seconds"`
	LastUpdated           time.Time    `json:"last_updated"`
}

// HealthStatus summarizes the fleet-wide circuit health.
type HealthStatus string

const (
	// HealthHealthy means no circuit is open.
	HealthHealthy HealthStatus = "healthy"
	// HealthDegraded means at least one circuit is open.
	HealthDegraded HealthStatus = "degraded"
	// HealthUnhealthy means more than half of the tracked circuits are open.
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthSummary counts tracked circuits per state.
type HealthSummary struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	HalfOpen int `json:"half_open"`
	Closed   int `json:"closed"`
}

// HealthReport is the aggregate health check result.
type HealthReport struct {
	Status   HealthStatus               `json:"status"`
	Services map[string]MetricsSnapshot `json:"services"`
	Summary  HealthSummary              `json:"summary"`
}

// BreakerConfig is the effective circuit breaker configuration: deployment
// defaults overlaid with the shared runtime overrides.
type BreakerConfig struct {
	// FailureThresholdPct is the windowed failure rate (percent) at which
	// a closed circuit opens.
	FailureThresholdPct float64 `json:"failure_threshold"`
	// MinimumRequests is the windowed request total below which the
	// failure rate is never evaluated.
	MinimumRequests int64 `json:"minimum_requests"`
	// RecoveryTimeout is how long an open circuit waits before admitting
	// a half-open trial.
	RecoveryTimeout time.Duration `json:"-"`
	// HalfOpenRequests is the advisory half-open trial budget.
	HalfOpenRequests int64 `json:"half_open_requests"`
	// SuccessThreshold is the number of half-open successes that close
	// the circuit.
	SuccessThreshold int64 `json:"success_threshold"`
}
