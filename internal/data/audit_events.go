package data

// AuditEventType identifies the kind of circuit event recorded in the audit trail.
type AuditEventType string

const (
	// AuditEventCircuitOpened is recorded when a circuit transitions to open.
	AuditEventCircuitOpened AuditEventType = "circuit_opened"
	// AuditEventCircuitHalfOpened is recorded when a recovery probe begins.
	AuditEventCircuitHalfOpened AuditEventType = "circuit_half_opened"
	// AuditEventCircuitClosed is recorded when a circuit closes.
	AuditEventCircuitClosed AuditEventType = "circuit_closed"
	// AuditEventMetricsReset is recorded on manual metrics reset.
	AuditEventMetricsReset AuditEventType = "metrics_reset"
	// AuditEventConfigUpdated is recorded per accepted config override field.
	AuditEventConfigUpdated AuditEventType = "config_updated"
)
