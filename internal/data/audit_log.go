package data

import (
	"context"
	"encoding/json"
	"time"

	"FuseGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// CircuitAuditLog is the GORM model for the circuit_audit_logs table.
type CircuitAuditLog struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	Service    string    `gorm:"column:service;type:varchar(255);not null;index"`
	ActionType string    `gorm:"column:action_type;type:varchar(50);not null"`
	Details    string    `gorm:"column:details;type:json"`
	Manual     bool      `gorm:"column:manual;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (CircuitAuditLog) TableName() string {
	return "circuit_audit_logs"
}

// AuditLoggerImpl implements biz.AuditLogger. Events are written
// asynchronously through a buffered channel so the breaker hot path never
// blocks on the audit database. With no database configured, events are
// still emitted as structured logs.
type AuditLoggerImpl struct {
	db      *gorm.DB
	logChan chan *CircuitAuditLog
	logger  *log.Helper
}

// NewAuditLogger creates a new audit logger with an async writer.
func NewAuditLogger(db *gorm.DB, logger log.Logger) *AuditLoggerImpl {
	al := &AuditLoggerImpl{
		db:      db,
		logChan: make(chan *CircuitAuditLog, 1000), // buffered to prevent blocking
		logger:  log.NewHelper(logger),
	}

	if db != nil {
		go al.start()
	}

	return al
}

// start drains audit events from the channel into the database.
func (a *AuditLoggerImpl) start() {
	for event := range a.logChan {
		ctx := context.Background()
		if err := a.db.WithContext(ctx).Create(event).Error; err != nil {
			a.logger.Errorw("failed to write audit log",
				"service", event.Service,
				"action_type", event.ActionType,
				"error", err)
		}
	}
}

// LogTransition records a circuit state transition, automatic or manual.
func (a *AuditLoggerImpl) LogTransition(ctx context.Context, service string, from, to model.CircuitState, reason string, manual bool) {
	action := AuditEventCircuitClosed
	switch to {
	case model.StateOpen:
		action = AuditEventCircuitOpened
	case model.StateHalfOpen:
		action = AuditEventCircuitHalfOpened
	}

	a.enqueue(service, action, manual, map[string]interface{}{
		"from":   string(from),
		"to":     string(to),
		"reason": reason,
	})
}

// LogMetricsReset records a manual metrics reset.
func (a *AuditLoggerImpl) LogMetricsReset(ctx context.Context, service string) {
	a.enqueue(service, AuditEventMetricsReset, true, nil)
}

// LogConfigUpdate records one accepted runtime config override.
func (a *AuditLoggerImpl) LogConfigUpdate(ctx context.Context, field string, value float64) {
	a.enqueue("", AuditEventConfigUpdated, true, map[string]interface{}{
		"field": field,
		"value": value,
	})
}

// enqueue serializes the event and hands it to the async writer without
// blocking; a full channel drops the event with a warning.
func (a *AuditLoggerImpl) enqueue(service string, action AuditEventType, manual bool, details map[string]interface{}) {
	var detailsJSON string
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			a.logger.Errorw("failed to marshal audit log details", "error", err)
			return
		}
		detailsJSON = string(raw)
	}

	if a.db == nil {
		a.logger.Infow("audit event",
			"service", service,
			"action_type", string(action),
			"manual", manual,
			"details", detailsJSON)
		return
	}

	event := &CircuitAuditLog{
		Service:    service,
		ActionType: string(action),
		Details:    detailsJSON,
		Manual:     manual,
	}

	select {
	case a.logChan <- event:
	default:
		a.logger.Warnw("audit log channel full, dropping event",
			"service", service,
			"action_type", event.ActionType)
	}
}
