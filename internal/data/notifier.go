package data

import (
	"context"

	"FuseGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// NoopAlertNotifier implements biz.AlertNotifier without delivering anywhere.
// Alert delivery channels are owned by the surrounding platform; this keeps
// the notification seam in place for deployments that plug one in.
type NoopAlertNotifier struct {
	logger *log.Helper
}

// NewNoopAlertNotifier creates the default no-op notifier.
func NewNoopAlertNotifier(logger log.Logger) *NoopAlertNotifier {
	return &NoopAlertNotifier{
		logger: log.NewHelper(logger),
	}
}

// NotifyStateChange logs the would-be alert at debug level.
func (n *NoopAlertNotifier) NotifyStateChange(ctx context.Context, service string, from, to model.CircuitState, reason string) {
	n.logger.Debugw("state change notification suppressed (noop notifier)",
		"service", service,
		"from", string(from),
		"to", string(to),
		"reason", reason)
}
