package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/entity"
)

// LogNotifier delivers raised alerts to the structured log, the default
// operator-facing channel.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ port.AlertNotifier = (*LogNotifier)(nil)

// Notify logs the alert at a level matching its severity.
func (n *LogNotifier) Notify(ctx context.Context, alert *entity.BudgetAlert) error {
	fields := []zap.Field{
		zap.Int64("alert_id", alert.ID),
		zap.Int64("budget_id", alert.BudgetID),
		zap.String("alert_type", alert.AlertType),
		zap.String("severity", alert.Severity),
		zap.Float64("threshold", alert.Threshold),
		zap.Float64("current_value", alert.CurrentValue),
	}
	if alert.CategoryID != nil {
		fields = append(fields, zap.Int64("category_id", *alert.CategoryID))
	}

	switch alert.Severity {
	case entity.AlertSeverityHigh:
		n.logger.Warn(alert.Message, fields...)
	default:
		n.logger.Info(alert.Message, fields...)
	}
	return nil
}
