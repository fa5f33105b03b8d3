package service

import (
	"context"
	"fmt"
	"time"

	"github.com/finadmin/budget-engine/internal/application/dispatcher"
	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/apperror"
	"github.com/finadmin/budget-engine/internal/domain/approval"
	"github.com/finadmin/budget-engine/internal/domain/entity"
	"github.com/finadmin/budget-engine/internal/domain/event"
	"github.com/finadmin/budget-engine/internal/domain/ledger"
)

// Utilization thresholds for category alerts
const (
	threshold80 = 80.0
	threshold90 = 90.0
)

// AlertConfig tunes the aging evaluation of pending approvals
type AlertConfig struct {
	// PendingAge is how old a PENDING transaction must be before it
	// counts toward an APPROVAL_PENDING alert
	PendingAge time.Duration
	// PendingMax is the count above which the alert fires
	PendingMax int
}

// AlertService evaluates thresholds and manages the alert lifecycle
type AlertService interface {
	EvaluateCategory(ctx context.Context, categoryID int64) ([]*entity.BudgetAlert, error)
	EvaluatePendingApprovals(ctx context.Context) ([]*entity.BudgetAlert, error)
	List(ctx context.Context, budgetID int64, acknowledged *bool) ([]*entity.BudgetAlert, error)
	Acknowledge(ctx context.Context, alertID int64, actor approval.Actor) (*entity.BudgetAlert, error)
}

type alertServiceImpl struct {
	categoryRepo port.CategoryRepository
	txnRepo      port.TransactionRepository
	alertRepo    port.AlertRepository
	dispatcher   dispatcher.Dispatcher
	config       AlertConfig
	logger       Logger
}

// NewAlertService creates a new AlertService
func NewAlertService(
	categoryRepo port.CategoryRepository,
	txnRepo port.TransactionRepository,
	alertRepo port.AlertRepository,
	dsp dispatcher.Dispatcher,
	config AlertConfig,
	logger Logger,
) AlertService {
	return &alertServiceImpl{
		categoryRepo: categoryRepo,
		txnRepo:      txnRepo,
		alertRepo:    alertRepo,
		dispatcher:   dsp,
		config:       config,
		logger:       logger,
	}
}

// EvaluateCategory raises a threshold alert when category utilization
// crosses 80% or 90%. An unacknowledged alert of the same type for the
// same category suppresses a duplicate.
func (s *alertServiceImpl) EvaluateCategory(ctx context.Context, categoryID int64) ([]*entity.BudgetAlert, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, &apperror.NotFoundError{Entity: "category", ID: categoryID}
	}

	snap := ledger.Recompute(category)

	var raised []*entity.BudgetAlert
	switch {
	case snap.UtilizationPercent >= threshold90:
		alert, err := s.raiseCategoryAlert(ctx, category, entity.AlertTypeThreshold90, entity.AlertSeverityHigh, threshold90, snap.UtilizationPercent)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			raised = append(raised, alert)
		}
	case snap.UtilizationPercent >= threshold80:
		alert, err := s.raiseCategoryAlert(ctx, category, entity.AlertTypeThreshold80, entity.AlertSeverityMedium, threshold80, snap.UtilizationPercent)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			raised = append(raised, alert)
		}
	}
	return raised, nil
}

func (s *alertServiceImpl) raiseCategoryAlert(ctx context.Context, category *entity.BudgetCategory, alertType, severity string, threshold, current float64) (*entity.BudgetAlert, error) {
	exists, err := s.alertRepo.HasUnacknowledged(ctx, category.BudgetID, &category.ID, alertType)
	if err != nil {
		return nil, fmt.Errorf("check existing alerts: %w", err)
	}
	if exists {
		return nil, nil
	}

	alert := &entity.BudgetAlert{
		BudgetID:     category.BudgetID,
		CategoryID:   &category.ID,
		AlertType:    alertType,
		Severity:     severity,
		Message:      fmt.Sprintf("category %s utilization is %.1f%%, over the %.0f%% threshold", category.Name, current, threshold),
		Threshold:    threshold,
		CurrentValue: current,
		CreatedAt:    time.Now(),
	}
	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	s.dispatchRaised(ctx, alert)
	s.logger.Info("Alert raised",
		"alert_id", alert.ID,
		"budget_id", alert.BudgetID,
		"category_id", category.ID,
		"alert_type", alertType,
		"utilization", current,
	)
	return alert, nil
}

// EvaluatePendingApprovals raises a budget-scoped APPROVAL_PENDING alert
// for every budget whose count of aged PENDING transactions exceeds the
// configured maximum. Run periodically by the pending-scan worker.
func (s *alertServiceImpl) EvaluatePendingApprovals(ctx context.Context) ([]*entity.BudgetAlert, error) {
	cutoff := time.Now().Add(-s.config.PendingAge)
	counts, err := s.txnRepo.CountPendingOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count pending transactions: %w", err)
	}

	var raised []*entity.BudgetAlert
	for _, pc := range counts {
		if pc.Count <= s.config.PendingMax {
			continue
		}

		exists, err := s.alertRepo.HasUnacknowledged(ctx, pc.BudgetID, nil, entity.AlertTypeApprovalPending)
		if err != nil {
			return raised, fmt.Errorf("check existing alerts: %w", err)
		}
		if exists {
			continue
		}

		alert := &entity.BudgetAlert{
			BudgetID:     pc.BudgetID,
			AlertType:    entity.AlertTypeApprovalPending,
			Severity:     entity.AlertSeverityLow,
			Message:      fmt.Sprintf("%d transactions have been pending approval for more than %s", pc.Count, s.config.PendingAge),
			Threshold:    float64(s.config.PendingMax),
			CurrentValue: float64(pc.Count),
			CreatedAt:    time.Now(),
		}
		if err := s.alertRepo.Create(ctx, alert); err != nil {
			return raised, fmt.Errorf("create alert: %w", err)
		}

		s.dispatchRaised(ctx, alert)
		s.logger.Info("Alert raised",
			"alert_id", alert.ID,
			"budget_id", alert.BudgetID,
			"alert_type", entity.AlertTypeApprovalPending,
			"pending_count", pc.Count,
		)
		raised = append(raised, alert)
	}
	return raised, nil
}

// List retrieves alerts for a budget, optionally filtered by
// acknowledged state
func (s *alertServiceImpl) List(ctx context.Context, budgetID int64, acknowledged *bool) ([]*entity.BudgetAlert, error) {
	alerts, err := s.alertRepo.List(ctx, port.AlertFilter{
		BudgetID:     &budgetID,
		Acknowledged: acknowledged,
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// Acknowledge closes an alert. The flag is one-way: acknowledging an
// already acknowledged alert is a validation error.
func (s *alertServiceImpl) Acknowledge(ctx context.Context, alertID int64, actor approval.Actor) (*entity.BudgetAlert, error) {
	alert, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	if alert == nil {
		return nil, &apperror.NotFoundError{Entity: "alert", ID: alertID}
	}
	if alert.Acknowledged {
		return nil, apperror.NewValidation("acknowledged", "alert is already acknowledged")
	}

	now := time.Now()
	if err := s.alertRepo.Acknowledge(ctx, alertID, actor.ID, now); err != nil {
		return nil, fmt.Errorf("acknowledge alert: %w", err)
	}

	alert.Acknowledged = true
	alert.AcknowledgedBy = &actor.ID
	alert.AcknowledgedAt = &now

	s.logger.Info("Alert acknowledged", "alert_id", alertID, "actor_id", actor.ID)
	return alert, nil
}

// dispatchRaised publishes an alert.raised event carrying the full alert
// so subscribers (the notifier wiring) can deliver it without a re-read.
func (s *alertServiceImpl) dispatchRaised(ctx context.Context, alert *entity.BudgetAlert) {
	if s.dispatcher == nil {
		return
	}
	payload := map[string]interface{}{
		"alert_id":      alert.ID,
		"alert_type":    alert.AlertType,
		"severity":      alert.Severity,
		"message":       alert.Message,
		"threshold":     alert.Threshold,
		"current_value": alert.CurrentValue,
	}
	if alert.CategoryID != nil {
		payload["category_id"] = *alert.CategoryID
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeAlertRaised, alert.BudgetID, payload))
}
