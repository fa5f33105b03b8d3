package sqlite

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/apperror"
	"github.com/finadmin/budget-engine/internal/domain/entity"
)

// AlertRepository implements port.AlertRepository on SQLite
type AlertRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *DB, logger *zap.Logger) port.AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new alert and assigns its generated ID
func (r *AlertRepository) Create(ctx context.Context, a *entity.BudgetAlert) error {
	query := `
		INSERT INTO budget_alerts (
			budget_id, category_id, alert_type, severity, message,
			threshold, current_value, acknowledged, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
	`

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		a.BudgetID,
		a.CategoryID,
		a.AlertType,
		a.Severity,
		a.Message,
		a.Threshold,
		a.CurrentValue,
		a.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create alert", zap.Error(err))
		return &apperror.PersistenceError{Op: "insert alert", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return &apperror.PersistenceError{Op: "insert alert", Err: err}
	}

	a.ID = id
	return nil
}

// GetByID retrieves an alert by ID
func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*entity.BudgetAlert, error) {
	query := alertSelectColumns + ` WHERE id = ?`

	a, err := scanAlert(r.db.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get alert by ID", zap.Int64("id", id), zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "get alert", Err: err}
	}

	return a, nil
}

// List retrieves alerts matching the filter, newest first
func (r *AlertRepository) List(ctx context.Context, filter port.AlertFilter) ([]*entity.BudgetAlert, error) {
	query := alertSelectColumns + ` WHERE 1 = 1`
	args := []interface{}{}

	if filter.BudgetID != nil {
		query += ` AND budget_id = ?`
		args = append(args, *filter.BudgetID)
	}
	if filter.Acknowledged != nil {
		query += ` AND acknowledged = ?`
		args = append(args, *filter.Acknowledged)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list alerts", zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "list alerts", Err: err}
	}
	defer rows.Close()

	var alerts []*entity.BudgetAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, &apperror.PersistenceError{Op: "scan alert", Err: err}
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// HasUnacknowledged reports whether an open alert of the given type
// already exists for the scope. A nil categoryID matches budget-scoped
// alerts only.
func (r *AlertRepository) HasUnacknowledged(ctx context.Context, budgetID int64, categoryID *int64, alertType string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM budget_alerts
			WHERE budget_id = ? AND alert_type = ? AND acknowledged = 0
	`
	args := []interface{}{budgetID, alertType}

	if categoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, *categoryID)
	} else {
		query += ` AND category_id IS NULL`
	}
	query += `)`

	var exists bool
	err := r.db.getExecutor(ctx).QueryRowContext(ctx, query, args...).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check unacknowledged alerts",
			zap.Int64("budget_id", budgetID), zap.String("alert_type", alertType), zap.Error(err))
		return false, &apperror.PersistenceError{Op: "check alerts", Err: err}
	}

	return exists, nil
}

// Acknowledge closes an alert. Zero matched rows means the alert was
// acknowledged concurrently.
func (r *AlertRepository) Acknowledge(ctx context.Context, id int64, actorID string, at time.Time) error {
	query := `
		UPDATE budget_alerts
		SET acknowledged = 1, acknowledged_by = ?, acknowledged_at = ?
		WHERE id = ? AND acknowledged = 0
	`

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query, actorID, at, id)
	if err != nil {
		r.logger.Error("Failed to acknowledge alert", zap.Int64("id", id), zap.Error(err))
		return &apperror.PersistenceError{Op: "acknowledge alert", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &apperror.PersistenceError{Op: "acknowledge alert", Err: err}
	}
	if affected == 0 {
		return &apperror.ConflictError{Entity: "alert", ID: id}
	}

	return nil
}

const alertSelectColumns = `
	SELECT id, budget_id, category_id, alert_type, severity, message,
		threshold, current_value, acknowledged, acknowledged_by,
		acknowledged_at, created_at
	FROM budget_alerts`

func scanAlert(row scanner) (*entity.BudgetAlert, error) {
	var a entity.BudgetAlert
	var categoryID sql.NullInt64
	var acknowledgedBy sql.NullString
	var acknowledgedAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.BudgetID,
		&categoryID,
		&a.AlertType,
		&a.Severity,
		&a.Message,
		&a.Threshold,
		&a.CurrentValue,
		&a.Acknowledged,
		&acknowledgedBy,
		&acknowledgedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		a.CategoryID = &categoryID.Int64
	}
	if acknowledgedBy.Valid {
		a.AcknowledgedBy = &acknowledgedBy.String
	}
	if acknowledgedAt.Valid {
		a.AcknowledgedAt = &acknowledgedAt.Time
	}

	return &a, nil
}

// Verify interface compliance
var _ port.AlertRepository = (*AlertRepository)(nil)
