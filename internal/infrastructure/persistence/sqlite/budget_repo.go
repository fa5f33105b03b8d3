package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/apperror"
	"github.com/finadmin/budget-engine/internal/domain/entity"
)

// BudgetRepository implements port.BudgetRepository on SQLite.
// Monetary amounts are stored as TEXT with two decimal places and
// parsed back through shopspring/decimal, never through floats.
type BudgetRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *DB, logger *zap.Logger) port.BudgetRepository {
	return &BudgetRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new budget and assigns its generated ID
func (r *BudgetRepository) Create(ctx context.Context, b *entity.Budget) error {
	query := `
		INSERT INTO budgets (
			name, fiscal_year, type, status, total_amount, currency,
			start_date, end_date, created_by, approved_by, approved_date,
			deleted, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
	`

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		b.Name,
		b.FiscalYear,
		b.Type,
		b.Status,
		b.TotalAmount.StringFixed(2),
		b.Currency,
		b.StartDate,
		b.EndDate,
		b.CreatedBy,
		b.ApprovedBy,
		b.ApprovedDate,
		b.Version,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create budget", zap.Error(err))
		return &apperror.PersistenceError{Op: "insert budget", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return &apperror.PersistenceError{Op: "insert budget", Err: err}
	}

	b.ID = id
	return nil
}

// GetByID retrieves a budget by ID. Tombstoned rows are invisible.
func (r *BudgetRepository) GetByID(ctx context.Context, id int64) (*entity.Budget, error) {
	query := budgetSelectColumns + ` WHERE id = ? AND deleted = 0`

	b, err := scanBudget(r.db.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get budget by ID", zap.Int64("id", id), zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "get budget", Err: err}
	}

	return b, nil
}

// List retrieves live budgets matching the filter, newest first
func (r *BudgetRepository) List(ctx context.Context, filter port.BudgetFilter) ([]*entity.Budget, error) {
	query := budgetSelectColumns + ` WHERE deleted = 0`
	args := []interface{}{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.FiscalYear != 0 {
		query += ` AND fiscal_year = ?`
		args = append(args, filter.FiscalYear)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list budgets", zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "list budgets", Err: err}
	}
	defer rows.Close()

	var budgets []*entity.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, &apperror.PersistenceError{Op: "scan budget", Err: err}
		}
		budgets = append(budgets, b)
	}

	return budgets, rows.Err()
}

// Update writes all mutable fields guarded by the entity version.
// Zero matched rows means the row changed underneath the caller.
func (r *BudgetRepository) Update(ctx context.Context, b *entity.Budget) error {
	query := `
		UPDATE budgets
		SET name = ?, fiscal_year = ?, type = ?, status = ?,
			total_amount = ?, currency = ?, start_date = ?, end_date = ?,
			approved_by = ?, approved_date = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND deleted = 0
	`

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		b.Name,
		b.FiscalYear,
		b.Type,
		b.Status,
		b.TotalAmount.StringFixed(2),
		b.Currency,
		b.StartDate,
		b.EndDate,
		b.ApprovedBy,
		b.ApprovedDate,
		b.UpdatedAt,
		b.ID,
		b.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update budget", zap.Int64("id", b.ID), zap.Error(err))
		return &apperror.PersistenceError{Op: "update budget", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &apperror.PersistenceError{Op: "update budget", Err: err}
	}
	if affected == 0 {
		return &apperror.ConflictError{Entity: "budget", ID: b.ID}
	}

	b.Version++
	return nil
}

// MarkDeleted tombstones a budget guarded by the entity version
func (r *BudgetRepository) MarkDeleted(ctx context.Context, id int64, version int64) error {
	query := `
		UPDATE budgets
		SET deleted = 1, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ? AND deleted = 0
	`

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query, id, version)
	if err != nil {
		r.logger.Error("Failed to mark budget deleted", zap.Int64("id", id), zap.Error(err))
		return &apperror.PersistenceError{Op: "delete budget", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &apperror.PersistenceError{Op: "delete budget", Err: err}
	}
	if affected == 0 {
		return &apperror.ConflictError{Entity: "budget", ID: id}
	}

	return nil
}

const budgetSelectColumns = `
	SELECT id, name, fiscal_year, type, status, total_amount, currency,
		start_date, end_date, created_by, approved_by, approved_date,
		deleted, version, created_at, updated_at
	FROM budgets`

// scanner covers *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBudget(row scanner) (*entity.Budget, error) {
	var b entity.Budget
	var totalAmount string
	var approvedBy sql.NullString
	var approvedDate sql.NullTime

	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.FiscalYear,
		&b.Type,
		&b.Status,
		&totalAmount,
		&b.Currency,
		&b.StartDate,
		&b.EndDate,
		&b.CreatedBy,
		&approvedBy,
		&approvedDate,
		&b.Deleted,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.TotalAmount, err = decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse total_amount: %w", err)
	}
	if approvedBy.Valid {
		b.ApprovedBy = &approvedBy.String
	}
	if approvedDate.Valid {
		b.ApprovedDate = &approvedDate.Time
	}

	return &b, nil
}

// Verify interface compliance
var _ port.BudgetRepository = (*BudgetRepository)(nil)
