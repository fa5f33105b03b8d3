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

// CategoryRepository implements port.CategoryRepository on SQLite
type CategoryRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *DB, logger *zap.Logger) port.CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new category and assigns its generated ID
func (r *CategoryRepository) Create(ctx context.Context, c *entity.BudgetCategory) error {
	query := `
		INSERT INTO budget_categories (
			budget_id, name, code, type, allocated_amount, spent_amount,
			committed_amount, variance_threshold, requires_approval_over,
			deleted, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
	`

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		c.BudgetID,
		c.Name,
		c.Code,
		c.Type,
		c.AllocatedAmount.StringFixed(2),
		c.SpentAmount.StringFixed(2),
		c.CommittedAmount.StringFixed(2),
		c.VarianceThreshold,
		c.RequiresApprovalOver.StringFixed(2),
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create category", zap.Error(err))
		return &apperror.PersistenceError{Op: "insert category", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return &apperror.PersistenceError{Op: "insert category", Err: err}
	}

	c.ID = id
	return nil
}

// GetByID retrieves a category by ID. Tombstoned rows are invisible.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*entity.BudgetCategory, error) {
	query := categorySelectColumns + ` WHERE id = ? AND deleted = 0`

	c, err := scanCategory(r.db.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get category by ID", zap.Int64("id", id), zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "get category", Err: err}
	}

	return c, nil
}

// GetByBudgetID retrieves all live categories of a budget ordered by code
func (r *CategoryRepository) GetByBudgetID(ctx context.Context, budgetID int64) ([]*entity.BudgetCategory, error) {
	query := categorySelectColumns + ` WHERE budget_id = ? AND deleted = 0 ORDER BY code ASC`

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, budgetID)
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Int64("budget_id", budgetID), zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "list categories", Err: err}
	}
	defer rows.Close()

	var categories []*entity.BudgetCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, &apperror.PersistenceError{Op: "scan category", Err: err}
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// GetByCode retrieves a live category by its code within a budget
func (r *CategoryRepository) GetByCode(ctx context.Context, budgetID int64, code string) (*entity.BudgetCategory, error) {
	query := categorySelectColumns + ` WHERE budget_id = ? AND code = ? AND deleted = 0`

	c, err := scanCategory(r.db.getExecutor(ctx).QueryRowContext(ctx, query, budgetID, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get category by code",
			zap.Int64("budget_id", budgetID), zap.String("code", code), zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "get category", Err: err}
	}

	return c, nil
}

// Update writes all mutable fields guarded by the entity version
func (r *CategoryRepository) Update(ctx context.Context, c *entity.BudgetCategory) error {
	query := `
		UPDATE budget_categories
		SET name = ?, code = ?, type = ?, allocated_amount = ?,
			spent_amount = ?, committed_amount = ?, variance_threshold = ?,
			requires_approval_over = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND deleted = 0
	`

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		c.Name,
		c.Code,
		c.Type,
		c.AllocatedAmount.StringFixed(2),
		c.SpentAmount.StringFixed(2),
		c.CommittedAmount.StringFixed(2),
		c.VarianceThreshold,
		c.RequiresApprovalOver.StringFixed(2),
		c.UpdatedAt,
		c.ID,
		c.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update category", zap.Int64("id", c.ID), zap.Error(err))
		return &apperror.PersistenceError{Op: "update category", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &apperror.PersistenceError{Op: "update category", Err: err}
	}
	if affected == 0 {
		return &apperror.ConflictError{Entity: "category", ID: c.ID}
	}

	c.Version++
	return nil
}

// MarkDeletedByBudgetID tombstones every live category of a budget.
// Used by the budget delete cascade; zero affected rows is not an error.
func (r *CategoryRepository) MarkDeletedByBudgetID(ctx context.Context, budgetID int64) error {
	query := `
		UPDATE budget_categories
		SET deleted = 1, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE budget_id = ? AND deleted = 0
	`

	_, err := r.db.getExecutor(ctx).ExecContext(ctx, query, budgetID)
	if err != nil {
		r.logger.Error("Failed to mark categories deleted", zap.Int64("budget_id", budgetID), zap.Error(err))
		return &apperror.PersistenceError{Op: "delete categories", Err: err}
	}

	return nil
}

const categorySelectColumns = `
	SELECT id, budget_id, name, code, type, allocated_amount, spent_amount,
		committed_amount, variance_threshold, requires_approval_over,
		deleted, version, created_at, updated_at
	FROM budget_categories`

func scanCategory(row scanner) (*entity.BudgetCategory, error) {
	var c entity.BudgetCategory
	var allocated, spent, committed, approvalOver string

	err := row.Scan(
		&c.ID,
		&c.BudgetID,
		&c.Name,
		&c.Code,
		&c.Type,
		&allocated,
		&spent,
		&committed,
		&c.VarianceThreshold,
		&approvalOver,
		&c.Deleted,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.AllocatedAmount, err = decimal.NewFromString(allocated); err != nil {
		return nil, fmt.Errorf("parse allocated_amount: %w", err)
	}
	if c.SpentAmount, err = decimal.NewFromString(spent); err != nil {
		return nil, fmt.Errorf("parse spent_amount: %w", err)
	}
	if c.CommittedAmount, err = decimal.NewFromString(committed); err != nil {
		return nil, fmt.Errorf("parse committed_amount: %w", err)
	}
	if c.RequiresApprovalOver, err = decimal.NewFromString(approvalOver); err != nil {
		return nil, fmt.Errorf("parse requires_approval_over: %w", err)
	}

	return &c, nil
}

// Verify interface compliance
var _ port.CategoryRepository = (*CategoryRepository)(nil)
