package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/apperror"
	"github.com/finadmin/budget-engine/internal/domain/entity"
)

// TransactionRepository implements port.TransactionRepository on SQLite
type TransactionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB, logger *zap.Logger) port.TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new transaction and assigns its generated ID
func (r *TransactionRepository) Create(ctx context.Context, t *entity.BudgetTransaction) error {
	query := `
		INSERT INTO budget_transactions (
			category_id, amount, type, description, reference,
			transaction_date, status, created_by, approved_by, approved_date,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		t.CategoryID,
		t.Amount.StringFixed(2),
		t.Type,
		t.Description,
		t.Reference,
		t.TransactionDate,
		t.Status,
		t.CreatedBy,
		t.ApprovedBy,
		t.ApprovedDate,
		t.Version,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", zap.Error(err))
		return &apperror.PersistenceError{Op: "insert transaction", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return &apperror.PersistenceError{Op: "insert transaction", Err: err}
	}

	t.ID = id
	return nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*entity.BudgetTransaction, error) {
	query := transactionSelectColumns + ` WHERE id = ?`

	t, err := scanTransaction(r.db.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get transaction by ID", zap.Int64("id", id), zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "get transaction", Err: err}
	}

	return t, nil
}

// GetByCategoryID retrieves all transactions of a category, newest first
func (r *TransactionRepository) GetByCategoryID(ctx context.Context, categoryID int64) ([]*entity.BudgetTransaction, error) {
	query := transactionSelectColumns + ` WHERE category_id = ? ORDER BY transaction_date DESC, id DESC`

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, categoryID)
	if err != nil {
		r.logger.Error("Failed to list transactions", zap.Int64("category_id", categoryID), zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "list transactions", Err: err}
	}
	defer rows.Close()

	var transactions []*entity.BudgetTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, &apperror.PersistenceError{Op: "scan transaction", Err: err}
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

// Update writes decision fields guarded by the entity version
func (r *TransactionRepository) Update(ctx context.Context, t *entity.BudgetTransaction) error {
	query := `
		UPDATE budget_transactions
		SET status = ?, description = ?, reference = ?,
			approved_by = ?, approved_date = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		t.Status,
		t.Description,
		t.Reference,
		t.ApprovedBy,
		t.ApprovedDate,
		t.UpdatedAt,
		t.ID,
		t.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", zap.Int64("id", t.ID), zap.Error(err))
		return &apperror.PersistenceError{Op: "update transaction", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &apperror.PersistenceError{Op: "update transaction", Err: err}
	}
	if affected == 0 {
		return &apperror.ConflictError{Entity: "transaction", ID: t.ID}
	}

	t.Version++
	return nil
}

// CountPendingOlderThan counts PENDING transactions created before the
// cutoff, grouped by owning budget. Tombstoned categories are excluded
// so deleted budgets stop producing counts.
func (r *TransactionRepository) CountPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*port.PendingBudgetCount, error) {
	query := `
		SELECT c.budget_id, COUNT(*)
		FROM budget_transactions t
		JOIN budget_categories c ON c.id = t.category_id
		WHERE t.status = ? AND t.created_at < ? AND c.deleted = 0
		GROUP BY c.budget_id
	`

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, entity.TransactionStatusPending, cutoff)
	if err != nil {
		r.logger.Error("Failed to count pending transactions", zap.Error(err))
		return nil, &apperror.PersistenceError{Op: "count pending transactions", Err: err}
	}
	defer rows.Close()

	var counts []*port.PendingBudgetCount
	for rows.Next() {
		var pc port.PendingBudgetCount
		if err := rows.Scan(&pc.BudgetID, &pc.Count); err != nil {
			return nil, &apperror.PersistenceError{Op: "scan pending count", Err: err}
		}
		counts = append(counts, &pc)
	}

	return counts, rows.Err()
}

const transactionSelectColumns = `
	SELECT id, category_id, amount, type, description, reference,
		transaction_date, status, created_by, approved_by, approved_date,
		version, created_at, updated_at
	FROM budget_transactions`

func scanTransaction(row scanner) (*entity.BudgetTransaction, error) {
	var t entity.BudgetTransaction
	var amount string
	var approvedBy sql.NullString
	var approvedDate sql.NullTime

	err := row.Scan(
		&t.ID,
		&t.CategoryID,
		&amount,
		&t.Type,
		&t.Description,
		&t.Reference,
		&t.TransactionDate,
		&t.Status,
		&t.CreatedBy,
		&approvedBy,
		&approvedDate,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if approvedBy.Valid {
		t.ApprovedBy = &approvedBy.String
	}
	if approvedDate.Valid {
		t.ApprovedDate = &approvedDate.Time
	}

	return &t, nil
}

// Verify interface compliance
var _ port.TransactionRepository = (*TransactionRepository)(nil)
