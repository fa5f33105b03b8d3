package port

import (
	"context"
	"time"

	"github.com/finadmin/budget-engine/internal/domain/entity"
)

// BudgetFilter narrows budget listings
type BudgetFilter struct {
	Status     string
	FiscalYear int
	Limit      int
	Offset     int
}

// BudgetRepository defines persistence operations for Budget
type BudgetRepository interface {
	Create(ctx context.Context, budget *entity.Budget) error
	GetByID(ctx context.Context, id int64) (*entity.Budget, error)
	List(ctx context.Context, filter BudgetFilter) ([]*entity.Budget, error)

	// Update persists all mutable fields guarded by the budget's version.
	// Returns apperror.ConflictError when the stored version has moved on.
	Update(ctx context.Context, budget *entity.Budget) error

	// MarkDeleted tombstones a budget without removing the row
	MarkDeleted(ctx context.Context, id int64, version int64) error
}

// CategoryRepository defines persistence operations for BudgetCategory
type CategoryRepository interface {
	Create(ctx context.Context, category *entity.BudgetCategory) error
	GetByID(ctx context.Context, id int64) (*entity.BudgetCategory, error)
	GetByBudgetID(ctx context.Context, budgetID int64) ([]*entity.BudgetCategory, error)

	// GetByCode retrieves a category by its code within a budget
	GetByCode(ctx context.Context, budgetID int64, code string) (*entity.BudgetCategory, error)

	// Update persists all mutable fields guarded by the category's version
	Update(ctx context.Context, category *entity.BudgetCategory) error

	// MarkDeletedByBudgetID cascades a budget tombstone to its categories
	MarkDeletedByBudgetID(ctx context.Context, budgetID int64) error
}

// PendingBudgetCount pairs a budget with its count of aged pending transactions
type PendingBudgetCount struct {
	BudgetID int64 `json:"budget_id"`
	Count    int   `json:"count"`
}

// TransactionRepository defines persistence operations for BudgetTransaction
type TransactionRepository interface {
	Create(ctx context.Context, txn *entity.BudgetTransaction) error
	GetByID(ctx context.Context, id int64) (*entity.BudgetTransaction, error)
	GetByCategoryID(ctx context.Context, categoryID int64) ([]*entity.BudgetTransaction, error)

	// Update persists all mutable fields guarded by the transaction's version
	Update(ctx context.Context, txn *entity.BudgetTransaction) error

	// CountPendingOlderThan returns, per budget, how many PENDING transactions
	// were created before the cutoff
	CountPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*PendingBudgetCount, error)
}

// AlertFilter narrows alert listings
type AlertFilter struct {
	BudgetID     *int64
	Acknowledged *bool
	Limit        int
	Offset       int
}

// AlertRepository defines persistence operations for BudgetAlert
type AlertRepository interface {
	Create(ctx context.Context, alert *entity.BudgetAlert) error
	GetByID(ctx context.Context, id int64) (*entity.BudgetAlert, error)
	List(ctx context.Context, filter AlertFilter) ([]*entity.BudgetAlert, error)

	// HasUnacknowledged reports whether an open alert of the given type already
	// exists for the budget/category scope. A nil categoryID matches budget-level alerts.
	HasUnacknowledged(ctx context.Context, budgetID int64, categoryID *int64, alertType string) (bool, error)

	// Acknowledge closes an alert, recording who acknowledged it and when
	Acknowledge(ctx context.Context, id int64, actorID string, at time.Time) error
}

// AuditRepository defines persistence operations for AuditRecord
type AuditRepository interface {
	Create(ctx context.Context, record *entity.AuditRecord) error
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
