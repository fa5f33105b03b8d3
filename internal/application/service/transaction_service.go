package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finadmin/budget-engine/internal/application/dispatcher"
	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/apperror"
	"github.com/finadmin/budget-engine/internal/domain/approval"
	"github.com/finadmin/budget-engine/internal/domain/entity"
	"github.com/finadmin/budget-engine/internal/domain/event"
	"github.com/finadmin/budget-engine/internal/domain/ledger"
	"github.com/finadmin/budget-engine/pkg/utils"
)

// PostTransactionInput carries the fields accepted when posting a transaction
type PostTransactionInput struct {
	CategoryID      int64
	Amount          decimal.Decimal
	Type            string
	Description     string
	Reference       string
	TransactionDate time.Time
}

// TransactionService posts transactions against category ledgers and
// settles them through rank-gated decisions
type TransactionService interface {
	Post(ctx context.Context, input PostTransactionInput, actor approval.Actor) (*entity.BudgetTransaction, error)
	Decide(ctx context.Context, transactionID int64, decision string, actor approval.Actor) (*entity.BudgetTransaction, error)
	Get(ctx context.Context, id int64) (*entity.BudgetTransaction, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]*entity.BudgetTransaction, error)
}

type transactionServiceImpl struct {
	budgetRepo   port.BudgetRepository
	categoryRepo port.CategoryRepository
	txnRepo      port.TransactionRepository
	txManager    port.TransactionManager
	cache        port.Cache
	audit        AuditService
	alerts       AlertService
	dispatcher   dispatcher.Dispatcher
	logger       Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	budgetRepo port.BudgetRepository,
	categoryRepo port.CategoryRepository,
	txnRepo port.TransactionRepository,
	txManager port.TransactionManager,
	cache port.Cache,
	audit AuditService,
	alerts AlertService,
	dsp dispatcher.Dispatcher,
	logger Logger,
) TransactionService {
	return &transactionServiceImpl{
		budgetRepo:   budgetRepo,
		categoryRepo: categoryRepo,
		txnRepo:      txnRepo,
		txManager:    txManager,
		cache:        cache,
		audit:        audit,
		alerts:       alerts,
		dispatcher:   dsp,
		logger:       logger,
	}
}

// Post records a PENDING transaction against a category. EXPENSE amounts
// are committed on the ledger immediately; INCOME never commits.
func (s *transactionServiceImpl) Post(ctx context.Context, input PostTransactionInput, actor approval.Actor) (*entity.BudgetTransaction, error) {
	if !input.Amount.IsPositive() {
		return nil, apperror.NewValidation("amount", "must be positive")
	}
	if !entity.ValidTransactionType(input.Type) {
		return nil, &apperror.ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown transaction type %q", input.Type),
			Allowed: []string{entity.TransactionTypeExpense, entity.TransactionTypeIncome},
		}
	}

	var (
		txn       *entity.BudgetTransaction
		budgetID  int64
		catBefore *entity.BudgetCategory
		catAfter  *entity.BudgetCategory
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		category, err := s.categoryRepo.GetByID(txCtx, input.CategoryID)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if category == nil {
			return &apperror.NotFoundError{Entity: "category", ID: input.CategoryID}
		}

		b, err := s.budgetRepo.GetByID(txCtx, category.BudgetID)
		if err != nil {
			return fmt.Errorf("get budget: %w", err)
		}
		if b == nil {
			return &apperror.NotFoundError{Entity: "budget", ID: category.BudgetID}
		}
		if b.Status != entity.BudgetStatusActive {
			return apperror.NewValidation("status",
				fmt.Sprintf("budget %d is %s, transactions can only be posted against an ACTIVE budget", b.ID, b.Status))
		}
		budgetID = b.ID

		now := time.Now()
		txnDate := input.TransactionDate
		if txnDate.IsZero() {
			txnDate = now
		}
		txn = &entity.BudgetTransaction{
			CategoryID:      input.CategoryID,
			Amount:          input.Amount,
			Type:            input.Type,
			Description:     utils.SanitizeString(input.Description),
			Reference:       utils.SanitizeString(input.Reference),
			TransactionDate: txnDate,
			Status:          entity.TransactionStatusPending,
			CreatedBy:       actor.ID,
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.txnRepo.Create(txCtx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		before := *category
		ledger.ApplyPost(category, txn)
		category.UpdatedAt = now
		if err := s.categoryRepo.Update(txCtx, category); err != nil {
			return fmt.Errorf("update category: %w", err)
		}

		catBefore, catAfter = &before, category
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to post transaction", "category_id", input.CategoryID, "error", err)
		return nil, err
	}

	s.invalidate(ctx, budgetID)
	s.audit.Record(ctx, entity.AuditEntityCategory, input.CategoryID, entity.AuditActionUpdate, actor.ID, catBefore, catAfter)
	s.dispatchEvent(ctx, event.TypeTransactionPosted, budgetID, map[string]interface{}{
		"transaction_id": txn.ID,
		"category_id":    txn.CategoryID,
		"amount":         txn.Amount.StringFixed(2),
		"type":           txn.Type,
		"actor_id":       actor.ID,
	})
	s.evaluateAlerts(ctx, input.CategoryID)

	s.logger.Info("Transaction posted",
		"transaction_id", txn.ID,
		"category_id", txn.CategoryID,
		"amount", txn.Amount.StringFixed(2),
		"type", txn.Type,
		"actor_id", actor.ID,
	)
	return txn, nil
}

// Decide settles a PENDING transaction. The actor's rank must cover the
// amount tier. APPROVED expense moves committed to spent; REJECTED
// expense releases the commitment; INCOME never touches the aggregates.
func (s *transactionServiceImpl) Decide(ctx context.Context, transactionID int64, decision string, actor approval.Actor) (*entity.BudgetTransaction, error) {
	if decision != entity.TransactionStatusApproved && decision != entity.TransactionStatusRejected {
		return nil, &apperror.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("unknown decision %q", decision),
			Allowed: []string{entity.TransactionStatusApproved, entity.TransactionStatusRejected},
		}
	}

	var (
		txn        *entity.BudgetTransaction
		budgetID   int64
		categoryID int64
		catBefore  *entity.BudgetCategory
		catAfter   *entity.BudgetCategory
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		txn, err = s.txnRepo.GetByID(txCtx, transactionID)
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if txn == nil {
			return &apperror.NotFoundError{Entity: "transaction", ID: transactionID}
		}
		if !txn.IsPending() {
			return apperror.NewValidation("status",
				fmt.Sprintf("transaction is already %s, only PENDING transactions can be decided", txn.Status))
		}

		if !approval.CanApprove(actor.Role, txn.Amount) {
			required := approval.RequiredRank(txn.Amount)
			return &apperror.AuthorizationError{
				Action:     fmt.Sprintf("decide a transaction of %s", txn.Amount.StringFixed(2)),
				Role:       string(actor.Role),
				Sufficient: []string{approval.MinRoleForRank(required).String()},
			}
		}

		category, err := s.categoryRepo.GetByID(txCtx, txn.CategoryID)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if category == nil {
			return &apperror.NotFoundError{Entity: "category", ID: txn.CategoryID}
		}
		budgetID = category.BudgetID
		categoryID = category.ID

		before := *category
		ledger.ApplyDecision(category, txn, decision == entity.TransactionStatusApproved)

		now := time.Now()
		txn.Status = decision
		txn.ApprovedBy = &actor.ID
		txn.ApprovedDate = &now
		txn.UpdatedAt = now
		category.UpdatedAt = now

		if err := s.txnRepo.Update(txCtx, txn); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if err := s.categoryRepo.Update(txCtx, category); err != nil {
			return fmt.Errorf("update category: %w", err)
		}

		catBefore, catAfter = &before, category
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to decide transaction", "transaction_id", transactionID, "decision", decision, "error", err)
		return nil, err
	}

	s.invalidate(ctx, budgetID)
	s.audit.Record(ctx, entity.AuditEntityCategory, categoryID, entity.AuditActionUpdate, actor.ID, catBefore, catAfter)
	s.dispatchEvent(ctx, event.TypeTransactionDecided, budgetID, map[string]interface{}{
		"transaction_id": txn.ID,
		"category_id":    txn.CategoryID,
		"amount":         txn.Amount.StringFixed(2),
		"type":           txn.Type,
		"decision":       decision,
		"actor_id":       actor.ID,
	})
	s.evaluateAlerts(ctx, categoryID)

	s.logger.Info("Transaction decided",
		"transaction_id", txn.ID,
		"decision", decision,
		"amount", txn.Amount.StringFixed(2),
		"actor_id", actor.ID,
	)
	return txn, nil
}

// Get retrieves a transaction by ID
func (s *transactionServiceImpl) Get(ctx context.Context, id int64) (*entity.BudgetTransaction, error) {
	txn, err := s.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if txn == nil {
		return nil, &apperror.NotFoundError{Entity: "transaction", ID: id}
	}
	return txn, nil
}

// ListByCategory retrieves all transactions posted against a category
func (s *transactionServiceImpl) ListByCategory(ctx context.Context, categoryID int64) ([]*entity.BudgetTransaction, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, &apperror.NotFoundError{Entity: "category", ID: categoryID}
	}

	txns, err := s.txnRepo.GetByCategoryID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

func (s *transactionServiceImpl) invalidate(ctx context.Context, budgetID int64) {
	if err := s.cache.Delete(ctx, budgetCacheKey(budgetID)); err != nil {
		s.logger.Warn("Cache invalidation failed", "budget_id", budgetID, "error", err)
	}
	if err := s.cache.DeletePrefix(ctx, budgetListPrefix); err != nil {
		s.logger.Warn("Cache list invalidation failed", "error", err)
	}
}

func (s *transactionServiceImpl) dispatchEvent(ctx context.Context, eventType event.Type, budgetID int64, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(eventType, budgetID, payload))
}

func (s *transactionServiceImpl) evaluateAlerts(ctx context.Context, categoryID int64) {
	if s.alerts == nil {
		return
	}
	if _, err := s.alerts.EvaluateCategory(ctx, categoryID); err != nil {
		s.logger.Warn("Alert evaluation failed", "category_id", categoryID, "error", err)
	}
}
