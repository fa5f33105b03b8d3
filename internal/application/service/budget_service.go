package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/finadmin/budget-engine/internal/application/dispatcher"
	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/apperror"
	"github.com/finadmin/budget-engine/internal/domain/approval"
	"github.com/finadmin/budget-engine/internal/domain/budget"
	"github.com/finadmin/budget-engine/internal/domain/entity"
	"github.com/finadmin/budget-engine/internal/domain/event"
	"github.com/finadmin/budget-engine/internal/domain/ledger"
	"github.com/finadmin/budget-engine/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Cache key space for budget reads. Every budget or category mutation
// drops budget:{id} and clears the budgets: list prefix.
const budgetListPrefix = "budgets:"

func budgetCacheKey(id int64) string {
	return fmt.Sprintf("budget:%d", id)
}

func budgetListCacheKey(f port.BudgetFilter) string {
	return fmt.Sprintf("%s%s:%d:%d:%d", budgetListPrefix, f.Status, f.FiscalYear, f.Limit, f.Offset)
}

// CreateBudgetInput carries the fields accepted when opening a draft budget
type CreateBudgetInput struct {
	Name        string
	FiscalYear  int
	Type        string
	TotalAmount decimal.Decimal
	Currency    string
	StartDate   time.Time
	EndDate     time.Time
}

// UpdateBudgetInput carries optional field edits; nil fields are left unchanged.
// A non-nil Status is validated against the transition table.
type UpdateBudgetInput struct {
	Name        *string
	TotalAmount *decimal.Decimal
	Currency    *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *string
}

// CategoryInput carries the fields accepted when adding a category
type CategoryInput struct {
	Name                 string
	Code                 string
	Type                 string
	AllocatedAmount      decimal.Decimal
	VarianceThreshold    float64
	RequiresApprovalOver decimal.Decimal
}

// UpdateCategoryInput limits category edits to allocation, descriptive
// fields and thresholds. Spent and committed amounts are owned by the
// transaction processing path and are not editable here.
type UpdateCategoryInput struct {
	Name                 *string
	AllocatedAmount      *decimal.Decimal
	VarianceThreshold    *float64
	RequiresApprovalOver *decimal.Decimal
}

// BudgetDetail combines a budget with its categories and derived totals
type BudgetDetail struct {
	Budget     *entity.Budget           `json:"budget"`
	Categories []*entity.BudgetCategory `json:"categories"`
	Totals     ledger.BudgetTotals      `json:"totals"`
}

// BudgetService manages budget lifecycle and category allocation
type BudgetService interface {
	Create(ctx context.Context, input CreateBudgetInput, actor approval.Actor) (*entity.Budget, error)
	Get(ctx context.Context, id int64) (*BudgetDetail, error)
	List(ctx context.Context, filter port.BudgetFilter) ([]*entity.Budget, error)
	Update(ctx context.Context, id int64, input UpdateBudgetInput, actor approval.Actor) (*entity.Budget, error)
	Transition(ctx context.Context, id int64, target budget.Status, actor approval.Actor) (*entity.Budget, error)
	Delete(ctx context.Context, id int64, actor approval.Actor) error
	AddCategory(ctx context.Context, budgetID int64, input CategoryInput, actor approval.Actor) (*entity.BudgetCategory, error)
	UpdateCategory(ctx context.Context, categoryID int64, input UpdateCategoryInput, actor approval.Actor) (*entity.BudgetCategory, error)
}

type budgetServiceImpl struct {
	budgetRepo   port.BudgetRepository
	categoryRepo port.CategoryRepository
	txManager    port.TransactionManager
	cache        port.Cache
	cacheTTL     time.Duration
	audit        AuditService
	dispatcher   dispatcher.Dispatcher
	logger       Logger
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(
	budgetRepo port.BudgetRepository,
	categoryRepo port.CategoryRepository,
	txManager port.TransactionManager,
	cache port.Cache,
	cacheTTL time.Duration,
	audit AuditService,
	dsp dispatcher.Dispatcher,
	logger Logger,
) BudgetService {
	return &budgetServiceImpl{
		budgetRepo:   budgetRepo,
		categoryRepo: categoryRepo,
		txManager:    txManager,
		cache:        cache,
		cacheTTL:     cacheTTL,
		audit:        audit,
		dispatcher:   dsp,
		logger:       logger,
	}
}

// Create opens a new budget in DRAFT
func (s *budgetServiceImpl) Create(ctx context.Context, input CreateBudgetInput, actor approval.Actor) (*entity.Budget, error) {
	name := utils.SanitizeString(input.Name)
	if name == "" {
		return nil, apperror.NewValidation("name", "must not be empty")
	}
	if input.FiscalYear <= 0 {
		return nil, apperror.NewValidation("fiscal_year", "must be a positive year")
	}
	if !entity.ValidBudgetType(input.Type) {
		return nil, &apperror.ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown budget type %q", input.Type),
			Allowed: []string{entity.BudgetTypeMaster, entity.BudgetTypeDepartment, entity.BudgetTypeProject},
		}
	}
	if !input.TotalAmount.IsPositive() {
		return nil, apperror.NewValidation("total_amount", "must be positive")
	}
	if money.GetCurrency(input.Currency) == nil {
		return nil, apperror.NewValidation("currency", fmt.Sprintf("unknown currency code %q", input.Currency))
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, apperror.NewValidation("end_date", "must be after start_date")
	}

	now := time.Now()
	b := &entity.Budget{
		Name:        name,
		FiscalYear:  input.FiscalYear,
		Type:        input.Type,
		Status:      entity.BudgetStatusDraft,
		TotalAmount: input.TotalAmount,
		Currency:    input.Currency,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedBy:   actor.ID,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.budgetRepo.Create(txCtx, b)
	})
	if err != nil {
		s.logger.Error("Failed to create budget", "name", name, "error", err)
		return nil, err
	}

	s.audit.Record(ctx, entity.AuditEntityBudget, b.ID, entity.AuditActionCreate, actor.ID, nil, b)
	s.invalidateList(ctx)
	s.dispatchEvent(ctx, event.TypeBudgetCreated, b.ID, map[string]interface{}{
		"name":        b.Name,
		"fiscal_year": b.FiscalYear,
		"type":        b.Type,
		"actor_id":    actor.ID,
	})

	s.logger.Info("Budget created", "budget_id", b.ID, "name", b.Name, "fiscal_year", b.FiscalYear, "actor_id", actor.ID)
	return b, nil
}

// Get retrieves a budget with its categories and derived totals,
// reading through the cache
func (s *budgetServiceImpl) Get(ctx context.Context, id int64) (*BudgetDetail, error) {
	key := budgetCacheKey(id)
	if data, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("Cache read failed", "key", key, "error", err)
	} else if data != nil {
		var detail BudgetDetail
		if err := json.Unmarshal(data, &detail); err == nil {
			return &detail, nil
		}
		s.logger.Warn("Discarding unreadable cache entry", "key", key)
	}

	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(detail); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.logger.Warn("Cache write failed", "key", key, "error", err)
		}
	}
	return detail, nil
}

func (s *budgetServiceImpl) loadDetail(ctx context.Context, id int64) (*BudgetDetail, error) {
	b, err := s.budgetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	if b == nil {
		return nil, &apperror.NotFoundError{Entity: "budget", ID: id}
	}

	categories, err := s.categoryRepo.GetByBudgetID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}

	return &BudgetDetail{
		Budget:     b,
		Categories: categories,
		Totals:     ledger.Rollup(categories),
	}, nil
}

// List retrieves budgets matching the filter, reading through the cache
func (s *budgetServiceImpl) List(ctx context.Context, filter port.BudgetFilter) ([]*entity.Budget, error) {
	key := budgetListCacheKey(filter)
	if data, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("Cache read failed", "key", key, "error", err)
	} else if data != nil {
		var budgets []*entity.Budget
		if err := json.Unmarshal(data, &budgets); err == nil {
			return budgets, nil
		}
		s.logger.Warn("Discarding unreadable cache entry", "key", key)
	}

	budgets, err := s.budgetRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	if data, err := json.Marshal(budgets); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.logger.Warn("Cache write failed", "key", key, "error", err)
		}
	}
	return budgets, nil
}

// Update applies field edits and an optional status change
func (s *budgetServiceImpl) Update(ctx context.Context, id int64, input UpdateBudgetInput, actor approval.Actor) (*entity.Budget, error) {
	b, err := s.budgetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	if b == nil {
		return nil, &apperror.NotFoundError{Entity: "budget", ID: id}
	}

	before := *b

	if input.Name != nil {
		name := utils.SanitizeString(*input.Name)
		if name == "" {
			return nil, apperror.NewValidation("name", "must not be empty")
		}
		b.Name = name
	}
	if input.TotalAmount != nil {
		if !input.TotalAmount.IsPositive() {
			return nil, apperror.NewValidation("total_amount", "must be positive")
		}
		b.TotalAmount = *input.TotalAmount
	}
	if input.Currency != nil {
		if money.GetCurrency(*input.Currency) == nil {
			return nil, apperror.NewValidation("currency", fmt.Sprintf("unknown currency code %q", *input.Currency))
		}
		b.Currency = *input.Currency
	}
	if input.StartDate != nil {
		b.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		b.EndDate = *input.EndDate
	}
	if !b.EndDate.After(b.StartDate) {
		return nil, apperror.NewValidation("end_date", "must be after start_date")
	}

	statusChanged := false
	if input.Status != nil && *input.Status != b.Status {
		if err := applyTransition(b, budget.Status(*input.Status), actor); err != nil {
			return nil, err
		}
		statusChanged = true
	}
	b.UpdatedAt = time.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.budgetRepo.Update(txCtx, b)
	})
	if err != nil {
		s.logger.Error("Failed to update budget", "budget_id", id, "error", err)
		return nil, err
	}

	s.audit.Record(ctx, entity.AuditEntityBudget, b.ID, entity.AuditActionUpdate, actor.ID, &before, b)
	s.invalidate(ctx, b.ID)
	if statusChanged {
		s.dispatchEvent(ctx, event.TypeBudgetStatusChanged, b.ID, map[string]interface{}{
			"previous_status": before.Status,
			"new_status":      b.Status,
			"actor_id":        actor.ID,
		})
	}

	s.logger.Info("Budget updated", "budget_id", b.ID, "actor_id", actor.ID)
	return b, nil
}

// Transition moves a budget to the requested status
func (s *budgetServiceImpl) Transition(ctx context.Context, id int64, target budget.Status, actor approval.Actor) (*entity.Budget, error) {
	b, err := s.budgetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	if b == nil {
		return nil, &apperror.NotFoundError{Entity: "budget", ID: id}
	}

	before := *b
	if err := applyTransition(b, target, actor); err != nil {
		return nil, err
	}
	b.UpdatedAt = time.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.budgetRepo.Update(txCtx, b)
	})
	if err != nil {
		s.logger.Error("Failed to transition budget", "budget_id", id, "target", target, "error", err)
		return nil, err
	}

	s.audit.Record(ctx, entity.AuditEntityBudget, b.ID, entity.AuditActionUpdate, actor.ID, &before, b)
	s.invalidate(ctx, b.ID)
	s.dispatchEvent(ctx, event.TypeBudgetStatusChanged, b.ID, map[string]interface{}{
		"previous_status": before.Status,
		"new_status":      b.Status,
		"actor_id":        actor.ID,
	})

	s.logger.Info("Budget status changed", "budget_id", b.ID, "from", before.Status, "to", b.Status, "actor_id", actor.ID)
	return b, nil
}

// applyTransition validates and applies a status change on the entity.
// Entering APPROVED or REJECTED is an approval action requiring an
// elevated role and stamps the approval metadata; reverting to DRAFT
// clears it.
func applyTransition(b *entity.Budget, target budget.Status, actor approval.Actor) error {
	current := budget.Status(b.Status)
	if !budget.CanTransition(current, target) {
		return &apperror.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot move budget from %s to %s", current, target),
			Allowed: budget.NextStatusStrings(current),
		}
	}

	if target == budget.StatusApproved || target == budget.StatusRejected {
		if !approval.CanDecideBudget(actor.Role) {
			return &apperror.AuthorizationError{
				Action:     fmt.Sprintf("set budget status to %s", target),
				Role:       string(actor.Role),
				Sufficient: approval.BudgetApprovalRoles(),
			}
		}
		now := time.Now()
		b.ApprovedBy = &actor.ID
		b.ApprovedDate = &now
	}
	if target == budget.StatusDraft {
		b.ApprovedBy = nil
		b.ApprovedDate = nil
	}

	b.Status = string(target)
	return nil
}

// Delete tombstones a budget and cascades to its categories
func (s *budgetServiceImpl) Delete(ctx context.Context, id int64, actor approval.Actor) error {
	if !approval.CanDeleteBudget(actor.Role) {
		return &apperror.AuthorizationError{
			Action:     "delete budget",
			Role:       string(actor.Role),
			Sufficient: approval.BudgetDeleteRoles(),
		}
	}

	b, err := s.budgetRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get budget: %w", err)
	}
	if b == nil {
		return &apperror.NotFoundError{Entity: "budget", ID: id}
	}
	if b.Status == entity.BudgetStatusActive {
		return apperror.NewValidation("status", "active budgets cannot be deleted, close the budget first")
	}

	before := *b
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.budgetRepo.MarkDeleted(txCtx, id, b.Version); err != nil {
			return fmt.Errorf("mark budget deleted: %w", err)
		}
		if err := s.categoryRepo.MarkDeletedByBudgetID(txCtx, id); err != nil {
			return fmt.Errorf("mark categories deleted: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete budget", "budget_id", id, "error", err)
		return err
	}

	b.Deleted = true
	s.audit.Record(ctx, entity.AuditEntityBudget, id, entity.AuditActionDelete, actor.ID, &before, b)
	s.invalidate(ctx, id)
	s.dispatchEvent(ctx, event.TypeBudgetDeleted, id, map[string]interface{}{
		"actor_id": actor.ID,
	})

	s.logger.Info("Budget deleted", "budget_id", id, "actor_id", actor.ID)
	return nil
}

// AddCategory adds a spending line to a budget
func (s *budgetServiceImpl) AddCategory(ctx context.Context, budgetID int64, input CategoryInput, actor approval.Actor) (*entity.BudgetCategory, error) {
	name := utils.SanitizeString(input.Name)
	if name == "" {
		return nil, apperror.NewValidation("name", "must not be empty")
	}
	code := utils.SanitizeString(input.Code)
	if code == "" {
		return nil, apperror.NewValidation("code", "must not be empty")
	}
	if !entity.ValidCategoryType(input.Type) {
		return nil, &apperror.ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown category type %q", input.Type),
			Allowed: []string{entity.CategoryTypeExpense, entity.CategoryTypeCapital, entity.CategoryTypeRevenue},
		}
	}
	if input.AllocatedAmount.IsNegative() {
		return nil, apperror.NewValidation("allocated_amount", "must not be negative")
	}

	b, err := s.budgetRepo.GetByID(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	if b == nil {
		return nil, &apperror.NotFoundError{Entity: "budget", ID: budgetID}
	}

	existing, err := s.categoryRepo.GetByCode(ctx, budgetID, code)
	if err != nil {
		return nil, fmt.Errorf("get category by code: %w", err)
	}
	if existing != nil {
		return nil, apperror.NewValidation("code", fmt.Sprintf("code %q is already used in this budget", code))
	}

	now := time.Now()
	category := &entity.BudgetCategory{
		BudgetID:             budgetID,
		Name:                 name,
		Code:                 code,
		Type:                 input.Type,
		AllocatedAmount:      input.AllocatedAmount,
		SpentAmount:          decimal.Zero,
		CommittedAmount:      decimal.Zero,
		VarianceThreshold:    input.VarianceThreshold,
		RequiresApprovalOver: input.RequiresApprovalOver,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.categoryRepo.Create(txCtx, category)
	})
	if err != nil {
		s.logger.Error("Failed to add category", "budget_id", budgetID, "code", code, "error", err)
		return nil, err
	}

	s.audit.Record(ctx, entity.AuditEntityCategory, category.ID, entity.AuditActionCreate, actor.ID, nil, category)
	s.invalidate(ctx, budgetID)

	s.logger.Info("Category added", "budget_id", budgetID, "category_id", category.ID, "code", code, "actor_id", actor.ID)
	return category, nil
}

// UpdateCategory edits allocation, descriptive fields and thresholds
func (s *budgetServiceImpl) UpdateCategory(ctx context.Context, categoryID int64, input UpdateCategoryInput, actor approval.Actor) (*entity.BudgetCategory, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, &apperror.NotFoundError{Entity: "category", ID: categoryID}
	}

	before := *category

	if input.Name != nil {
		name := utils.SanitizeString(*input.Name)
		if name == "" {
			return nil, apperror.NewValidation("name", "must not be empty")
		}
		category.Name = name
	}
	if input.AllocatedAmount != nil {
		if input.AllocatedAmount.IsNegative() {
			return nil, apperror.NewValidation("allocated_amount", "must not be negative")
		}
		category.AllocatedAmount = *input.AllocatedAmount
	}
	if input.VarianceThreshold != nil {
		category.VarianceThreshold = *input.VarianceThreshold
	}
	if input.RequiresApprovalOver != nil {
		category.RequiresApprovalOver = *input.RequiresApprovalOver
	}
	category.UpdatedAt = time.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.categoryRepo.Update(txCtx, category)
	})
	if err != nil {
		s.logger.Error("Failed to update category", "category_id", categoryID, "error", err)
		return nil, err
	}

	s.audit.Record(ctx, entity.AuditEntityCategory, categoryID, entity.AuditActionUpdate, actor.ID, &before, category)
	s.invalidate(ctx, category.BudgetID)

	s.logger.Info("Category updated", "category_id", categoryID, "budget_id", category.BudgetID, "actor_id", actor.ID)
	return category, nil
}

func (s *budgetServiceImpl) invalidate(ctx context.Context, budgetID int64) {
	if err := s.cache.Delete(ctx, budgetCacheKey(budgetID)); err != nil {
		s.logger.Warn("Cache invalidation failed", "budget_id", budgetID, "error", err)
	}
	s.invalidateList(ctx)
}

func (s *budgetServiceImpl) invalidateList(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, budgetListPrefix); err != nil {
		s.logger.Warn("Cache list invalidation failed", "error", err)
	}
}

func (s *budgetServiceImpl) dispatchEvent(ctx context.Context, eventType event.Type, budgetID int64, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(eventType, budgetID, payload))
}
