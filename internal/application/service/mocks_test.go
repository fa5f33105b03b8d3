package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finadmin/budget-engine/internal/application/dispatcher"
	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/domain/approval"
	"github.com/finadmin/budget-engine/internal/domain/entity"
	"github.com/finadmin/budget-engine/internal/domain/event"
)

// Mock repositories

type mockBudgetRepo struct {
	createFunc      func(ctx context.Context, budget *entity.Budget) error
	getByIDFunc     func(ctx context.Context, id int64) (*entity.Budget, error)
	listFunc        func(ctx context.Context, filter port.BudgetFilter) ([]*entity.Budget, error)
	updateFunc      func(ctx context.Context, budget *entity.Budget) error
	markDeletedFunc func(ctx context.Context, id int64, version int64) error
}

func (m *mockBudgetRepo) Create(ctx context.Context, budget *entity.Budget) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, budget)
	}
	budget.ID = 1
	return nil
}

func (m *mockBudgetRepo) GetByID(ctx context.Context, id int64) (*entity.Budget, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return draftBudget(id), nil
}

func (m *mockBudgetRepo) List(ctx context.Context, filter port.BudgetFilter) ([]*entity.Budget, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.Budget{}, nil
}

func (m *mockBudgetRepo) Update(ctx context.Context, budget *entity.Budget) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, budget)
	}
	budget.Version++
	return nil
}

func (m *mockBudgetRepo) MarkDeleted(ctx context.Context, id int64, version int64) error {
	if m.markDeletedFunc != nil {
		return m.markDeletedFunc(ctx, id, version)
	}
	return nil
}

type mockCategoryRepo struct {
	createFunc                func(ctx context.Context, category *entity.BudgetCategory) error
	getByIDFunc               func(ctx context.Context, id int64) (*entity.BudgetCategory, error)
	getByBudgetIDFunc         func(ctx context.Context, budgetID int64) ([]*entity.BudgetCategory, error)
	getByCodeFunc             func(ctx context.Context, budgetID int64, code string) (*entity.BudgetCategory, error)
	updateFunc                func(ctx context.Context, category *entity.BudgetCategory) error
	markDeletedByBudgetIDFunc func(ctx context.Context, budgetID int64) error
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *entity.BudgetCategory) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, category)
	}
	category.ID = 1
	return nil
}

func (m *mockCategoryRepo) GetByID(ctx context.Context, id int64) (*entity.BudgetCategory, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return testCategory(id, "10000", "0", "0"), nil
}

func (m *mockCategoryRepo) GetByBudgetID(ctx context.Context, budgetID int64) ([]*entity.BudgetCategory, error) {
	if m.getByBudgetIDFunc != nil {
		return m.getByBudgetIDFunc(ctx, budgetID)
	}
	return []*entity.BudgetCategory{}, nil
}

func (m *mockCategoryRepo) GetByCode(ctx context.Context, budgetID int64, code string) (*entity.BudgetCategory, error) {
	if m.getByCodeFunc != nil {
		return m.getByCodeFunc(ctx, budgetID, code)
	}
	return nil, nil
}

func (m *mockCategoryRepo) Update(ctx context.Context, category *entity.BudgetCategory) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, category)
	}
	category.Version++
	return nil
}

func (m *mockCategoryRepo) MarkDeletedByBudgetID(ctx context.Context, budgetID int64) error {
	if m.markDeletedByBudgetIDFunc != nil {
		return m.markDeletedByBudgetIDFunc(ctx, budgetID)
	}
	return nil
}

type mockTransactionRepo struct {
	createFunc                func(ctx context.Context, txn *entity.BudgetTransaction) error
	getByIDFunc               func(ctx context.Context, id int64) (*entity.BudgetTransaction, error)
	getByCategoryIDFunc       func(ctx context.Context, categoryID int64) ([]*entity.BudgetTransaction, error)
	updateFunc                func(ctx context.Context, txn *entity.BudgetTransaction) error
	countPendingOlderThanFunc func(ctx context.Context, cutoff time.Time) ([]*port.PendingBudgetCount, error)
}

func (m *mockTransactionRepo) Create(ctx context.Context, txn *entity.BudgetTransaction) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, txn)
	}
	txn.ID = 1
	return nil
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id int64) (*entity.BudgetTransaction, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTransactionRepo) GetByCategoryID(ctx context.Context, categoryID int64) ([]*entity.BudgetTransaction, error) {
	if m.getByCategoryIDFunc != nil {
		return m.getByCategoryIDFunc(ctx, categoryID)
	}
	return []*entity.BudgetTransaction{}, nil
}

func (m *mockTransactionRepo) Update(ctx context.Context, txn *entity.BudgetTransaction) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, txn)
	}
	txn.Version++
	return nil
}

func (m *mockTransactionRepo) CountPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*port.PendingBudgetCount, error) {
	if m.countPendingOlderThanFunc != nil {
		return m.countPendingOlderThanFunc(ctx, cutoff)
	}
	return []*port.PendingBudgetCount{}, nil
}

type mockAlertRepo struct {
	createFunc            func(ctx context.Context, alert *entity.BudgetAlert) error
	getByIDFunc           func(ctx context.Context, id int64) (*entity.BudgetAlert, error)
	listFunc              func(ctx context.Context, filter port.AlertFilter) ([]*entity.BudgetAlert, error)
	hasUnacknowledgedFunc func(ctx context.Context, budgetID int64, categoryID *int64, alertType string) (bool, error)
	acknowledgeFunc       func(ctx context.Context, id int64, actorID string, at time.Time) error

	created []*entity.BudgetAlert
}

func (m *mockAlertRepo) Create(ctx context.Context, alert *entity.BudgetAlert) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, alert)
	}
	alert.ID = int64(len(m.created) + 1)
	m.created = append(m.created, alert)
	return nil
}

func (m *mockAlertRepo) GetByID(ctx context.Context, id int64) (*entity.BudgetAlert, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAlertRepo) List(ctx context.Context, filter port.AlertFilter) ([]*entity.BudgetAlert, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.BudgetAlert{}, nil
}

func (m *mockAlertRepo) HasUnacknowledged(ctx context.Context, budgetID int64, categoryID *int64, alertType string) (bool, error) {
	if m.hasUnacknowledgedFunc != nil {
		return m.hasUnacknowledgedFunc(ctx, budgetID, categoryID, alertType)
	}
	return false, nil
}

func (m *mockAlertRepo) Acknowledge(ctx context.Context, id int64, actorID string, at time.Time) error {
	if m.acknowledgeFunc != nil {
		return m.acknowledgeFunc(ctx, id, actorID, at)
	}
	return nil
}

type mockAuditRepo struct {
	createFunc       func(ctx context.Context, record *entity.AuditRecord) error
	listByEntityFunc func(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error)

	created []*entity.AuditRecord
}

func (m *mockAuditRepo) Create(ctx context.Context, record *entity.AuditRecord) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, record)
	}
	m.created = append(m.created, record)
	return nil
}

func (m *mockAuditRepo) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error) {
	if m.listByEntityFunc != nil {
		return m.listByEntityFunc(ctx, entityType, entityID)
	}
	return []*entity.AuditRecord{}, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// mockCache records invalidations and serves canned reads
type mockCache struct {
	getFunc func(ctx context.Context, key string) ([]byte, error)
	setFunc func(ctx context.Context, key string, value []byte, ttl time.Duration) error

	mu              sync.Mutex
	sets            map[string][]byte
	deletedKeys     []string
	deletedPrefixes []string
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, key)
	}
	return nil, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFunc != nil {
		return m.setFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets == nil {
		m.sets = make(map[string][]byte)
	}
	m.sets[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedKeys = append(m.deletedKeys, key)
	return nil
}

func (m *mockCache) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedPrefixes = append(m.deletedPrefixes, prefix)
	return nil
}

func (m *mockCache) deletedKey(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.deletedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// mockAuditService captures Record calls for assertion
type auditCall struct {
	entityType string
	entityID   int64
	action     string
	actorID    string
	before     interface{}
	after      interface{}
}

type mockAuditService struct {
	mu    sync.Mutex
	calls []auditCall
}

func (m *mockAuditService) Record(ctx context.Context, entityType string, entityID int64, action, actorID string, before, after interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, auditCall{entityType, entityID, action, actorID, before, after})
}

func (m *mockAuditService) ListForEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error) {
	return []*entity.AuditRecord{}, nil
}

func (m *mockAuditService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockAlertService captures category evaluations
type mockAlertService struct {
	mu        sync.Mutex
	evaluated []int64
}

func (m *mockAlertService) EvaluateCategory(ctx context.Context, categoryID int64) ([]*entity.BudgetAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluated = append(m.evaluated, categoryID)
	return nil, nil
}

func (m *mockAlertService) EvaluatePendingApprovals(ctx context.Context) ([]*entity.BudgetAlert, error) {
	return nil, nil
}

func (m *mockAlertService) List(ctx context.Context, budgetID int64, acknowledged *bool) ([]*entity.BudgetAlert, error) {
	return []*entity.BudgetAlert{}, nil
}

func (m *mockAlertService) Acknowledge(ctx context.Context, alertID int64, actor approval.Actor) (*entity.BudgetAlert, error) {
	return nil, nil
}

type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) warnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.warns)
}

// captureDispatcher runs a real dispatcher with a subscriber on every
// event type, so tests can wait for asynchronously dispatched events.
type captureDispatcher struct {
	dispatcher dispatcher.Dispatcher
	ch         chan *event.Event
}

func newCaptureDispatcher() *captureDispatcher {
	c := &captureDispatcher{
		dispatcher: dispatcher.NewDispatcher(),
		ch:         make(chan *event.Event, 16),
	}
	types := []event.Type{
		event.TypeBudgetCreated,
		event.TypeBudgetStatusChanged,
		event.TypeBudgetDeleted,
		event.TypeTransactionPosted,
		event.TypeTransactionDecided,
		event.TypeAlertRaised,
	}
	for _, et := range types {
		c.dispatcher.Subscribe(et, func(ctx context.Context, evt *event.Event) error {
			c.ch <- evt
			return nil
		})
	}
	return c
}

func (c *captureDispatcher) wait(t *testing.T, want event.Type) *event.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-c.ch:
			if evt.Type == want {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
			return nil
		}
	}
}

// Test fixtures

func draftBudget(id int64) *entity.Budget {
	now := time.Now()
	return &entity.Budget{
		ID:          id,
		Name:        "Engineering FY2026",
		FiscalYear:  2026,
		Type:        entity.BudgetTypeDepartment,
		Status:      entity.BudgetStatusDraft,
		TotalAmount: decimal.NewFromInt(500000),
		Currency:    "USD",
		StartDate:   now,
		EndDate:     now.AddDate(1, 0, 0),
		CreatedBy:   "user-001",
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func budgetInStatus(id int64, status string) *entity.Budget {
	b := draftBudget(id)
	b.Status = status
	return b
}

func testCategory(id int64, allocated, spent, committed string) *entity.BudgetCategory {
	now := time.Now()
	return &entity.BudgetCategory{
		ID:              id,
		BudgetID:        1,
		Name:            "Cloud Infrastructure",
		Code:            "CLOUD",
		Type:            entity.CategoryTypeExpense,
		AllocatedAmount: decimal.RequireFromString(allocated),
		SpentAmount:     decimal.RequireFromString(spent),
		CommittedAmount: decimal.RequireFromString(committed),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
