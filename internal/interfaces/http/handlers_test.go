package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/application/service"
	"github.com/finadmin/budget-engine/internal/domain/apperror"
	"github.com/finadmin/budget-engine/internal/domain/approval"
	"github.com/finadmin/budget-engine/internal/domain/budget"
	"github.com/finadmin/budget-engine/internal/domain/entity"
	"github.com/finadmin/budget-engine/internal/domain/ledger"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockBudgetService struct {
	createFunc         func(ctx context.Context, input service.CreateBudgetInput, actor approval.Actor) (*entity.Budget, error)
	getFunc            func(ctx context.Context, id int64) (*service.BudgetDetail, error)
	listFunc           func(ctx context.Context, filter port.BudgetFilter) ([]*entity.Budget, error)
	updateFunc         func(ctx context.Context, id int64, input service.UpdateBudgetInput, actor approval.Actor) (*entity.Budget, error)
	transitionFunc     func(ctx context.Context, id int64, target budget.Status, actor approval.Actor) (*entity.Budget, error)
	deleteFunc         func(ctx context.Context, id int64, actor approval.Actor) error
	addCategoryFunc    func(ctx context.Context, budgetID int64, input service.CategoryInput, actor approval.Actor) (*entity.BudgetCategory, error)
	updateCategoryFunc func(ctx context.Context, categoryID int64, input service.UpdateCategoryInput, actor approval.Actor) (*entity.BudgetCategory, error)
}

func (m *mockBudgetService) Create(ctx context.Context, input service.CreateBudgetInput, actor approval.Actor) (*entity.Budget, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, input, actor)
	}
	return &entity.Budget{ID: 1}, nil
}

func (m *mockBudgetService) Get(ctx context.Context, id int64) (*service.BudgetDetail, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &service.BudgetDetail{Budget: &entity.Budget{ID: id}}, nil
}

func (m *mockBudgetService) List(ctx context.Context, filter port.BudgetFilter) ([]*entity.Budget, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockBudgetService) Update(ctx context.Context, id int64, input service.UpdateBudgetInput, actor approval.Actor) (*entity.Budget, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, input, actor)
	}
	return &entity.Budget{ID: id}, nil
}

func (m *mockBudgetService) Transition(ctx context.Context, id int64, target budget.Status, actor approval.Actor) (*entity.Budget, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, id, target, actor)
	}
	return &entity.Budget{ID: id, Status: target.String()}, nil
}

func (m *mockBudgetService) Delete(ctx context.Context, id int64, actor approval.Actor) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, actor)
	}
	return nil
}

func (m *mockBudgetService) AddCategory(ctx context.Context, budgetID int64, input service.CategoryInput, actor approval.Actor) (*entity.BudgetCategory, error) {
	if m.addCategoryFunc != nil {
		return m.addCategoryFunc(ctx, budgetID, input, actor)
	}
	return &entity.BudgetCategory{ID: 1, BudgetID: budgetID}, nil
}

func (m *mockBudgetService) UpdateCategory(ctx context.Context, categoryID int64, input service.UpdateCategoryInput, actor approval.Actor) (*entity.BudgetCategory, error) {
	if m.updateCategoryFunc != nil {
		return m.updateCategoryFunc(ctx, categoryID, input, actor)
	}
	return &entity.BudgetCategory{ID: categoryID}, nil
}

type mockTransactionService struct {
	postFunc   func(ctx context.Context, input service.PostTransactionInput, actor approval.Actor) (*entity.BudgetTransaction, error)
	decideFunc func(ctx context.Context, transactionID int64, decision string, actor approval.Actor) (*entity.BudgetTransaction, error)
	getFunc    func(ctx context.Context, id int64) (*entity.BudgetTransaction, error)
	listFunc   func(ctx context.Context, categoryID int64) ([]*entity.BudgetTransaction, error)
}

func (m *mockTransactionService) Post(ctx context.Context, input service.PostTransactionInput, actor approval.Actor) (*entity.BudgetTransaction, error) {
	if m.postFunc != nil {
		return m.postFunc(ctx, input, actor)
	}
	return &entity.BudgetTransaction{ID: 1, CategoryID: input.CategoryID}, nil
}

func (m *mockTransactionService) Decide(ctx context.Context, transactionID int64, decision string, actor approval.Actor) (*entity.BudgetTransaction, error) {
	if m.decideFunc != nil {
		return m.decideFunc(ctx, transactionID, decision, actor)
	}
	return &entity.BudgetTransaction{ID: transactionID, Status: decision}, nil
}

func (m *mockTransactionService) Get(ctx context.Context, id int64) (*entity.BudgetTransaction, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &entity.BudgetTransaction{ID: id}, nil
}

func (m *mockTransactionService) ListByCategory(ctx context.Context, categoryID int64) ([]*entity.BudgetTransaction, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, categoryID)
	}
	return nil, nil
}

type mockAlertService struct {
	listFunc        func(ctx context.Context, budgetID int64, acknowledged *bool) ([]*entity.BudgetAlert, error)
	acknowledgeFunc func(ctx context.Context, alertID int64, actor approval.Actor) (*entity.BudgetAlert, error)
}

func (m *mockAlertService) EvaluateCategory(ctx context.Context, categoryID int64) ([]*entity.BudgetAlert, error) {
	return nil, nil
}

func (m *mockAlertService) EvaluatePendingApprovals(ctx context.Context) ([]*entity.BudgetAlert, error) {
	return nil, nil
}

func (m *mockAlertService) List(ctx context.Context, budgetID int64, acknowledged *bool) ([]*entity.BudgetAlert, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, budgetID, acknowledged)
	}
	return nil, nil
}

func (m *mockAlertService) Acknowledge(ctx context.Context, alertID int64, actor approval.Actor) (*entity.BudgetAlert, error) {
	if m.acknowledgeFunc != nil {
		return m.acknowledgeFunc(ctx, alertID, actor)
	}
	return &entity.BudgetAlert{ID: alertID, Acknowledged: true}, nil
}

type mockAuditService struct {
	listFunc func(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error)
}

func (m *mockAuditService) Record(ctx context.Context, entityType string, entityID int64, action, actorID string, before, after interface{}) {
}

func (m *mockAuditService) ListForEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, entityType, entityID)
	}
	return nil, nil
}

type serverFixture struct {
	budgets *mockBudgetService
	txns    *mockTransactionService
	alerts  *mockAlertService
	audits  *mockAuditService
	health  HealthFunc
}

func newServerFixture() *serverFixture {
	return &serverFixture{
		budgets: &mockBudgetService{},
		txns:    &mockTransactionService{},
		alerts:  &mockAlertService{},
		audits:  &mockAuditService{},
	}
}

func (f *serverFixture) server() *Server {
	return NewServer(DefaultServerConfig(), f.budgets, f.txns, f.alerts, f.audits, f.health, nopLogger{})
}

// perform sends a request through the router with the actor headers set
func (f *serverFixture) perform(method, path, body string) *httptest.ResponseRecorder {
	return f.performAs(method, path, body, "mgr-001", "MANAGER")
}

func (f *serverFixture) performAs(method, path, body, actorID, actorRole string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actorID != "" {
		req.Header.Set(headerActorID, actorID)
	}
	if actorRole != "" {
		req.Header.Set(headerActorRole, actorRole)
	}

	rec := httptest.NewRecorder()
	f.server().Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestActorMiddleware(t *testing.T) {
	f := newServerFixture()

	t.Run("missing both headers", func(t *testing.T) {
		rec := f.performAs(http.MethodGet, "/api/v1/budgets", "", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Success {
			t.Error("success = true on rejected request")
		}
		if !strings.Contains(resp.Error, headerActorID) {
			t.Errorf("error %q does not name the missing header", resp.Error)
		}
	})

	t.Run("missing role header", func(t *testing.T) {
		rec := f.performAs(http.MethodGet, "/api/v1/budgets", "", "mgr-001", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("actor reaches the service", func(t *testing.T) {
		var got approval.Actor
		f.budgets.deleteFunc = func(ctx context.Context, id int64, actor approval.Actor) error {
			got = actor
			return nil
		}

		rec := f.performAs(http.MethodDelete, "/api/v1/budgets/4", "", "cfo-001", "CFO")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got.ID != "cfo-001" || got.Role != approval.RoleCFO {
			t.Errorf("actor = %+v, want cfo-001/CFO", got)
		}
	})

	t.Run("health endpoint needs no actor", func(t *testing.T) {
		rec := f.performAs(http.MethodGet, "/health", "", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}

func TestCreateBudget(t *testing.T) {
	body := `{
		"name": "Engineering FY2026",
		"fiscal_year": 2026,
		"type": "DEPARTMENT",
		"total_amount": "500000.00",
		"currency": "USD",
		"start_date": "2026-01-01",
		"end_date": "2026-12-31"
	}`

	t.Run("valid request", func(t *testing.T) {
		f := newServerFixture()
		var gotInput service.CreateBudgetInput
		var gotActor approval.Actor
		f.budgets.createFunc = func(ctx context.Context, input service.CreateBudgetInput, actor approval.Actor) (*entity.Budget, error) {
			gotInput = input
			gotActor = actor
			return &entity.Budget{ID: 42, Name: input.Name, Status: entity.BudgetStatusDraft}, nil
		}

		rec := f.perform(http.MethodPost, "/api/v1/budgets", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
		}

		if !gotInput.TotalAmount.Equal(decimal.NewFromInt(500000)) {
			t.Errorf("total = %s, want 500000", gotInput.TotalAmount)
		}
		if gotInput.StartDate != time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) {
			t.Errorf("start date = %v", gotInput.StartDate)
		}
		if gotInput.FiscalYear != 2026 || gotInput.Type != "DEPARTMENT" {
			t.Errorf("input = %+v", gotInput)
		}
		if gotActor.ID != "mgr-001" {
			t.Errorf("actor = %+v", gotActor)
		}

		resp := decodeResponse(t, rec)
		data, ok := resp.Data.(map[string]interface{})
		if !ok {
			t.Fatalf("data = %T", resp.Data)
		}
		if data["name"] != "Engineering FY2026" {
			t.Errorf("data.name = %v", data["name"])
		}
	})

	t.Run("malformed amount", func(t *testing.T) {
		f := newServerFixture()
		created := false
		f.budgets.createFunc = func(ctx context.Context, input service.CreateBudgetInput, actor approval.Actor) (*entity.Budget, error) {
			created = true
			return nil, nil
		}

		bad := strings.Replace(body, `"500000.00"`, `"half a million"`, 1)
		rec := f.perform(http.MethodPost, "/api/v1/budgets", bad)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if created {
			t.Error("service called despite malformed amount")
		}
		resp := decodeResponse(t, rec)
		if !strings.Contains(resp.Error, "total_amount") {
			t.Errorf("error %q does not name the field", resp.Error)
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		f := newServerFixture()
		bad := strings.Replace(body, "2026-01-01", "January first", 1)
		rec := f.perform(http.MethodPost, "/api/v1/budgets", bad)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		f := newServerFixture()
		rec := f.perform(http.MethodPost, "/api/v1/budgets", "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestListBudgets_Defaults(t *testing.T) {
	f := newServerFixture()
	var gotFilter port.BudgetFilter
	f.budgets.listFunc = func(ctx context.Context, filter port.BudgetFilter) ([]*entity.Budget, error) {
		gotFilter = filter
		return []*entity.Budget{{ID: 1}, {ID: 2}}, nil
	}

	rec := f.perform(http.MethodGet, "/api/v1/budgets?status=ACTIVE&fiscal_year=2026", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if gotFilter.Status != "ACTIVE" || gotFilter.FiscalYear != 2026 {
		t.Errorf("filter = %+v", gotFilter)
	}
	if gotFilter.Limit != 20 {
		t.Errorf("limit = %d, want default 20", gotFilter.Limit)
	}

	resp := decodeResponse(t, rec)
	items, ok := resp.Data.([]interface{})
	if !ok || len(items) != 2 {
		t.Errorf("data = %v", resp.Data)
	}
}

func TestGetBudget(t *testing.T) {
	t.Run("detail payload", func(t *testing.T) {
		f := newServerFixture()
		f.budgets.getFunc = func(ctx context.Context, id int64) (*service.BudgetDetail, error) {
			return &service.BudgetDetail{
				Budget:     &entity.Budget{ID: id, Name: "Engineering FY2026"},
				Categories: []*entity.BudgetCategory{{ID: 3, BudgetID: id}},
				Totals: ledger.BudgetTotals{
					TotalAllocated: decimal.NewFromInt(15000),
					TotalSpent:     decimal.NewFromInt(3500),
				},
			}, nil
		}

		rec := f.perform(http.MethodGet, "/api/v1/budgets/7", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		resp := decodeResponse(t, rec)
		data := resp.Data.(map[string]interface{})
		budgetData := data["budget"].(map[string]interface{})
		if budgetData["name"] != "Engineering FY2026" {
			t.Errorf("budget.name = %v", budgetData["name"])
		}
		if _, ok := data["totals"]; !ok {
			t.Error("totals missing from detail payload")
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		f := newServerFixture()
		rec := f.perform(http.MethodGet, "/api/v1/budgets/abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", apperror.NewValidation("status", "cannot transition"), http.StatusBadRequest},
		{"authorization", &apperror.AuthorizationError{Action: "approve budget", Role: approval.RoleManager.String()}, http.StatusForbidden},
		{"not found", &apperror.NotFoundError{Entity: "budget", ID: 7}, http.StatusNotFound},
		{"conflict", &apperror.ConflictError{Entity: "budget", ID: 7}, http.StatusConflict},
		{"unclassified", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServerFixture()
			f.budgets.getFunc = func(ctx context.Context, id int64) (*service.BudgetDetail, error) {
				return nil, tt.err
			}

			rec := f.perform(http.MethodGet, "/api/v1/budgets/7", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			resp := decodeResponse(t, rec)
			if resp.Success {
				t.Error("success = true on error response")
			}
			if tt.wantStatus == http.StatusInternalServerError {
				if resp.Error != "internal error" {
					t.Errorf("error = %q, internals must not leak", resp.Error)
				}
			} else if resp.Error == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestTransitionRoutes(t *testing.T) {
	routes := []struct {
		path   string
		target budget.Status
	}{
		{"/api/v1/budgets/5/submit", budget.StatusPending},
		{"/api/v1/budgets/5/approve", budget.StatusApproved},
		{"/api/v1/budgets/5/reject", budget.StatusRejected},
		{"/api/v1/budgets/5/activate", budget.StatusActive},
		{"/api/v1/budgets/5/close", budget.StatusClosed},
	}

	for _, tt := range routes {
		t.Run(string(tt.target), func(t *testing.T) {
			f := newServerFixture()
			var gotID int64
			var gotTarget budget.Status
			f.budgets.transitionFunc = func(ctx context.Context, id int64, target budget.Status, actor approval.Actor) (*entity.Budget, error) {
				gotID = id
				gotTarget = target
				return &entity.Budget{ID: id, Status: target.String()}, nil
			}

			rec := f.performAs(http.MethodPost, tt.path, "", "cfo-001", "CFO")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if gotID != 5 || gotTarget != tt.target {
				t.Errorf("transition(%d, %s), want (5, %s)", gotID, gotTarget, tt.target)
			}
		})
	}
}

func TestAddCategory(t *testing.T) {
	f := newServerFixture()
	var gotBudgetID int64
	var gotInput service.CategoryInput
	f.budgets.addCategoryFunc = func(ctx context.Context, budgetID int64, input service.CategoryInput, actor approval.Actor) (*entity.BudgetCategory, error) {
		gotBudgetID = budgetID
		gotInput = input
		return &entity.BudgetCategory{ID: 9, BudgetID: budgetID, Code: input.Code}, nil
	}

	body := `{
		"name": "Cloud Infrastructure",
		"code": "CLOUD",
		"type": "EXPENSE",
		"allocated_amount": "120000.00",
		"variance_threshold": 10
	}`
	rec := f.perform(http.MethodPost, "/api/v1/budgets/7/categories", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}

	if gotBudgetID != 7 {
		t.Errorf("budgetID = %d", gotBudgetID)
	}
	if !gotInput.AllocatedAmount.Equal(decimal.NewFromInt(120000)) {
		t.Errorf("allocated = %s", gotInput.AllocatedAmount)
	}
	if !gotInput.RequiresApprovalOver.IsZero() {
		t.Errorf("requires_approval_over defaulted to %s, want zero", gotInput.RequiresApprovalOver)
	}
}

func TestUpdateCategory_PartialBody(t *testing.T) {
	f := newServerFixture()
	var gotInput service.UpdateCategoryInput
	f.budgets.updateCategoryFunc = func(ctx context.Context, categoryID int64, input service.UpdateCategoryInput, actor approval.Actor) (*entity.BudgetCategory, error) {
		gotInput = input
		return &entity.BudgetCategory{ID: categoryID}, nil
	}

	rec := f.perform(http.MethodPut, "/api/v1/categories/3", `{"allocated_amount": "90000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if gotInput.AllocatedAmount == nil || !gotInput.AllocatedAmount.Equal(decimal.NewFromInt(90000)) {
		t.Errorf("allocated = %v", gotInput.AllocatedAmount)
	}
	if gotInput.Name != nil || gotInput.VarianceThreshold != nil {
		t.Errorf("absent fields were populated: %+v", gotInput)
	}
}

func TestPostTransaction(t *testing.T) {
	t.Run("full body", func(t *testing.T) {
		f := newServerFixture()
		var gotInput service.PostTransactionInput
		f.txns.postFunc = func(ctx context.Context, input service.PostTransactionInput, actor approval.Actor) (*entity.BudgetTransaction, error) {
			gotInput = input
			return &entity.BudgetTransaction{ID: 11, CategoryID: input.CategoryID, Status: entity.TransactionStatusPending}, nil
		}

		body := `{
			"amount": "75000.00",
			"type": "EXPENSE",
			"description": "Reserved instances",
			"reference": "PO-2026-0144",
			"transaction_date": "2026-03-15"
		}`
		rec := f.perform(http.MethodPost, "/api/v1/categories/3/transactions", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
		}

		if gotInput.CategoryID != 3 {
			t.Errorf("categoryID = %d", gotInput.CategoryID)
		}
		if !gotInput.Amount.Equal(decimal.NewFromInt(75000)) {
			t.Errorf("amount = %s", gotInput.Amount)
		}
		if gotInput.TransactionDate != time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) {
			t.Errorf("date = %v", gotInput.TransactionDate)
		}
	})

	t.Run("date defaults to zero when omitted", func(t *testing.T) {
		f := newServerFixture()
		var gotInput service.PostTransactionInput
		f.txns.postFunc = func(ctx context.Context, input service.PostTransactionInput, actor approval.Actor) (*entity.BudgetTransaction, error) {
			gotInput = input
			return &entity.BudgetTransaction{ID: 11}, nil
		}

		rec := f.perform(http.MethodPost, "/api/v1/categories/3/transactions", `{"amount": "10", "type": "INCOME"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
		if !gotInput.TransactionDate.IsZero() {
			t.Errorf("date = %v, want zero for service-side defaulting", gotInput.TransactionDate)
		}
	})
}

func TestDecideTransaction(t *testing.T) {
	f := newServerFixture()
	var gotID int64
	var gotDecision string
	var gotActor approval.Actor
	f.txns.decideFunc = func(ctx context.Context, transactionID int64, decision string, actor approval.Actor) (*entity.BudgetTransaction, error) {
		gotID = transactionID
		gotDecision = decision
		gotActor = actor
		return &entity.BudgetTransaction{ID: transactionID, Status: decision}, nil
	}

	rec := f.performAs(http.MethodPost, "/api/v1/transactions/11/decision", `{"status": "APPROVED"}`, "cfo-001", "CFO")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotID != 11 || gotDecision != entity.TransactionStatusApproved {
		t.Errorf("decide(%d, %s)", gotID, gotDecision)
	}
	if gotActor.Role != approval.RoleCFO {
		t.Errorf("actor role = %s", gotActor.Role)
	}
}

func TestListAlerts(t *testing.T) {
	t.Run("acknowledged filter", func(t *testing.T) {
		f := newServerFixture()
		var gotBudgetID int64
		var gotAcknowledged *bool
		f.alerts.listFunc = func(ctx context.Context, budgetID int64, acknowledged *bool) ([]*entity.BudgetAlert, error) {
			gotBudgetID = budgetID
			gotAcknowledged = acknowledged
			return []*entity.BudgetAlert{{ID: 1, BudgetID: budgetID}}, nil
		}

		rec := f.perform(http.MethodGet, "/api/v1/budgets/7/alerts?acknowledged=false", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if gotBudgetID != 7 {
			t.Errorf("budgetID = %d", gotBudgetID)
		}
		if gotAcknowledged == nil || *gotAcknowledged {
			t.Errorf("acknowledged = %v, want false", gotAcknowledged)
		}
	})

	t.Run("filter omitted", func(t *testing.T) {
		f := newServerFixture()
		var gotAcknowledged *bool
		called := false
		f.alerts.listFunc = func(ctx context.Context, budgetID int64, acknowledged *bool) ([]*entity.BudgetAlert, error) {
			called = true
			gotAcknowledged = acknowledged
			return nil, nil
		}

		rec := f.perform(http.MethodGet, "/api/v1/budgets/7/alerts", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !called || gotAcknowledged != nil {
			t.Errorf("acknowledged = %v, want nil", gotAcknowledged)
		}
	})

	t.Run("invalid filter value", func(t *testing.T) {
		f := newServerFixture()
		rec := f.perform(http.MethodGet, "/api/v1/budgets/7/alerts?acknowledged=banana", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestAcknowledgeAlert(t *testing.T) {
	f := newServerFixture()
	f.alerts.acknowledgeFunc = func(ctx context.Context, alertID int64, actor approval.Actor) (*entity.BudgetAlert, error) {
		return nil, apperror.NewValidation("acknowledged", "alert is already acknowledged")
	}

	rec := f.perform(http.MethodPost, "/api/v1/alerts/4/acknowledge", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for re-acknowledge", rec.Code)
	}
}

func TestAuditTrail(t *testing.T) {
	f := newServerFixture()
	var gotType string
	var gotID int64
	f.audits.listFunc = func(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditRecord, error) {
		gotType = entityType
		gotID = entityID
		return []*entity.AuditRecord{{ID: "rec-001", EntityType: entityType, EntityID: entityID}}, nil
	}

	rec := f.perform(http.MethodGet, "/api/v1/audit/budget/7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotType != "budget" || gotID != 7 {
		t.Errorf("ListForEntity(%s, %d)", gotType, gotID)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Run("no health source", func(t *testing.T) {
		f := newServerFixture()
		rec := f.performAs(http.MethodGet, "/health", "", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		data := resp.Data.(map[string]interface{})
		if data["status"] != "healthy" {
			t.Errorf("status = %v", data["status"])
		}
	})

	t.Run("degraded components", func(t *testing.T) {
		f := newServerFixture()
		f.health = func() (bool, interface{}) {
			return false, map[string]string{"database": "ping failed"}
		}

		rec := f.performAs(http.MethodGet, "/health", "", "", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Success {
			t.Error("success = true while degraded")
		}
		data := resp.Data.(map[string]interface{})
		if data["status"] != "degraded" {
			t.Errorf("status = %v", data["status"])
		}
		if data["components"] == nil {
			t.Error("component report missing")
		}
	})
}
