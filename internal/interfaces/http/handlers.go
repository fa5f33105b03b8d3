package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/application/service"
	"github.com/finadmin/budget-engine/internal/domain/apperror"
	"github.com/finadmin/budget-engine/internal/domain/budget"
)

// dateLayout is the wire format for budget and transaction dates
const dateLayout = "2006-01-02"

// Handlers contains all HTTP request handlers
type Handlers struct {
	budgetService      service.BudgetService
	transactionService service.TransactionService
	alertService       service.AlertService
	auditService       service.AuditService
	health             HealthFunc
	logger             Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	budgetService service.BudgetService,
	transactionService service.TransactionService,
	alertService service.AlertService,
	auditService service.AuditService,
	health HealthFunc,
	logger Logger,
) *Handlers {
	return &Handlers{
		budgetService:      budgetService,
		transactionService: transactionService,
		alertService:       alertService,
		auditService:       auditService,
		health:             health,
		logger:             logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// respondError translates application errors into HTTP status codes.
// The error taxonomy carries its own context (legal transitions,
// sufficient roles), so the message passes through verbatim; anything
// unclassified is logged and reported as an internal error.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var (
		validationErr    *apperror.ValidationError
		authorizationErr *apperror.AuthorizationError
		notFoundErr      *apperror.NotFoundError
		conflictErr      *apperror.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: validationErr.Error()})
	case errors.As(err, &authorizationErr):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: authorizationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, Response{Success: false, Error: conflictErr.Error()})
	default:
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}

// pathID parses a positive integer path parameter, responding with 400
// on failure
func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apperror.NewValidation(field, "must be a decimal number")
	}
	return d, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperror.NewValidation(field, "must be a date in YYYY-MM-DD form")
	}
	return t, nil
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if h.health != nil {
		healthy, components := h.health()
		resp.Components = components
		if !healthy {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: resp})
}

// CreateBudgetRequest is the body for POST /budgets. Amounts travel as
// decimal strings to avoid float truncation.
type CreateBudgetRequest struct {
	Name        string `json:"name"`
	FiscalYear  int    `json:"fiscal_year"`
	Type        string `json:"type"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"currency"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// CreateBudget handles POST /budgets
func (h *Handlers) CreateBudget(c *gin.Context) {
	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	total, err := parseAmount("total_amount", req.TotalAmount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		h.respondError(c, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	created, err := h.budgetService.Create(c.Request.Context(), service.CreateBudgetInput{
		Name:        req.Name,
		FiscalYear:  req.FiscalYear,
		Type:        req.Type,
		TotalAmount: total,
		Currency:    req.Currency,
		StartDate:   start,
		EndDate:     end,
	}, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// ListBudgetsRequest carries query parameters for GET /budgets
type ListBudgetsRequest struct {
	Status     string `form:"status"`
	FiscalYear int    `form:"fiscal_year"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// ListBudgets handles GET /budgets
func (h *Handlers) ListBudgets(c *gin.Context) {
	var req ListBudgetsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	budgets, err := h.budgetService.List(c.Request.Context(), port.BudgetFilter{
		Status:     req.Status,
		FiscalYear: req.FiscalYear,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: budgets})
}

// GetBudget handles GET /budgets/:id
func (h *Handlers) GetBudget(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.budgetService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// UpdateBudgetRequest is the body for PUT /budgets/:id; absent fields
// are left unchanged
type UpdateBudgetRequest struct {
	Name        *string `json:"name"`
	TotalAmount *string `json:"total_amount"`
	Currency    *string `json:"currency"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Status      *string `json:"status"`
}

// UpdateBudget handles PUT /budgets/:id
func (h *Handlers) UpdateBudget(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	input := service.UpdateBudgetInput{
		Name:     req.Name,
		Currency: req.Currency,
		Status:   req.Status,
	}
	if req.TotalAmount != nil {
		total, err := parseAmount("total_amount", *req.TotalAmount)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input.TotalAmount = &total
	}
	if req.StartDate != nil {
		start, err := parseDate("start_date", *req.StartDate)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input.StartDate = &start
	}
	if req.EndDate != nil {
		end, err := parseDate("end_date", *req.EndDate)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input.EndDate = &end
	}

	updated, err := h.budgetService.Update(c.Request.Context(), id, input, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: updated})
}

// transitionHandler builds a handler that moves a budget to the target
// lifecycle status
func (h *Handlers) transitionHandler(target budget.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c, "id")
		if !ok {
			return
		}

		moved, err := h.budgetService.Transition(c.Request.Context(), id, target, actorFrom(c))
		if err != nil {
			h.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, Response{Success: true, Data: moved})
	}
}

// DeleteBudget handles DELETE /budgets/:id
func (h *Handlers) DeleteBudget(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.budgetService.Delete(c.Request.Context(), id, actorFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// CategoryRequest is the body for POST /budgets/:id/categories
type CategoryRequest struct {
	Name                 string  `json:"name"`
	Code                 string  `json:"code"`
	Type                 string  `json:"type"`
	AllocatedAmount      string  `json:"allocated_amount"`
	VarianceThreshold    float64 `json:"variance_threshold"`
	RequiresApprovalOver string  `json:"requires_approval_over"`
}

// AddCategory handles POST /budgets/:id/categories
func (h *Handlers) AddCategory(c *gin.Context) {
	budgetID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	allocated, err := parseAmount("allocated_amount", req.AllocatedAmount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	approvalOver := decimal.Zero
	if req.RequiresApprovalOver != "" {
		approvalOver, err = parseAmount("requires_approval_over", req.RequiresApprovalOver)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	category, err := h.budgetService.AddCategory(c.Request.Context(), budgetID, service.CategoryInput{
		Name:                 req.Name,
		Code:                 req.Code,
		Type:                 req.Type,
		AllocatedAmount:      allocated,
		VarianceThreshold:    req.VarianceThreshold,
		RequiresApprovalOver: approvalOver,
	}, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: category})
}

// UpdateCategoryRequest is the body for PUT /categories/:id. Spent and
// committed amounts are not accepted here; the transaction path owns
// them.
type UpdateCategoryRequest struct {
	Name                 *string  `json:"name"`
	AllocatedAmount      *string  `json:"allocated_amount"`
	VarianceThreshold    *float64 `json:"variance_threshold"`
	RequiresApprovalOver *string  `json:"requires_approval_over"`
}

// UpdateCategory handles PUT /categories/:id
func (h *Handlers) UpdateCategory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	input := service.UpdateCategoryInput{
		Name:              req.Name,
		VarianceThreshold: req.VarianceThreshold,
	}
	if req.AllocatedAmount != nil {
		allocated, err := parseAmount("allocated_amount", *req.AllocatedAmount)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input.AllocatedAmount = &allocated
	}
	if req.RequiresApprovalOver != nil {
		approvalOver, err := parseAmount("requires_approval_over", *req.RequiresApprovalOver)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input.RequiresApprovalOver = &approvalOver
	}

	category, err := h.budgetService.UpdateCategory(c.Request.Context(), id, input, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: category})
}

// PostTransactionRequest is the body for POST /categories/:id/transactions
type PostTransactionRequest struct {
	Amount          string `json:"amount"`
	Type            string `json:"type"`
	Description     string `json:"description"`
	Reference       string `json:"reference"`
	TransactionDate string `json:"transaction_date"`
}

// PostTransaction handles POST /categories/:id/transactions
func (h *Handlers) PostTransaction(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req PostTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var txnDate time.Time
	if req.TransactionDate != "" {
		txnDate, err = parseDate("transaction_date", req.TransactionDate)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	posted, err := h.transactionService.Post(c.Request.Context(), service.PostTransactionInput{
		CategoryID:      categoryID,
		Amount:          amount,
		Type:            req.Type,
		Description:     req.Description,
		Reference:       req.Reference,
		TransactionDate: txnDate,
	}, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: posted})
}

// ListCategoryTransactions handles GET /categories/:id/transactions
func (h *Handlers) ListCategoryTransactions(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	transactions, err := h.transactionService.ListByCategory(c.Request.Context(), categoryID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: transactions})
}

// DecisionRequest is the body for POST /transactions/:id/decision
type DecisionRequest struct {
	Status string `json:"status"`
}

// DecideTransaction handles POST /transactions/:id/decision
func (h *Handlers) DecideTransaction(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	decided, err := h.transactionService.Decide(c.Request.Context(), id, req.Status, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: decided})
}

// ListAlerts handles GET /budgets/:id/alerts
func (h *Handlers) ListAlerts(c *gin.Context) {
	budgetID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var acknowledged *bool
	if raw := c.Query("acknowledged"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "acknowledged must be true or false"})
			return
		}
		acknowledged = &parsed
	}

	alerts, err := h.alertService.List(c.Request.Context(), budgetID, acknowledged)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: alerts})
}

// AcknowledgeAlert handles POST /alerts/:id/acknowledge
func (h *Handlers) AcknowledgeAlert(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	alert, err := h.alertService.Acknowledge(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: alert})
}

// AuditTrail handles GET /audit/:entity_type/:entity_id
func (h *Handlers) AuditTrail(c *gin.Context) {
	entityType := c.Param("entity_type")
	entityID, ok := h.pathID(c, "entity_id")
	if !ok {
		return
	}

	records, err := h.auditService.ListForEntity(c.Request.Context(), entityType, entityID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}
