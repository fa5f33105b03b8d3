package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget represents a fiscal-year budget moving through the approval lifecycle
type Budget struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	FiscalYear   int             `json:"fiscal_year"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Currency     string          `json:"currency"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	CreatedBy    string          `json:"created_by"`
	ApprovedBy   *string         `json:"approved_by,omitempty"`
	ApprovedDate *time.Time      `json:"approved_date,omitempty"`
	Deleted      bool            `json:"deleted"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BudgetCategory represents a spending line within a budget.
// SpentAmount and CommittedAmount are maintained exclusively by the
// transaction processing path; direct edits are limited to allocation,
// descriptive fields and thresholds.
type BudgetCategory struct {
	ID                   int64           `json:"id"`
	BudgetID             int64           `json:"budget_id"`
	Name                 string          `json:"name"`
	Code                 string          `json:"code"`
	Type                 string          `json:"type"`
	AllocatedAmount      decimal.Decimal `json:"allocated_amount"`
	SpentAmount          decimal.Decimal `json:"spent_amount"`
	CommittedAmount      decimal.Decimal `json:"committed_amount"`
	VarianceThreshold    float64         `json:"variance_threshold"`
	RequiresApprovalOver decimal.Decimal `json:"requires_approval_over"`
	Deleted              bool            `json:"deleted"`
	Version              int64           `json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
