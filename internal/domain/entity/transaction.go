package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetTransaction represents a single expense or income movement
// recorded against a budget category. Transactions are created PENDING
// and only affect spent totals once approved.
type BudgetTransaction struct {
	ID              int64           `json:"id"`
	CategoryID      int64           `json:"category_id"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"`
	Description     string          `json:"description"`
	Reference       string          `json:"reference,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	Status          string          `json:"status"`
	CreatedBy       string          `json:"created_by"`
	ApprovedBy      *string         `json:"approved_by,omitempty"`
	ApprovedDate    *time.Time      `json:"approved_date,omitempty"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsPending reports whether the transaction is still awaiting a decision.
func (t *BudgetTransaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}
