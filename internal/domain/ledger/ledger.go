// Package ledger holds the category aggregate arithmetic. Available
// amounts are always derived, never stored, and the aggregate fields
// only move through ApplyPost and ApplyDecision.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/finadmin/budget-engine/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// Snapshot is the derived financial position of a single category.
type Snapshot struct {
	Available          decimal.Decimal `json:"available_amount"`
	UtilizationPercent float64         `json:"utilization_percent"`
}

// Available derives the spendable remainder of a category.
func Available(c *entity.BudgetCategory) decimal.Decimal {
	return c.AllocatedAmount.Sub(c.SpentAmount).Sub(c.CommittedAmount)
}

// Utilization derives spent as a percentage of allocation. A category
// with no allocation reports zero rather than dividing by zero.
func Utilization(c *entity.BudgetCategory) float64 {
	if c.AllocatedAmount.IsZero() {
		return 0
	}
	return c.SpentAmount.Div(c.AllocatedAmount).Mul(hundred).InexactFloat64()
}

// Recompute returns the current derived snapshot of a category.
func Recompute(c *entity.BudgetCategory) Snapshot {
	return Snapshot{
		Available:          Available(c),
		UtilizationPercent: Utilization(c),
	}
}

// ApplyPost records the aggregate effect of a newly posted PENDING
// transaction. Expense postings reserve the amount as committed;
// income never commits.
func ApplyPost(c *entity.BudgetCategory, t *entity.BudgetTransaction) {
	if t.Type == entity.TransactionTypeExpense {
		c.CommittedAmount = c.CommittedAmount.Add(t.Amount)
	}
}

// ApplyDecision records the aggregate effect of deciding a PENDING
// transaction. Only transaction types that committed at posting time
// release committed funds, so the committed total can never go
// negative through this path.
func ApplyDecision(c *entity.BudgetCategory, t *entity.BudgetTransaction, approved bool) {
	if t.Type != entity.TransactionTypeExpense {
		return
	}

	c.CommittedAmount = c.CommittedAmount.Sub(t.Amount)
	if approved {
		c.SpentAmount = c.SpentAmount.Add(t.Amount)
	}
}

// BudgetTotals is the rollup of all live categories in a budget.
type BudgetTotals struct {
	TotalAllocated     decimal.Decimal `json:"total_allocated"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	TotalCommitted     decimal.Decimal `json:"total_committed"`
	RemainingAmount    decimal.Decimal `json:"remaining_amount"`
	UtilizationPercent float64         `json:"utilization_percent"`
}

// Rollup sums category aggregates into budget-level totals.
func Rollup(categories []*entity.BudgetCategory) BudgetTotals {
	totals := BudgetTotals{
		TotalAllocated:  decimal.Zero,
		TotalSpent:      decimal.Zero,
		TotalCommitted:  decimal.Zero,
		RemainingAmount: decimal.Zero,
	}

	for _, c := range categories {
		totals.TotalAllocated = totals.TotalAllocated.Add(c.AllocatedAmount)
		totals.TotalSpent = totals.TotalSpent.Add(c.SpentAmount)
		totals.TotalCommitted = totals.TotalCommitted.Add(c.CommittedAmount)
	}

	totals.RemainingAmount = totals.TotalAllocated.Sub(totals.TotalSpent).Sub(totals.TotalCommitted)
	if !totals.TotalAllocated.IsZero() {
		totals.UtilizationPercent = totals.TotalSpent.Div(totals.TotalAllocated).Mul(hundred).InexactFloat64()
	}

	return totals
}
