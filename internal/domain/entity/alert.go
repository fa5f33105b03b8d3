package entity

import "time"

// BudgetAlert represents a threshold or process alert raised against a
// budget. CategoryID is nil for budget-scoped process alerts such as
// APPROVAL_PENDING. Acknowledgement is one-way.
type BudgetAlert struct {
	ID             int64      `json:"id"`
	BudgetID       int64      `json:"budget_id"`
	CategoryID     *int64     `json:"category_id,omitempty"`
	AlertType      string     `json:"alert_type"`
	Severity       string     `json:"severity"`
	Message        string     `json:"message"`
	Threshold      float64    `json:"threshold"`
	CurrentValue   float64    `json:"current_value"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
