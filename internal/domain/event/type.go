package event

// Type identifies the type of domain event
type Type string

const (
	TypeBudgetCreated       Type = "budget.created"
	TypeBudgetStatusChanged Type = "budget.status_changed"
	TypeBudgetDeleted       Type = "budget.deleted"
	TypeTransactionPosted   Type = "transaction.posted"
	TypeTransactionDecided  Type = "transaction.decided"
	TypeAlertRaised         Type = "alert.raised"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeBudgetCreated,
		TypeBudgetStatusChanged,
		TypeBudgetDeleted,
		TypeTransactionPosted,
		TypeTransactionDecided,
		TypeAlertRaised:
		return true
	default:
		return false
	}
}
