package budget

// Action represents an operation that moves a budget between statuses
type Action string

const (
	ActionSubmit   Action = "SUBMIT"
	ActionRevise   Action = "REVISE"
	ActionApprove  Action = "APPROVE"
	ActionReject   Action = "REJECT"
	ActionWithdraw Action = "WITHDRAW"
	ActionActivate Action = "ACTIVATE"
	ActionClose    Action = "CLOSE"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// RequiresElevatedRole reports whether the action is an approval decision
// restricted to finance-approver roles.
func (a Action) RequiresElevatedRole() bool {
	return a == ActionApprove || a == ActionReject
}
