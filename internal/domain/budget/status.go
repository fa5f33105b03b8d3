package budget

// Status represents a budget lifecycle status
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusActive   Status = "ACTIVE"
	StatusClosed   Status = "CLOSED"
	StatusRejected Status = "REJECTED"
)

var validStatuses = map[Status]bool{
	StatusDraft:    true,
	StatusPending:  true,
	StatusApproved: true,
	StatusActive:   true,
	StatusClosed:   true,
	StatusRejected: true,
}

var terminalStatuses = map[Status]bool{
	StatusClosed: true,
}

// IsTerminal returns true if the status is terminal (no further transitions allowed)
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known budget status
func (s Status) IsValid() bool {
	return validStatuses[s]
}
