package budget

import "sort"

// lifecycle is the single source of truth for the budget status graph.
// CLOSED is intentionally unconfigured: it is terminal.
func lifecycle() MachineBuilder {
	b := NewBuilder()

	b.Configure(StatusDraft).
		Permit(ActionSubmit, StatusPending).
		Permit(ActionRevise, StatusDraft)

	b.Configure(StatusPending).
		Permit(ActionApprove, StatusApproved).
		Permit(ActionReject, StatusRejected).
		Permit(ActionWithdraw, StatusDraft)

	b.Configure(StatusApproved).
		Permit(ActionActivate, StatusActive).
		Permit(ActionClose, StatusClosed)

	b.Configure(StatusActive).
		Permit(ActionClose, StatusClosed)

	b.Configure(StatusRejected).
		Permit(ActionRevise, StatusDraft)

	return b
}

// NewMachine creates a status machine positioned at the given status.
func NewMachine(current Status) (StatusMachine, error) {
	if !current.IsValid() {
		return nil, ErrInvalidStatus
	}
	return lifecycle().Build(current), nil
}

// CanTransition reports whether a budget may move from one status to another.
func CanTransition(from, to Status) bool {
	_, ok := ActionFor(from, to)
	return ok
}

// ActionFor resolves the action that moves a budget from one status to
// another, if such a transition exists.
func ActionFor(from, to Status) (Action, bool) {
	machine, err := NewMachine(from)
	if err != nil {
		return "", false
	}

	for _, action := range machine.PermittedActions() {
		probe, _ := NewMachine(from)
		if probe.Apply(action) == nil && probe.Current() == to {
			return action, true
		}
	}

	return "", false
}

// NextStatuses returns the statuses reachable from the given status,
// sorted for stable error messages.
func NextStatuses(from Status) []Status {
	machine, err := NewMachine(from)
	if err != nil {
		return nil
	}

	seen := make(map[Status]bool)
	var next []Status
	for _, action := range machine.PermittedActions() {
		probe, _ := NewMachine(from)
		if probe.Apply(action) != nil {
			continue
		}
		if target := probe.Current(); !seen[target] {
			seen[target] = true
			next = append(next, target)
		}
	}

	sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
	return next
}

// NextStatusStrings returns NextStatuses as plain strings, for error payloads.
func NextStatusStrings(from Status) []string {
	next := NextStatuses(from)
	out := make([]string, len(next))
	for i, s := range next {
		out[i] = s.String()
	}
	return out
}
