package budget

// StatusMachine tracks the current status of a budget and validates
// which actions may be applied to it
type StatusMachine interface {
	// Current returns the current status
	Current() Status

	// CanApply returns true if the action is permitted in the current status
	CanApply(action Action) bool

	// Apply executes the action, moving to the target status if allowed
	Apply(action Action) error

	// PermittedActions returns all actions that can be applied in the current status
	PermittedActions() []Action
}
