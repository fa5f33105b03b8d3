package budget

import "fmt"

// MachineBuilder builds a configured status machine
type MachineBuilder interface {
	// Configure returns a status configuration for the given status
	Configure(status Status) StatusConfiguration

	// Build creates a new status machine instance with the given initial status
	Build(initial Status) StatusMachine
}

// StatusConfiguration configures transitions out of a specific status
type StatusConfiguration interface {
	// Permit allows an action to transition to the target status
	Permit(action Action, target Status) StatusConfiguration
}

// statusConfig implements StatusConfiguration
type statusConfig struct {
	from        Status
	transitions map[Action]Status
}

// machineBuilder implements MachineBuilder
type machineBuilder struct {
	configurations map[Status]*statusConfig
}

// statusMachine implements StatusMachine
type statusMachine struct {
	current        Status
	configurations map[Status]*statusConfig
}

// NewBuilder creates a new status machine builder
func NewBuilder() MachineBuilder {
	return &machineBuilder{
		configurations: make(map[Status]*statusConfig),
	}
}

// Configure returns a status configuration for the given status
func (b *machineBuilder) Configure(status Status) StatusConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}

	config, exists := b.configurations[status]
	if !exists {
		config = &statusConfig{
			from:        status,
			transitions: make(map[Action]Status),
		}
		b.configurations[status] = config
	}

	return config
}

// Build creates a new status machine instance with the given initial status
func (b *machineBuilder) Build(initial Status) StatusMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial status: %s", initial))
	}

	// Deep copy configurations so built machines are independent
	configsCopy := make(map[Status]*statusConfig)
	for status, config := range b.configurations {
		transitionsCopy := make(map[Action]Status, len(config.transitions))
		for action, target := range config.transitions {
			transitionsCopy[action] = target
		}
		configsCopy[status] = &statusConfig{
			from:        status,
			transitions: transitionsCopy,
		}
	}

	return &statusMachine{
		current:        initial,
		configurations: configsCopy,
	}
}

// Permit allows an action to transition to the target status
func (c *statusConfig) Permit(action Action, target Status) StatusConfiguration {
	if !target.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", target))
	}

	c.transitions[action] = target
	return c
}

// Current returns the current status
func (m *statusMachine) Current() Status {
	return m.current
}

// CanApply returns true if the action is permitted in the current status
func (m *statusMachine) CanApply(action Action) bool {
	config, exists := m.configurations[m.current]
	if !exists {
		return false
	}

	_, exists = config.transitions[action]
	return exists
}

// Apply executes the action, moving to the target status if allowed
func (m *statusMachine) Apply(action Action) error {
	config, exists := m.configurations[m.current]
	if !exists {
		return fmt.Errorf("%w: cannot apply %s in status %s", ErrInvalidTransition, action, m.current)
	}

	target, exists := config.transitions[action]
	if !exists {
		return fmt.Errorf("%w: cannot apply %s in status %s", ErrInvalidTransition, action, m.current)
	}

	m.current = target
	return nil
}

// PermittedActions returns all actions that can be applied in the current status
func (m *statusMachine) PermittedActions() []Action {
	config, exists := m.configurations[m.current]
	if !exists {
		return []Action{}
	}

	actions := make([]Action, 0, len(config.transitions))
	for action := range config.transitions {
		actions = append(actions, action)
	}

	return actions
}
