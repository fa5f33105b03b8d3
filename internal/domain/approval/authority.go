package approval

import "github.com/shopspring/decimal"

// Amount tiers for transaction approval. An approver's rank must meet
// or exceed the rank required by the tier the amount falls in.
var (
	tierRankOne   = decimal.NewFromInt(1000)
	tierRankTwo   = decimal.NewFromInt(10000)
	tierRankThree = decimal.NewFromInt(50000)
	tierRankFour  = decimal.NewFromInt(100000)
)

// RequiredRank returns the minimum approver rank for a transaction amount.
func RequiredRank(amount decimal.Decimal) int {
	switch {
	case amount.LessThan(tierRankOne):
		return 0
	case amount.LessThan(tierRankTwo):
		return 1
	case amount.LessThan(tierRankThree):
		return 2
	case amount.LessThan(tierRankFour):
		return 3
	default:
		return 4
	}
}

// CanApprove reports whether a role has sufficient rank to approve or
// reject a transaction of the given amount.
func CanApprove(role Role, amount decimal.Decimal) bool {
	return role.Rank() >= RequiredRank(amount)
}

// budgetApprovalRoles may approve or reject budgets pending approval.
var budgetApprovalRoles = map[Role]bool{
	RoleAdmin:          true,
	RoleCEO:            true,
	RoleCFO:            true,
	RoleFinanceManager: true,
}

// budgetDeleteRoles may tombstone budgets.
var budgetDeleteRoles = map[Role]bool{
	RoleAdmin: true,
	RoleCEO:   true,
	RoleCFO:   true,
}

// CanDecideBudget reports whether a role may perform budget
// approval actions (approve, reject).
func CanDecideBudget(role Role) bool {
	return budgetApprovalRoles[role]
}

// CanDeleteBudget reports whether a role may delete a budget.
func CanDeleteBudget(role Role) bool {
	return budgetDeleteRoles[role]
}

// BudgetApprovalRoles returns the roles sufficient for budget approval
// actions, for authorization error payloads.
func BudgetApprovalRoles() []string {
	return []string{
		RoleAdmin.String(),
		RoleCEO.String(),
		RoleCFO.String(),
		RoleFinanceManager.String(),
	}
}

// BudgetDeleteRoles returns the roles sufficient for budget deletion.
func BudgetDeleteRoles() []string {
	return []string{
		RoleAdmin.String(),
		RoleCEO.String(),
		RoleCFO.String(),
	}
}

// MinRoleForRank returns the lowest role satisfying the given rank, for
// authorization error payloads. Rank 0 needs no particular role.
func MinRoleForRank(rank int) Role {
	switch rank {
	case 1:
		return RoleManager
	case 2:
		return RoleFinanceManager
	case 3:
		return RoleCFO
	case 4:
		return RoleCEO
	case 5:
		return RoleAdmin
	default:
		return ""
	}
}
