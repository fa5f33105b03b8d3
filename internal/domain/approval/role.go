package approval

// Role identifies an actor's organizational role. Authority decisions
// key off the typed role, never off name patterns.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleCEO            Role = "CEO"
	RoleCFO            Role = "CFO"
	RoleFinanceManager Role = "FINANCE_MANAGER"
	RoleManager        Role = "MANAGER"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// roleRanks maps roles to their approval authority rank.
// Roles not listed rank 0 and can only approve small amounts.
var roleRanks = map[Role]int{
	RoleAdmin:          5,
	RoleCEO:            4,
	RoleCFO:            3,
	RoleFinanceManager: 2,
	RoleManager:        1,
}

// Rank returns the approval authority rank for a role. Unknown roles
// rank 0.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Actor is the authenticated identity performing an operation. Identity
// and role are established by the session layer and passed through.
type Actor struct {
	ID   string
	Role Role
}
