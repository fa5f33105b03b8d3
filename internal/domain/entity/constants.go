package entity

// Status constants for Budget
const (
	BudgetStatusDraft    = "DRAFT"
	BudgetStatusPending  = "PENDING"
	BudgetStatusApproved = "APPROVED"
	BudgetStatusActive   = "ACTIVE"
	BudgetStatusClosed   = "CLOSED"
	BudgetStatusRejected = "REJECTED"
)

// Budget type constants
const (
	BudgetTypeMaster     = "MASTER"
	BudgetTypeDepartment = "DEPARTMENT"
	BudgetTypeProject    = "PROJECT"
)

// Category type constants
const (
	CategoryTypeExpense = "EXPENSE"
	CategoryTypeCapital = "CAPITAL"
	CategoryTypeRevenue = "REVENUE"
)

// Transaction type constants
const (
	TransactionTypeExpense = "EXPENSE"
	TransactionTypeIncome  = "INCOME"
)

// Status constants for BudgetTransaction
const (
	TransactionStatusPending  = "PENDING"
	TransactionStatusApproved = "APPROVED"
	TransactionStatusRejected = "REJECTED"
)

// Alert type constants
const (
	AlertTypeThreshold80     = "THRESHOLD_80"
	AlertTypeThreshold90     = "THRESHOLD_90"
	AlertTypeApprovalPending = "APPROVAL_PENDING"
)

// Alert severity constants
const (
	AlertSeverityLow    = "LOW"
	AlertSeverityMedium = "MEDIUM"
	AlertSeverityHigh   = "HIGH"
)

// Audited entity type constants
const (
	AuditEntityBudget   = "budget"
	AuditEntityCategory = "category"
)

// Audit action constants
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

// ValidBudgetType reports whether t is a known budget type.
func ValidBudgetType(t string) bool {
	switch t {
	case BudgetTypeMaster, BudgetTypeDepartment, BudgetTypeProject:
		return true
	default:
		return false
	}
}

// ValidCategoryType reports whether t is a known category type.
func ValidCategoryType(t string) bool {
	switch t {
	case CategoryTypeExpense, CategoryTypeCapital, CategoryTypeRevenue:
		return true
	default:
		return false
	}
}

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeExpense, TransactionTypeIncome:
		return true
	default:
		return false
	}
}
