package domain

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

type Role string

const (
	SuperAdminRole Role = "superadmin"
	AdminRole      Role = "admin"
	AgentRole      Role = "agent"
	CustomerRole   Role = "customer"
)

// NormalizeRole maps the assorted role spellings coming from older clients
// ("Agent", "ROLE_AGENT", nested role objects serialized as plain names) onto
// the single Role enum. Unknown values normalize to CustomerRole, the least
// privileged role.
func NormalizeRole(raw string) Role {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "ROLE_")) {
	case "superadmin", "super_admin", "super-admin":
		return SuperAdminRole
	case "admin":
		return AdminRole
	case "agent", "collector":
		return AgentRole
	case "customer":
		return CustomerRole
	default:
		return CustomerRole
	}
}

type User struct {
	ID        uint64
	Mobile    string
	FullName  string
	Password  string
	Role      Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time

	Loans []Loan
}

type Loan struct {
	ID               uint64
	LoanCode         string
	CustomerID       uint64
	AgentID          uint64
	PrincipalAmount  float64
	InstallmentCount int
	DisbursedAt      time.Time
	Status           LoanStatus

	Customer User
	Emis     []Emi
}

type LoanStatus string

const (
	LoanActive  LoanStatus = "ACTIVE"
	LoanClosed  LoanStatus = "CLOSED"
	LoanDefault LoanStatus = "DEFAULTED"
)

type Emi struct {
	ID         uint64
	LoanID     uint64
	EmiNumber  int
	EmiDate    time.Time
	Amount     float64
	LateCharge float64
	Status     EmiStatus
	PaidAt     *time.Time
	ReceiptID  string

	Loan Loan
}

type EmiStatus string

const (
	EmiPending EmiStatus = "PENDING"
	EmiOverdue EmiStatus = "OVERDUE"
	EmiPaid    EmiStatus = "PAID"
)

type JwtCustomClaims struct {
	UserID uint64 `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Params carries list-endpoint query state. Search matches loan code,
// customer name and customer mobile; CustomerID narrows to one customer.
type Params struct {
	Status     string
	Search     string
	CustomerID uint64
	Page       int
	Limit      int
}

type Paginated struct {
	Data       any
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// OverdueLineItem is one overdue installment row as served to the agent
// console, the flat shape the aggregation stage folds up.
type OverdueLineItem struct {
	LoanID         uint64
	LoanCode       string
	CustomerName   string
	CustomerMobile string
	EmiNumber      int
	EmiDate        time.Time
	Amount         decimal.Decimal
	LateCharge     decimal.Decimal
	Status         EmiStatus
}
