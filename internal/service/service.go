package service

import (
	"context"

	"loanadmin/internal/domain"
	"loanadmin/internal/dto"
	"loanadmin/internal/overdue"
)

type PrivateService interface {
	Login(ctx context.Context, data dto.LoginRequest) (*dto.LoginResponse, error)
}

type AdminService interface {
	CreateUser(ctx context.Context, data dto.CreateUserRequest) (*domain.User, error)
	ListUsers(ctx context.Context, params domain.Params) (*domain.Paginated, error)
	CreateLoan(ctx context.Context, data dto.CreateLoanRequest) (*domain.Loan, error)
	ListLoans(ctx context.Context, params domain.Params) (*domain.Paginated, error)
}

// OverdueService is also a page source for aggregation sessions, so callers
// that reconcile page by page share the same fetch path as the list endpoint.
type OverdueService interface {
	overdue.PageFetcher

	ListOverdue(ctx context.Context, params domain.Params) (*dto.OverdueListResponse, error)
	Summarize(ctx context.Context, search string, customerID uint64) (*dto.OverdueSummaryResponse, error)
}

type CollectionService interface {
	RecordPayment(ctx context.Context, emiID uint64) (*dto.PaymentReceiptResponse, error)
}
