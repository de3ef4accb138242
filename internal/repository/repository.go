package repository

import (
	"context"
	"time"

	"loanadmin/internal/domain"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id uint64) (*domain.User, error)
	FindByMobile(ctx context.Context, mobile string) (*domain.User, error)
	FindPaginated(ctx context.Context, params domain.Params) ([]domain.User, int64, error)
}

type LoanRepository interface {
	CreateWithSchedule(ctx context.Context, loan *domain.Loan, schedule []domain.Emi) (*domain.Loan, error)
	FindByID(ctx context.Context, id uint64) (*domain.Loan, error)
	FindPaginated(ctx context.Context, params domain.Params) ([]domain.Loan, int64, error)
	UpdateStatus(ctx context.Context, id uint64, status domain.LoanStatus) error
}

type EmiRepository interface {
	FindByID(ctx context.Context, id uint64) (*domain.Emi, error)
	// FindOverduePaginated returns overdue installments joined with their
	// loan and customer, ordered by due date then id so paging is stable.
	FindOverduePaginated(ctx context.Context, params domain.Params) ([]domain.OverdueLineItem, int64, error)
	// MarkOverdueBefore flips PENDING installments due strictly before the
	// cutoff to OVERDUE and applies the flat late charge once.
	MarkOverdueBefore(ctx context.Context, cutoff time.Time, lateCharge float64) (int64, error)
	MarkPaid(ctx context.Context, emiID uint64, receiptID string, paidAt time.Time) error
	CountUnpaidByLoan(ctx context.Context, loanID uint64) (int64, error)
}
