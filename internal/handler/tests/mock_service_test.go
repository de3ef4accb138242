package handler_test

import (
	"context"

	"loanadmin/internal/domain"
	"loanadmin/internal/dto"
	"loanadmin/internal/overdue"
)

type MockPrivateService struct {
	MockLoginResult *dto.LoginResponse
	MockError       error
}

func (m *MockPrivateService) Login(ctx context.Context, data dto.LoginRequest) (*dto.LoginResponse, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockLoginResult, nil
}

type MockAdminService struct {
	MockUserResult  *domain.User
	MockLoanResult  *domain.Loan
	MockListResult  *domain.Paginated
	MockError       error
	CreateUserCalls int
}

func (m *MockAdminService) CreateUser(ctx context.Context, data dto.CreateUserRequest) (*domain.User, error) {
	m.CreateUserCalls++
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockUserResult, nil
}

func (m *MockAdminService) ListUsers(ctx context.Context, params domain.Params) (*domain.Paginated, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockListResult, nil
}

func (m *MockAdminService) CreateLoan(ctx context.Context, data dto.CreateLoanRequest) (*domain.Loan, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockLoanResult, nil
}

func (m *MockAdminService) ListLoans(ctx context.Context, params domain.Params) (*domain.Paginated, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockListResult, nil
}

type MockOverdueService struct {
	MockPage          overdue.Page
	MockListResult    *dto.OverdueListResponse
	MockSummaryResult *dto.OverdueSummaryResponse
	MockError         error
}

func (m *MockOverdueService) FetchPage(ctx context.Context, params domain.Params) (overdue.Page, error) {
	if m.MockError != nil {
		return overdue.Page{}, m.MockError
	}
	return m.MockPage, nil
}

func (m *MockOverdueService) ListOverdue(ctx context.Context, params domain.Params) (*dto.OverdueListResponse, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockListResult, nil
}

func (m *MockOverdueService) Summarize(ctx context.Context, search string, customerID uint64) (*dto.OverdueSummaryResponse, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockSummaryResult, nil
}

type MockCollectionService struct {
	MockReceiptResult *dto.PaymentReceiptResponse
	MockError         error
	RecordedEmiIDs    []uint64
}

func (m *MockCollectionService) RecordPayment(ctx context.Context, emiID uint64) (*dto.PaymentReceiptResponse, error) {
	m.RecordedEmiIDs = append(m.RecordedEmiIDs, emiID)
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockReceiptResult, nil
}
