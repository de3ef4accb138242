package model

import (
	"time"

	"loanadmin/internal/domain"
)

type Loan struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement"`
	LoanCode         string    `gorm:"type:varchar(30);uniqueIndex;not null"`
	CustomerID       uint64    `gorm:"not null;index"`
	AgentID          uint64    `gorm:"not null;index"`
	PrincipalAmount  float64   `gorm:"type:decimal(15,2);not null"`
	InstallmentCount int       `gorm:"not null"`
	DisbursedAt      time.Time `gorm:"not null"`
	Status           string    `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`

	Customer User  `gorm:"foreignKey:CustomerID"`
	Emis     []Emi `gorm:"foreignKey:LoanID"`
}

func LoanFromEntity(data *domain.Loan) Loan {
	return Loan{
		ID:               data.ID,
		LoanCode:         data.LoanCode,
		CustomerID:       data.CustomerID,
		AgentID:          data.AgentID,
		PrincipalAmount:  data.PrincipalAmount,
		InstallmentCount: data.InstallmentCount,
		DisbursedAt:      data.DisbursedAt,
		Status:           string(data.Status),
	}
}

func LoanToEntity(data Loan) *domain.Loan {
	loan := &domain.Loan{
		ID:               data.ID,
		LoanCode:         data.LoanCode,
		CustomerID:       data.CustomerID,
		AgentID:          data.AgentID,
		PrincipalAmount:  data.PrincipalAmount,
		InstallmentCount: data.InstallmentCount,
		DisbursedAt:      data.DisbursedAt,
		Status:           domain.LoanStatus(data.Status),
	}
	if data.Customer.ID != 0 {
		loan.Customer = *UserToEntity(data.Customer)
	}
	return loan
}

func LoansToEntity(data []Loan) []domain.Loan {
	responses := make([]domain.Loan, len(data))
	for i, l := range data {
		responses[i] = *LoanToEntity(l)
	}

	return responses
}
