package model

import (
	"time"

	"loanadmin/internal/domain"
)

type Emi struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement"`
	LoanID     uint64     `gorm:"not null;index:idx_emi_loan_number,unique"`
	EmiNumber  int        `gorm:"not null;index:idx_emi_loan_number,unique"`
	EmiDate    time.Time  `gorm:"not null;index"`
	Amount     float64    `gorm:"type:decimal(15,2);not null"`
	LateCharge float64    `gorm:"type:decimal(15,2);not null;default:0"`
	Status     string     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaidAt     *time.Time `gorm:""`
	ReceiptID  string     `gorm:"type:varchar(40)"`

	Loan Loan `gorm:"foreignKey:LoanID"`
}

func EmiFromEntity(data *domain.Emi) Emi {
	return Emi{
		ID:         data.ID,
		LoanID:     data.LoanID,
		EmiNumber:  data.EmiNumber,
		EmiDate:    data.EmiDate,
		Amount:     data.Amount,
		LateCharge: data.LateCharge,
		Status:     string(data.Status),
		PaidAt:     data.PaidAt,
		ReceiptID:  data.ReceiptID,
	}
}

func EmiToEntity(data Emi) *domain.Emi {
	return &domain.Emi{
		ID:         data.ID,
		LoanID:     data.LoanID,
		EmiNumber:  data.EmiNumber,
		EmiDate:    data.EmiDate,
		Amount:     data.Amount,
		LateCharge: data.LateCharge,
		Status:     domain.EmiStatus(data.Status),
		PaidAt:     data.PaidAt,
		ReceiptID:  data.ReceiptID,
	}
}

func EmisToEntity(data []Emi) []domain.Emi {
	responses := make([]domain.Emi, len(data))
	for i, e := range data {
		responses[i] = *EmiToEntity(e)
	}

	return responses
}
