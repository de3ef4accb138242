package dto

import (
	"time"

	"loanadmin/internal/domain"
	"loanadmin/internal/overdue"
)

type LoginResponse struct {
	Token string `json:"token"`
}

// EmiLineItem is one overdue installment row on the wire. Amount fields use
// the lenient Amount codec: decimal string, number, null and malformed
// values all decode, the last two as zero.
type EmiLineItem struct {
	LoanID         uint64 `json:"loan_id"`
	LoanCode       string `json:"loan_code"`
	CustomerName   string `json:"customer_name"`
	CustomerMobile string `json:"customer_mobile"`
	EmiNumber      int    `json:"emi_number"`
	EmiDate        string `json:"emi_date"`
	Amount         Amount `json:"amount"`
	LateCharge     Amount `json:"late_charge"`
	Status         string `json:"status"`
}

type OverdueListResponse struct {
	Results    []EmiLineItem `json:"results"`
	TotalCount int64         `json:"total_count"`
}

type OverdueSummaryResponse struct {
	SummaryByLoan map[uint64]overdue.LoanSummary `json:"summary_by_loan"`
	DetailByLoan  map[uint64][]overdue.EmiDetail `json:"detail_by_loan"`
	Loans         []overdue.LoanSummary          `json:"loans"`
	TotalCount    int64                          `json:"total_count"`
}

type PaymentReceiptResponse struct {
	ReceiptID string    `json:"receipt_id"`
	EmiID     uint64    `json:"emi_id"`
	LoanCode  string    `json:"loan_code"`
	EmiNumber int       `json:"emi_number"`
	AmountDue float64   `json:"amount_due"`
	PaidAt    time.Time `json:"paid_at"`
}

// LineItemToDTO projects a domain line item onto the wire shape.
func LineItemToDTO(item domain.OverdueLineItem) EmiLineItem {
	return EmiLineItem{
		LoanID:         item.LoanID,
		LoanCode:       item.LoanCode,
		CustomerName:   item.CustomerName,
		CustomerMobile: item.CustomerMobile,
		EmiNumber:      item.EmiNumber,
		EmiDate:        item.EmiDate.Format("2006-01-02"),
		Amount:         NewAmount(item.Amount),
		LateCharge:     NewAmount(item.LateCharge),
		Status:         string(item.Status),
	}
}

// LineItemFromDTO folds a wire row back into the domain shape; a date that
// does not parse becomes the zero time rather than an error, matching the
// leniency of the amount codec.
func LineItemFromDTO(item EmiLineItem) domain.OverdueLineItem {
	emiDate, _ := time.Parse("2006-01-02", item.EmiDate)
	return domain.OverdueLineItem{
		LoanID:         item.LoanID,
		LoanCode:       item.LoanCode,
		CustomerName:   item.CustomerName,
		CustomerMobile: item.CustomerMobile,
		EmiNumber:      item.EmiNumber,
		EmiDate:        emiDate,
		Amount:         item.Amount.Decimal,
		LateCharge:     item.LateCharge.Decimal,
		Status:         domain.EmiStatus(item.Status),
	}
}
