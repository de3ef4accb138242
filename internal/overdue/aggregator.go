package overdue

import (
	"time"

	"github.com/shopspring/decimal"

	"loanadmin/internal/domain"
)

// LoanSummary is the per-loan rollup of every overdue installment ingested so
// far. TotalDue always equals TotalEmiAmount + TotalLateCharges, and
// OverdueSince only ever moves earlier as more line items fold in.
type LoanSummary struct {
	LoanID            uint64          `json:"loan_id"`
	LoanCode          string          `json:"loan_code"`
	CustomerName      string          `json:"customer_name"`
	CustomerMobile    string          `json:"customer_mobile"`
	OverdueSince      time.Time       `json:"overdue_since"`
	TotalEmiAmount    decimal.Decimal `json:"total_emi_amount"`
	TotalLateCharges  decimal.Decimal `json:"total_late_charges"`
	TotalDue          decimal.Decimal `json:"total_due"`
	OverdueEmiNumbers []int           `json:"overdue_emi_numbers"`
	Count             int             `json:"count"`
}

// EmiDetail is the projection kept per installment for the on-demand
// "details" expansion under a summary row.
type EmiDetail struct {
	EmiNumber  int              `json:"emi_number"`
	EmiDate    time.Time        `json:"emi_date"`
	Status     domain.EmiStatus `json:"status"`
	Amount     decimal.Decimal  `json:"amount"`
	LateCharge decimal.Decimal  `json:"late_charge"`
}

// Aggregator folds a paginated stream of flat overdue line items into a
// summary map and a detail map keyed by loan id. Pages merge incrementally:
// items already ingested are never re-processed or replaced. Not safe for
// concurrent use; the fetch session serializes all access.
type Aggregator struct {
	summaries map[uint64]*LoanSummary
	details   map[uint64][]EmiDetail
	order     []uint64
	items     int
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		summaries: make(map[uint64]*LoanSummary),
		details:   make(map[uint64][]EmiDetail),
	}
}

// IngestPage merges one page of line items into the running aggregates.
// firstPage resets both collections before folding, which is how a new
// search/filter invalidates everything built for the previous one.
func (a *Aggregator) IngestPage(items []domain.OverdueLineItem, firstPage bool) {
	if firstPage {
		a.Reset()
	}

	for _, item := range items {
		summary, ok := a.summaries[item.LoanID]
		if !ok {
			summary = &LoanSummary{
				LoanID:         item.LoanID,
				LoanCode:       item.LoanCode,
				CustomerName:   item.CustomerName,
				CustomerMobile: item.CustomerMobile,
				OverdueSince:   item.EmiDate,
			}
			a.summaries[item.LoanID] = summary
			a.order = append(a.order, item.LoanID)
		}

		summary.TotalEmiAmount = summary.TotalEmiAmount.Add(item.Amount)
		summary.TotalLateCharges = summary.TotalLateCharges.Add(item.LateCharge)
		summary.TotalDue = summary.TotalEmiAmount.Add(summary.TotalLateCharges)
		summary.OverdueEmiNumbers = append(summary.OverdueEmiNumbers, item.EmiNumber)
		summary.Count++
		if item.EmiDate.Before(summary.OverdueSince) {
			summary.OverdueSince = item.EmiDate
		}

		a.details[item.LoanID] = append(a.details[item.LoanID], EmiDetail{
			EmiNumber:  item.EmiNumber,
			EmiDate:    item.EmiDate,
			Status:     item.Status,
			Amount:     item.Amount,
			LateCharge: item.LateCharge,
		})
		a.items++
	}
}

// Reset discards both collections.
func (a *Aggregator) Reset() {
	a.summaries = make(map[uint64]*LoanSummary)
	a.details = make(map[uint64][]EmiDetail)
	a.order = nil
	a.items = 0
}

// Summary returns the rollup for one loan, if any line item for it was seen.
func (a *Aggregator) Summary(loanID uint64) (LoanSummary, bool) {
	s, ok := a.summaries[loanID]
	if !ok {
		return LoanSummary{}, false
	}
	return *s, true
}

// Summaries returns all rollups in first-seen order, so a windowed renderer
// can index row i stably across incremental merges.
func (a *Aggregator) Summaries() []LoanSummary {
	result := make([]LoanSummary, 0, len(a.order))
	for _, id := range a.order {
		result = append(result, *a.summaries[id])
	}
	return result
}

// SummaryByLoan returns a copy of the summary collection keyed by loan id.
func (a *Aggregator) SummaryByLoan() map[uint64]LoanSummary {
	result := make(map[uint64]LoanSummary, len(a.summaries))
	for id, s := range a.summaries {
		result[id] = *s
	}
	return result
}

// Details returns the installment projections for one loan in ingest order.
func (a *Aggregator) Details(loanID uint64) []EmiDetail {
	return a.details[loanID]
}

// DetailByLoan returns a copy of the detail collection keyed by loan id.
func (a *Aggregator) DetailByLoan() map[uint64][]EmiDetail {
	result := make(map[uint64][]EmiDetail, len(a.details))
	for id, d := range a.details {
		result[id] = append([]EmiDetail(nil), d...)
	}
	return result
}

// Loans reports how many distinct loans have been folded in.
func (a *Aggregator) Loans() int {
	return len(a.summaries)
}

// Items reports how many line items have been folded in across all pages,
// the "loaded count" the fetch predicate compares against the server total.
func (a *Aggregator) Items() int {
	return a.items
}
