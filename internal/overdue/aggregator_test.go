package overdue

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanadmin/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func item(loanID uint64, emiNumber int, date string, amount, lateCharge float64) domain.OverdueLineItem {
	return domain.OverdueLineItem{
		LoanID:         loanID,
		LoanCode:       "LN-7",
		CustomerName:   "Asha Verma",
		CustomerMobile: "9876500007",
		EmiNumber:      emiNumber,
		EmiDate:        day(date),
		Amount:         decimal.NewFromFloat(amount),
		LateCharge:     decimal.NewFromFloat(lateCharge),
		Status:         domain.EmiOverdue,
	}
}

func TestIngestPageMergesAcrossPages(t *testing.T) {
	agg := NewAggregator()

	agg.IngestPage([]domain.OverdueLineItem{
		item(7, 2, "2024-01-10", 500, 50),
		item(7, 1, "2024-01-05", 500, 0),
	}, true)

	s, ok := agg.Summary(7)
	require.True(t, ok)
	assert.True(t, s.TotalDue.Equal(decimal.NewFromInt(1050)), "got %s", s.TotalDue)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, day("2024-01-05"), s.OverdueSince)
	assert.Equal(t, []int{2, 1}, s.OverdueEmiNumbers)

	agg.IngestPage([]domain.OverdueLineItem{
		item(7, 3, "2024-01-15", 500, 25),
	}, false)

	s, ok = agg.Summary(7)
	require.True(t, ok)
	assert.True(t, s.TotalDue.Equal(decimal.NewFromInt(1575)), "got %s", s.TotalDue)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, day("2024-01-05"), s.OverdueSince, "earliest date must not move later")
	assert.Equal(t, 3, agg.Items())
	assert.Equal(t, 1, agg.Loans())
	assert.Len(t, agg.Details(7), 3)
}

func TestTotalDueAlwaysSumOfComponents(t *testing.T) {
	agg := NewAggregator()

	agg.IngestPage([]domain.OverdueLineItem{
		item(1, 1, "2024-02-01", 1200.50, 30.25),
		item(1, 2, "2024-03-01", 1200.50, 0),
		item(2, 5, "2024-01-20", 999.99, 75),
	}, true)

	for _, s := range agg.Summaries() {
		assert.True(t, s.TotalDue.Equal(s.TotalEmiAmount.Add(s.TotalLateCharges)),
			"loan %d: %s != %s + %s", s.LoanID, s.TotalDue, s.TotalEmiAmount, s.TotalLateCharges)
	}
}

func TestFirstPageResetsPreviousAggregates(t *testing.T) {
	agg := NewAggregator()

	agg.IngestPage([]domain.OverdueLineItem{item(1, 1, "2024-01-01", 100, 0)}, true)
	require.Equal(t, 1, agg.Loans())

	agg.IngestPage([]domain.OverdueLineItem{item(2, 1, "2024-02-01", 200, 10)}, true)

	assert.Equal(t, 1, agg.Loans())
	assert.Equal(t, 1, agg.Items())
	_, ok := agg.Summary(1)
	assert.False(t, ok, "loan from the previous filter must be gone")
	s, ok := agg.Summary(2)
	require.True(t, ok)
	assert.True(t, s.TotalDue.Equal(decimal.NewFromInt(210)))
}

func TestSummariesKeepFirstSeenOrder(t *testing.T) {
	agg := NewAggregator()

	agg.IngestPage([]domain.OverdueLineItem{
		item(30, 1, "2024-01-03", 100, 0),
		item(10, 1, "2024-01-01", 100, 0),
		item(20, 1, "2024-01-02", 100, 0),
	}, true)
	agg.IngestPage([]domain.OverdueLineItem{
		item(10, 2, "2024-02-01", 100, 0),
		item(40, 1, "2024-01-04", 100, 0),
	}, false)

	var ids []uint64
	for _, s := range agg.Summaries() {
		ids = append(ids, s.LoanID)
	}
	assert.Equal(t, []uint64{30, 10, 20, 40}, ids)
}

func TestIngestEmptyPage(t *testing.T) {
	agg := NewAggregator()
	agg.IngestPage(nil, true)

	assert.Equal(t, 0, agg.Loans())
	assert.Equal(t, 0, agg.Items())
	assert.Empty(t, agg.Summaries())
}

func TestDetailByLoanReturnsCopies(t *testing.T) {
	agg := NewAggregator()
	agg.IngestPage([]domain.OverdueLineItem{item(1, 1, "2024-01-01", 100, 5)}, true)

	byLoan := agg.DetailByLoan()
	byLoan[1][0].EmiNumber = 99

	assert.Equal(t, 1, agg.Details(1)[0].EmiNumber)
}
