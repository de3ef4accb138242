package adminsrv

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanadmin/internal/domain"
)

func TestBuildScheduleSumsToPrincipal(t *testing.T) {
	firstDue := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	schedule := buildSchedule(1000, 3, firstDue)

	require.Len(t, schedule, 3)

	sum := decimal.Zero
	for i, emi := range schedule {
		assert.Equal(t, i+1, emi.EmiNumber)
		assert.Equal(t, domain.EmiPending, emi.Status)
		assert.Equal(t, firstDue.AddDate(0, i, 0), emi.EmiDate)
		sum = sum.Add(decimal.NewFromFloat(emi.Amount))
	}

	assert.True(t, sum.Equal(decimal.NewFromInt(1000)), "schedule sums to %s", sum)
	assert.InDelta(t, 333.33, schedule[0].Amount, 0.001)
	assert.InDelta(t, 333.34, schedule[2].Amount, 0.001, "rounding residue lands on the last installment")
}

func TestBuildScheduleSingleInstallment(t *testing.T) {
	firstDue := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	schedule := buildSchedule(2500.75, 1, firstDue)

	require.Len(t, schedule, 1)
	assert.InDelta(t, 2500.75, schedule[0].Amount, 0.001)
	assert.Equal(t, firstDue, schedule[0].EmiDate)
}

func TestNewLoanCodeShape(t *testing.T) {
	code := newLoanCode()
	other := newLoanCode()

	assert.Regexp(t, `^LN-\d{8}-[0-9A-F]{8}$`, code)
	assert.NotEqual(t, code, other)
}
