package dto

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountUnmarshalLenient(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"number", `123.45`, "123.45"},
		{"integer", `500`, "500"},
		{"quoted string", `"123.45"`, "123.45"},
		{"quoted with spaces", `" 99.90 "`, "99.9"},
		{"null", `null`, "0"},
		{"empty string", `""`, "0"},
		{"garbage", `"not-a-number"`, "0"},
		{"negative", `"-10.5"`, "-10.5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tc.in), &a))
			assert.True(t, a.Decimal.Equal(decimal.RequireFromString(tc.want)),
				"got %s want %s", a.Decimal, tc.want)
		})
	}
}

func TestAmountMarshalBareDecimal(t *testing.T) {
	out, err := json.Marshal(NewAmount(decimal.RequireFromString("1050.50")))
	require.NoError(t, err)
	assert.Equal(t, "1050.5", string(out))
}

func TestLineItemRoundTripThroughWireShape(t *testing.T) {
	payload := `{
		"loan_id": 7,
		"loan_code": "LN-7",
		"customer_name": "Asha Verma",
		"customer_mobile": "9876500007",
		"emi_number": 2,
		"emi_date": "2024-01-10",
		"amount": "500",
		"late_charge": null,
		"status": "OVERDUE"
	}`

	var wire EmiLineItem
	require.NoError(t, json.Unmarshal([]byte(payload), &wire))

	item := LineItemFromDTO(wire)
	assert.Equal(t, uint64(7), item.LoanID)
	assert.True(t, item.Amount.Equal(decimal.NewFromInt(500)))
	assert.True(t, item.LateCharge.IsZero())
	assert.Equal(t, "2024-01-10", item.EmiDate.Format("2006-01-02"))

	back := LineItemToDTO(item)
	assert.Equal(t, wire.LoanCode, back.LoanCode)
	assert.Equal(t, wire.EmiDate, back.EmiDate)
}
