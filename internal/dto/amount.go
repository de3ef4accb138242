package dto

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// Amount is a money field that tolerates the wire shapes older backends emit
// for EMI amounts: a JSON number, a quoted decimal string, null, or garbage.
// Anything unparseable coerces to zero instead of failing the whole payload;
// an unreadable late charge must not block a collection screen.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	if raw[0] == '"' && len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}
	parsed, err := decimal.NewFromString(string(bytes.TrimSpace(raw)))
	if err != nil {
		a.Decimal = decimal.Zero
		return nil
	}
	a.Decimal = parsed
	return nil
}
