package common

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// Amount is a decimal that tolerates JSON numbers, numeric strings, null and
// garbage. Anything that does not parse leaves Valid false instead of failing
// the whole request decode, so validation can report it precisely.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount wraps a float as a valid Amount.
func NewAmount(f float64) Amount {
	return Amount{Value: decimal.NewFromFloat(f), Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*a = Amount{}
		return nil
	}
	raw = bytes.Trim(raw, `"`)
	d, err := decimal.NewFromString(string(bytes.TrimSpace(raw)))
	if err != nil {
		*a = Amount{}
		return nil
	}
	*a = Amount{Value: d, Valid: true}
	return nil
}

// MarshalJSON renders the amount as a bare JSON number, or null when invalid.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// Positive reports whether the amount parsed and is greater than zero.
func (a Amount) Positive() bool {
	return a.Valid && a.Value.IsPositive()
}

// Fixed2 formats the amount with exactly two decimal places.
func (a Amount) Fixed2() string {
	return FormatMoney(a.Value)
}

// FormatMoney formats d with exactly two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
