package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a ZMW monetary value.
// Amount is stored as BIGINT ngwee (10^-2) to avoid floating point errors.
type Money struct {
	Amount   int64  // ngwee
	Currency string // ISO 4217, always ZMW in practice
}

// NewMoney creates a new Money instance from ngwee.
func NewMoney(amount int64, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// ToDecimal converts the int64 ngwee to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(100))
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), m.Currency)
}
