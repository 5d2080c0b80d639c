// README: Common money value object used across modules.
package types

import (
	"fmt"
	"math"
)

// Money is a currency amount kept at two decimal places. Fares are fixed at
// booking creation and never recomputed, so half-up rounding happens exactly
// once, here.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// NewMoney rounds amount half-up to two decimals.
func NewMoney(amount float64, currency string) Money {
	return Money{Amount: Round2(amount), Currency: currency}
}

func (m Money) String() string {
	return fmt.Sprintf("%s %.2f", m.Currency, m.Amount)
}

// Round2 rounds half-up to two decimal places.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
