// README: Common money value object used across modules.
package types

import "fmt"

// DefaultCurrency is the settlement currency of the network.
const DefaultCurrency = "KES"

// Money is an amount in minor units (cents).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Major returns the amount in whole currency units.
func (m Money) Major() float64 {
	return float64(m.Amount) / 100
}

func (m Money) String() string {
	return fmt.Sprintf("%s %.2f", m.Currency, m.Major())
}
