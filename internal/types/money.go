// README: Common money value object used across modules.
package types

import "strconv"

// CurrencyINR is the only currency bookings are priced in.
const CurrencyINR = "INR"

// Money is an amount in whole currency units (rupees, no paise).
type Money struct {
	Amount   int64
	Currency string
}

func Rupees(amount int64) Money {
	return Money{Amount: amount, Currency: CurrencyINR}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

func (m Money) String() string {
	return "Rs " + strconv.FormatInt(m.Amount, 10)
}
