// Package pricing converts stored prices into a viewer's preferred currency.
// Resolve is pure: the rate table is fetched once per request by a RateSource
// and handed in.
package pricing

import (
	"math"

	"tripgenie/models"
)

// Rates maps a currency code to its rate relative to the base currency.
type Rates map[string]float64

// Price is an amount ready for display.
type Price struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Symbol    string  `json:"symbol"`
	Converted bool    `json:"converted"`
}

// Resolve converts amount from native into preferred. A nil preferred
// currency (guests, roles without a preference) or a rate missing from the
// table yields the native amount with the native symbol; price display never
// fails.
func Resolve(amount float64, native models.Currency, preferred *models.Currency, rates Rates) Price {
	nativePrice := Price{Amount: amount, Currency: native.Code, Symbol: native.Symbol}
	if preferred == nil || preferred.Code == "" || preferred.Code == native.Code {
		return nativePrice
	}
	from, okFrom := rates[native.Code]
	to, okTo := rates[preferred.Code]
	if !okFrom || !okTo || from == 0 {
		return nativePrice
	}
	return Price{
		Amount:    Round2(amount / from * to),
		Currency:  preferred.Code,
		Symbol:    preferred.Symbol,
		Converted: true,
	}
}

// Charge is the amount owed for tickets at unit price, in the unit's currency.
func Charge(unit float64, tickets int) float64 {
	return Round2(unit * float64(tickets))
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
