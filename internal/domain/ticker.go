package domain

import "github.com/shopspring/decimal"

// Ticker is the last price of a pair with its 24h change, when the exchange reports one.
type Ticker struct {
	Pair         Pair
	Price        decimal.Decimal
	Change24hPct decimal.NullDecimal
}
