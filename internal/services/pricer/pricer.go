// Package pricer fetches the latest traded price of a pair from an exchange.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bitalgo/bitalgo/internal/domain"
)

type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// TickerPricer is a Pricer that also reports the 24h change.
type TickerPricer interface {
	Pricer
	GetTicker(ctx context.Context, pair domain.Pair) (domain.Ticker, error)
}

// MarketLister lists every market quoted in one currency.
type MarketLister interface {
	ListTickers(ctx context.Context, quote string) ([]domain.Ticker, error)
}

var (
	_ TickerPricer = (*BithumbPricer)(nil)
	_ MarketLister = (*BithumbPricer)(nil)
)
