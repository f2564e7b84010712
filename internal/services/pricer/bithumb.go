package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/bitalgo/bitalgo/internal/clients"
	"github.com/bitalgo/bitalgo/internal/domain"
)

// BithumbPricer uses the closing price of the rolling Bithumb ticker.
type BithumbPricer struct {
	client *clients.BithumbClient
}

func NewBithumbPricer(client *clients.BithumbClient) *BithumbPricer {
	return &BithumbPricer{client: client}
}

func (p *BithumbPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	ticker, err := p.GetTicker(ctx, pair)
	if err != nil {
		return decimal.Zero, err
	}
	return ticker.Price, nil
}

// GetTicker returns the closing price with the 24h change rate.
func (p *BithumbPricer) GetTicker(ctx context.Context, pair domain.Pair) (domain.Ticker, error) {
	ticker, err := p.client.Ticker(ctx, pair.From, pair.To)
	if err != nil {
		return domain.Ticker{}, errors.Wrapf(err, "bithumb price for %s", pair.String())
	}
	return toTicker(pair, ticker)
}

// ListTickers returns every market quoted in quote, ordered by base currency.
func (p *BithumbPricer) ListTickers(ctx context.Context, quote string) ([]domain.Ticker, error) {
	entries, err := p.client.AllTickers(ctx, quote)
	if err != nil {
		return nil, errors.Wrapf(err, "bithumb tickers for %s", quote)
	}

	tickers := make([]domain.Ticker, 0, len(entries))
	for _, entry := range entries {
		ticker, err := toTicker(domain.Pair{From: entry.Currency, To: quote}, entry.BithumbTicker)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, ticker)
	}
	return tickers, nil
}

func toTicker(pair domain.Pair, t clients.BithumbTicker) (domain.Ticker, error) {
	price, err := decimal.NewFromString(t.ClosingPrice)
	if err != nil {
		return domain.Ticker{}, errors.Wrapf(err, "bithumb closing price %q for %s", t.ClosingPrice, pair.String())
	}

	out := domain.Ticker{Pair: pair, Price: price}
	if change, err := decimal.NewFromString(t.FluctateRate24H); err == nil {
		out.Change24hPct = decimal.NewNullDecimal(change)
	}
	return out, nil
}
