package collector

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bitalgo/bitalgo/internal/clients"
	"github.com/bitalgo/bitalgo/internal/domain"
)

// ErrUnsupportedInterval is returned for intervals an exchange cannot serve.
var ErrUnsupportedInterval = errors.New("unsupported interval")

// bithumbIntervals maps standard intervals to Bithumb chart intervals.
var bithumbIntervals = map[string]string{
	"1m":  "1m",
	"3m":  "3m",
	"5m":  "5m",
	"10m": "10m",
	"30m": "30m",
	"1h":  "1h",
	"6h":  "6h",
	"12h": "12h",
	"24h": "24h",
	"1d":  "24h",
}

// BithumbKlineProvider implements KlineProvider over the Bithumb public candlestick API.
type BithumbKlineProvider struct {
	client *clients.BithumbClient
}

// NewBithumbKlineProvider creates a new Bithumb kline provider.
func NewBithumbKlineProvider(client *clients.BithumbClient) *BithumbKlineProvider {
	return &BithumbKlineProvider{client: client}
}

// GetKlines fetches the candle history and keeps the trailing limit candles.
func (p *BithumbKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	chartInterval, ok := bithumbIntervals[interval]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedInterval, "bithumb %q", interval)
	}

	raw, err := p.client.Candlesticks(ctx, pair.From, pair.To, chartInterval)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Bithumb for %s", pair.String())
	}

	if len(raw) > limit {
		raw = raw[len(raw)-limit:]
	}

	candles := make([]domain.MarketCandle, len(raw))
	for i, c := range raw {
		values, err := parseDecimals(c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return nil, fmt.Errorf("parse bithumb candle at %d: %w", i, err)
		}

		candles[i] = domain.MarketCandle{
			OpenTime:  c.Time,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
			CloseTime: c.Time,
		}
	}

	return candles, nil
}
