package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/bitalgo/bitalgo/internal/domain"
)

// HyperliquidKlineProvider implements KlineProvider for Hyperliquid exchange.
type HyperliquidKlineProvider struct {
	info *hyperliquid.Info
}

// NewHyperliquidKlineProvider creates a new Hyperliquid kline provider.
func NewHyperliquidKlineProvider(info *hyperliquid.Info) *HyperliquidKlineProvider {
	return &HyperliquidKlineProvider{info: info}
}

// parseIntervalToDuration supports "1m", "15m", "1h", "4h", "1d", "1w".
func parseIntervalToDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, errors.Wrapf(ErrUnsupportedInterval, "%q", interval)
	}

	n, err := strconv.ParseInt(interval[:len(interval)-1], 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.Wrapf(ErrUnsupportedInterval, "%q", interval)
	}

	switch interval[len(interval)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedInterval, "%q", interval)
	}
}

// GetKlines fetches kline data.
func (p *HyperliquidKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	if p.info == nil {
		return nil, fmt.Errorf("hyperliquid info is nil")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	if interval == "24h" {
		interval = "1d"
	}
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return nil, err
	}

	endMs := time.Now().UnixMilli()
	// two extra candles of slack for the partially formed one
	startMs := endMs - (int64(limit)+2)*dur.Milliseconds()

	// Hyperliquid quotes by base coin only, e.g. "BTC"
	coin := strings.ToUpper(pair.From)

	candles, err := p.info.CandlesSnapshot(ctx, coin, interval, startMs, endMs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch candles from Hyperliquid for %s", coin)
	}

	if len(candles) == 0 {
		return nil, errors.Wrapf(ErrNoData, "hyperliquid %s %s", coin, interval)
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	out := make([]domain.MarketCandle, 0, len(candles))
	for i, c := range candles {
		values, err := parseDecimals(c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return nil, fmt.Errorf("parse hyperliquid candle at %d: %w", i, err)
		}

		out = append(out, domain.MarketCandle{
			OpenTime:  time.UnixMilli(c.TimeOpen),
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
			CloseTime: time.UnixMilli(c.TimeClose),
		})
	}

	return out, nil
}
