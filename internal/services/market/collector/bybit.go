package collector

import (
	"context"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"

	"github.com/bitalgo/bitalgo/internal/domain"
)

const (
	bybitMaxPerRequest = 200
	bybitBatchPause    = 100 * time.Millisecond
)

// BybitKlineProvider implements KlineProvider for Bybit exchange.
type BybitKlineProvider struct {
	client *bybit.Client
}

// NewBybitKlineProvider creates a new Bybit kline provider.
func NewBybitKlineProvider(client *bybit.Client) *BybitKlineProvider {
	return &BybitKlineProvider{client: client}
}

// GetKlines fetches spot kline data. Bybit pages newest first; batches walk
// backwards through time using the oldest start time seen so far.
func (p *BybitKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, err
	}

	symbol := bybit.SymbolV5(pair.Symbol())
	var allKlines []bybit.V5GetKlineItem
	var end *int64
	remaining := limit

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batchSize := min(remaining, bybitMaxPerRequest)
		param := bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   symbol,
			Interval: bybit.Interval(bybitInterval),
			Limit:    &batchSize,
			End:      end,
		}

		result, err := p.client.V5().Market().GetKline(param)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
		}
		if result == nil {
			return nil, errors.Errorf("empty result from Bybit API for %s", pair.String())
		}

		klines := result.Result.List
		if len(klines) == 0 {
			break
		}
		allKlines = append(allKlines, klines...)

		if len(klines) < batchSize {
			break
		}
		remaining -= len(klines)

		oldest, err := strconv.Atoi(klines[len(klines)-1].StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time %q", klines[len(klines)-1].StartTime)
		}
		prev := int64(oldest) - 1
		end = &prev

		if remaining > 0 {
			time.Sleep(bybitBatchPause)
		}
	}

	candles := make([]domain.MarketCandle, len(allKlines))
	for i, k := range allKlines {
		openTime, err := parseTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}

		values, err := parseDecimals(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse kline at index %d", i)
		}

		candles[i] = domain.MarketCandle{
			OpenTime:  openTime,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
			CloseTime: openTime, // Bybit doesn't provide close time
		}
	}

	return candles, nil
}

// convertIntervalToBybit converts standard interval format to Bybit format.
// Standard format: "1m", "5m", "15m", "1h", "4h", "1d", "1w".
// Bybit format: "1", "5", "15", "60", "240", "D", "W".
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", errors.Wrapf(ErrUnsupportedInterval, "%q", interval)
	}

	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return "", errors.Wrapf(ErrUnsupportedInterval, "%q", interval)
	}

	switch unit {
	case 'm':
		return bybitMinutes(n, interval)
	case 'h':
		if n == 24 {
			return "D", nil
		}
		return bybitMinutes(n*60, interval)
	case 'd':
		if n != 1 {
			return "", errors.Wrapf(ErrUnsupportedInterval, "%q", interval)
		}
		return "D", nil
	case 'w':
		if n != 1 {
			return "", errors.Wrapf(ErrUnsupportedInterval, "%q", interval)
		}
		return "W", nil
	default:
		return "", errors.Wrapf(ErrUnsupportedInterval, "unit %c in %q", unit, interval)
	}
}

// bybitKlineMinutes are the minute intervals the V5 kline endpoint accepts.
var bybitKlineMinutes = map[int]bool{1: true, 3: true, 5: true, 15: true, 30: true, 60: true, 120: true, 240: true, 360: true, 720: true}

func bybitMinutes(minutes int, interval string) (string, error) {
	if !bybitKlineMinutes[minutes] {
		return "", errors.Wrapf(ErrUnsupportedInterval, "%q", interval)
	}
	return strconv.Itoa(minutes), nil
}

// parseTimestamp converts Bybit timestamp string (milliseconds) to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	msec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec), nil
}
