// Package collector fetches candlestick data from exchanges and turns it into
// the price series consumed by the DCA simulator.
package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bitalgo/bitalgo/internal/clients"
	"github.com/bitalgo/bitalgo/internal/domain"
	"github.com/bitalgo/bitalgo/pkg/retrier"
)

const fetchTimeout = 30 * time.Second

// ErrNoData is returned when a provider answers without any candles.
var ErrNoData = errors.New("no kline data")

// KlineProvider defines the interface for fetching kline (candlestick) data.
type KlineProvider interface {
	// GetKlines fetches historical kline data for a trading pair.
	// limit specifies the maximum number of klines to fetch,
	// interval the kline interval (e.g. "1h", "1d", "1w").
	GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error)
}

// SeriesCollector fetches the trailing closes of a pair with retries.
type SeriesCollector struct {
	provider  KlineProvider
	retryOpts []retrier.Option
	logger    *zap.Logger
}

// NewSeriesCollector creates a collector. retryOpts override the retrier defaults.
func NewSeriesCollector(provider KlineProvider, logger *zap.Logger, retryOpts ...retrier.Option) *SeriesCollector {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SeriesCollector{provider: provider, retryOpts: retryOpts, logger: logger}
}

// FetchSeries returns the last periods closes of pair, oldest first.
func (c *SeriesCollector) FetchSeries(ctx context.Context, pair domain.Pair, interval string, periods int) ([]domain.PricePoint, error) {
	if periods < 1 {
		return nil, errors.Errorf("periods must be >= 1, got %d", periods)
	}

	logger := c.logger.With(zap.String("pair", pair.String()), zap.String("interval", interval))
	opts := make([]retrier.Option, 0, len(c.retryOpts)+1)
	opts = append(opts, c.retryOpts...)
	opts = append(opts, retrier.WithOnRetry(func(attempt int, err error) {
		logger.Warn("retrying kline fetch", zap.Int("attempt", attempt), zap.Error(err))
	}))
	r := retrier.New(opts...)

	candles, err := retrier.DoWithData(r, ctx, func(ctx context.Context) ([]domain.MarketCandle, error) {
		ctxWithTimeout, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		candles, err := c.provider.GetKlines(ctxWithTimeout, pair, interval, periods)
		if err != nil && !IsRetryable(err) {
			return nil, retrier.Permanent(err)
		}
		return candles, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines for %s %s", pair.String(), interval)
	}

	if len(candles) == 0 {
		return nil, errors.Wrapf(ErrNoData, "%s %s", pair.String(), interval)
	}

	points := domain.TrailingCloses(candles, periods)
	logger.Debug("collected price series", zap.Int("points", len(points)))

	return points, nil
}

// IsRetryable reports whether a provider error is worth another attempt.
// Context errors, unsupported intervals and definitive API rejections are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrUnsupportedInterval) {
		return false
	}

	var statusErr *clients.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	return true
}
