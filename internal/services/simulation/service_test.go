package simulation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bitalgo/bitalgo/internal/domain"
)

var btcKrw = domain.Pair{From: "BTC", To: "KRW"}

type stubCollector struct {
	points []domain.PricePoint
	err    error
	calls  int
}

func (c *stubCollector) FetchSeries(_ context.Context, _ domain.Pair, _ string, _ int) ([]domain.PricePoint, error) {
	c.calls++
	return c.points, c.err
}

type stubPricer struct {
	prices map[string]decimal.Decimal
}

func (p *stubPricer) GetPrice(_ context.Context, pair domain.Pair) (decimal.Decimal, error) {
	price, ok := p.prices[pair.String()]
	if !ok {
		return decimal.Zero, errors.Errorf("no price for %s", pair)
	}
	return price, nil
}

type stubTickerPricer struct {
	stubPricer
	changes map[string]decimal.Decimal
	market  []domain.Ticker
	err     error
}

func (p *stubTickerPricer) GetTicker(ctx context.Context, pair domain.Pair) (domain.Ticker, error) {
	price, err := p.GetPrice(ctx, pair)
	if err != nil {
		return domain.Ticker{}, err
	}
	t := domain.Ticker{Pair: pair, Price: price}
	if change, ok := p.changes[pair.String()]; ok {
		t.Change24hPct = decimal.NewNullDecimal(change)
	}
	return t, nil
}

func (p *stubTickerPricer) ListTickers(_ context.Context, _ string) ([]domain.Ticker, error) {
	return p.market, p.err
}

type memJournal struct {
	mu   sync.Mutex
	runs []domain.SimulationRun
	err  error
}

func (j *memJournal) Save(run domain.SimulationRun) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return 0, j.err
	}
	j.runs = append(j.runs, run)
	return uint64(len(j.runs)), nil
}

func pricePoints(prices ...int64) []domain.PricePoint {
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = domain.PricePoint{Time: start.AddDate(0, 0, i), Price: decimal.NewFromInt(p)}
	}
	return out
}

func TestService_Run(t *testing.T) {
	collector := &stubCollector{points: pricePoints(100, 200, 50)}
	journal := &memJournal{}
	svc := NewService(collector, nil, journal, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC) }

	report, err := svc.Run(context.Background(), Request{
		Pair:     btcKrw,
		Interval: "24h",
		Periods:  3,
		Amount:   decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "BTC_KRW", report.Pair)
	assert.Equal(t, "24h", report.Interval)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, 3, report.Summary.Periods)
	assert.True(t, report.Summary.TotalInvested.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, "-41.18", report.Summary.FinalReturnRatePct.StringFixed(2))
	assert.Equal(t, time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC), report.CreatedAt)

	require.Len(t, journal.runs, 1)
	assert.Equal(t, report.RunID, journal.runs[0].ID)
	assert.Equal(t, "BTC_KRW", journal.runs[0].Pair)
	assert.True(t, journal.runs[0].Plan.PeriodicAmount.Equal(decimal.NewFromInt(1000)))
}

func TestService_Run_JournalFailureIsNotFatal(t *testing.T) {
	collector := &stubCollector{points: pricePoints(100)}
	svc := NewService(collector, nil, &memJournal{err: errors.New("disk full")}, zap.NewNop())

	report, err := svc.Run(context.Background(), Request{Pair: btcKrw, Interval: "24h", Periods: 1, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Len(t, report.Rows, 1)
}

func TestService_Run_Errors(t *testing.T) {
	tests := []struct {
		name         string
		collector    *stubCollector
		amount       decimal.Decimal
		invalidInput bool
		fetches      int
	}{
		{
			name:         "non-positive amount is rejected before fetching",
			collector:    &stubCollector{points: pricePoints(100)},
			amount:       decimal.Zero,
			invalidInput: true,
			fetches:      0,
		},
		{
			name:         "non-positive price",
			collector:    &stubCollector{points: pricePoints(100, 0)},
			amount:       decimal.NewFromInt(10),
			invalidInput: true,
			fetches:      1,
		},
		{
			name:         "empty series",
			collector:    &stubCollector{},
			amount:       decimal.NewFromInt(10),
			invalidInput: true,
			fetches:      1,
		},
		{
			name:      "provider failure",
			collector: &stubCollector{err: errors.New("bithumb down")},
			amount:    decimal.NewFromInt(10),
			fetches:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journal := &memJournal{}
			svc := NewService(tt.collector, nil, journal, zap.NewNop())

			report, err := svc.Run(context.Background(), Request{Pair: btcKrw, Interval: "24h", Periods: 12, Amount: tt.amount})
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Equal(t, tt.invalidInput, errors.Is(err, domain.ErrInvalidInput))
			assert.Equal(t, tt.fetches, tt.collector.calls)
			assert.Empty(t, journal.runs)
		})
	}
}

func TestService_History(t *testing.T) {
	svc := NewService(&stubCollector{points: pricePoints(1, 2, 3)}, nil, nil, nil)

	points, err := svc.History(context.Background(), btcKrw, "24h", 3)
	require.NoError(t, err)
	assert.Len(t, points, 3)

	svc = NewService(&stubCollector{err: errors.New("boom")}, nil, nil, nil)
	_, err = svc.History(context.Background(), btcKrw, "24h", 3)
	assert.Error(t, err)
}

func TestService_Board(t *testing.T) {
	p := &stubPricer{prices: map[string]decimal.Decimal{
		"BTC_KRW": decimal.NewFromInt(91000000),
		"ETH_KRW": decimal.NewFromInt(3500000),
	}}
	svc := NewService(nil, p, nil, zap.NewNop())
	svc.boardConcurrency = 2

	pairs := []domain.Pair{
		{From: "ETH", To: "KRW"},
		{From: "DOGE", To: "KRW"},
		{From: "BTC", To: "KRW"},
	}
	quotes := svc.Board(context.Background(), pairs)
	require.Len(t, quotes, 3)

	for i, q := range quotes {
		assert.Equal(t, pairs[i], q.Pair)
	}
	assert.NoError(t, quotes[0].Err)
	assert.True(t, quotes[0].Price.Equal(decimal.NewFromInt(3500000)))
	assert.Error(t, quotes[1].Err)
	assert.NoError(t, quotes[2].Err)
	assert.True(t, quotes[2].Price.Equal(decimal.NewFromInt(91000000)))
}

func TestService_BoardWithChange(t *testing.T) {
	p := &stubTickerPricer{
		stubPricer: stubPricer{prices: map[string]decimal.Decimal{"BTC_KRW": decimal.NewFromInt(91000000)}},
		changes:    map[string]decimal.Decimal{"BTC_KRW": decimal.RequireFromString("-2.5")},
	}
	svc := NewService(nil, p, nil, zap.NewNop())

	quotes := svc.Board(context.Background(), []domain.Pair{btcKrw})
	require.Len(t, quotes, 1)
	require.NoError(t, quotes[0].Err)
	require.True(t, quotes[0].Change24hPct.Valid)
	assert.True(t, quotes[0].Change24hPct.Decimal.Equal(decimal.RequireFromString("-2.5")))
}

func TestService_Prices(t *testing.T) {
	eth := domain.Pair{From: "ETH", To: "KRW"}

	t.Run("lists the whole market", func(t *testing.T) {
		p := &stubTickerPricer{market: []domain.Ticker{
			{Pair: btcKrw, Price: decimal.NewFromInt(91000000), Change24hPct: decimal.NewNullDecimal(decimal.NewFromInt(1))},
			{Pair: eth, Price: decimal.NewFromInt(3500000)},
		}}
		svc := NewService(nil, p, nil, zap.NewNop())

		quotes, err := svc.Prices(context.Background(), "KRW", []domain.Pair{btcKrw})
		require.NoError(t, err)
		require.Len(t, quotes, 2)
		assert.Equal(t, eth, quotes[1].Pair)
		assert.True(t, quotes[0].Change24hPct.Valid)
		assert.False(t, quotes[1].Change24hPct.Valid)
	})

	t.Run("listing error", func(t *testing.T) {
		svc := NewService(nil, &stubTickerPricer{err: errors.New("down")}, nil, zap.NewNop())
		_, err := svc.Prices(context.Background(), "KRW", []domain.Pair{btcKrw})
		assert.Error(t, err)
	})

	t.Run("falls back to the watchlist", func(t *testing.T) {
		p := &stubPricer{prices: map[string]decimal.Decimal{"ETH_KRW": decimal.NewFromInt(3500000)}}
		svc := NewService(nil, p, nil, zap.NewNop())

		_, err := svc.Market(context.Background(), "KRW")
		assert.ErrorIs(t, err, ErrMarketListingUnsupported)

		quotes, err := svc.Prices(context.Background(), "KRW", []domain.Pair{eth})
		require.NoError(t, err)
		require.Len(t, quotes, 1)
		assert.True(t, quotes[0].Price.Equal(decimal.NewFromInt(3500000)))
	})
}

func TestQuote_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Quote{Pair: btcKrw, Price: decimal.RequireFromString("1.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pair":"BTC_KRW","price":"1.5"}`, string(data))

	data, err = json.Marshal(Quote{Pair: btcKrw, Price: decimal.NewFromInt(2), Change24hPct: decimal.NewNullDecimal(decimal.RequireFromString("-0.5"))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pair":"BTC_KRW","price":"2","change_24h_pct":"-0.5"}`, string(data))

	data, err = json.Marshal(Quote{Pair: btcKrw, Err: errors.New("timeout")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pair":"BTC_KRW","error":"timeout"}`, string(data))
}
