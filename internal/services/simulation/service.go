// Package simulation runs DCA simulations against live exchange data and
// keeps a journal of the completed runs.
package simulation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bitalgo/bitalgo/internal/domain"
)

const (
	defaultBoardConcurrency = 4
	priceTimeout            = 15 * time.Second
)

type seriesCollector interface {
	FetchSeries(ctx context.Context, pair domain.Pair, interval string, periods int) ([]domain.PricePoint, error)
}

type pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

type tickerPricer interface {
	GetTicker(ctx context.Context, pair domain.Pair) (domain.Ticker, error)
}

type marketLister interface {
	ListTickers(ctx context.Context, quote string) ([]domain.Ticker, error)
}

// ErrMarketListingUnsupported is returned by Market when the exchange cannot list its markets.
var ErrMarketListingUnsupported = errors.New("market listing not supported by this exchange")

type journal interface {
	Save(run domain.SimulationRun) (uint64, error)
}

// Request describes one simulation: Periods trailing closes of Pair at Interval,
// buying for Amount each period.
type Request struct {
	Pair     domain.Pair
	Interval string
	Periods  int
	Amount   decimal.Decimal
}

// Report is the outcome of a simulation run.
type Report struct {
	RunID     string                 `json:"run_id"`
	Pair      string                 `json:"pair"`
	Interval  string                 `json:"interval"`
	Rows      []domain.SimulationRow `json:"rows"`
	Summary   domain.Summary         `json:"summary"`
	CreatedAt time.Time              `json:"created_at"`
}

// Quote is the last price of a pair, or the error that prevented fetching it.
// Change24hPct is set when the exchange reports it.
type Quote struct {
	Pair         domain.Pair
	Price        decimal.Decimal
	Change24hPct decimal.NullDecimal
	Err          error
}

func (q Quote) MarshalJSON() ([]byte, error) {
	out := struct {
		Pair         string           `json:"pair"`
		Price        *decimal.Decimal `json:"price,omitempty"`
		Change24hPct *decimal.Decimal `json:"change_24h_pct,omitempty"`
		Error        string           `json:"error,omitempty"`
	}{Pair: q.Pair.String()}

	if q.Err != nil {
		out.Error = q.Err.Error()
	} else {
		price := q.Price
		out.Price = &price
		if q.Change24hPct.Valid {
			change := q.Change24hPct.Decimal
			out.Change24hPct = &change
		}
	}

	return json.Marshal(out)
}

// Service wires a price series source, a live pricer and an optional run journal.
type Service struct {
	collector seriesCollector
	pricer    pricer
	journal   journal
	logger    *zap.Logger

	boardConcurrency int
	now              func() time.Time
}

// NewService creates a simulation service. journal may be nil.
func NewService(collector seriesCollector, pricer pricer, journal journal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		collector:        collector,
		pricer:           pricer,
		journal:          journal,
		logger:           logger,
		boardConcurrency: defaultBoardConcurrency,
		now:              time.Now,
	}
}

// Run fetches the series, simulates it and records the run.
// Invalid inputs come back as *domain.InvalidInputError.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	plan := domain.ContributionPlan{PeriodicAmount: req.Amount}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("pair", req.Pair.String()), zap.String("interval", req.Interval))

	points, err := s.collector.FetchSeries(ctx, req.Pair, req.Interval, req.Periods)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch price series")
	}

	rows, err := domain.SimulateSeries(points, plan)
	if err != nil {
		return nil, err
	}

	summary, err := domain.Summarize(rows)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Pair:      req.Pair.String(),
		Interval:  req.Interval,
		Rows:      rows,
		Summary:   summary,
		CreatedAt: s.now().UTC(),
	}

	if s.journal != nil {
		idx, err := s.journal.Save(domain.SimulationRun{
			ID:        report.RunID,
			Timestamp: report.CreatedAt,
			Pair:      report.Pair,
			Interval:  report.Interval,
			Plan:      plan,
			Summary:   summary,
			Rows:      rows,
		})
		if err != nil {
			logger.Error("failed to journal simulation run", zap.String("run_id", report.RunID), zap.Error(err))
		} else {
			logger.Debug("simulation run journaled", zap.Uint64("index", idx))
		}
	}

	logger.Info("simulation completed",
		zap.String("run_id", report.RunID),
		zap.Int("periods", summary.Periods),
		zap.String("total_invested", summary.TotalInvested.String()),
		zap.String("final_return_pct", summary.FinalReturnRatePct.StringFixed(2)))

	return report, nil
}

// History returns the trailing closes used for the price history view.
func (s *Service) History(ctx context.Context, pair domain.Pair, interval string, periods int) ([]domain.PricePoint, error) {
	points, err := s.collector.FetchSeries(ctx, pair, interval, periods)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch price history")
	}
	return points, nil
}

// Board fetches the last price of every pair concurrently.
// Quotes keep the order of pairs; a failed pair carries its error.
func (s *Service) Board(ctx context.Context, pairs []domain.Pair) []Quote {
	quotes := make([]Quote, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.boardConcurrency)

	for i, pair := range pairs {
		g.Go(func() error {
			priceCtx, cancel := context.WithTimeout(gctx, priceTimeout)
			defer cancel()

			quote, err := s.quote(priceCtx, pair)
			if err != nil {
				s.logger.Warn("failed to get price", zap.String("pair", pair.String()), zap.Error(err))
				quotes[i] = Quote{Pair: pair, Err: err}
				return nil
			}

			quotes[i] = quote
			return nil
		})
	}

	// workers never return errors
	_ = g.Wait()

	return quotes
}

func (s *Service) quote(ctx context.Context, pair domain.Pair) (Quote, error) {
	if tp, ok := s.pricer.(tickerPricer); ok {
		ticker, err := tp.GetTicker(ctx, pair)
		if err != nil {
			return Quote{}, err
		}
		return quoteFromTicker(ticker), nil
	}

	price, err := s.pricer.GetPrice(ctx, pair)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Pair: pair, Price: price}, nil
}

// Market lists every market quoted in quote, or ErrMarketListingUnsupported.
func (s *Service) Market(ctx context.Context, quote string) ([]Quote, error) {
	lister, ok := s.pricer.(marketLister)
	if !ok {
		return nil, ErrMarketListingUnsupported
	}

	listCtx, cancel := context.WithTimeout(ctx, priceTimeout)
	defer cancel()

	tickers, err := lister.ListTickers(listCtx, quote)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list markets")
	}

	quotes := make([]Quote, len(tickers))
	for i, t := range tickers {
		quotes[i] = quoteFromTicker(t)
	}
	return quotes, nil
}

// Prices is the live prices view: the whole market quoted in quote when the
// exchange can list it, otherwise the watchlist board.
func (s *Service) Prices(ctx context.Context, quote string, watchlist []domain.Pair) ([]Quote, error) {
	quotes, err := s.Market(ctx, quote)
	if errors.Is(err, ErrMarketListingUnsupported) {
		return s.Board(ctx, watchlist), nil
	}
	return quotes, err
}

func quoteFromTicker(t domain.Ticker) Quote {
	return Quote{Pair: t.Pair, Price: t.Price, Change24hPct: t.Change24hPct}
}
