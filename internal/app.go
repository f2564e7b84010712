package internal

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bitalgo/bitalgo/config"
	"github.com/bitalgo/bitalgo/internal/domain"
	"github.com/bitalgo/bitalgo/internal/services/market/collector"
	"github.com/bitalgo/bitalgo/internal/services/simulation"
)

type runJournal interface {
	Save(run domain.SimulationRun) (uint64, error)
}

// App is one configured simulation target with its services.
type App struct {
	Config     config.Config
	Simulation *simulation.Service
}

// NewApp wires the platform client into a simulation service. journal may be nil.
func NewApp(conf config.Config, client any, journal runJournal, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := NewServiceProvider(client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service provider")
	}

	klines, err := provider.KlineProvider()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kline provider")
	}

	prices, err := provider.Pricer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pricer")
	}

	appLogger := logger.With(zap.String("platform", conf.Platform), zap.String("pair", conf.Pair.String()))
	seriesCollector := collector.NewSeriesCollector(klines, appLogger)

	return &App{
		Config:     conf,
		Simulation: simulation.NewService(seriesCollector, prices, journal, appLogger),
	}, nil
}

// Request builds the simulation request described by the config.
func (a *App) Request() simulation.Request {
	return simulation.Request{
		Pair:     a.Config.Pair,
		Interval: a.Config.Interval,
		Periods:  a.Config.Periods,
		Amount:   a.Config.Amount,
	}
}
