// Command bitalgo simulates periodic dollar-cost averaging over recent
// exchange closes. It renders the selected view to the terminal or serves
// the web dashboard.
//
// Usage:
//
//	bitalgo --view simulate --pair BTC_KRW --amount 1000
//	bitalgo --config config.yaml --serve
//	bitalgo --setup
//
// Optional environment variables (also read from .env):
//
//	HYPERLIQUID_PRIVATE_KEY, BITALGO_RUNS_DIR
//	BINANCE_API_KEY, BINANCE_API_SECRET, BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bitalgo/bitalgo/config"
	"github.com/bitalgo/bitalgo/internal"
	"github.com/bitalgo/bitalgo/internal/domain"
	"github.com/bitalgo/bitalgo/internal/render"
	"github.com/bitalgo/bitalgo/internal/setup"
	"github.com/bitalgo/bitalgo/internal/storage/runs"
	"github.com/bitalgo/bitalgo/internal/web"
)

type journalStore interface {
	Save(run domain.SimulationRun) (uint64, error)
	RunsAfter(index uint64) ([]domain.SimulationRunRecord, error)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	flags, configs, err := config.Get(os.Args[1:])
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	if flags.Setup {
		if err := setup.RunTUI(); err != nil {
			logger.Fatal("setup failed", zap.Error(err))
		}
		// the wizard output replaces any --config passed alongside --setup
		if configs, err = config.Load(setup.GeneratedConfigPath); err != nil {
			logger.Fatal("failed to load generated configuration", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store journalStore
	walStore, err := runs.NewWALStore(configs[0].JournalDir)
	if err != nil {
		logger.Warn("run journal disabled", zap.String("dir", configs[0].JournalDir), zap.Error(err))
	} else {
		defer walStore.Close()
		store = walStore
	}

	apps := make([]*internal.App, 0, len(configs))
	for _, conf := range configs {
		client, err := internal.NewPlatformClient(conf)
		if err != nil {
			logger.Fatal("failed to create platform client", zap.String("platform", conf.Platform), zap.Error(err))
		}

		app, err := internal.NewApp(conf, client, store, logger)
		if err != nil {
			logger.Fatal("failed to create app", zap.String("pair", conf.Pair.String()), zap.Error(err))
		}
		apps = append(apps, app)
	}

	if flags.Serve {
		if len(apps) > 1 {
			logger.Info("dashboard serves the first config only", zap.String("pair", apps[0].Config.Pair.String()))
		}
		if err := serve(ctx, apps[0], store, logger); err != nil {
			logger.Fatal("dashboard stopped", zap.Error(err))
		}
		return
	}

	for _, app := range apps {
		chartOut := flags.ChartOut
		if chartOut != "" && len(apps) > 1 {
			chartOut = suffixPath(chartOut, app.Config.Pair.String())
		}

		if err := runView(ctx, os.Stdout, flags.View, app, chartOut); err != nil {
			logger.Error("view failed",
				zap.String("view", flags.View.String()),
				zap.String("pair", app.Config.Pair.String()),
				zap.Error(err))
			os.Exit(1)
		}
	}
}

func serve(ctx context.Context, app *internal.App, store journalStore, logger *zap.Logger) error {
	conf := app.Config

	srv := web.NewServer(conf.WebAddr, app.Simulation, store, web.Defaults{
		Pair:      conf.Pair,
		Interval:  conf.Interval,
		Periods:   conf.Periods,
		Amount:    conf.Amount,
		Watchlist: conf.Watchlist,
		EMAPeriod: conf.EMAPeriod,
	}, logger)

	if conf.TLSDomain != "" {
		return srv.StartWithAutoTLS(ctx, strings.Split(conf.TLSDomain, ","), "")
	}
	return srv.Start(ctx)
}

func runView(ctx context.Context, out io.Writer, view domain.View, app *internal.App, chartOut string) error {
	conf := app.Config

	switch view {
	case domain.ViewIntro:
		fmt.Fprintf(out, "bitalgo simulates buying %s of %s every %s over the last %d closes on %s.\n\n",
			conf.Amount.String(), conf.Pair.From, conf.Interval, conf.Periods, conf.Platform)
		for _, v := range domain.Views() {
			fmt.Fprintf(out, "  --view %-9s %s\n", v.String(), v.Title())
		}
		return nil

	case domain.ViewLivePrices:
		quotes, err := app.Simulation.Prices(ctx, conf.Pair.To, conf.Watchlist)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, render.QuoteTable(quotes))
		return nil

	case domain.ViewSimulation:
		report, err := app.Simulation.Run(ctx, app.Request())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s, %s per %s, run %s\n", report.Pair, conf.Amount.String(), report.Interval, report.RunID)
		fmt.Fprintln(out, render.Table(report.Rows, report.Summary))

		if chartOut == "" {
			return nil
		}
		return writeChart(chartOut, func(w io.Writer) error {
			return render.ReturnChart(w, fmt.Sprintf("%s DCA return", report.Pair), report.Rows)
		})

	case domain.ViewPriceHistory:
		points, err := app.Simulation.History(ctx, conf.Pair, conf.Interval, conf.Periods)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, render.HistoryTable(points, conf.EMAPeriod))

		if chartOut == "" {
			return nil
		}
		return writeChart(chartOut, func(w io.Writer) error {
			return render.PriceChart(w, fmt.Sprintf("%s closes (%s)", conf.Pair.String(), conf.Interval), points, conf.EMAPeriod)
		})

	default:
		return fmt.Errorf("unsupported view: %s", view)
	}
}

func writeChart(path string, renderFn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create chart file")
	}
	defer f.Close()

	return renderFn(f)
}

// suffixPath turns chart.html into chart_BTC_KRW.html.
func suffixPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + suffix + ext
}
