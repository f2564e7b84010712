package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bitalgo/bitalgo/internal/domain"
)

const (
	PlatformBithumb     = "bithumb"
	PlatformBinance     = "binance"
	PlatformBybit       = "bybit"
	PlatformHyperliquid = "hyperliquid"

	DefaultPlatform   = PlatformBithumb
	DefaultPair       = "BTC_KRW"
	DefaultInterval   = "24h"
	DefaultPeriods    = 12
	DefaultAmount     = "1000"
	DefaultJournalDir = "./wal/runs"
	DefaultWebAddr    = ":8080"
	DefaultEMAPeriod  = 5

	envHyperliquidKey = "HYPERLIQUID_PRIVATE_KEY"
	envRunsDir        = "BITALGO_RUNS_DIR"
)

var platforms = map[string]struct{}{
	PlatformBithumb:     {},
	PlatformBinance:     {},
	PlatformBybit:       {},
	PlatformHyperliquid: {},
}

// Config describes one simulation target: where prices come from, which pair,
// how many periods and how much is contributed each period.
type Config struct {
	Platform   string
	Pair       domain.Pair
	Interval   string
	Periods    int
	Amount     decimal.Decimal
	Watchlist  []domain.Pair
	EMAPeriod  int
	JournalDir string
	WebAddr    string
	TLSDomain  string

	HyperliquidPrivateKey string
	HyperliquidBaseURL    string
}

// ConfigTmp is the yaml shape of Config. Decimals are kept as strings.
type ConfigTmp struct {
	Platform           string   `yaml:"platform"`
	Pair               string   `yaml:"pair"`
	Interval           string   `yaml:"interval,omitempty"`
	Periods            int      `yaml:"periods,omitempty"`
	Amount             string   `yaml:"amount,omitempty"`
	Watchlist          []string `yaml:"watchlist,omitempty"`
	EMAPeriod          int      `yaml:"ema_period,omitempty"`
	JournalDir         string   `yaml:"journal_dir,omitempty"`
	WebAddr            string   `yaml:"web_addr,omitempty"`
	TLSDomain          string   `yaml:"tls_domain,omitempty"`
	HyperliquidBaseURL string   `yaml:"hyperliquid_base_url,omitempty"`
}

// Flags are the command-line switches that are not part of Config.
type Flags struct {
	ConfigPath string
	View       domain.View
	Serve      bool
	Setup      bool
	ChartOut   string
}

// Get parses args (without the program name), loads .env and returns the
// configs from the yaml file given by --config, or a single config built from flags.
func Get(args []string) (Flags, []Config, error) {
	fs := flag.NewFlagSet("bitalgo", flag.ContinueOnError)

	configPath := fs.String("config", "", "path to yaml config")
	view := fs.String("view", "simulate", "view to render: intro, prices, simulate, history")
	serve := fs.Bool("serve", false, "run the web dashboard")
	setup := fs.Bool("setup", false, "run the configuration wizard")
	chartOut := fs.String("chart-out", "", "write the html chart of the view to this file")
	amount := fs.String("amount", "", "periodic contribution, overrides the config value")

	platform := fs.String("platform", DefaultPlatform, "exchange: bithumb, binance, bybit, hyperliquid")
	pair := fs.String("pair", DefaultPair, "trade pair, example: BTC_KRW")
	interval := fs.String("interval", DefaultInterval, "candle interval, example: 24h")
	periods := fs.Int("periods", DefaultPeriods, "number of trailing periods to simulate")
	watchlist := fs.String("watchlist", "", "comma separated pairs for the live price board")
	addr := fs.String("addr", DefaultWebAddr, "web dashboard listen address")

	if err := fs.Parse(args); err != nil {
		return Flags{}, nil, err
	}

	v, err := domain.ParseView(*view)
	if err != nil {
		return Flags{}, nil, fmt.Errorf("invalid --view provided, --view=%s", *view)
	}

	flags := Flags{
		ConfigPath: *configPath,
		View:       v,
		Serve:      *serve,
		Setup:      *setup,
		ChartOut:   *chartOut,
	}
	if flags.Setup {
		return flags, nil, nil
	}

	var tmps []ConfigTmp
	if flags.ConfigPath != "" {
		tmps, err = readYaml(flags.ConfigPath)
		if err != nil {
			return Flags{}, nil, err
		}
	} else {
		tmps = []ConfigTmp{{
			Platform:  *platform,
			Pair:      *pair,
			Interval:  *interval,
			Periods:   *periods,
			Amount:    DefaultAmount,
			Watchlist: splitList(*watchlist),
			WebAddr:   *addr,
		}}
	}

	if *amount != "" {
		for i := range tmps {
			tmps[i].Amount = *amount
		}
	}

	configs, err := buildConfigs(tmps)
	if err != nil {
		return Flags{}, nil, err
	}
	return flags, configs, nil
}

// Load reads a yaml config file, such as the one written by the setup wizard,
// and applies .env overrides. Flags are not consulted.
func Load(path string) ([]Config, error) {
	tmps, err := readYaml(path)
	if err != nil {
		return nil, err
	}
	return buildConfigs(tmps)
}

func buildConfigs(tmps []ConfigTmp) ([]Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	configs := make([]Config, 0, len(tmps))
	for i, tmp := range tmps {
		c, err := tmp.toConfig()
		if err != nil {
			return nil, errors.Wrapf(err, "config #%d", i)
		}
		applyEnv(&c)
		configs = append(configs, c)
	}

	if len(configs) == 0 {
		return nil, errors.New("no configs found")
	}
	return configs, nil
}

func readYaml(path string) ([]ConfigTmp, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	var tmps []ConfigTmp
	if err := yaml.Unmarshal(f, &tmps); err != nil {
		return nil, errors.Wrap(err, "parse yaml config")
	}
	return tmps, nil
}

func (c ConfigTmp) toConfig() (Config, error) {
	platform := strings.ToLower(strings.TrimSpace(c.Platform))
	if platform == "" {
		platform = DefaultPlatform
	}
	if _, ok := platforms[platform]; !ok {
		return Config{}, fmt.Errorf("unsupported platform: %s", c.Platform)
	}

	pair, err := domain.ParsePair(c.Pair)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param in yaml config: %s, error: %w", c.Pair, err)
	}

	interval := c.Interval
	if interval == "" {
		interval = DefaultInterval
	}

	periods := c.Periods
	if periods == 0 {
		periods = DefaultPeriods
	}
	if periods < 1 {
		return Config{}, fmt.Errorf("incorrect 'periods' param in yaml config (must be >= 1): %d", periods)
	}

	amountStr := c.Amount
	if amountStr == "" {
		amountStr = DefaultAmount
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'amount' param in yaml config (correct format is 1000), error: %w", err)
	}
	if !amount.IsPositive() {
		return Config{}, fmt.Errorf("incorrect 'amount' param in yaml config (must be > 0): %s", amount)
	}

	watchlist := []domain.Pair{pair}
	if len(c.Watchlist) > 0 {
		watchlist = make([]domain.Pair, 0, len(c.Watchlist))
		for _, s := range c.Watchlist {
			p, err := domain.ParsePair(s)
			if err != nil {
				return Config{}, fmt.Errorf("incorrect 'watchlist' entry %q: %w", s, err)
			}
			watchlist = append(watchlist, p)
		}
	}

	emaPeriod := c.EMAPeriod
	if emaPeriod == 0 {
		emaPeriod = DefaultEMAPeriod
	}

	cfg := Config{
		Platform:           platform,
		Pair:               pair,
		Interval:           interval,
		Periods:            periods,
		Amount:             amount,
		Watchlist:          watchlist,
		EMAPeriod:          emaPeriod,
		JournalDir:         c.JournalDir,
		WebAddr:            c.WebAddr,
		TLSDomain:          c.TLSDomain,
		HyperliquidBaseURL: c.HyperliquidBaseURL,
	}
	if cfg.JournalDir == "" {
		cfg.JournalDir = DefaultJournalDir
	}
	if cfg.WebAddr == "" {
		cfg.WebAddr = DefaultWebAddr
	}

	return cfg, nil
}

func applyEnv(c *Config) {
	if key := os.Getenv(envHyperliquidKey); key != "" {
		c.HyperliquidPrivateKey = key
	}
	if dir := os.Getenv(envRunsDir); dir != "" {
		c.JournalDir = dir
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
