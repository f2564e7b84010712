package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitalgo/bitalgo/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestGet_Defaults(t *testing.T) {
	t.Setenv(envHyperliquidKey, "")
	t.Setenv(envRunsDir, "")

	flags, configs, err := Get(nil)
	require.NoError(t, err)
	require.Len(t, configs, 1)

	c := configs[0]
	assert.Equal(t, domain.ViewSimulation, flags.View)
	assert.Equal(t, PlatformBithumb, c.Platform)
	assert.Equal(t, domain.Pair{From: "BTC", To: "KRW"}, c.Pair)
	assert.Equal(t, "24h", c.Interval)
	assert.Equal(t, 12, c.Periods)
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, []domain.Pair{c.Pair}, c.Watchlist)
	assert.Equal(t, DefaultJournalDir, c.JournalDir)
	assert.Equal(t, DefaultWebAddr, c.WebAddr)
	assert.Equal(t, DefaultEMAPeriod, c.EMAPeriod)
}

func TestGet_Flags(t *testing.T) {
	t.Setenv(envRunsDir, "/tmp/runs")

	flags, configs, err := Get([]string{
		"--view", "history",
		"--platform", "binance",
		"--pair", "eth_usdt",
		"--periods", "30",
		"--amount", "25.5",
		"--watchlist", "BTC_USDT, ETH_USDT",
		"--chart-out", "chart.html",
		"--serve",
	})
	require.NoError(t, err)
	require.Len(t, configs, 1)

	assert.Equal(t, domain.ViewPriceHistory, flags.View)
	assert.True(t, flags.Serve)
	assert.Equal(t, "chart.html", flags.ChartOut)

	c := configs[0]
	assert.Equal(t, PlatformBinance, c.Platform)
	assert.Equal(t, domain.Pair{From: "ETH", To: "USDT"}, c.Pair)
	assert.Equal(t, 30, c.Periods)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, []domain.Pair{{From: "BTC", To: "USDT"}, {From: "ETH", To: "USDT"}}, c.Watchlist)
	assert.Equal(t, "/tmp/runs", c.JournalDir)
}

func TestGet_Setup(t *testing.T) {
	flags, configs, err := Get([]string{"--setup"})
	require.NoError(t, err)
	assert.True(t, flags.Setup)
	assert.Nil(t, configs)
}

func TestGet_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown view", args: []string{"--view", "portfolio"}},
		{name: "bad pair", args: []string{"--pair", "BTCKRW"}},
		{name: "zero amount", args: []string{"--amount", "0"}},
		{name: "negative amount", args: []string{"--amount", "-10"}},
		{name: "bad amount", args: []string{"--amount", "ten"}},
		{name: "negative periods", args: []string{"--periods", "-1"}},
		{name: "unknown platform", args: []string{"--platform", "kraken"}},
		{name: "bad watchlist", args: []string{"--watchlist", "BTC"}},
		{name: "missing config file", args: []string{"--config", "/nonexistent/config.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Get(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestGet_Yaml(t *testing.T) {
	t.Setenv(envRunsDir, "")

	path := writeConfig(t, `
- platform: bybit
  pair: BTC_USDT
  interval: 1d
  periods: 6
  amount: "50"
  watchlist: [BTC_USDT, SOL_USDT]
  journal_dir: /var/lib/bitalgo
- pair: ETH_KRW
`)

	flags, configs, err := Get([]string{"--config", path, "--amount", "75"})
	require.NoError(t, err)
	assert.Equal(t, path, flags.ConfigPath)
	require.Len(t, configs, 2)

	assert.Equal(t, PlatformBybit, configs[0].Platform)
	assert.Equal(t, "1d", configs[0].Interval)
	assert.Equal(t, 6, configs[0].Periods)
	assert.True(t, configs[0].Amount.Equal(decimal.NewFromInt(75)))
	assert.Len(t, configs[0].Watchlist, 2)
	assert.Equal(t, "/var/lib/bitalgo", configs[0].JournalDir)

	assert.Equal(t, PlatformBithumb, configs[1].Platform)
	assert.Equal(t, 12, configs[1].Periods)
	assert.Equal(t, DefaultInterval, configs[1].Interval)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "- platform: hyperliquid\n  pair: BTC_USDC\n  amount: \"10\"\n")

	configs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, PlatformHyperliquid, configs[0].Platform)
	assert.True(t, configs[0].Amount.Equal(decimal.NewFromInt(10)))

	_, err = Load(writeConfig(t, "- pair: [oops"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[]\n"))
	assert.Error(t, err)
}
