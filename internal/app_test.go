package internal

import (
	"testing"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bitalgo/bitalgo/config"
	"github.com/bitalgo/bitalgo/internal/clients"
	"github.com/bitalgo/bitalgo/internal/domain"
	"github.com/bitalgo/bitalgo/internal/services/market/collector"
	"github.com/bitalgo/bitalgo/internal/services/pricer"
)

func TestNewServiceProvider(t *testing.T) {
	tests := []struct {
		name        string
		client      any
		wantPricer  any
		wantKlines  any
		expectError bool
	}{
		{
			name:       "bithumb",
			client:     clients.NewBithumbClient(""),
			wantPricer: &pricer.BithumbPricer{},
			wantKlines: &collector.BithumbKlineProvider{},
		},
		{
			name:       "binance",
			client:     &binance.Client{},
			wantPricer: &pricer.BinancePricer{},
			wantKlines: &collector.BinanceKlineProvider{},
		},
		{
			name:       "bybit",
			client:     &bybit.Client{},
			wantPricer: &pricer.BybitPricer{},
			wantKlines: &collector.BybitKlineProvider{},
		},
		{
			name:        "unsupported client",
			client:      "kraken",
			expectError: true,
		},
		{
			name:        "nil client",
			client:      nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewServiceProvider(tt.client)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported client type")
				return
			}
			require.NoError(t, err)

			p, err := provider.Pricer()
			require.NoError(t, err)
			assert.IsType(t, tt.wantPricer, p)

			k, err := provider.KlineProvider()
			require.NoError(t, err)
			assert.IsType(t, tt.wantKlines, k)
		})
	}
}

func TestNewPlatformClient(t *testing.T) {
	tests := []struct {
		platform    string
		wantType    any
		expectError bool
	}{
		{platform: config.PlatformBithumb, wantType: &clients.BithumbClient{}},
		{platform: config.PlatformBinance, wantType: &binance.Client{}},
		{platform: config.PlatformBybit, wantType: &bybit.Client{}},
		{platform: "kraken", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			client, err := NewPlatformClient(config.Config{Platform: tt.platform})
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported platform: kraken")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, client)
		})
	}
}

func TestNewApp(t *testing.T) {
	conf := config.Config{
		Platform: config.PlatformBithumb,
		Pair:     domain.Pair{From: "BTC", To: "KRW"},
		Interval: "24h",
		Periods:  12,
		Amount:   decimal.NewFromInt(1000),
	}

	app, err := NewApp(conf, clients.NewBithumbClient(""), nil, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, app.Simulation)
	assert.Equal(t, conf, app.Config)

	req := app.Request()
	assert.Equal(t, conf.Pair, req.Pair)
	assert.Equal(t, 12, req.Periods)
	assert.True(t, req.Amount.Equal(conf.Amount))

	_, err = NewApp(conf, struct{}{}, nil, zap.NewNop())
	assert.Error(t, err)
}
