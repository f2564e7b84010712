package internal

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/bitalgo/bitalgo/config"
	"github.com/bitalgo/bitalgo/internal/clients"
)

// NewPlatformClient creates the market-data client of the configured platform.
// Exchange credentials are optional; only public endpoints are used.
func NewPlatformClient(conf config.Config) (any, error) {
	switch conf.Platform {
	case config.PlatformBithumb:
		return clients.NewBithumbClient(os.Getenv("BITHUMB_BASE_URL")), nil
	case config.PlatformBinance:
		return clients.NewBinanceClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET")), nil
	case config.PlatformBybit:
		return clients.NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET")), nil
	case config.PlatformHyperliquid:
		client, err := clients.NewHyperliquidClient(conf.HyperliquidPrivateKey, conf.HyperliquidBaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create hyperliquid client")
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", conf.Platform)
	}
}
