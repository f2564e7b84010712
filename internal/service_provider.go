package internal

import (
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"

	"github.com/bitalgo/bitalgo/internal/clients"
	"github.com/bitalgo/bitalgo/internal/services/market/collector"
	"github.com/bitalgo/bitalgo/internal/services/pricer"
)

// ServiceProvider defines a factory interface for creating platform-specific services.
type ServiceProvider interface {
	Pricer() (pricer.Pricer, error)
	KlineProvider() (collector.KlineProvider, error)
}

// NewServiceProvider creates a new service provider based on the client type.
// This is the single point of truth for dispatching to platform-specific implementations.
func NewServiceProvider(client any) (ServiceProvider, error) {
	switch c := client.(type) {
	case *clients.BithumbClient:
		return &bithumbProvider{client: c}, nil
	case *binance.Client:
		return &binanceProvider{client: c}, nil
	case *bybit.Client:
		return &bybitProvider{client: c}, nil
	case *clients.HyperliquidClient:
		return &hyperliquidProvider{client: c}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type bithumbProvider struct {
	client *clients.BithumbClient
}

func (p *bithumbProvider) Pricer() (pricer.Pricer, error) {
	return pricer.NewBithumbPricer(p.client), nil
}
func (p *bithumbProvider) KlineProvider() (collector.KlineProvider, error) {
	return collector.NewBithumbKlineProvider(p.client), nil
}

type binanceProvider struct {
	client *binance.Client
}

func (p *binanceProvider) Pricer() (pricer.Pricer, error) {
	return pricer.NewBinancePricer(p.client), nil
}
func (p *binanceProvider) KlineProvider() (collector.KlineProvider, error) {
	return collector.NewBinanceKlineProvider(p.client), nil
}

type bybitProvider struct {
	client *bybit.Client
}

func (p *bybitProvider) Pricer() (pricer.Pricer, error) {
	return pricer.NewBybitPricer(p.client), nil
}
func (p *bybitProvider) KlineProvider() (collector.KlineProvider, error) {
	return collector.NewBybitKlineProvider(p.client), nil
}

type hyperliquidProvider struct {
	client *clients.HyperliquidClient
}

func (p *hyperliquidProvider) Pricer() (pricer.Pricer, error) {
	return pricer.NewHyperliquidPricer(p.client.Info()), nil
}
func (p *hyperliquidProvider) KlineProvider() (collector.KlineProvider, error) {
	return collector.NewHyperliquidKlineProvider(p.client.Info()), nil
}
