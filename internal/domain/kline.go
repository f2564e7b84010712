package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MarketCandle single OHLCV candlestick.
type MarketCandle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// PricePoint closing price at a point in time.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// TrailingCloses sorts candles by open time and returns the closes of the last n of them.
// n <= 0 keeps every candle.
func TrailingCloses(candles []MarketCandle, n int) []PricePoint {
	sorted := make([]MarketCandle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime.Before(sorted[j].OpenTime)
	})

	if n > 0 && len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}

	points := make([]PricePoint, len(sorted))
	for i, c := range sorted {
		points[i] = PricePoint{Time: c.OpenTime, Price: c.Close}
	}

	return points
}

// Prices extracts the price column.
func Prices(points []PricePoint) []decimal.Decimal {
	prices := make([]decimal.Decimal, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return prices
}
