package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	// BithumbBaseURL is the Bithumb public REST endpoint.
	BithumbBaseURL = "https://api.bithumb.com"

	bithumbStatusOK    = "0000"
	bithumbHTTPTimeout = 15 * time.Second
)

// BithumbClient calls the unauthenticated Bithumb public API.
type BithumbClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBithumbClient creates a client. An empty baseURL selects BithumbBaseURL.
func NewBithumbClient(baseURL string) *BithumbClient {
	if baseURL == "" {
		baseURL = BithumbBaseURL
	}
	return &BithumbClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: bithumbHTTPTimeout},
	}
}

// BithumbTicker subset of the /public/ticker payload.
type BithumbTicker struct {
	OpeningPrice    string `json:"opening_price"`
	ClosingPrice    string `json:"closing_price"`
	MinPrice        string `json:"min_price"`
	MaxPrice        string `json:"max_price"`
	FluctateRate24H string `json:"fluctate_rate_24H"`
}

// BithumbCandle one entry of /public/candlestick: time, open, close, high, low, volume.
type BithumbCandle struct {
	Time   time.Time
	Open   string
	Close  string
	High   string
	Low    string
	Volume string
}

// StatusError is returned when Bithumb answers with a non-success status code.
type StatusError struct {
	HTTPStatus int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("bithumb status %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("bithumb http status %d", e.HTTPStatus)
}

// Temporary reports whether retrying could help.
func (e *StatusError) Temporary() bool {
	return e.HTTPStatus == http.StatusTooManyRequests || e.HTTPStatus >= http.StatusInternalServerError
}

type bithumbEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Ticker fetches the ticker for order currency against payment currency, e.g. BTC/KRW.
func (c *BithumbClient) Ticker(ctx context.Context, order, payment string) (BithumbTicker, error) {
	data, err := c.get(ctx, fmt.Sprintf("/public/ticker/%s_%s", url.PathEscape(order), url.PathEscape(payment)))
	if err != nil {
		return BithumbTicker{}, err
	}

	var ticker BithumbTicker
	if err := json.Unmarshal(data, &ticker); err != nil {
		return BithumbTicker{}, errors.Wrap(err, "decode bithumb ticker")
	}

	return ticker, nil
}

// BithumbMarketTicker is one entry of the /public/ticker/ALL_{payment} listing.
type BithumbMarketTicker struct {
	Currency string
	BithumbTicker
}

// AllTickers fetches the ticker of every market quoted in payment, sorted by currency.
func (c *BithumbClient) AllTickers(ctx context.Context, payment string) ([]BithumbMarketTicker, error) {
	data, err := c.get(ctx, fmt.Sprintf("/public/ticker/ALL_%s", url.PathEscape(payment)))
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode bithumb market tickers")
	}

	tickers := make([]BithumbMarketTicker, 0, len(raw))
	for currency, entry := range raw {
		// the listing carries its timestamp next to the tickers
		if currency == "date" {
			continue
		}

		var ticker BithumbTicker
		if err := json.Unmarshal(entry, &ticker); err != nil {
			return nil, errors.Wrapf(err, "decode bithumb ticker %s", currency)
		}
		tickers = append(tickers, BithumbMarketTicker{Currency: currency, BithumbTicker: ticker})
	}

	sort.Slice(tickers, func(i, j int) bool { return tickers[i].Currency < tickers[j].Currency })

	return tickers, nil
}

// Candlesticks fetches the candle history for a pair at a Bithumb chart interval (1m, 10m, 1h, 24h, ...).
func (c *BithumbClient) Candlesticks(ctx context.Context, order, payment, interval string) ([]BithumbCandle, error) {
	data, err := c.get(ctx, fmt.Sprintf("/public/candlestick/%s_%s/%s",
		url.PathEscape(order), url.PathEscape(payment), url.PathEscape(interval)))
	if err != nil {
		return nil, err
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode bithumb candlesticks")
	}

	candles := make([]BithumbCandle, 0, len(raw))
	for i, entry := range raw {
		if len(entry) < 6 {
			return nil, errors.Errorf("candle %d has %d fields, want 6", i, len(entry))
		}

		ts, err := parseBithumbTimestamp(entry[0])
		if err != nil {
			return nil, errors.Wrapf(err, "candle %d time", i)
		}

		fields := make([]string, 5)
		for j := range fields {
			fields[j], err = rawNumberString(entry[j+1])
			if err != nil {
				return nil, errors.Wrapf(err, "candle %d field %d", i, j+1)
			}
		}

		candles = append(candles, BithumbCandle{
			Time:   ts,
			Open:   fields[0],
			Close:  fields[1],
			High:   fields[2],
			Low:    fields[3],
			Volume: fields[4],
		})
	}

	return candles, nil
}

func (c *BithumbClient) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build bithumb request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{HTTPStatus: resp.StatusCode}
	}

	var env bithumbEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "decode bithumb response")
	}
	if env.Status != bithumbStatusOK {
		return nil, &StatusError{HTTPStatus: resp.StatusCode, Status: env.Status, Message: env.Message}
	}

	return env.Data, nil
}

// rawNumberString accepts both "123.4" and 123.4.
func rawNumberString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func parseBithumbTimestamp(raw json.RawMessage) (time.Time, error) {
	s, err := rawNumberString(raw)
	if err != nil {
		return time.Time{}, err
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse timestamp %s", s)
	}

	return time.UnixMilli(ms), nil
}
