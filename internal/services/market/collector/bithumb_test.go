package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitalgo/bitalgo/internal/clients"
)

func bithumbCandlePayload(closes ...int) string {
	entries := make([]string, len(closes))
	for i, c := range closes {
		ts := int64(1727654400000) + int64(i)*86400000
		entries[i] = fmt.Sprintf(`[%d,"%d","%d","%d","%d","1.5"]`, ts, c, c, c+10, c-10)
	}
	return `{"status":"0000","data":[` + strings.Join(entries, ",") + `]}`
}

func TestBithumbKlineProvider_GetKlines(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		_, _ = w.Write([]byte(bithumbCandlePayload(100, 110, 120, 130, 140)))
	}))
	defer srv.Close()

	provider := NewBithumbKlineProvider(clients.NewBithumbClient(srv.URL))

	candles, err := provider.GetKlines(context.Background(), testPair, "1d", 3)
	require.NoError(t, err)
	assert.Equal(t, "/public/candlestick/BTC_KRW/24h", requested)

	require.Len(t, candles, 3)
	assert.True(t, candles[0].Close.Equal(decimal.NewFromInt(120)))
	assert.True(t, candles[2].Close.Equal(decimal.NewFromInt(140)))
	assert.True(t, candles[2].High.Equal(decimal.NewFromInt(150)))
	assert.True(t, candles[0].OpenTime.Before(candles[1].OpenTime))
}

func TestBithumbKlineProvider_UnsupportedInterval(t *testing.T) {
	provider := NewBithumbKlineProvider(clients.NewBithumbClient("http://127.0.0.1:0"))

	_, err := provider.GetKlines(context.Background(), testPair, "1w", 12)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedInterval))
	assert.False(t, IsRetryable(err))
}
