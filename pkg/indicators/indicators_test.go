package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantSeries(n int, v int64) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func TestCalculateEMA_ConstantSeries(t *testing.T) {
	ema, err := CalculateEMA(constantSeries(12, 100), 5)
	require.NoError(t, err)
	require.NotEmpty(t, ema)
	assert.LessOrEqual(t, len(ema), 12)

	for _, v := range ema {
		assert.InDelta(t, 100.0, v.InexactFloat64(), 1e-9)
	}
}

func TestCalculateEMA_NotEnoughData(t *testing.T) {
	_, err := CalculateEMA(constantSeries(3, 1), 5)
	assert.Error(t, err)

	_, err = CalculateEMA(constantSeries(3, 1), 0)
	assert.Error(t, err)
}

func TestAlign(t *testing.T) {
	values := []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2)}
	aligned := Align(values, 4)
	require.Len(t, aligned, 4)

	assert.False(t, aligned[0].Valid)
	assert.False(t, aligned[1].Valid)
	assert.True(t, aligned[2].Valid)
	assert.True(t, aligned[3].Decimal.Equal(decimal.NewFromInt(2)))

	// longer than n keeps the tail
	tail := Align(values, 1)
	require.Len(t, tail, 1)
	assert.True(t, tail[0].Decimal.Equal(decimal.NewFromInt(2)))
}
