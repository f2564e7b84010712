package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervalToDuration(t *testing.T) {
	tests := []struct {
		input     string
		expected  time.Duration
		shouldErr bool
	}{
		{input: "1m", expected: time.Minute},
		{input: "15m", expected: 15 * time.Minute},
		{input: "4h", expected: 4 * time.Hour},
		{input: "1d", expected: 24 * time.Hour},
		{input: "1w", expected: 7 * 24 * time.Hour},
		{input: "", shouldErr: true},
		{input: "h", shouldErr: true},
		{input: "0h", shouldErr: true},
		{input: "3y", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := parseIntervalToDuration(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestHyperliquidKlineProvider_NilInfo(t *testing.T) {
	p := NewHyperliquidKlineProvider(nil)
	_, err := p.GetKlines(t.Context(), testPair, "1d", 12)
	assert.Error(t, err)
}
