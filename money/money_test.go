package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCurrency(t *testing.T) {
	cases := map[string]bool{
		"FCFA": true,
		"xof": true,
		"Franc CFA": true,
		"f cfa": true,
		"USD": false,
		"EUR": false,
	}
	for raw, wantOK := range cases {
		c, ok := NormalizeCurrency(raw)
		assert.Equal(t, wantOK, ok, raw)
		if wantOK {
			assert.Equal(t, FCFA, c, raw)
		}
	}
}

func TestPct(t *testing.T) {
	amount := decimal.NewFromInt(1000)
	fee := RoundFCFA(Pct(amount, 5))
	require.True(t, fee.Equal(decimal.NewFromInt(50)), "got %s", fee)
}

func TestClamp(t *testing.T) {
	lo, hi := decimal.NewFromInt(10), decimal.NewFromInt(1000)
	assert.True(t, Clamp(decimal.NewFromInt(5), lo, hi).Equal(lo))
	assert.True(t, Clamp(decimal.NewFromInt(5000), lo, hi).Equal(hi))
	assert.True(t, Clamp(decimal.NewFromInt(90), lo, hi).Equal(decimal.NewFromInt(90)))
}
