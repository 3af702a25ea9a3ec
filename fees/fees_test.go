package fees

import (
	"testing"

	"github.com/booms-platform/booms-core/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario A from.
func TestQuotePurchase_ScenarioA(t *testing.T) {
	q := QuotePurchase(money.FromInt(1000), 1, TierBronze)
	assert.True(t, q.PerUnitFee.Equal(money.FromInt(50)), "got %s", q.PerUnitFee)
	assert.True(t, q.Total.Equal(money.FromInt(1050)), "got %s", q.Total)
}

// Scenario C from.
func TestQuoteGift_ScenarioC(t *testing.T) {
	q := QuoteGift(money.FromInt(3000), TierBronze)
	assert.True(t, q.SharingFee.Equal(money.FromInt(100)), "got %s", q.SharingFee)
	assert.True(t, q.GiftFee.Equal(money.FromInt(90)), "got %s", q.GiftFee)
	assert.True(t, q.TotalFees.Equal(money.FromInt(190)), "got %s", q.TotalFees)
	assert.True(t, q.NetToReceiver.Equal(money.FromInt(3000)))
}

// Scenario E from.
func TestQuoteWithdrawal_ScenarioE(t *testing.T) {
	q := QuoteWithdrawal(money.FromInt(8000))
	assert.True(t, q.Fee.Equal(money.FromInt(240)), "got %s", q.Fee)
	assert.True(t, q.Net.Equal(money.FromInt(7760)), "got %s", q.Net)
}

func TestProviderFeeUnconfigured(t *testing.T) {
	_, err := ProviderFee(Provider("unknown"), money.FromInt(1000), false)
	require.Error(t, err)
}

func TestDeriveTier(t *testing.T) {
	assert.Equal(t, TierBronze, DeriveTier(0))
	assert.Equal(t, TierBronze, DeriveTier(9))
	assert.Equal(t, TierSilver, DeriveTier(10))
	assert.Equal(t, TierGold, DeriveTier(50))
	assert.Equal(t, TierPlatinum, DeriveTier(200))
}

func TestIsProfitable(t *testing.T) {
	assert.True(t, IsProfitable(money.FromInt(100), money.FromInt(50)))
	assert.False(t, IsProfitable(money.FromInt(50), money.FromInt(100)))
}

func TestNormalizeCurrencyRejectsUnsupported(t *testing.T) {
	_, err := NormalizeCurrency("USD")
	require.Error(t, err)
	c, err := NormalizeCurrency("XOF")
	require.NoError(t, err)
	assert.Equal(t, money.FCFA, c)
}
