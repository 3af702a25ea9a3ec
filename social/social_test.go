package social

import (
	"testing"
	"time"

	"github.com/booms-platform/booms-core/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseState() State {
	return State{
		BasePrice: money.FromInt(1000),
		PalierThreshold: money.FromInt(1000000),
		CreatedAt: time.Now(),
	}
}

// Scenario A: buy with transaction_amount=1050.
func TestApplyAction_BuyImpact(t *testing.T) {
	s := baseState()
	total := money.FromFloat(1050)
	meta := Metadata{ReferenceAmountOverride: &total}

	next, res := ApplyAction(s, ActionBuy, meta, time.Now())

	require.True(t, res.ImpactValue.Equal(decimal.NewFromFloat(2.1)), "got %s", res.ImpactValue)
	assert.True(t, next.SocialAccumulator.Equal(decimal.NewFromFloat(2.1)))
	assert.Equal(t, 0, next.PalierLevel)
	assert.True(t, next.AppliedMicroValue.IsZero())
}

// Scenario B: palier crossing.
func TestApplyAction_PalierCrossing(t *testing.T) {
	s := baseState()
	s.BasePrice = money.FromInt(5000000)
	s.SocialAccumulator = decimal.NewFromInt(999990)

	next, res := ApplyAction(s, ActionShare, Metadata{}, time.Now())

	assert.True(t, res.ImpactValue.Equal(decimal.NewFromInt(500)), "got %s", res.ImpactValue)
	assert.Equal(t, 1, next.PalierLevel)
	assert.True(t, next.SocialAccumulator.Equal(decimal.NewFromInt(490)), "got %s", next.SocialAccumulator)
	assert.True(t, next.AppliedMicroValue.Equal(decimal.NewFromInt(200)), "got %s", next.AppliedMicroValue)
}

func TestApplyAction_OverrideBypassesWeightTable(t *testing.T) {
	s := baseState()
	override := money.FromInt(999)
	next, res := ApplyAction(s, ActionLike, Metadata{OverrideSocialImpact: &override}, time.Now())
	assert.True(t, res.ImpactValue.Equal(override))
	assert.True(t, next.SocialAccumulator.Equal(override))
}

func TestApplyAction_BuyThenSellNetsPositive(t *testing.T) {
	s := baseState()
	amt := money.FromInt(1000)
	s1, _ := ApplyAction(s, ActionBuy, Metadata{ReferenceAmountOverride: &amt}, time.Now())
	s2, _ := ApplyAction(s1, ActionSell, Metadata{ReferenceAmountOverride: &amt}, time.Now())

	unit := microUnit(s.PalierThreshold)
	assert.True(t, s2.AppliedMicroValue.GreaterThanOrEqual(money.Zero))
	assert.True(t, s2.AppliedMicroValue.LessThanOrEqual(unit))
}

func TestApplyAction_Determinism(t *testing.T) {
	s := baseState()
	now := time.Now()
	amt := money.FromInt(1000)
	meta := Metadata{ReferenceAmountOverride: &amt}

	s1, r1 := ApplyAction(s, ActionBuy, meta, now)
	s2, r2 := ApplyAction(s, ActionBuy, meta, now)

	assert.True(t, s1.SocialAccumulator.Equal(s2.SocialAccumulator))
	assert.True(t, r1.ImpactValue.Equal(r2.ImpactValue))
}

func TestDecayReducesAppliedMicroValue(t *testing.T) {
	s := baseState()
	s.AppliedMicroValue = decimal.NewFromInt(200)
	s.CurrentSocialValue = decimal.NewFromInt(5)
	s.SocialAccumulator = decimal.NewFromInt(100)
	then := time.Now().Add(-3 * 24 * time.Hour)
	s.LastInteractionAt = &then

	next, _ := ApplyAction(s, ActionView, Metadata{}, time.Now())
	assert.True(t, next.AppliedMicroValue.LessThan(decimal.NewFromInt(200)))
}

func TestDetectEventViral(t *testing.T) {
	s := baseState()
	s.ShareCount24h = 9
	lastShare := time.Now().Add(-time.Hour)
	s.LastShareAt = &lastShare
	next, res := ApplyAction(s, ActionShare, Metadata{}, time.Now())
	require.NotNil(t, res.Event)
	assert.Equal(t, EventViral, *res.Event)
	assert.Equal(t, EventViral, *next.ActiveEvent)
}

func TestExpireIfPast(t *testing.T) {
	s := baseState()
	ev := EventViral
	past := time.Now().Add(-time.Hour)
	s.ActiveEvent = &ev
	s.EventExpiresAt = &past

	expired := ExpireIfPast(s, time.Now())
	assert.Nil(t, expired.ActiveEvent)
}
