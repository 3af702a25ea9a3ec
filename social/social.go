// Package social implements the social-value engine (
// component C2): a pure, deterministic function mapping a BOOM's current
// pricing state plus an incoming action to its next state. It holds no
// database handle and performs no I/O — callers (pipeline/, interaction/)
// read a state snapshot under lock, call ApplyAction, and persist the
// result via inventory.ApplySocialMutation within the same transaction.
package social

import (
	"math"
	"time"

	"github.com/booms-platform/booms-core/money"
	"github.com/shopspring/decimal"
)

// Action is one of the weighted actions of impact table.
type Action string

const (
	ActionBuy Action = "buy"
	ActionSell Action = "sell"
	ActionShare Action = "share"
	ActionGift Action = "gift"
	ActionLike Action = "like"
	ActionComment Action = "comment"
	ActionView Action = "view"
	ActionTransfer Action = "transfer" // internal share
)

// weights maps each action to its impact weight, expressed as a fraction
// (0.002 == 0.2%), against the reference base named in refBase.
var weights = map[Action]float64{
	ActionBuy: 0.002,
	ActionSell: -0.001,
	ActionShare: 0.0001,
	ActionGift: 0.0003,
	ActionLike: 0.0001,
	ActionComment: 0.0001,
	ActionView: 0.00005,
	ActionTransfer: 0.00002,
}

// refBaseIsTransactionAmount is the set of actions whose reference base is
// the transaction_amount rather than base_price/market_value.
var refBaseIsTransactionAmount = map[Action]bool{
	ActionBuy: true,
	ActionSell: true,
}

// Event is a BOOM's transient marketing-relevant state.
type Event string

const (
	EventViral Event = "viral"
	EventTrending Event = "trending"
	EventNew Event = "new"
	EventMilestone Event = "milestone"
)

var eventDuration = map[Event]time.Duration{
	EventViral: 24 * time.Hour,
	EventTrending: 12 * time.Hour,
	EventMilestone: 24 * time.Hour,
}

// Metadata carries the per-call overrides allows: a
// reference-amount override, a boost multiplier, or an absolute impact
// value that bypasses the weight table entirely.
type Metadata struct {
	ReferenceAmountOverride *money.Decimal
	BoostMultiplier *float64
	OverrideSocialImpact *money.Decimal
}

// State is the pure pre/post snapshot ApplyAction transforms — the social
// subset of inventory.Boom, decoupled so this package stays dependency-free
// of the persistence layer.
type State struct {
	BasePrice money.Decimal
	CurrentSocialValue money.Decimal
	AppliedMicroValue money.Decimal
	SocialAccumulator money.Decimal
	PalierThreshold money.Decimal
	PalierLevel int
	ShareCount int
	ShareCount24h int
	InteractionCount int
	TreasuryPool money.Decimal
	RedistributionPool money.Decimal
	LastInteractionAt *time.Time
	LastShareAt *time.Time
	CreatedAt time.Time
	ActiveEvent *Event
	EventExpiresAt *time.Time
}

// MarketValue is base_price + applied_micro_value, 2-decimal.
func (s State) MarketValue() money.Decimal {
	return money.RoundFCFA(s.BasePrice.Add(s.AppliedMicroValue))
}

// microUnit is max(0.01, palier_threshold * 0.0002) — the quoted-value
// step one palier crossing moves the market by.
func microUnit(palierThreshold money.Decimal) money.Decimal {
	u := money.Pct(palierThreshold, 0.02)
	min := decimal.NewFromFloat(0.01)
	if u.LessThan(min) {
		return min
	}
	return u
}

// Result is what ApplyAction reports about the mutation it performed.
type Result struct {
	OldMicroValue money.Decimal
	NewMicroValue money.Decimal
	Delta money.Decimal
	ImpactValue money.Decimal
	Event *Event
}

// ApplyAction is the pure function mapping a current State and an
// incoming Action to the next State and the Result describing the
// mutation. now is passed explicitly (never time.Now internally) so that
// identical (state, action, metadata, now) inputs always yield an
// identical (state, Result) output.
func ApplyAction(s State, action Action, meta Metadata, now time.Time) (State, Result) {
	s = applyDecay(s, now)

	impact := impactValue(s, action, meta)
	oldMicro := s.AppliedMicroValue

	s.SocialAccumulator = s.SocialAccumulator.Add(impact)
	s.CurrentSocialValue = s.CurrentSocialValue.Add(impact)

	unit := microUnit(s.PalierThreshold)
	for s.SocialAccumulator.GreaterThanOrEqual(s.PalierThreshold) {
		s.SocialAccumulator = s.SocialAccumulator.Sub(s.PalierThreshold)
		s.PalierLevel++
		s.AppliedMicroValue = s.AppliedMicroValue.Add(unit)
	}
	for s.PalierLevel > 0 && s.SocialAccumulator.LessThanOrEqual(s.PalierThreshold.Neg()) {
		s.SocialAccumulator = s.SocialAccumulator.Add(s.PalierThreshold)
		s.PalierLevel--
		s.AppliedMicroValue = s.AppliedMicroValue.Sub(unit)
		if s.AppliedMicroValue.IsNegative() {
			s.AppliedMicroValue = money.Zero
		}
	}
	s.AppliedMicroValue = money.RoundFCFA(s.AppliedMicroValue)
	s.SocialAccumulator = money.RoundAccumulator(s.SocialAccumulator)

	if impact.IsPositive() {
		pool := money.Pct(impact, 10)
		s.TreasuryPool = s.TreasuryPool.Add(pool)
		s.RedistributionPool = s.RedistributionPool.Add(pool)
	}

	s.InteractionCount++
	if action == ActionShare || action == ActionTransfer {
		s.ShareCount++
		if s.LastShareAt == nil || now.Sub(*s.LastShareAt) > 24*time.Hour {
			s.ShareCount24h = 0
		}
		s.ShareCount24h++
		shareAt := now
		s.LastShareAt = &shareAt
	}
	lastAt := now
	s.LastInteractionAt = &lastAt

	s.ActiveEvent, s.EventExpiresAt = detectEvent(s, now)

	return s, Result{
		OldMicroValue: oldMicro,
		NewMicroValue: s.AppliedMicroValue,
		Delta: s.AppliedMicroValue.Sub(oldMicro),
		ImpactValue: impact,
		Event: s.ActiveEvent,
	}
}

// impactValue computes the FCFA impact of a single action, honoring any
// explicit override in meta before falling back to the per-action
// weight table.
func impactValue(s State, action Action, meta Metadata) money.Decimal {
	if meta.OverrideSocialImpact != nil {
		return *meta.OverrideSocialImpact
	}

	var base money.Decimal
	switch {
	case meta.ReferenceAmountOverride != nil:
		base = *meta.ReferenceAmountOverride
	case refBaseIsTransactionAmount[action]:
		// Caller must supply transaction_amount via ReferenceAmountOverride
		// for buy/sell; falling back to market value here would silently
		// under-weight the action, so zero signals a caller bug rather
		// than guessing.
		base = money.Zero
	case action == ActionTransfer:
		base = s.MarketValue()
	default:
		base = s.BasePrice
	}

	weight, ok := weights[action]
	if !ok {
		return money.Zero
	}
	impact := money.Pct(base, weight*100)
	if meta.BoostMultiplier != nil {
		impact = impact.Mul(decimal.NewFromFloat(*meta.BoostMultiplier))
	}
	return money.RoundAccumulator(impact)
}

// applyDecay applies the inactivity decay of before any
// action is processed.
func applyDecay(s State, now time.Time) State {
	if s.LastInteractionAt == nil {
		return s
	}
	daysInactive := now.Sub(*s.LastInteractionAt).Hours() / 24
	if daysInactive <= 1 {
		return s
	}
	decayRatio := math.Min(0.5, (daysInactive-1)*0.01)
	factor := decimal.NewFromFloat(1 - decayRatio)

	s.AppliedMicroValue = money.RoundFCFA(s.AppliedMicroValue.Mul(factor))
	s.CurrentSocialValue = s.CurrentSocialValue.Mul(factor)
	s.SocialAccumulator = money.RoundAccumulator(s.SocialAccumulator.Mul(factor))

	unit := microUnit(s.PalierThreshold)
	if unit.IsPositive() {
		level, _ := s.AppliedMicroValue.Div(unit).Round(0).Float64()
		s.PalierLevel = int(math.Round(level))
	}
	return s
}

// detectEvent is the post-mutation event-detection rule.
// Priority when multiple conditions hold simultaneously: milestone (rarest,
// permanent achievement) outranks the share-velocity events, which outrank
// the age-based "new" tag.
func detectEvent(s State, now time.Time) (*Event, *time.Time) {
	milestoneThreshold := decimal.NewFromFloat(10.0)
	if s.CurrentSocialValue.GreaterThanOrEqual(milestoneThreshold) {
		return eventPtr(EventMilestone, now)
	}
	if s.ShareCount24h >= 10 {
		return eventPtr(EventViral, now)
	}
	if s.ShareCount24h >= 5 {
		return eventPtr(EventTrending, now)
	}
	if now.Sub(s.CreatedAt) < 7*24*time.Hour {
		expires := s.CreatedAt.Add(7 * 24 * time.Hour)
		e := EventNew
		return &e, &expires
	}
	return nil, nil
}

func eventPtr(e Event, now time.Time) (*Event, *time.Time) {
	expires := now.Add(eventDuration[e])
	ev := e
	return &ev, &expires
}

// ExpireIfPast clears an event once now has passed its expiry — used by
// sweep/ to drive event expiry on a timer, outside of any user action.
func ExpireIfPast(s State, now time.Time) State {
	if s.ActiveEvent != nil && s.EventExpiresAt != nil && now.After(*s.EventExpiresAt) {
		s.ActiveEvent = nil
		s.EventExpiresAt = nil
	}
	return s
}
