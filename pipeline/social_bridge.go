package pipeline

import (
	"strconv"

	"github.com/booms-platform/booms-core/inventory"
	"github.com/booms-platform/booms-core/social"
)

// boomToSocialState projects the social-relevant subset of an
// inventory.Boom into social.State — the pure engine never depends on the
// persistence layer directly.
func boomToSocialState(b inventory.Boom) social.State {
	var activeEvent *social.Event
	if b.ActiveEvent != nil {
		e := social.Event(*b.ActiveEvent)
		activeEvent = &e
	}
	return social.State{
		BasePrice: b.BasePrice,
		CurrentSocialValue: b.CurrentSocialValue,
		AppliedMicroValue: b.AppliedMicroValue,
		SocialAccumulator: b.SocialAccumulator,
		PalierThreshold: b.PalierThreshold,
		PalierLevel: b.PalierLevel,
		ShareCount: b.ShareCount,
		ShareCount24h: b.ShareCount24h,
		InteractionCount: b.InteractionCount,
		TreasuryPool: b.TreasuryPool,
		RedistributionPool: b.RedistributionPool,
		LastInteractionAt: b.LastInteractionAt,
		LastShareAt: b.LastShareAt,
		CreatedAt: b.CreatedAt,
		ActiveEvent: activeEvent,
		EventExpiresAt: b.EventExpiresAt,
	}
}

// applySocialStateToBoom writes the social engine's output state back
// onto the boom row the caller already holds locked.
func applySocialStateToBoom(b inventory.Boom, s social.State) inventory.Boom {
	b.CurrentSocialValue = s.CurrentSocialValue
	b.AppliedMicroValue = s.AppliedMicroValue
	b.SocialAccumulator = s.SocialAccumulator
	b.PalierLevel = s.PalierLevel
	b.ShareCount = s.ShareCount
	b.ShareCount24h = s.ShareCount24h
	b.InteractionCount = s.InteractionCount
	b.TreasuryPool = s.TreasuryPool
	b.RedistributionPool = s.RedistributionPool
	b.LastInteractionAt = s.LastInteractionAt
	b.LastShareAt = s.LastShareAt
	if s.ActiveEvent != nil {
		e := inventory.EventType(*s.ActiveEvent)
		b.ActiveEvent = &e
	} else {
		b.ActiveEvent = nil
	}
	b.EventExpiresAt = s.EventExpiresAt
	return b
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
