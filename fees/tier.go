package fees

// Tier is the user loyalty tier feeding the gift sharing-fee reduction
// table. the system never defines how tier is derived — this
// is Supplemented Feature #2 in SPEC_FULL.md.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// reduction multipliers per tier, {1.0, 0.9, 0.85, 0.8} set.
var reductions = map[Tier]float64{
	TierBronze: 1.0,
	TierSilver: 0.9,
	TierGold: 0.85,
	TierPlatinum: 0.8,
}

// TierReduction returns the sharing-fee reduction multiplier for tier,
// defaulting to bronze's 1.0 for an unrecognized value.
func TierReduction(tier Tier) float64 {
	if r, ok := reductions[tier]; ok {
		return r
	}
	return 1.0
}

// tier thresholds on lifetime real-money transaction count, per
// SPEC_FULL.md Supplemented Feature #2.
const (
	SilverThreshold = 10
	GoldThreshold = 50
	PlatinumThreshold = 200
)

// DeriveTier maps a user's lifetime count of completed real-money
// transactions to a tier. Monotonic and non-decreasing: a user's tier
// only ever stays the same or improves as totalTransactions grows.
func DeriveTier(totalTransactions int64) Tier {
	switch {
	case totalTransactions >= PlatinumThreshold:
		return TierPlatinum
	case totalTransactions >= GoldThreshold:
		return TierGold
	case totalTransactions >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}
