// Package fees is the deterministic fee calculator
// (component C4): provider rates, platform commissions, tier-based
// sharing-fee reduction, and the currency-normalization gate every
// monetary action passes through first.
package fees

import (
	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/money"
)

// Provider is a payment rail name.
type Provider string

const (
	ProviderWave Provider = "wave"
	ProviderMTN Provider = "mtn_momo"
	ProviderOrange Provider = "orange_money"
	ProviderStripe Provider = "stripe"
)

// providerRates holds the real provider-side percentage for a deposit or
// withdrawal, keyed by Provider.
type rateTable struct{ depositPct, withdrawPct float64 }

var providerRates = map[Provider]rateTable{
	ProviderWave: {depositPct: 1.5, withdrawPct: 2.0},
	ProviderMTN: {depositPct: 2.5, withdrawPct: 3.0},
	ProviderOrange: {depositPct: 2.0, withdrawPct: 2.5},
	ProviderStripe: {depositPct: 3.0, withdrawPct: 3.5},
}

// Platform commission percentages,.
const (
	PlatformDepositPct = 1.5
	PlatformWithdrawalPct = 2.0
	PlatformPurchasePct = 5.0
	PlatformGiftPct = 3.0
	PlatformBoomWithdrawPct = 3.0
	SharingFeeBasePct = 2.0
)

var (
	giftFeeMin = money.FromInt(10)
	giftFeeMax = money.FromInt(1000)
	sharingFeeMin = money.FromInt(100)
	sharingFeeMax = money.FromInt(5000)
)

// ProviderFee returns the real provider-side fee for a deposit or payout
// of amount through provider. err is PROVIDER_UNCONFIGURED for an unknown
// provider name.
func ProviderFee(provider Provider, amount money.Decimal, isWithdrawal bool) (money.Decimal, error) {
	rates, ok := providerRates[provider]
	if !ok {
		return money.Zero, apperr.New(apperr.CodeProviderUnconfigured, "unknown payment provider: "+string(provider))
	}
	pct := rates.depositPct
	if isWithdrawal {
		pct = rates.withdrawPct
	}
	return money.RoundFCFA(money.Pct(amount, pct)), nil
}

// DepositQuote is the fee breakdown for a deposit.
type DepositQuote struct {
	ProviderFee money.Decimal
	PlatformCommission money.Decimal
	NetToUser money.Decimal
}

// QuoteDeposit computes the provider fee and platform commission on a
// deposit of amount.
func QuoteDeposit(provider Provider, amount money.Decimal) (DepositQuote, error) {
	pf, err := ProviderFee(provider, amount, false)
	if err != nil {
		return DepositQuote{}, err
	}
	commission := money.RoundFCFA(money.Pct(amount, PlatformDepositPct))
	net := money.RoundFCFA(amount.Sub(pf).Sub(commission))
	return DepositQuote{ProviderFee: pf, PlatformCommission: commission, NetToUser: net}, nil
}

// PurchaseQuote is the fee breakdown for a primary purchase.
type PurchaseQuote struct {
	MarketValue money.Decimal
	PerUnitFee money.Decimal
	Total money.Decimal
}

// QuotePurchase computes per-unit fee and grand total for buying quantity
// copies at marketValue each, with the buyer's tier reduction applied.
func QuotePurchase(marketValue money.Decimal, quantity int, tier Tier) PurchaseQuote {
	reduction := TierReduction(tier)
	perUnitFee := money.RoundFCFA(money.Pct(marketValue, PlatformPurchasePct*reduction))
	total := money.RoundFCFA(marketValue.Add(perUnitFee).Mul(money.FromInt(int64(quantity))))
	return PurchaseQuote{MarketValue: marketValue, PerUnitFee: perUnitFee, Total: total}
}

// SaleQuote is the fee breakdown for a secondary sale.
type SaleQuote struct {
	Fee money.Decimal
	Net money.Decimal
}

// QuoteSale computes the platform's 5% cut of a peer-to-peer sale.
func QuoteSale(sellPrice money.Decimal) SaleQuote {
	fee := money.RoundFCFA(money.Pct(sellPrice, PlatformPurchasePct))
	net := money.RoundFCFA(sellPrice.Sub(fee))
	return SaleQuote{Fee: fee, Net: net}
}

// GiftQuote is the fee breakdown for a gift send.
type GiftQuote struct {
	GiftFee money.Decimal
	SharingFee money.Decimal
	TotalFees money.Decimal
	NetToReceiver money.Decimal
}

// QuoteGift computes gift_fee (3% of marketValue, clamped [10,1000]) and
// sharing_fee (2% * tier reduction, clamped [100,5000]).
func QuoteGift(marketValue money.Decimal, tier Tier) GiftQuote {
	giftFee := money.Clamp(money.RoundFCFA(money.Pct(marketValue, PlatformGiftPct)), giftFeeMin, giftFeeMax)
	reduction := TierReduction(tier)
	sharingFee := money.Clamp(
		money.RoundFCFA(money.Pct(marketValue, SharingFeeBasePct*reduction)),
		sharingFeeMin, sharingFeeMax)
	total := giftFee.Add(sharingFee)
	return GiftQuote{
		GiftFee: giftFee,
		SharingFee: sharingFee,
		TotalFees: total,
		NetToReceiver: marketValue,
	}
}

// WithdrawalQuote is the fee breakdown for a BOOM withdrawal.
type WithdrawalQuote struct {
	Fee money.Decimal
	Net money.Decimal
}

// QuoteWithdrawal computes the 3% platform commission on a BOOM
// withdrawal — there is no provider fee here, it is paid out of the
// treasury.
func QuoteWithdrawal(withdrawalAmount money.Decimal) WithdrawalQuote {
	fee := money.RoundFCFA(money.Pct(withdrawalAmount, PlatformBoomWithdrawPct))
	net := money.RoundFCFA(withdrawalAmount.Sub(fee))
	return WithdrawalQuote{Fee: fee, Net: net}
}

// IsProfitable implements the profitability check: platform commission
// must exceed the provider fee to be "rentable". Not blocking by default —
// callers log/flag, never reject, on a false result.
func IsProfitable(platformCommission, providerFee money.Decimal) bool {
	return platformCommission.GreaterThan(providerFee)
}

// NormalizeCurrency rejects anything that doesn't resolve to FCFA, per
// currency discipline.
func NormalizeCurrency(raw string) (money.Currency, error) {
	c, ok := money.NormalizeCurrency(raw)
	if !ok {
		return "", apperr.New(apperr.CodeUnsupportedCurrency, "unsupported currency: "+raw)
	}
	return c, nil
}
