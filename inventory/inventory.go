// Package inventory implements the BOOM asset and Holding models and the
// ownership-transition helpers pipelines use — /component C3.
package inventory

import (
	"context"
	"time"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/money"
	"github.com/jackc/pgx/v5"
)

// EventType is a BOOM's transient "active event" state.
type EventType string

const (
	EventViral EventType = "viral"
	EventTrending EventType = "trending"
	EventNew EventType = "new"
	EventMilestone EventType = "milestone"
)

// Boom mirrors the booms row — the pricing decomposition and the
// social/engagement counters that drive it.
type Boom struct {
	ID int64
	TokenID string
	BasePrice money.Decimal
	CurrentSocialValue money.Decimal
	AppliedMicroValue money.Decimal
	SocialAccumulator money.Decimal
	PalierThreshold money.Decimal
	PalierLevel int
	BuyCount int
	SellCount int
	ShareCount int
	ShareCount24h int
	InteractionCount int
	UniqueHolders int
	ActiveEvent *EventType
	EventExpiresAt *time.Time
	OwnerID *int64
	MaxEditions int
	CurrentEdition int
	TreasuryPool money.Decimal
	RedistributionPool money.Decimal
	LastInteractionAt *time.Time
	LastShareAt *time.Time
	CreatedAt time.Time
}

// MarketValue is the quoted market value per :
// base_price + applied_micro_value.
func (b Boom) MarketValue() money.Decimal {
	return money.RoundFCFA(b.BasePrice.Add(b.AppliedMicroValue))
}

// IsSingleEdition reports whether b has exactly one copy in existence.
func (b Boom) IsSingleEdition() bool {
	return b.MaxEditions == 1
}

// AvailableEditions returns how many more copies of a multi-edition BOOM
// can still be minted.
func (b Boom) AvailableEditions() int {
	return b.MaxEditions - b.CurrentEdition
}

// Holding mirrors the holdings row — a user's claim on one copy of a BOOM.
type Holding struct {
	ID int64
	BoomID int64
	OwnerID int64
	PurchasePrice money.Decimal
	FeesPaid money.Decimal
	IsTransferable bool
	IsSold bool
	ReceiverID *int64
	TransferredAt *time.Time
	DeletedAt *time.Time
	CreatedAt time.Time
}

// LockBoom acquires the exclusive row lock on a BOOM and returns its
// current state. Must be the first lock acquired in any pipeline touching
// that BOOM, ahead of any Holding lock.
func LockBoom(ctx context.Context, tx pgx.Tx, boomID int64) (Boom, error) {
	var b Boom
	b.ID = boomID
	var activeEvent *string
	err := tx.QueryRow(ctx, `
		SELECT token_id, base_price, current_social_value, applied_micro_value,
		 social_accumulator, palier_threshold, palier_level,
		 buy_count, sell_count, share_count, share_count_24h,
		 interaction_count, unique_holders, active_event, event_expires_at,
		 owner_id, max_editions, current_edition, treasury_pool,
		 redistribution_pool, last_interaction_at, last_share_at, created_at
		FROM booms WHERE id = $1 FOR UPDATE`, boomID).Scan(&b.TokenID, &b.BasePrice, &b.CurrentSocialValue, &b.AppliedMicroValue,
		&b.SocialAccumulator, &b.PalierThreshold, &b.PalierLevel,
		&b.BuyCount, &b.SellCount, &b.ShareCount, &b.ShareCount24h,
		&b.InteractionCount, &b.UniqueHolders, &activeEvent, &b.EventExpiresAt,
		&b.OwnerID, &b.MaxEditions, &b.CurrentEdition, &b.TreasuryPool,
		&b.RedistributionPool, &b.LastInteractionAt, &b.LastShareAt, &b.CreatedAt)
	if err != nil {
		return Boom{}, apperr.Wrap(apperr.CodeBoomUnavailable, "boom not found", err)
	}
	if activeEvent != nil {
		et := EventType(*activeEvent)
		b.ActiveEvent = &et
	}
	return b, nil
}

// LockBoomByToken resolves a public token_id to its row and locks it.
func LockBoomByToken(ctx context.Context, tx pgx.Tx, tokenID string) (Boom, error) {
	var id int64
	if err := tx.QueryRow(ctx, `SELECT id FROM booms WHERE token_id = $1`, tokenID).Scan(&id); err != nil {
		return Boom{}, apperr.Wrap(apperr.CodeBoomUnavailable, "boom not found", err)
	}
	return LockBoom(ctx, tx, id)
}

// LockHolding acquires the exclusive row lock on a Holding.
func LockHolding(ctx context.Context, tx pgx.Tx, holdingID int64) (Holding, error) {
	var h Holding
	h.ID = holdingID
	err := tx.QueryRow(ctx, `
		SELECT boom_id, owner_id, purchase_price, fees_paid, is_transferable,
		 is_sold, receiver_id, transferred_at, deleted_at, created_at
		FROM holdings WHERE id = $1 FOR UPDATE`, holdingID).Scan(&h.BoomID, &h.OwnerID, &h.PurchasePrice, &h.FeesPaid, &h.IsTransferable,
		&h.IsSold, &h.ReceiverID, &h.TransferredAt, &h.DeletedAt, &h.CreatedAt)
	if err != nil {
		return Holding{}, apperr.Wrap(apperr.CodeHoldingNotOwned, "holding not found", err)
	}
	return h, nil
}

// PeekHoldingBoomID reads a Holding's owning boom_id without locking the
// row, so a pipeline can lock that BOOM first and only then LockHolding,
// preserving the BOOM-before-Holding ordering.
func PeekHoldingBoomID(ctx context.Context, tx pgx.Tx, holdingID int64) (int64, error) {
	var boomID int64
	err := tx.QueryRow(ctx, `SELECT boom_id FROM holdings WHERE id = $1`, holdingID).Scan(&boomID)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeHoldingNotOwned, "holding not found", err)
	}
	return boomID, nil
}

// CreateHolding inserts a new Holding row for a purchase, sale, gift
// delivery, or transfer — the moment a Holding is "born".
func CreateHolding(ctx context.Context, tx pgx.Tx, boomID, ownerID int64, purchasePrice, feesPaid money.Decimal) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO holdings (boom_id, owner_id, purchase_price, fees_paid)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		boomID, ownerID, purchasePrice, feesPaid).Scan(&id)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeIntegrityError, "failed to create holding", err)
	}
	return id, nil
}

// MarkSold marks h as sold/transferred-away: is_sold = true, transferred_at
// stamped, receiver recorded, no longer transferable. This is how a
// Holding "dies" on resell, gift delivery, or transfer.
func MarkSold(ctx context.Context, tx pgx.Tx, holdingID, receiverID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE holdings SET is_sold = true, is_transferable = false,
		 receiver_id = $2, transferred_at = now() WHERE id = $1`,
		holdingID, receiverID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to mark holding sold", err)
	}
	return nil
}

// DeleteHolding hard-deletes h — the withdrawal pipeline's terminal step,
// the one case where a Holding is truly destroyed rather than marked sold.
func DeleteHolding(ctx context.Context, tx pgx.Tx, holdingID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM holdings WHERE id = $1`, holdingID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to delete holding", err)
	}
	return nil
}

// EscrowHolding marks h pending-gift: transferred_at set to now,
// is_transferable = false, so it cannot be sold, transferred, or
// withdrawn while a gift is in flight.
func EscrowHolding(ctx context.Context, tx pgx.Tx, holdingID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE holdings SET transferred_at = now(), is_transferable = false WHERE id = $1`,
		holdingID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to escrow holding", err)
	}
	return nil
}

// RestoreHolding reverses EscrowHolding — a declined or expired gift
// returns the holding to its sender.
func RestoreHolding(ctx context.Context, tx pgx.Tx, holdingID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE holdings SET transferred_at = NULL, is_transferable = true,
		 is_sold = false, receiver_id = NULL WHERE id = $1`,
		holdingID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to restore holding", err)
	}
	return nil
}

// SetSingleEditionOwner assigns owner_id directly — the single-edition
// path of the purchase pipeline's step 6.
func SetSingleEditionOwner(ctx context.Context, tx pgx.Tx, boomID, ownerID int64) error {
	res, err := tx.Exec(ctx, `
		UPDATE booms SET owner_id = $2 WHERE id = $1 AND owner_id IS NULL`,
		boomID, ownerID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to set owner", err)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeBoomUnavailable, "boom already owned")
	}
	return nil
}

// TransferSingleEditionOwner reassigns owner_id on a resale/transfer for a
// single-edition BOOM.
func TransferSingleEditionOwner(ctx context.Context, tx pgx.Tx, boomID, newOwnerID int64) error {
	_, err := tx.Exec(ctx, `UPDATE booms SET owner_id = $2 WHERE id = $1`, boomID, newOwnerID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to transfer owner", err)
	}
	return nil
}

// IncrementEdition advances a multi-edition BOOM's current_edition by
// quantity, failing with STOCK_EXHAUSTED if it would exceed max_editions —
// the multi-edition path of the purchase pipeline's step 6.
func IncrementEdition(ctx context.Context, tx pgx.Tx, boomID int64, quantity int) error {
	res, err := tx.Exec(ctx, `
		UPDATE booms SET current_edition = current_edition + $2
		WHERE id = $1 AND current_edition + $2 <= max_editions`,
		boomID, quantity)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to increment edition", err)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeStockExhausted, "not enough editions remaining")
	}
	return nil
}

// IncrementBuyCount bumps a BOOM's buy_count (called from the purchase
// pipeline after a successful commit-eligible mutation); unique_holders
// is left unchanged.
func IncrementBuyCount(ctx context.Context, tx pgx.Tx, boomID int64) error {
	_, err := tx.Exec(ctx, `UPDATE booms SET buy_count = buy_count + 1 WHERE id = $1`, boomID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to increment buy_count", err)
	}
	return nil
}

// IncrementSellCount bumps a BOOM's sell_count (secondary-sale pipeline).
func IncrementSellCount(ctx context.Context, tx pgx.Tx, boomID int64) error {
	_, err := tx.Exec(ctx, `UPDATE booms SET sell_count = sell_count + 1 WHERE id = $1`, boomID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to increment sell_count", err)
	}
	return nil
}

// ApplySocialMutation persists the new pricing-decomposition fields the
// social engine computed (social.ApplyAction), plus the
// counters and event state it derived.
func ApplySocialMutation(ctx context.Context, tx pgx.Tx, b Boom) error {
	var activeEvent *string
	if b.ActiveEvent != nil {
		s := string(*b.ActiveEvent)
		activeEvent = &s
	}
	_, err := tx.Exec(ctx, `
		UPDATE booms SET
			current_social_value = $2, applied_micro_value = $3,
			social_accumulator = $4, palier_level = $5,
			share_count = $6, share_count_24h = $7, interaction_count = $8,
			active_event = $9, event_expires_at = $10, last_interaction_at = $11,
			treasury_pool = $12, redistribution_pool = $13, last_share_at = $14
		WHERE id = $1`,
		b.ID, b.CurrentSocialValue, b.AppliedMicroValue, b.SocialAccumulator,
		b.PalierLevel, b.ShareCount, b.ShareCount24h, b.InteractionCount,
		activeEvent, b.EventExpiresAt, b.LastInteractionAt,
		b.TreasuryPool, b.RedistributionPool, b.LastShareAt)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to persist social mutation", err)
	}
	return nil
}
