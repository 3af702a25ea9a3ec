package pipeline

import (
	"context"
	"time"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/fees"
	"github.com/booms-platform/booms-core/idempotency"
	"github.com/booms-platform/booms-core/interaction"
	"github.com/booms-platform/booms-core/inventory"
	"github.com/booms-platform/booms-core/ledger"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/social"
	"github.com/jackc/pgx/v5"
)

// GiftStatus is a gift's lifecycle stage. New-flow gifts use CREATED,
// PAID, DELIVERED, FAILED, EXPIRED; legacy-flow records (retained only for
// unfinished historical rows) use SENT, ACCEPTED, DECLINED, EXPIRED.
type GiftStatus string

const (
	GiftCreated GiftStatus = "CREATED"
	GiftPaid GiftStatus = "PAID"
	GiftDelivered GiftStatus = "DELIVERED"
	GiftFailed GiftStatus = "FAILED"
	GiftExpired GiftStatus = "EXPIRED"

	giftFlowNew = "new"
)

// giftAntiSpamWindow is "may not be re-gifted within 24
// hours of its last ACCEPTED/DELIVERED" rule.
const giftAntiSpamWindow = 24 * time.Hour

// Gift mirrors the gifts row.
type Gift struct {
	ID int64
	SenderID int64
	ReceiverID int64
	HoldingID int64
	Message string
	GrossAmount money.Decimal
	FeeAmount money.Decimal
	NetAmount money.Decimal
	TransactionReference string
	Flow string
	Status GiftStatus
	PaidAt *time.Time
	AcceptedAt *time.Time
	DeliveredAt *time.Time
	FailedAt *time.Time
	ExpiresAt time.Time
	WalletTransactionIDs []int64
}

// GiftSendInput is the request shape for /gift/send.
type GiftSendInput struct {
	SenderID int64
	ReceiverID int64
	TokenID string
	Message string
}

// SendGift runs the new-flow gift-send pipeline: the sender's holding is
// escrowed and gross fees are debited in one transaction; the gift sits
// in PAID awaiting the receiver's decision.
func (p *Pipelines) SendGift(ctx context.Context, in GiftSendInput) (Gift, error) {
	if in.SenderID == in.ReceiverID {
		return Gift{}, apperr.New(apperr.CodeValidation, "cannot gift a boom to yourself")
	}

	var gift Gift
	err := p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		boom, err := inventory.LockBoomByToken(ctx, tx, in.TokenID)
		if err != nil {
			return err
		}

		holding, err := findOwnedHolding(ctx, tx, boom.ID, in.SenderID)
		if err != nil {
			return err
		}
		if !holding.IsTransferable || holding.IsSold {
			return apperr.New(apperr.CodeHoldingNotTransfer, "holding is not transferable")
		}
		if recent, err := holdingGiftedWithin(ctx, tx, holding.ID, giftAntiSpamWindow); err != nil {
			return err
		} else if recent {
			return apperr.New(apperr.CodeGiftDuplicateRecent, "holding was gifted too recently")
		}

		sender, err := lockUserStatus(ctx, tx, in.SenderID)
		if err != nil {
			return err
		}
		if err := requireActive(sender); err != nil {
			return err
		}
		receiver, err := lockUserStatus(ctx, tx, in.ReceiverID)
		if err != nil {
			return err
		}
		if err := requireActive(receiver); err != nil {
			return err
		}

		marketValue := boom.MarketValue()
		quote := fees.QuoteGift(marketValue, tierFor(sender))
		reference := idempotency.NewTransactionReference("GIFT", now())

		real, err := ledger.LockRealBalance(ctx, tx, in.SenderID)
		if err != nil {
			return err
		}

		gift = Gift{
			SenderID: in.SenderID,
			ReceiverID: in.ReceiverID,
			HoldingID: holding.ID,
			Message: in.Message,
			GrossAmount: quote.TotalFees,
			FeeAmount: quote.GiftFee,
			NetAmount: quote.NetToReceiver,
			TransactionReference: reference,
			Flow: giftFlowNew,
			Status: GiftCreated,
			ExpiresAt: now().Add(p.Cfg.GiftExpiry),
		}
		if err := insertGift(ctx, tx, &gift); err != nil {
			return err
		}

		if err := inventory.EscrowHolding(ctx, tx, holding.ID); err != nil {
			return err
		}

		if err := ledger.DebitReal(ctx, tx, real, quote.TotalFees, ledger.KindGiftSentReal, reference,
			"Don BOOM - frais"); err != nil {
			return err
		}

		// The treasury's cut is booked now, at payment time, so it is
		// retained even if the receiver later declines or lets the gift
		// expire — DeclineGift/ExpireGift never touch the ledger.
		if err := ledger.CreditTreasury(ctx, tx, quote.GiftFee, quote.GiftFee, ledger.KindTreasuryFee, reference); err != nil {
			return err
		}

		gift.PaidAt = timePtr(now())
		gift.Status = GiftPaid
		return updateGiftStatus(ctx, tx, gift.ID, GiftPaid, "paid_at", *gift.PaidAt)
	})
	if err != nil {
		return Gift{}, err
	}

	p.Events.Publish(eventsUserNotification(in.ReceiverID, "gift_received", map[string]any{
		"gift_id": gift.ID,
		"sender": in.SenderID,
		"message": in.Message,
	}))
	return gift, nil
}

// AcceptGift runs the new-flow acceptance pipeline: a new Holding is born
// for the receiver, the sender's escrowed Holding is marked sold, and the
// receiver's RealBalance is credited the gift's net amount. The treasury
// is not touched here; its fee was booked by SendGift.
func (p *Pipelines) AcceptGift(ctx context.Context, giftID int64) (Gift, error) {
	var gift Gift
	var socialResult social.Result
	var boomID int64

	err := p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		g, err := lockGift(ctx, tx, giftID)
		if err != nil {
			return err
		}
		if g.Status != GiftPaid {
			return apperr.New(apperr.CodeGiftInvalidTransit, "gift is not in PAID status")
		}
		if now().After(g.ExpiresAt) {
			if err := restoreEscrowedHolding(ctx, tx, g.HoldingID); err != nil {
				return err
			}
			return expireGiftRow(ctx, tx, g.ID)
		}

		giftBoomID, err := inventory.PeekHoldingBoomID(ctx, tx, g.HoldingID)
		if err != nil {
			return err
		}
		boom, err := inventory.LockBoom(ctx, tx, giftBoomID)
		if err != nil {
			return err
		}
		boomID = boom.ID
		holding, err := inventory.LockHolding(ctx, tx, g.HoldingID)
		if err != nil {
			return err
		}

		marketValue := boom.MarketValue()
		purchasePrice := maxDecimal(g.NetAmount, holding.PurchasePrice, marketValue)

		if err := inventory.MarkSold(ctx, tx, holding.ID, g.ReceiverID); err != nil {
			return err
		}
		newHoldingID, err := inventory.CreateHolding(ctx, tx, boom.ID, g.ReceiverID, purchasePrice, g.FeeAmount)
		if err != nil {
			return err
		}
		if boom.IsSingleEdition() {
			if err := inventory.TransferSingleEditionOwner(ctx, tx, boom.ID, g.ReceiverID); err != nil {
				return err
			}
		}

		socialState := boomToSocialState(boom)
		nextState, res := social.ApplyAction(socialState, social.ActionGift, social.Metadata{}, now())
		socialResult = res
		boom = applySocialStateToBoom(boom, nextState)

		// step 4: the receiver also earns an internal-share
		// Interaction, charged at the "transfer" weight against
		// total_value — a second, distinct social impact from the gift
		// action applied above.
		boom, _, _, err = interaction.Apply(ctx, tx, boom, g.ReceiverID, interaction.ActionShareInternal,
			map[string]any{"channel": "gift_new_flow", "gift_id": g.ID}, now())
		if err != nil {
			return err
		}
		if err := inventory.ApplySocialMutation(ctx, tx, boom); err != nil {
			return err
		}

		// Treasury was already credited its fee at SendGift/PAID time; do
		// not credit it again here.
		if err := ledger.CreditReal(ctx, tx, g.ReceiverID, g.NetAmount, ledger.KindGiftReceivedReal, g.TransactionReference,
			"Don BOOM recu"); err != nil {
			return err
		}
		logID, err := lastTransactionLogID(ctx, tx, g.ReceiverID, g.TransactionReference)
		if err != nil {
			return err
		}

		g.DeliveredAt = timePtr(now())
		g.AcceptedAt = g.DeliveredAt
		g.Status = GiftDelivered
		g.WalletTransactionIDs = append(g.WalletTransactionIDs, logID)
		if err := deliverGiftRow(ctx, tx, g.ID, logID, *g.DeliveredAt); err != nil {
			return err
		}

		_ = newHoldingID
		gift = g
		return nil
	})
	if err != nil {
		return Gift{}, err
	}

	p.Events.Publish(eventsBalanceUpdate(gift.ReceiverID, gift.NetAmount))
	p.Events.Publish(eventsSocialUpdate(boomID, socialResult))
	p.Events.Publish(eventsUserNotification(gift.SenderID, "gift_delivered", map[string]any{"gift_id": gift.ID}))
	p.Events.Publish(eventsUserNotification(gift.ReceiverID, "gift_delivered", map[string]any{"gift_id": gift.ID}))
	return gift, nil
}

// DeclineGift runs the new-flow decline pipeline: the escrowed Holding is
// restored to the sender, the gift transitions to FAILED, and the fees
// already paid (booked at SendGift/PAID time) are not refunded.
func (p *Pipelines) DeclineGift(ctx context.Context, giftID int64) (Gift, error) {
	var gift Gift
	err := p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		g, err := lockGift(ctx, tx, giftID)
		if err != nil {
			return err
		}
		if g.Status != GiftPaid {
			return apperr.New(apperr.CodeGiftInvalidTransit, "gift is not in PAID status")
		}
		if err := restoreEscrowedHolding(ctx, tx, g.HoldingID); err != nil {
			return err
		}
		if err := failGiftRow(ctx, tx, g.ID); err != nil {
			return err
		}
		g.Status = GiftFailed
		gift = g
		return nil
	})
	if err != nil {
		return Gift{}, err
	}

	p.Events.Publish(eventsUserNotification(gift.SenderID, "gift_declined", map[string]any{"gift_id": gift.ID}))
	p.Events.Publish(eventsUserNotification(gift.ReceiverID, "gift_declined", map[string]any{"gift_id": gift.ID}))
	return gift, nil
}

// ExpireGift is the sweeper entry point (sweep/ calls this per PAID gift
// past expires_at): identical effect to DeclineGift but stamps EXPIRED.
func (p *Pipelines) ExpireGift(ctx context.Context, giftID int64) error {
	return p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		g, err := lockGift(ctx, tx, giftID)
		if err != nil {
			return err
		}
		if g.Status != GiftPaid {
			return nil
		}
		if err := restoreEscrowedHolding(ctx, tx, g.HoldingID); err != nil {
			return err
		}
		return expireGiftRow(ctx, tx, g.ID)
	})
}

// AbandonCreatedGift is the sweeper entry point for CREATED gifts older
// than 30 minutes ("Expiry"): these never debited the sender,
// so there is nothing to roll back beyond the status transition.
func (p *Pipelines) AbandonCreatedGift(ctx context.Context, giftID int64) error {
	return p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		g, err := lockGift(ctx, tx, giftID)
		if err != nil {
			return err
		}
		if g.Status != GiftCreated {
			return nil
		}
		return failGiftRow(ctx, tx, g.ID)
	})
}

func lockGift(ctx context.Context, tx pgx.Tx, giftID int64) (Gift, error) {
	var g Gift
	var status string
	g.ID = giftID
	err := tx.QueryRow(ctx, `
		SELECT sender_id, receiver_id, holding_id, message, gross_amount, fee_amount,
		 net_amount, transaction_reference, flow, status, paid_at, accepted_at,
		 delivered_at, failed_at, expires_at, wallet_transaction_ids
		FROM gifts WHERE id = $1 FOR UPDATE`, giftID).Scan(&g.SenderID, &g.ReceiverID, &g.HoldingID, &g.Message, &g.GrossAmount, &g.FeeAmount,
		&g.NetAmount, &g.TransactionReference, &g.Flow, &status, &g.PaidAt, &g.AcceptedAt,
		&g.DeliveredAt, &g.FailedAt, &g.ExpiresAt, &g.WalletTransactionIDs)
	if err != nil {
		return Gift{}, apperr.Wrap(apperr.CodeGiftNotFound, "gift not found", err)
	}
	g.Status = GiftStatus(status)
	return g, nil
}

func insertGift(ctx context.Context, tx pgx.Tx, g *Gift) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO gifts (sender_id, receiver_id, holding_id, message, gross_amount,
		 fee_amount, net_amount, transaction_reference, flow, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		g.SenderID, g.ReceiverID, g.HoldingID, g.Message, g.GrossAmount,
		g.FeeAmount, g.NetAmount, g.TransactionReference, g.Flow, string(g.Status), g.ExpiresAt).Scan(&g.ID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to insert gift", err)
	}
	return nil
}

func updateGiftStatus(ctx context.Context, tx pgx.Tx, giftID int64, status GiftStatus, stampCol string, stampAt time.Time) error {
	_, err := tx.Exec(ctx, `UPDATE gifts SET status = $1, `+stampCol+` = $2 WHERE id = $3`, string(status), stampAt, giftID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to update gift status", err)
	}
	return nil
}

func deliverGiftRow(ctx context.Context, tx pgx.Tx, giftID, logID int64, deliveredAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE gifts SET status = 'DELIVERED', accepted_at = $1, delivered_at = $1,
		 wallet_transaction_ids = array_append(wallet_transaction_ids, $2)
		WHERE id = $3`, deliveredAt, logID, giftID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to deliver gift", err)
	}
	return nil
}

func failGiftRow(ctx context.Context, tx pgx.Tx, giftID int64) error {
	_, err := tx.Exec(ctx, `UPDATE gifts SET status = 'FAILED', failed_at = $1 WHERE id = $2`, now(), giftID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to fail gift", err)
	}
	return nil
}

func expireGiftRow(ctx context.Context, tx pgx.Tx, giftID int64) error {
	_, err := tx.Exec(ctx, `UPDATE gifts SET status = 'EXPIRED', failed_at = $1 WHERE id = $2`, now(), giftID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to expire gift", err)
	}
	return nil
}

func restoreEscrowedHolding(ctx context.Context, tx pgx.Tx, holdingID int64) error {
	return inventory.RestoreHolding(ctx, tx, holdingID)
}

func holdingGiftedWithin(ctx context.Context, tx pgx.Tx, holdingID int64, window time.Duration) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM gifts
			WHERE holding_id = $1 AND status IN ('DELIVERED','ACCEPTED')
			 AND COALESCE(delivered_at, accepted_at) > $2
		)`, holdingID, now().Add(-window)).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.CodeIntegrityError, "failed to check gift anti-spam window", err)
	}
	return exists, nil
}

func timePtr(t time.Time) *time.Time { return &t }

func maxDecimal(values...money.Decimal) money.Decimal {
	max := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(max) {
			max = v
		}
	}
	return max
}
