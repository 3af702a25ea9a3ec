package pipeline

import (
	"context"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/fees"
	"github.com/booms-platform/booms-core/inventory"
	"github.com/booms-platform/booms-core/ledger"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/social"
	"github.com/jackc/pgx/v5"
)

// PurchaseInput is the request shape for /purchase/bom.
type PurchaseInput struct {
	UserID   int64
	BoomID   int64
	Quantity int
}

// PurchaseResult is the single typed record this pipeline returns, per
// the "duck-typed transaction objects" redesign.
type PurchaseResult struct {
	HoldingIDs  []int64
	MarketValue money.Decimal
	FeePerUnit  money.Decimal
	Total       money.Decimal
	NewBalance  money.Decimal
	BuyCount    int
}

// Purchase runs the primary purchase pipeline (component C5): real cash
// debited from the buyer, credited (as fee) to the treasury, inventory
// created, social value bumped — one ACID transaction, broadcast
// afterward.
func (p *Pipelines) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	if in.Quantity < 1 {
		return PurchaseResult{}, apperr.New(apperr.CodeValidation, "quantity must be >= 1")
	}

	var result PurchaseResult
	var socialResult social.Result

	err := p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		boom, err := inventory.LockBoom(ctx, tx, in.BoomID)
		if err != nil {
			return err
		}

		if boom.IsSingleEdition() {
			if boom.OwnerID != nil {
				return apperr.New(apperr.CodeBoomUnavailable, "single-edition boom already owned")
			}
			if in.Quantity != 1 {
				return apperr.New(apperr.CodeStockExhausted, "single-edition boom allows only quantity 1")
			}
		} else if boom.AvailableEditions() < in.Quantity {
			return apperr.New(apperr.CodeStockExhausted, "not enough editions remaining")
		}

		u, err := lockUserStatus(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		if err := requireActive(u); err != nil {
			return err
		}

		marketValue := boom.MarketValue()
		quote := fees.QuotePurchase(marketValue, in.Quantity, tierFor(u))

		real, err := ledger.LockRealBalance(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		reference := purchaseReference(in.UserID, in.BoomID)
		if err := ledger.DebitRealWithPurchasePrice(ctx, tx, real, quote.Total,
			ledger.KindBoomPurchaseReal, reference, "Achat BOOM", marketValue); err != nil {
			return err
		}

		if _, err := ledger.LockTreasury(ctx, tx); err != nil {
			return err
		}
		totalFee := quote.PerUnitFee.Mul(money.FromInt(int64(in.Quantity)))
		if err := ledger.CreditTreasury(ctx, tx, totalFee, totalFee, ledger.KindTreasuryFee, reference); err != nil {
			return err
		}

		if boom.IsSingleEdition() {
			if err := inventory.SetSingleEditionOwner(ctx, tx, boom.ID, in.UserID); err != nil {
				return err
			}
		} else {
			if err := inventory.IncrementEdition(ctx, tx, boom.ID, in.Quantity); err != nil {
				return err
			}
		}

		holdingIDs := make([]int64, 0, in.Quantity)
		for i := 0; i < in.Quantity; i++ {
			id, err := inventory.CreateHolding(ctx, tx, boom.ID, in.UserID, marketValue, quote.PerUnitFee)
			if err != nil {
				return err
			}
			holdingIDs = append(holdingIDs, id)
		}

		if err := inventory.IncrementBuyCount(ctx, tx, boom.ID); err != nil {
			return err
		}

		socialState := boomToSocialState(boom)
		nextState, res := social.ApplyAction(socialState, social.ActionBuy, social.Metadata{
			ReferenceAmountOverride: &quote.Total,
		}, now())
		socialResult = res
		boom = applySocialStateToBoom(boom, nextState)
		if err := inventory.ApplySocialMutation(ctx, tx, boom); err != nil {
			return err
		}

		if quote.Total.GreaterThan(money.FromInt(adminLargeTransactionThreshold)) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO admin_log (user_id, action, detail) VALUES ($1, 'large_purchase', $2)`,
				in.UserID, reference,
			); err != nil {
				return apperr.Wrap(apperr.CodeIntegrityError, "failed to write admin audit entry", err)
			}
		}

		result = PurchaseResult{
			HoldingIDs:  holdingIDs,
			MarketValue: marketValue,
			FeePerUnit:  quote.PerUnitFee,
			Total:       quote.Total,
			NewBalance:  real.Available.Sub(quote.Total),
			BuyCount:    boom.BuyCount,
		}
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	p.broadcastPurchase(in.UserID, in.BoomID, result, socialResult)
	return result, nil
}

func (p *Pipelines) broadcastPurchase(userID, boomID int64, res PurchaseResult, social social.Result) {
	p.Metrics.TrackWalletOperation("debit", "real")
	p.Metrics.TrackWalletOperation("credit", "treasury")
	p.Events.Publish(eventsBalanceUpdate(userID, res.NewBalance))
	p.Events.Publish(eventsSocialUpdate(boomID, social))
	p.Events.Publish(eventsUserNotification(userID, "purchase_completed", map[string]any{
		"boom_id": boomID,
		"total":   res.Total.String(),
	}))
}

func purchaseReference(userID, boomID int64) string {
	return "PURCHASE-" + itoa(userID) + "-" + itoa(boomID) + "-" + itoa(now().UnixMilli())
}
