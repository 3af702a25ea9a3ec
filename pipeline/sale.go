package pipeline

import (
	"context"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/fees"
	"github.com/booms-platform/booms-core/inventory"
	"github.com/booms-platform/booms-core/ledger"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/social"
	"github.com/booms-platform/booms-core/store"
	"github.com/jackc/pgx/v5"
)

// SaleInput is the request shape for /market/sell.
type SaleInput struct {
	SellerID  int64
	BuyerID   int64
	HoldingID int64
	SellPrice money.Decimal
}

// SaleResult is the typed outcome of a secondary sale.
type SaleResult struct {
	NewHoldingID  int64
	Fee           money.Decimal
	Net           money.Decimal
	SellerBalance money.Decimal
	BuyerBalance  money.Decimal
}

// Sell runs the secondary-sale pipeline (component C6): the buyer pays
// from real cash, the seller is credited net of a 5% treasury cut,
// ownership transfers. Neither party's virtual balance is ever touched.
func (p *Pipelines) Sell(ctx context.Context, in SaleInput) (SaleResult, error) {
	var result SaleResult
	var socialResult social.Result
	var boomID int64

	err := p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		saleBoomID, err := inventory.PeekHoldingBoomID(ctx, tx, in.HoldingID)
		if err != nil {
			return err
		}
		boom, err := inventory.LockBoom(ctx, tx, saleBoomID)
		if err != nil {
			return err
		}
		boomID = boom.ID

		holding, err := inventory.LockHolding(ctx, tx, in.HoldingID)
		if err != nil {
			return err
		}
		if holding.OwnerID != in.SellerID {
			return apperr.New(apperr.CodeHoldingNotOwned, "holding is not owned by seller")
		}
		if !holding.IsTransferable || holding.IsSold {
			return apperr.New(apperr.CodeHoldingNotTransfer, "holding is not transferable")
		}

		lowerID, higherID := store.OrderUserPair(in.SellerID, in.BuyerID)
		firstUser, err := lockUserStatus(ctx, tx, lowerID)
		if err != nil {
			return err
		}
		secondUser, err := lockUserStatus(ctx, tx, higherID)
		if err != nil {
			return err
		}
		var seller, buyer userStatus
		if lowerID == in.SellerID {
			seller, buyer = firstUser, secondUser
		} else {
			seller, buyer = secondUser, firstUser
		}
		if err := requireActive(seller); err != nil {
			return err
		}
		if err := requireActive(buyer); err != nil {
			return err
		}

		firstReal, err := ledger.LockRealBalance(ctx, tx, lowerID)
		if err != nil {
			return err
		}
		secondReal, err := ledger.LockRealBalance(ctx, tx, higherID)
		if err != nil {
			return err
		}
		var sellerReal, buyerReal ledger.RealBalance
		if lowerID == in.SellerID {
			sellerReal, buyerReal = firstReal, secondReal
		} else {
			sellerReal, buyerReal = secondReal, firstReal
		}

		if _, err := ledger.LockTreasury(ctx, tx); err != nil {
			return err
		}

		quote := fees.QuoteSale(in.SellPrice)
		reference := saleReference(in.SellerID, in.BuyerID, in.HoldingID)

		if err := ledger.DebitReal(ctx, tx, buyerReal, in.SellPrice, ledger.KindBoomPurchaseReal, reference, "Achat BOOM (marché secondaire)"); err != nil {
			return err
		}
		if err := ledger.CreditReal(ctx, tx, sellerReal.UserID, quote.Net, ledger.KindBoomSellReal, reference, "Vente BOOM"); err != nil {
			return err
		}
		if err := ledger.CreditTreasury(ctx, tx, quote.Fee, quote.Fee, ledger.KindTreasuryFee, reference); err != nil {
			return err
		}

		if err := inventory.MarkSold(ctx, tx, holding.ID, in.BuyerID); err != nil {
			return err
		}
		newHoldingID, err := inventory.CreateHolding(ctx, tx, boom.ID, in.BuyerID, in.SellPrice, quote.Fee)
		if err != nil {
			return err
		}
		if boom.IsSingleEdition() {
			if err := inventory.TransferSingleEditionOwner(ctx, tx, boom.ID, in.BuyerID); err != nil {
				return err
			}
		}
		if err := inventory.IncrementSellCount(ctx, tx, boom.ID); err != nil {
			return err
		}

		socialState := boomToSocialState(boom)
		nextState, res := social.ApplyAction(socialState, social.ActionSell, social.Metadata{
			ReferenceAmountOverride: &in.SellPrice,
		}, now())
		socialResult = res
		boom = applySocialStateToBoom(boom, nextState)
		if err := inventory.ApplySocialMutation(ctx, tx, boom); err != nil {
			return err
		}

		result = SaleResult{
			NewHoldingID:  newHoldingID,
			Fee:           quote.Fee,
			Net:           quote.Net,
			SellerBalance: sellerReal.Available.Add(quote.Net),
			BuyerBalance:  buyerReal.Available.Sub(in.SellPrice),
		}
		return nil
	})
	if err != nil {
		return SaleResult{}, err
	}

	p.Metrics.TrackWalletOperation("debit", "real")
	p.Metrics.TrackWalletOperation("credit", "real")
	p.Metrics.TrackWalletOperation("credit", "treasury")
	p.Events.Publish(eventsBalanceUpdate(in.SellerID, result.SellerBalance))
	p.Events.Publish(eventsBalanceUpdate(in.BuyerID, result.BuyerBalance))
	p.Events.Publish(eventsSocialUpdate(boomID, socialResult))
	return result, nil
}

func saleReference(sellerID, buyerID, holdingID int64) string {
	return "SALE-" + itoa(sellerID) + "-" + itoa(buyerID) + "-" + itoa(holdingID) + "-" + itoa(now().UnixMilli())
}
