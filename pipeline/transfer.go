package pipeline

import (
	"context"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/inventory"
	"github.com/booms-platform/booms-core/social"
	"github.com/jackc/pgx/v5"
)

// TransferInput is the request shape for a free internal share. No money
// moves.
type TransferInput struct {
	SenderID   int64
	ReceiverID int64
	TokenID    string
	Message    string
}

// TransferResult is the typed outcome of a free share.
type TransferResult struct {
	NewHoldingID int64
}

// Transfer runs the free-share pipeline: the sender's holding is marked
// sold to the receiver, a new holding is born for the receiver at the
// same purchase price, and a "transfer" social action is applied.
func (p *Pipelines) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if in.SenderID == in.ReceiverID {
		return TransferResult{}, apperr.New(apperr.CodeValidation, "cannot transfer a boom to yourself")
	}

	var result TransferResult
	var socialResult social.Result
	var boomID int64

	err := p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		boom, err := inventory.LockBoomByToken(ctx, tx, in.TokenID)
		if err != nil {
			return err
		}
		boomID = boom.ID

		locked, err := findOwnedHolding(ctx, tx, boom.ID, in.SenderID)
		if err != nil {
			return err
		}
		if locked.OwnerID != in.SenderID {
			return apperr.New(apperr.CodeHoldingNotOwned, "holding is not owned by sender")
		}
		if !locked.IsTransferable || locked.IsSold {
			return apperr.New(apperr.CodeHoldingNotTransfer, "holding is not transferable")
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

		if err := inventory.MarkSold(ctx, tx, locked.ID, in.ReceiverID); err != nil {
			return err
		}
		newHoldingID, err := inventory.CreateHolding(ctx, tx, boom.ID, in.ReceiverID, locked.PurchasePrice, locked.FeesPaid)
		if err != nil {
			return err
		}
		if boom.IsSingleEdition() {
			if err := inventory.TransferSingleEditionOwner(ctx, tx, boom.ID, in.ReceiverID); err != nil {
				return err
			}
		}

		socialState := boomToSocialState(boom)
		nextState, res := social.ApplyAction(socialState, social.ActionTransfer, social.Metadata{}, now())
		socialResult = res
		boom = applySocialStateToBoom(boom, nextState)
		if err := inventory.ApplySocialMutation(ctx, tx, boom); err != nil {
			return err
		}

		result = TransferResult{NewHoldingID: newHoldingID}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	p.Events.Publish(eventsSocialUpdate(boomID, socialResult))
	p.Events.Publish(eventsUserNotification(in.ReceiverID, "boom_received", map[string]any{
		"boom_id": boomID,
		"sender":  in.SenderID,
		"message": in.Message,
	}))
	return result, nil
}

// findOwnedHolding locates and locks the sender's live, non-escrowed
// holding on a BOOM.
func findOwnedHolding(ctx context.Context, tx pgx.Tx, boomID, ownerID int64) (inventory.Holding, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM holdings
		WHERE boom_id = $1 AND owner_id = $2 AND is_sold = false AND deleted_at IS NULL
		 AND transferred_at IS NULL
		ORDER BY id LIMIT 1`, boomID, ownerID,
	).Scan(&id)
	if err != nil {
		return inventory.Holding{}, apperr.Wrap(apperr.CodeHoldingNotOwned, "no eligible holding found", err)
	}
	return inventory.LockHolding(ctx, tx, id)
}
