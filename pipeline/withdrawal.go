package pipeline

import (
	"context"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/fees"
	"github.com/booms-platform/booms-core/inventory"
	"github.com/booms-platform/booms-core/ledger"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/provider"
	"github.com/jackc/pgx/v5"
)

// WithdrawalInput is the request shape for /withdrawal/boom.
type WithdrawalInput struct {
	UserID      int64
	HoldingID   int64
	PhoneNumber string
	Provider    provider.Name
}

// WithdrawalResult is the typed outcome of a BOOM withdrawal.
type WithdrawalResult struct {
	Amount     money.Decimal
	Fee        money.Decimal
	Net        money.Decimal
	NewBalance money.Decimal
	PayoutTxID string
}

// Withdraw runs the withdrawal pipeline (component C8): the holding is
// hard-deleted, the treasury keeps the 3% fee and absorbs any
// appreciation (user_gain) beyond the original purchase price, and the
// net is paid out through the provider rail; the user's RealBalance is
// not credited. The external payout call happens strictly after commit.
func (p *Pipelines) Withdraw(ctx context.Context, in WithdrawalInput) (WithdrawalResult, error) {
	var result WithdrawalResult
	var reference string

	err := p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		withdrawalBoomID, err := inventory.PeekHoldingBoomID(ctx, tx, in.HoldingID)
		if err != nil {
			return err
		}
		boom, err := inventory.LockBoom(ctx, tx, withdrawalBoomID)
		if err != nil {
			return err
		}

		holding, err := inventory.LockHolding(ctx, tx, in.HoldingID)
		if err != nil {
			return err
		}
		if holding.OwnerID != in.UserID {
			return apperr.New(apperr.CodeHoldingNotOwned, "holding is not owned by user")
		}
		if holding.IsSold || holding.TransferredAt != nil {
			return apperr.New(apperr.CodeHoldingNotTransfer, "holding is pending a gift or already transferred")
		}

		u, err := lockUserStatus(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		if err := requireActive(u); err != nil {
			return err
		}

		withdrawalAmount := boom.MarketValue()
		if withdrawalAmount.LessThan(money.FromInt(p.Cfg.WithdrawalMinAmount)) ||
			withdrawalAmount.GreaterThan(money.FromInt(p.Cfg.WithdrawalMaxAmount)) {
			return apperr.New(apperr.CodeValidation, "withdrawal amount outside the allowed range")
		}

		quote := fees.QuoteWithdrawal(withdrawalAmount)
		userGain := withdrawalAmount.Sub(holding.PurchasePrice)

		real, err := ledger.LockRealBalance(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		if _, err := ledger.LockTreasury(ctx, tx); err != nil {
			return err
		}

		reference = withdrawalReference(in.UserID, in.HoldingID)

		treasuryDelta := quote.Fee
		if userGain.IsPositive() {
			treasuryDelta = treasuryDelta.Sub(userGain)
		}
		if err := ledger.CreditTreasury(ctx, tx, treasuryDelta, quote.Fee, ledger.KindTreasuryWithdrawal, reference); err != nil {
			return err
		}

		if err := inventory.DeleteHolding(ctx, tx, in.HoldingID); err != nil {
			return err
		}

		txID, err := insertPaymentTransaction(ctx, tx, in.UserID, "bom_withdrawal", string(in.Provider),
			reference, withdrawalAmount, quote.Fee, quote.Net)
		if err != nil {
			return err
		}

		result = WithdrawalResult{
			Amount:     withdrawalAmount,
			Fee:        quote.Fee,
			Net:        quote.Net,
			NewBalance: real.Available,
		}
		_ = txID
		return nil
	})
	if err != nil {
		return WithdrawalResult{}, err
	}

	p.Metrics.TrackWalletOperation("credit", "treasury")
	p.Events.Publish(eventsBalanceUpdate(in.UserID, result.NewBalance))

	rail, err := p.Providers.Get(in.Provider)
	if err != nil {
		p.Logger.Error().Err(err).Int64("user_id", in.UserID).Msg("withdrawal payout provider unconfigured")
		p.Metrics.TrackProviderHealth(string(in.Provider), false)
		return result, nil
	}
	payout, err := rail.InitiatePayout(ctx, provider.PayoutRequest{
		UserID:      in.UserID,
		Amount:      result.Net,
		PhoneNumber: in.PhoneNumber,
		Reference:   reference,
	})
	if err != nil {
		p.Logger.Error().Err(err).Str("reference", reference).Msg("withdrawal payout initiation failed")
		return result, nil
	}
	result.PayoutTxID = payout.ProviderTxID
	return result, nil
}

func withdrawalReference(userID, holdingID int64) string {
	return "BOOMS_WITHDRAWAL_" + itoa(userID) + "_" + itoa(holdingID) + "_" + itoa(now().UnixMilli())
}

func insertPaymentTransaction(ctx context.Context, tx pgx.Tx, userID int64, kind, providerName, reference string, amount, feesAmt, net money.Decimal) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO payment_transactions (user_id, kind, provider, reference, amount, fees, net, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id`,
		userID, kind, providerName, reference, amount, feesAmt, net,
	).Scan(&id)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeIntegrityError, "failed to insert payment transaction", err)
	}
	return id, nil
}
