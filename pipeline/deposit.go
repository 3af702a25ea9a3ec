package pipeline

import (
	"context"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/provider"
	"github.com/jackc/pgx/v5"
)

// DepositInitiateInput is the request shape for /payments/deposit/initiate
//.
type DepositInitiateInput struct {
	UserID int64
	Amount money.Decimal
	Method provider.Name
	PhoneNumber string
}

// InitiateDeposit persists a pending PaymentTransaction and asks the
// selected rail to open a deposit session. The ledger itself is never
// touched here — the webhook reconciler credits RealBalance once the
// provider confirms completion (step 4).
func (p *Pipelines) InitiateDeposit(ctx context.Context, in DepositInitiateInput) (provider.DepositSession, error) {
	if !in.Amount.IsPositive() {
		return provider.DepositSession{}, apperr.New(apperr.CodeValidation, "deposit amount must be positive")
	}

	rail, err := p.Providers.Get(in.Method)
	if err != nil {
		return provider.DepositSession{}, err
	}

	reference := "BOOMS_DEPOSIT_" + itoa(in.UserID) + "_" + itoa(now().UnixMilli())

	err = p.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := insertPaymentTransaction(ctx, tx, in.UserID, "deposit", string(in.Method), reference, in.Amount, money.Zero, in.Amount)
		return err
	})
	if err != nil {
		return provider.DepositSession{}, err
	}

	session, err := rail.InitiateDeposit(ctx, provider.DepositRequest{
		UserID: in.UserID,
		Amount: in.Amount,
		PhoneNumber: in.PhoneNumber,
		Reference: reference,
	})
	if err != nil {
		return provider.DepositSession{}, err
	}
	return session, nil
}
