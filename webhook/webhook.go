// Package webhook is the idempotent provider-callback reconciler
// (component C9): every payment rail posts a signed callback here for
// deposit completions and payout confirmations.
package webhook

import (
	"context"
	"strconv"
	"strings"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/events"
	"github.com/booms-platform/booms-core/fees"
	"github.com/booms-platform/booms-core/idempotency"
	"github.com/booms-platform/booms-core/ledger"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/observability"
	"github.com/booms-platform/booms-core/provider"
	"github.com/booms-platform/booms-core/store"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// idempotencyNamespace scopes webhook dedup keys in the shared redis
// keyspace, keyed by "dedupe by (provider, reference)".
const idempotencyNamespace = "webhook"

// Callback is one verified inbound provider POST.
type Callback struct {
	Provider     provider.Name
	SignatureHex string
	RawBody      []byte
	Reference    string // merchant tag: BOOMS_DEPOSIT_<user_id>_<ms> / BOOMS_WITHDRAWAL_<...>
	Status       string // provider-reported outcome: "completed" or "failed"
}

// Reconciler wires the collaborators a callback needs: the store for the
// reconciliation transaction, the provider registry to resolve per-rail
// webhook secrets, the idempotency store for the Redis-backed dedup
// layer, and the event broadcaster for the post-commit balance update.
type Reconciler struct {
	Store     *store.Store
	Providers *provider.Registry
	Idem      *idempotency.Store
	Events    *events.Broadcaster
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
}

// New builds a Reconciler.
func New(s *store.Store, providers *provider.Registry, idem *idempotency.Store, ev *events.Broadcaster, metrics *observability.Metrics, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		Store:     s,
		Providers: providers,
		Idem:      idem,
		Events:    ev,
		Metrics:   metrics,
		Logger:    logger.With().Str("component", "webhook").Logger(),
	}
}

// StatusProcessed and StatusIgnored are the two outcomes Handle reports
// to the caller: "processed" means the callback drove a reconciliation
// (transaction completed, failed, or credited); "ignored" means the
// callback was deduped or could not be matched to a transaction.
const (
	StatusProcessed = "processed"
	StatusIgnored   = "ignored"
)

// Handle runs the full reconciliation contract. It returns an error for
// an unregistered provider, a signature failure, or a failed
// reconciliation transaction (after releasing the dedup reservation so
// the provider's retry is processed). Every other outcome (duplicate,
// not-found, already-completed, successful credit) reports as a 200
// response via StatusIgnored/StatusProcessed, since providers retry
// aggressively on non-2xx replies.
func (r *Reconciler) Handle(ctx context.Context, cb Callback) (string, error) {
	rail, err := r.Providers.Get(cb.Provider)
	if err != nil {
		return "", err
	}
	if !provider.VerifyHMACSHA256(cb.RawBody, cb.SignatureHex, rail.WebhookSecret()) {
		return "", apperr.New(apperr.CodeForbidden, "webhook signature verification failed")
	}

	reserved, err := r.Idem.Reserve(ctx, idempotencyNamespace, string(cb.Provider)+":"+cb.Reference)
	if err != nil {
		r.Logger.Error().Err(err).Str("reference", cb.Reference).Msg("idempotency reserve failed, proceeding without redis dedup")
	} else if !reserved {
		r.Logger.Info().Str("reference", cb.Reference).Msg("duplicate webhook delivery, no-op")
		return StatusIgnored, nil
	}

	userID, isDeposit, err := parseReference(cb.Reference)
	if err != nil {
		r.Logger.Warn().Str("reference", cb.Reference).Msg("unparseable webhook reference, no-op")
		return StatusIgnored, nil
	}

	var creditedAmount money.Decimal
	var credited bool
	var matched bool
	txErr := r.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		txn, found, err := lockPendingPaymentTransaction(ctx, tx, cb.Reference)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		matched = true

		if cb.Status != "completed" {
			return markPaymentTransactionFailed(ctx, tx, txn.ID)
		}

		if !isDeposit {
			// Payout confirmation: funds were already accounted for at
			// initiation (the withdrawal pipeline booked the treasury
			// delta synchronously) — just flip status.
			return markPaymentTransactionCompleted(ctx, tx, txn.ID)
		}

		quote, err := fees.QuoteDeposit(fees.Provider(cb.Provider), txn.Amount)
		if err != nil {
			return err
		}

		if _, err := ledger.LockRealBalance(ctx, tx, userID); err != nil {
			return err
		}
		if err := ledger.CreditReal(ctx, tx, userID, quote.NetToUser, ledger.KindDepositReal, cb.Reference, "Depot mobile money"); err != nil {
			return err
		}
		if _, err := ledger.LockTreasury(ctx, tx); err != nil {
			return err
		}
		if err := ledger.CreditTreasury(ctx, tx, quote.PlatformCommission, quote.PlatformCommission, ledger.KindTreasuryFee, cb.Reference); err != nil {
			return err
		}
		if err := markPaymentTransactionCompleted(ctx, tx, txn.ID); err != nil {
			return err
		}
		creditedAmount = quote.NetToUser
		credited = true
		return nil
	})
	if txErr != nil {
		if relErr := r.Idem.Release(ctx, idempotencyNamespace, string(cb.Provider)+":"+cb.Reference); relErr != nil {
			r.Logger.Error().Err(relErr).Str("reference", cb.Reference).Msg("idempotency release failed")
		}
		return "", txErr
	}

	if credited {
		r.Metrics.TrackWalletOperation("credit", "real")
		r.Metrics.TrackWalletOperation("credit", "treasury")
		r.Events.Publish(events.Event{
			Type:    events.TypeBalanceUpdate,
			UserID:  &userID,
			Payload: map[string]any{"available_delta": creditedAmount.String(), "source": "deposit"},
		})
	}
	if !matched {
		return StatusIgnored, nil
	}
	return StatusProcessed, nil
}

type pendingTransaction struct {
	ID     int64
	Amount money.Decimal
}

func lockPendingPaymentTransaction(ctx context.Context, tx pgx.Tx, reference string) (pendingTransaction, bool, error) {
	var t pendingTransaction
	var status string
	err := tx.QueryRow(ctx, `
		SELECT id, amount, status FROM payment_transactions
		WHERE reference = $1 FOR UPDATE`, reference,
	).Scan(&t.ID, &t.Amount, &status)
	if err == pgx.ErrNoRows {
		return pendingTransaction{}, false, nil
	}
	if err != nil {
		return pendingTransaction{}, false, apperr.Wrap(apperr.CodeIntegrityError, "failed to lock payment transaction", err)
	}
	if status != "pending" {
		return pendingTransaction{}, false, nil
	}
	return t, true, nil
}

func markPaymentTransactionCompleted(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `UPDATE payment_transactions SET status = 'completed', completed_at = now() WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to complete payment transaction", err)
	}
	return nil
}

func markPaymentTransactionFailed(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `UPDATE payment_transactions SET status = 'failed' WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to fail payment transaction", err)
	}
	return nil
}

// parseReference extracts the user_id from a BOOMS_DEPOSIT_<user_id>_<ms>
// or BOOMS_WITHDRAWAL_<user_id>_<...> merchant-side tag.
func parseReference(reference string) (userID int64, isDeposit bool, err error) {
	var rest string
	switch {
	case strings.HasPrefix(reference, "BOOMS_DEPOSIT_"):
		isDeposit = true
		rest = strings.TrimPrefix(reference, "BOOMS_DEPOSIT_")
	case strings.HasPrefix(reference, "BOOMS_WITHDRAWAL_"):
		isDeposit = false
		rest = strings.TrimPrefix(reference, "BOOMS_WITHDRAWAL_")
	default:
		return 0, false, apperr.New(apperr.CodeValidation, "unrecognized reference format")
	}
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) == 0 {
		return 0, false, apperr.New(apperr.CodeValidation, "malformed reference")
	}
	id, convErr := strconv.ParseInt(parts[0], 10, 64)
	if convErr != nil {
		return 0, false, apperr.New(apperr.CodeValidation, "malformed reference user id")
	}
	return id, isDeposit, nil
}
