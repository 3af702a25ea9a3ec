// Package ledger implements the two strictly separated balance namespaces
// (real cash, virtual/redistribution), the platform treasury singleton,
// and the append-only transaction log (component C1).
//
// Every exported operation takes the pgx.Tx of the caller's enclosing
// pipeline transaction; ledger never opens its own transaction, so the
// lock-ordering discipline is entirely the caller's responsibility (see
// store.WithTx and the Lock* helpers here).
package ledger

import (
	"context"
	"strings"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind tags every TransactionLog entry with the specific operation that
// produced it, distinguishing real-balance movements from virtual and
// treasury ones.
type Kind string

const (
	KindDepositReal Kind = "deposit_real"
	KindBoomSellReal Kind = "boom_sell_real"
	KindGiftReceivedReal Kind = "gift_received_real"
	KindTransferReceivedReal Kind = "transfer_received_real"
	KindRefundReal Kind = "refund_real"
	KindWithdrawalReal Kind = "withdrawal_real"
	KindBoomPurchaseReal Kind = "boom_purchase_real"
	KindGiftSentReal Kind = "gift_sent_real"
	KindGiftFeeReal Kind = "gift_fee_real"
	KindFeeReal Kind = "fee_real"
	KindPenaltyReal Kind = "penalty_real"
	KindRedistributionCredit Kind = "redistribution_credit"
	KindRedistributionDebit Kind = "redistribution_debit"
	KindTreasuryFee Kind = "treasury_fee"
	KindTreasuryWithdrawal Kind = "treasury_withdrawal_delta"
	KindTreasuryRedistribute Kind = "treasury_redistribution_funding"
)

// creditKindsReal are kinds that increment RealBalance.available.
var creditKindsReal = map[Kind]bool{
	KindDepositReal: true,
	KindBoomSellReal: true,
	KindGiftReceivedReal: true,
	KindTransferReceivedReal: true,
	KindRefundReal: true,
}

// debitKindsReal are kinds that decrement RealBalance.available.
var debitKindsReal = map[Kind]bool{
	KindWithdrawalReal: true,
	KindBoomPurchaseReal: true,
	KindGiftSentReal: true,
	KindGiftFeeReal: true,
	KindFeeReal: true,
	KindPenaltyReal: true,
}

// IsRedistribution reports whether kind belongs to the virtual-balance
// class — only these kinds may ever touch VirtualBalance.
func IsRedistribution(kind Kind) bool {
	return strings.Contains(string(kind), "redistribution")
}

// RealBalance mirrors the real_balances row.
type RealBalance struct {
	UserID int64
	Available money.Decimal
	Locked money.Decimal
}

// VirtualBalance mirrors the virtual_balances row.
type VirtualBalance struct {
	UserID int64
	Balance money.Decimal
}

// Treasury mirrors the singleton treasury row.
type Treasury struct {
	Balance money.Decimal
	TotalFeesCollected money.Decimal
	TotalTransactions int64
}

// LockRealBalance acquires the exclusive row lock for user's real balance
// and returns its current values, for the duration of tx.
func LockRealBalance(ctx context.Context, tx pgx.Tx, userID int64) (RealBalance, error) {
	var rb RealBalance
	rb.UserID = userID
	err := tx.QueryRow(ctx,
		`SELECT available, locked FROM real_balances WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&rb.Available, &rb.Locked)
	if err != nil {
		return RealBalance{}, apperr.Wrap(apperr.CodeUserNotFound, "real balance not found", err)
	}
	return rb, nil
}

// LockVirtualBalance acquires the exclusive row lock for user's virtual
// balance.
func LockVirtualBalance(ctx context.Context, tx pgx.Tx, userID int64) (VirtualBalance, error) {
	var vb VirtualBalance
	vb.UserID = userID
	err := tx.QueryRow(ctx,
		`SELECT balance FROM virtual_balances WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&vb.Balance)
	if err != nil {
		return VirtualBalance{}, apperr.Wrap(apperr.CodeUserNotFound, "virtual balance not found", err)
	}
	return vb, nil
}

// LockTreasury acquires the exclusive row lock on the singleton treasury
// row. Callers must do this strictly last in a pipeline's locking prefix,
// after BOOMs, Holdings, and user balances.
func LockTreasury(ctx context.Context, tx pgx.Tx) (Treasury, error) {
	var t Treasury
	err := tx.QueryRow(ctx,
		`SELECT balance, total_fees_collected, total_transactions FROM treasury WHERE id = 1 FOR UPDATE`).Scan(&t.Balance, &t.TotalFeesCollected, &t.TotalTransactions)
	if err != nil {
		return Treasury{}, apperr.Wrap(apperr.CodeIntegrityError, "treasury row missing", err)
	}
	return t, nil
}

// GetRealBalance reads a user's real balance without locking — for the
// read-only /wallet/* endpoints of, which are explicitly not
// part of any mutating pipeline and so never need FOR UPDATE.
func GetRealBalance(ctx context.Context, pool *pgxpool.Pool, userID int64) (RealBalance, error) {
	var rb RealBalance
	rb.UserID = userID
	err := pool.QueryRow(ctx,
		`SELECT available, locked FROM real_balances WHERE user_id = $1`, userID).Scan(&rb.Available, &rb.Locked)
	if err != nil {
		return RealBalance{}, apperr.Wrap(apperr.CodeUserNotFound, "real balance not found", err)
	}
	return rb, nil
}

// GetVirtualBalance reads a user's virtual balance without locking.
func GetVirtualBalance(ctx context.Context, pool *pgxpool.Pool, userID int64) (VirtualBalance, error) {
	var vb VirtualBalance
	vb.UserID = userID
	err := pool.QueryRow(ctx,
		`SELECT balance FROM virtual_balances WHERE user_id = $1`, userID).Scan(&vb.Balance)
	if err != nil {
		return VirtualBalance{}, apperr.Wrap(apperr.CodeUserNotFound, "virtual balance not found", err)
	}
	return vb, nil
}

// appendLog inserts one append-only transaction_log row. purchasePrice may
// be nil — only the purchase pipeline populates it (see SPEC_FULL.md Open
// Question decision #3).
func appendLog(ctx context.Context, tx pgx.Tx, userID int64, amount money.Decimal, kind Kind, reference, description string, purchasePrice *money.Decimal) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO transaction_log (user_id, amount, kind, description, status, reference, purchase_price)
		 VALUES ($1, $2, $3, $4, 'completed', $5, $6)`,
		userID, amount, string(kind), description, reference, purchasePrice)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "failed to append transaction log", err)
	}
	return nil
}

// CreditReal increments user's available real balance and appends a log
// entry. The caller must already hold the row lock (LockRealBalance).
func CreditReal(ctx context.Context, tx pgx.Tx, userID int64, amount money.Decimal, kind Kind, reference, description string) error {
	if IsRedistribution(kind) {
		return apperr.New(apperr.CodeIntegrityError, "redistribution kind routed through CreditReal")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE real_balances SET available = available + $1 WHERE user_id = $2`,
		amount, userID); err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "credit_real update failed", err)
	}
	return appendLog(ctx, tx, userID, amount, kind, reference, description, nil)
}

// DebitReal decrements user's available real balance, failing with
// INSUFFICIENT_REAL_FUNDS if the pre-decrement available is insufficient —
// the caller must pass the balance already locked via LockRealBalance so
// the check and the decrement observe the same snapshot.
func DebitReal(ctx context.Context, tx pgx.Tx, locked RealBalance, amount money.Decimal, kind Kind, reference, description string) error {
	if IsRedistribution(kind) {
		return apperr.New(apperr.CodeIntegrityError, "redistribution kind routed through DebitReal")
	}
	if locked.Available.LessThan(amount) {
		return apperr.New(apperr.CodeInsufficientReal, "available balance below requested debit")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE real_balances SET available = available - $1 WHERE user_id = $2`,
		amount, locked.UserID); err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "debit_real update failed", err)
	}
	return appendLog(ctx, tx, locked.UserID, amount, kind, reference, description, nil)
}

// CreditRealWithPurchasePrice is CreditReal plus the structured
// purchase_price column the purchase pipeline stamps on `boom_purchase_real`
// entries (Open Question decision #3 in SPEC_FULL.md — no text parsing).
func CreditRealWithPurchasePrice(ctx context.Context, tx pgx.Tx, userID int64, amount money.Decimal, kind Kind, reference, description string, purchasePrice money.Decimal) error {
	if _, err := tx.Exec(ctx,
		`UPDATE real_balances SET available = available + $1 WHERE user_id = $2`,
		amount, userID); err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "credit_real update failed", err)
	}
	return appendLog(ctx, tx, userID, amount, kind, reference, description, &purchasePrice)
}

// DebitRealWithPurchasePrice is DebitReal, additionally stamping the
// purchase_price column on the log entry (used by the purchase pipeline).
func DebitRealWithPurchasePrice(ctx context.Context, tx pgx.Tx, locked RealBalance, amount money.Decimal, kind Kind, reference, description string, purchasePrice money.Decimal) error {
	if locked.Available.LessThan(amount) {
		return apperr.New(apperr.CodeInsufficientReal, "available balance below requested debit")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE real_balances SET available = available - $1 WHERE user_id = $2`,
		amount, locked.UserID); err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "debit_real update failed", err)
	}
	return appendLog(ctx, tx, locked.UserID, amount, kind, reference, description, &purchasePrice)
}

// CreditVirtual credits the redistribution-only balance. kind must be a
// redistribution-class kind, per the hard rule that no
// non-redistribution action may touch virtual.
func CreditVirtual(ctx context.Context, tx pgx.Tx, userID int64, amount money.Decimal, kind Kind, reference, description string) error {
	if !IsRedistribution(kind) {
		return apperr.New(apperr.CodeIntegrityError, "non-redistribution kind routed through CreditVirtual")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE virtual_balances SET balance = balance + $1 WHERE user_id = $2`,
		amount, userID); err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "credit_virtual update failed", err)
	}
	return appendLog(ctx, tx, userID, amount, kind, reference, description, nil)
}

// DebitVirtual debits the redistribution-only balance, failing with
// INSUFFICIENT_VIRTUAL_FUNDS below zero.
func DebitVirtual(ctx context.Context, tx pgx.Tx, locked VirtualBalance, amount money.Decimal, kind Kind, reference, description string) error {
	if !IsRedistribution(kind) {
		return apperr.New(apperr.CodeIntegrityError, "non-redistribution kind routed through DebitVirtual")
	}
	if locked.Balance.LessThan(amount) {
		return apperr.New(apperr.CodeInsufficientVirtual, "virtual balance below requested debit")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE virtual_balances SET balance = balance - $1 WHERE user_id = $2`,
		amount, locked.UserID); err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "debit_virtual update failed", err)
	}
	return appendLog(ctx, tx, locked.UserID, amount, kind, reference, description, nil)
}

// LockOutcome is the settlement direction passed to UnlockFunds.
type LockOutcome int

const (
	// OutcomeSettle moves the locked amount out of locked entirely (the
	// reservation is consumed — e.g. a completed withdrawal).
	OutcomeSettle LockOutcome = iota
	// OutcomeRelease returns the locked amount to available (the
	// reservation is cancelled — e.g. a declined or expired operation).
	OutcomeRelease
)

// LockFunds moves amount from available to locked, reserving it for a
// pending operation. The caller must hold the row lock.
func LockFunds(ctx context.Context, tx pgx.Tx, locked RealBalance, amount money.Decimal) error {
	if locked.Available.LessThan(amount) {
		return apperr.New(apperr.CodeInsufficientReal, "available balance below requested reservation")
	}
	_, err := tx.Exec(ctx,
		`UPDATE real_balances SET available = available - $1, locked = locked + $1 WHERE user_id = $2`,
		amount, locked.UserID)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "lock_funds update failed", err)
	}
	return nil
}

// UnlockFunds resolves a prior LockFunds reservation: OutcomeSettle debits
// it out of locked permanently (appending a log entry of kind), while
// OutcomeRelease returns it to available with no log entry (nothing was
// ultimately spent).
func UnlockFunds(ctx context.Context, tx pgx.Tx, locked RealBalance, amount money.Decimal, outcome LockOutcome, kind Kind, reference, description string) error {
	switch outcome {
	case OutcomeSettle:
		if _, err := tx.Exec(ctx,
			`UPDATE real_balances SET locked = locked - $1 WHERE user_id = $2`,
			amount, locked.UserID); err != nil {
			return apperr.Wrap(apperr.CodeIntegrityError, "unlock_funds settle failed", err)
		}
		return appendLog(ctx, tx, locked.UserID, amount, kind, reference, description, nil)
	case OutcomeRelease:
		_, err := tx.Exec(ctx,
			`UPDATE real_balances SET available = available + $1, locked = locked - $1 WHERE user_id = $2`,
			amount, locked.UserID)
		if err != nil {
			return apperr.Wrap(apperr.CodeIntegrityError, "unlock_funds release failed", err)
		}
		return nil
	default:
		return apperr.New(apperr.CodeIntegrityError, "unknown lock outcome")
	}
}

// CreditTreasury adds delta (may be negative, e.g. a withdrawal's
// user-gain offset) to the treasury balance and appends a treasury_log
// row. The caller must hold LockTreasury. feeCollected is added to
// total_fees_collected only when it is a genuine fee (pass zero for pure
// redistribution funding deltas).
func CreditTreasury(ctx context.Context, tx pgx.Tx, delta, feeCollected money.Decimal, kind Kind, reference string) error {
	_, err := tx.Exec(ctx,
		`UPDATE treasury SET balance = balance + $1, total_fees_collected = total_fees_collected + $2,
		 total_transactions = total_transactions + 1, last_transaction_at = now() WHERE id = 1`,
		delta, feeCollected)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "treasury update failed", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO treasury_log (kind, delta, reference) VALUES ($1, $2, $3)`,
		string(kind), delta, reference)
	if err != nil {
		return apperr.Wrap(apperr.CodeIntegrityError, "treasury_log insert failed", err)
	}
	return nil
}

// RedistributeToVirtual is the admin treasury operation referenced
// abstractly in ("admin treasury operations: 0% fee") and
// made concrete in SPEC_FULL.md's Supplemented Features: a pool-to-user
// tagged virtual credit, e.g. for promotional royalty payouts.
func RedistributeToVirtual(ctx context.Context, tx pgx.Tx, userID int64, amount money.Decimal, reason string) error {
	return CreditVirtual(ctx, tx, userID, amount, KindRedistributionCredit, "ADMIN-REDIST-"+reason, reason)
}
