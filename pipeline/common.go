// Package pipeline implements the ACID action pipelines of the system
// §4.4-§4.8 (components C5-C8): purchase, secondary sale, transfer, gift,
// and withdrawal. Each exported entry point is one store.WithTx call whose
// body acquires locks in the order BOOM rows, Holding rows, user balances
// ascending by user_id, Treasury last, and every external
// side effect (provider calls, broadcasts, notifications) happens after
// the transaction has committed.
package pipeline

import (
	"context"
	"time"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/fees"
	"github.com/jackc/pgx/v5"
)

// userStatus mirrors the subset of the users row pipelines must check
// before mutating ledger/inventory state.
type userStatus struct {
	ID int64
	Status string
	TotalTransactions int64
}

func lockUserStatus(ctx context.Context, tx pgx.Tx, userID int64) (userStatus, error) {
	var u userStatus
	u.ID = userID
	err := tx.QueryRow(ctx, `SELECT status FROM users WHERE id = $1 FOR SHARE`, userID).Scan(&u.Status)
	if err != nil {
		return userStatus{}, apperr.Wrap(apperr.CodeUserNotFound, "user not found", err)
	}
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM transaction_log
		WHERE user_id = $1 AND kind NOT LIKE '%redistribution%'`, userID).Scan(&u.TotalTransactions)
	if err != nil {
		return userStatus{}, apperr.Wrap(apperr.CodeIntegrityError, "failed to count user transactions", err)
	}
	return u, nil
}

// requireActive fails with USER_SUSPENDED/USER_BANNED per the
// invariant that those statuses block every ledger-mutating pipeline.
func requireActive(u userStatus) error {
	switch u.Status {
	case "suspended", "limited", "review":
		return apperr.New(apperr.CodeUserSuspended, "user is not in good standing")
	case "banned":
		return apperr.New(apperr.CodeUserBanned, "user is banned")
	}
	return nil
}

func tierFor(u userStatus) fees.Tier {
	return fees.DeriveTier(u.TotalTransactions)
}

// referenceAlreadyLogged checks whether a reference has already been
// recorded in transaction_log, inside the caller's transaction.
func referenceAlreadyLogged(ctx context.Context, tx pgx.Tx, reference string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transaction_log WHERE reference = $1)`, reference).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.CodeIntegrityError, "failed to check reference", err)
	}
	return exists, nil
}

func now() time.Time { return time.Now().UTC() }

// lastTransactionLogID returns the id of the most recently appended
// transaction_log row for (userID, reference) — used where a caller needs
// to stamp a foreign ledger entry id onto a domain row (e.g. a gift's
// wallet_transaction_ids) without ledger exposing a RETURNING-based API.
func lastTransactionLogID(ctx context.Context, tx pgx.Tx, userID int64, reference string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM transaction_log
		WHERE user_id = $1 AND reference = $2
		ORDER BY id DESC LIMIT 1`, userID, reference).Scan(&id)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeIntegrityError, "failed to resolve transaction log id", err)
	}
	return id, nil
}
