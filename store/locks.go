package store

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
)

// LockRowForUpdate acquires an exclusive row lock on table by its
// primary-key id column, within tx. It is the single primitive every
// ordered-lock helper in ledger/inventory builds on.
func LockRowForUpdate(ctx context.Context, tx pgx.Tx, table, idCol string, id any) pgx.Row {
	query := "SELECT 1 FROM " + table + " WHERE " + idCol + " = $1 FOR UPDATE"
	return tx.QueryRow(ctx, query, id)
}

// SortedIDs returns ids sorted ascending, the shape every multi-row lock
// acquisition in requires ("sorted by id ascending").
func SortedIDs(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OrderUserPair returns (lower, higher) user ids so a two-party pipeline
// (sale, gift) always locks the lower user_id's balance first, per
// cross-user ordering rule.
func OrderUserPair(a, b int64) (lower, higher int64) {
	if a <= b {
		return a, b
	}
	return b, a
}
