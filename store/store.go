// Package store is the relational persistence layer: a pgx connection pool
// plus the transaction helper every pipeline uses to get the deterministic
// lock-acquisition order mandates (BOOM rows, then Holding rows,
// then user balances ascending by user_id, then the Treasury singleton
// last), with deadlock retry baked in so pipelines never hand-roll it.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store wraps a pgx connection pool.
type Store struct {
	Pool *pgxpool.Pool
	logger zerolog.Logger
}

// New opens a connection pool against cfg.DatabaseURL.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &Store{Pool: pool, logger: logger.With().Str("component", "store").Logger()}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.Pool.Close()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

const (
	maxDeadlockRetries = 3
	retryBaseDelay = 100 * time.Millisecond
)

// pgDeadlockSQLState is the Postgres error code for "deadlock_detected".
const pgDeadlockSQLState = "40P01"

// pgSerializationFailureSQLState is "serialization_failure", raised under
// SERIALIZABLE isolation when a concurrent transaction wins the race —
// retried exactly like a deadlock.
const pgSerializationFailureSQLState = "40001"

// TxFn is a pipeline body that runs inside one database transaction. It
// must acquire locks in the order: BOOM rows ascending by id, Holding rows
// ascending by id, user balances ascending by user_id, Treasury last —
// every lock helper below (LockBoom, LockHolding, LockRealBalance,...)
// is written so that calling them in the natural order of a pipeline's
// steps already produces this ordering.
type TxFn func(ctx context.Context, tx pgx.Tx) error

// WithTx runs fn inside a transaction, retrying up to 3 times with
// exponential backoff (base 0.1s * attempt) on deadlock or serialization
// failure, per. After the retry budget is exhausted it returns
// TRANSIENT_CONTENDED without further log-spam (a single warn per attempt
// only, no fatal-level noise).
func (s *Store) WithTx(ctx context.Context, fn TxFn) error {
	var lastErr error
	for attempt := 1; attempt <= maxDeadlockRetries; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		s.logger.Warn().
			Int("attempt", attempt).
			Err(err).
			Msg("pipeline transaction contended, retrying")
		if attempt < maxDeadlockRetries {
			delay := time.Duration(math.Round(float64(retryBaseDelay) * float64(attempt)))
			time.Sleep(delay)
		}
	}
	return apperr.Wrap(apperr.CodeTransientContended, "transaction contended after retries", lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn TxFn) (err error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDeadlockSQLState || pgErr.Code == pgSerializationFailureSQLState
	}
	return false
}
