// Package idempotency is the redis-backed idempotency-key store 
// requires for gifts (transaction_reference), webhooks ((provider,
// reference)), and provider-initiated deposits/withdrawals (provider-
// assigned IDs persisted before the external call).
package idempotency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// defaultTTL bounds how long a reservation guards against a duplicate
// delivery/retry before it is safe to reuse the key space.
const defaultTTL = 24 * time.Hour

// Store wraps a redis client with the reserve/seen/release primitives
// every idempotent entry point in this module needs.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing go-redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func keyFor(namespace, key string) string {
	return "booms:idem:" + namespace + ":" + key
}

// Reserve attempts to claim key exclusively for namespace. It returns
// reserved=true only for the first caller; subsequent callers with the
// same key get reserved=false until the reservation expires — the
// primitive behind "two webhook deliveries with the same provider
// reference produce exactly one credit".
func (s *Store) Reserve(ctx context.Context, namespace, key string) (reserved bool, err error) {
	ok, err := s.rdb.SetNX(ctx, keyFor(namespace, key), "1", defaultTTL).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: reserve: %w", err)
	}
	return ok, nil
}

// Seen reports whether key has already been reserved for namespace,
// without attempting to claim it.
func (s *Store) Seen(ctx context.Context, namespace, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, keyFor(namespace, key)).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: seen: %w", err)
	}
	return n > 0, nil
}

// Release removes a reservation — used when a reserved operation fails
// before doing any durable work, so a legitimate retry isn't shut out.
func (s *Store) Release(ctx context.Context, namespace, key string) error {
	if err := s.rdb.Del(ctx, keyFor(namespace, key)).Err(); err != nil {
		return fmt.Errorf("idempotency: release: %w", err)
	}
	return nil
}

// NewTransactionReference generates the GIFT-<unix_ms>-<12-hex> reference
// format of, uppercased. The 12 hex characters come from a
// fresh random UUIDv4's first 6 bytes.
func NewTransactionReference(prefix string, now time.Time) string {
	id := uuid.New()
	hex := strings.ReplaceAll(id.String(), "-", "")[:12]
	return strings.ToUpper(fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), hex))
}
