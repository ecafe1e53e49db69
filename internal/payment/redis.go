package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-marketplace.git/internal/redisx"
)

const lockTTL = 30 * time.Second

type RedisIdempotency struct {
	rdb *redis.Client
}

func NewRedisIdempotency(rdb *redis.Client) *RedisIdempotency {
	return &RedisIdempotency{rdb: rdb}
}

// Lookup returns nil, nil when key has not been used.
func (r *RedisIdempotency) Lookup(ctx context.Context, userID int64, key string) (*Receipt, error) {
	b, err := r.rdb.Get(ctx, redisx.PaymentIdemKey(userID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rc Receipt
	if err := json.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &rc, nil
}

func (r *RedisIdempotency) Save(ctx context.Context, userID int64, key string, rc *Receipt) error {
	b, err := json.Marshal(rc)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	return r.rdb.Set(ctx, redisx.PaymentIdemKey(userID, key), b, redisx.TTLIdempotency).Err()
}

// Lock takes the per-order payment lease. The returned release frees it
// only if this caller still holds it.
func (r *RedisIdempotency) Lock(ctx context.Context, orderID string) (func(), bool, error) {
	key := redisx.PaymentLockKey(orderID)
	token, ok, err := redisx.Acquire(ctx, r.rdb, key, lockTTL)
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		held, err := redisx.Release(ctx, r.rdb, key, token)
		if err != nil {
			slog.WarnContext(ctx, "payment lock release failed", "order_id", orderID, "error", err)
		} else if !held {
			slog.WarnContext(ctx, "payment lock expired before release", "order_id", orderID)
		}
	}, true, nil
}
