package orders

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

var ErrStatusNotCached = errors.New("order status not cached")

// StatusView is the cached summary served on the status fast path.
type StatusView struct {
	OrderID   string    `json:"order_id"`
	UserID    int64     `json:"user_id"`
	Status    Status    `json:"order_status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache keeps the latest status of each order in Redis. It is a
// Listener, so every committed change refreshes it.
type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatusCache(rdb *redis.Client) *StatusCache {
	return &StatusCache{rdb: rdb, ttl: redisx.TTLStatusCache}
}

// putScript stores a view unless the cached one is newer. Entries are
// versioned by the order's updated_at, so a late read-miss fill or an
// out-of-order listener call cannot roll the status back.
var putScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'body', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

func (c *StatusCache) Get(ctx context.Context, orderID string) (StatusView, error) {
	var v StatusView
	b, err := c.rdb.HGet(ctx, redisx.OrderStatusKey(orderID), "body").Bytes()
	if errors.Is(err, redis.Nil) {
		return v, ErrStatusNotCached
	}
	if err != nil {
		return v, fmt.Errorf("redis get status: %w", err)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode cached status: %w", err)
	}
	return v, nil
}

func (c *StatusCache) Put(ctx context.Context, o *Order) {
	b, err := json.Marshal(StatusView{OrderID: o.ID, UserID: o.UserID, Status: o.Status, UpdatedAt: o.UpdatedAt})
	if err != nil {
		slog.WarnContext(ctx, "encode status view", "order_id", o.ID, "error", err)
		return
	}
	n, err := putScript.Run(ctx, c.rdb, []string{redisx.OrderStatusKey(o.ID)},
		o.UpdatedAt.UnixMicro(), b, c.ttl.Milliseconds()).Int()
	if err != nil {
		slog.WarnContext(ctx, "cache order status", "order_id", o.ID, "error", err)
		return
	}
	if n == 0 {
		slog.DebugContext(ctx, "newer order status already cached", "order_id", o.ID, "status", o.Status.String())
	}
}

func (c *StatusCache) OrderCreated(ctx context.Context, o *Order)            { c.Put(ctx, o) }
func (c *StatusCache) StatusChanged(ctx context.Context, o *Order, _ Status) { c.Put(ctx, o) }
func (c *StatusCache) PaymentApplied(ctx context.Context, o *Order)          { c.Put(ctx, o) }
