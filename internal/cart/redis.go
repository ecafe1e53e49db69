package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-marketplace.git/internal/redisx"
)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: redisx.TTLCart,
	}
}

func (r *RedisCache) Get(ctx context.Context, userID int64) (*Cart, error) {
	data, err := r.client.Get(ctx, redisx.CartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &c, nil
}

// fillScript writes the cart only while the generation still matches the
// one the reader saw before it went to the store.
var fillScript = redis.NewScript(`
local g = redis.call('GET', KEYS[2]) or '0'
if g ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func (r *RedisCache) Generation(ctx context.Context, userID int64) (int64, error) {
	gen, err := r.client.Get(ctx, redisx.CartGenKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// Fill reports false when a Delete happened after gen was read.
func (r *RedisCache) Fill(ctx context.Context, c *Cart, gen int64) (bool, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return false, fmt.Errorf("marshal cart failed: %w", err)
	}

	// jitter spreads expirations of carts cached in the same burst
	ttl := r.baseTTL + time.Duration(rand.Intn(60))*time.Second
	keys := []string{redisx.CartKey(c.UserID), redisx.CartGenKey(c.UserID)}
	n, err := fillScript.Run(ctx, r.client, keys, strconv.FormatInt(gen, 10), b, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis fill failed: %w", err)
	}
	return n == 1, nil
}

func (r *RedisCache) Delete(ctx context.Context, userID int64) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, redisx.CartGenKey(userID))
		pipe.Expire(ctx, redisx.CartGenKey(userID), redisx.TTLCartGen)
		pipe.Del(ctx, redisx.CartKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
