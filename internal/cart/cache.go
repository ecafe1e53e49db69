package cart

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cart cache miss")

// Cache is a read-through copy of carts. It is never the source of truth:
// every mutation calls Delete, which also bumps the user's generation.
// A reader takes Generation before it reads the store and hands it to
// Fill; a fill whose generation is stale is dropped, so a slow reader
// cannot put back a cart that a writer has already replaced.
type Cache interface {
	Get(ctx context.Context, userID int64) (*Cart, error)
	Generation(ctx context.Context, userID int64) (int64, error)
	Fill(ctx context.Context, c *Cart, gen int64) (bool, error)
	Delete(ctx context.Context, userID int64) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, int64) (*Cart, error)        { return nil, ErrCacheMiss }
func (noopCache) Generation(context.Context, int64) (int64, error) { return 0, nil }
func (noopCache) Fill(context.Context, *Cart, int64) (bool, error) { return false, nil }
func (noopCache) Delete(context.Context, int64) error              { return nil }
