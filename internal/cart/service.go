package cart

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a cart stays fresh after its last write.
const DefaultTTL = 7 * 24 * time.Hour

// Store is the durable cart storage. Update must run fn under a lock on
// the user's cart so read-modify-write cycles do not interleave.
type Store interface {
	Get(ctx context.Context, userID int64) (*Cart, error)
	Update(ctx context.Context, userID int64, create bool, fn func(c *Cart) error) (*Cart, error)
}

type Service struct {
	store Store
	cache Cache
	ttl   time.Duration
	now   func() time.Time
	sfg   singleflight.Group
}

func NewService(store Store, cache Cache, ttl time.Duration) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, cache: cache, ttl: ttl, now: time.Now}
}

// Get returns the user's cart or ErrCartNotFound.
func (s *Service) Get(ctx context.Context, userID int64) (*Cart, error) {
	v, err, _ := s.sfg.Do(flightKey(userID), func() (any, error) {
		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			slog.WarnContext(ctx, "cart cache get failed", "user_id", userID, "error", err)
		}

		gen, genErr := s.cache.Generation(ctx, userID)
		if genErr != nil {
			slog.WarnContext(ctx, "cart cache generation failed", "user_id", userID, "error", genErr)
		}
		c, err = s.store.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			if _, err := s.cache.Fill(ctx, c, gen); err != nil {
				slog.WarnContext(ctx, "cart cache fill failed", "user_id", userID, "error", err)
			}
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart), nil
}

// ReplaceItems upserts the cart with replace-by-product semantics.
func (s *Service) ReplaceItems(ctx context.Context, userID int64, items []Item) (*Cart, error) {
	c, err := s.store.Update(ctx, userID, true, func(c *Cart) error {
		c.Items = MergeItems(c.Items, items)
		c.ExpiresAt = s.expiry()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, userID)
	return c, nil
}

// RemoveItem drops one product line. The cart is left untouched when the
// cart or the product line does not exist.
func (s *Service) RemoveItem(ctx context.Context, userID, productID int64) (*Cart, error) {
	c, err := s.store.Update(ctx, userID, false, func(c *Cart) error {
		items, found := RemoveProduct(c.Items, productID)
		if !found {
			return ErrItemNotFound
		}
		c.Items = items
		c.ExpiresAt = s.expiry()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, userID)
	return c, nil
}

// Clear empties the cart without deleting it.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	_, err := s.store.Update(ctx, userID, false, func(c *Cart) error {
		c.Items = []Item{}
		c.ExpiresAt = s.expiry()
		return nil
	})
	if err != nil {
		return err
	}
	s.Invalidate(ctx, userID)
	return nil
}

// Invalidate drops the cached copy of the user's cart. Callers that
// change the carts table directly (order creation) must call it.
// Reads already in flight are detached so later callers go to the store.
func (s *Service) Invalidate(ctx context.Context, userID int64) {
	s.sfg.Forget(flightKey(userID))
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		slog.WarnContext(ctx, "cart cache invalidate failed", "user_id", userID, "error", err)
	}
}

func flightKey(userID int64) string { return strconv.FormatInt(userID, 10) }

func (s *Service) expiry() time.Time { return s.now().Add(s.ttl).UTC() }
