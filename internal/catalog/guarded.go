package catalog

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-marketplace.git/internal/breaker"
)

type Resolver interface {
	PriceOf(ctx context.Context, id int64) (int64, error)
	NameOf(ctx context.Context, id int64) (string, error)
}

// Guarded puts a circuit breaker in front of a Resolver. Lookups that fail
// for reasons other than a missing product surface breaker.ErrUpstream.
type Guarded struct {
	next  Resolver
	price *breaker.Breaker[int64]
	name  *breaker.Breaker[string]
}

func NewGuarded(next Resolver) *Guarded {
	s := breaker.Settings{Expected: func(err error) bool { return errors.Is(err, ErrProductNotFound) }}
	return &Guarded{
		next:  next,
		price: breaker.New[int64]("catalog-price", s),
		name:  breaker.New[string]("catalog-name", s),
	}
}

func (g *Guarded) PriceOf(ctx context.Context, id int64) (int64, error) {
	return g.price.Do(func() (int64, error) { return g.next.PriceOf(ctx, id) })
}

func (g *Guarded) NameOf(ctx context.Context, id int64) (string, error) {
	return g.name.Do(func() (string, error) { return g.next.NameOf(ctx, id) })
}
