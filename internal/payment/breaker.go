package payment

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/breaker"
)

// BreakerGateway bounds every gateway call with a timeout and a circuit
// breaker. Provider failures surface as breaker.ErrUpstream.
type BreakerGateway struct {
	next    Gateway
	timeout time.Duration
	create  *breaker.Breaker[Result]
	verify  *breaker.Breaker[Verification]
	refund  *breaker.Breaker[Refund]
}

func NewBreakerGateway(next Gateway, timeout time.Duration) *BreakerGateway {
	s := breaker.Settings{Expected: func(err error) bool {
		return errors.Is(err, ErrPaymentNotFound) || errors.Is(err, ErrInvalidRefund)
	}}
	return &BreakerGateway{
		next:    next,
		timeout: timeout,
		create:  breaker.New[Result]("payment-create", s),
		verify:  breaker.New[Verification]("payment-verify", s),
		refund:  breaker.New[Refund]("payment-refund", s),
	}
}

func (g *BreakerGateway) Create(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return g.create.Do(func() (Result, error) { return g.next.Create(ctx, req) })
}

func (g *BreakerGateway) Verify(ctx context.Context, paymentID string) (Verification, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return g.verify.Do(func() (Verification, error) { return g.next.Verify(ctx, paymentID) })
}

func (g *BreakerGateway) Refund(ctx context.Context, paymentID string, amount int64) (Refund, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return g.refund.Do(func() (Refund, error) { return g.next.Refund(ctx, paymentID, amount) })
}

func (g *BreakerGateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
