package payment

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace.git/internal/breaker"
)

func TestStubGateway_CreateVerifyRefund(t *testing.T) {
	g := NewStubGateway(0)
	ctx := context.Background()

	res, err := g.Create(ctx, Request{OrderID: "o-1", Amount: 300, Method: "card"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^pay_[0-9a-f]{16}$`), res.PaymentID)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "INR", res.Currency)

	v, err := g.Verify(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.True(t, v.Verified)

	ref, err := g.Refund(ctx, res.PaymentID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), ref.Amount)

	ref, err = g.Refund(ctx, res.PaymentID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(200), ref.Amount, "zero refunds the remainder")

	_, err = g.Refund(ctx, res.PaymentID, 1)
	assert.ErrorIs(t, err, ErrInvalidRefund)

	_, err = g.Verify(ctx, "pay_unknown")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestStubGateway_DeclinesAboveLimit(t *testing.T) {
	g := NewStubGateway(1000)
	res, err := g.Create(context.Background(), Request{OrderID: "o-1", Amount: 1001})
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, res.Status)

	v, err := g.Verify(context.Background(), res.PaymentID)
	require.NoError(t, err)
	assert.False(t, v.Verified)

	_, err = g.Refund(context.Background(), res.PaymentID, 0)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

type brokenGateway struct{ calls int }

func (b *brokenGateway) Create(context.Context, Request) (Result, error) {
	b.calls++
	return Result{}, errors.New("503 from provider")
}

func (b *brokenGateway) Verify(context.Context, string) (Verification, error) {
	return Verification{}, ErrPaymentNotFound
}

func (b *brokenGateway) Refund(ctx context.Context, _ string, _ int64) (Refund, error) {
	<-ctx.Done()
	return Refund{}, ctx.Err()
}

func TestBreakerGateway(t *testing.T) {
	inner := &brokenGateway{}
	g := NewBreakerGateway(inner, 20*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := g.Create(ctx, Request{OrderID: "o-1", Amount: 1})
		assert.ErrorIs(t, err, breaker.ErrUpstream)
	}
	assert.Equal(t, 5, inner.calls, "breaker opens after five consecutive failures")

	_, err := g.Verify(ctx, "pay_x")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
	assert.NotErrorIs(t, err, breaker.ErrUpstream)

	_, err = g.Refund(ctx, "pay_x", 1)
	assert.ErrorIs(t, err, breaker.ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
