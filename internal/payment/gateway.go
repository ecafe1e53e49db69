// Package payment talks to the payment gateway and records the outcome on
// the order.
package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrInvalidRefund   = errors.New("refund exceeds captured amount")
)

const (
	StatusSuccess  = "success"
	StatusDeclined = "declined"
	StatusRefunded = "processed"
)

type Request struct {
	OrderID  string
	Amount   int64
	Currency string
	Method   string
}

type Result struct {
	PaymentID string    `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

type Verification struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Verified  bool   `json:"verified"`
}

type Refund struct {
	RefundID  string    `json:"refund_id"`
	PaymentID string    `json:"payment_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Gateway is the capability set of a payment provider. A declined charge
// is a Result with a non-success Status, not an error; errors mean the
// provider could not be asked.
type Gateway interface {
	Create(ctx context.Context, req Request) (Result, error)
	Verify(ctx context.Context, paymentID string) (Verification, error)
	Refund(ctx context.Context, paymentID string, amount int64) (Refund, error)
}

// StubGateway simulates a provider in memory. Charges above DeclineAbove
// are declined; zero disables declines.
type StubGateway struct {
	DeclineAbove int64
	Currency     string

	mu       sync.Mutex
	payments map[string]Result
	refunded map[string]int64
	now      func() time.Time
}

func NewStubGateway(declineAbove int64) *StubGateway {
	return &StubGateway{
		DeclineAbove: declineAbove,
		Currency:     "INR",
		payments:     map[string]Result{},
		refunded:     map[string]int64{},
		now:          time.Now,
	}
}

func (g *StubGateway) Create(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	currency := req.Currency
	if currency == "" {
		currency = g.Currency
	}
	res := Result{
		PaymentID: "pay_" + randomHex(8),
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		Currency:  currency,
		Status:    StatusSuccess,
		Method:    req.Method,
		Timestamp: g.now().UTC(),
	}
	if g.DeclineAbove > 0 && req.Amount > g.DeclineAbove {
		res.Status = StatusDeclined
	}

	g.mu.Lock()
	g.payments[res.PaymentID] = res
	g.mu.Unlock()
	return res, nil
}

func (g *StubGateway) Verify(ctx context.Context, paymentID string) (Verification, error) {
	if err := ctx.Err(); err != nil {
		return Verification{}, err
	}
	g.mu.Lock()
	res, ok := g.payments[paymentID]
	g.mu.Unlock()
	if !ok {
		return Verification{}, ErrPaymentNotFound
	}
	return Verification{PaymentID: paymentID, Status: res.Status, Verified: res.Status == StatusSuccess}, nil
}

// Refund returns amount, or the remaining captured amount when amount is 0.
func (g *StubGateway) Refund(ctx context.Context, paymentID string, amount int64) (Refund, error) {
	if err := ctx.Err(); err != nil {
		return Refund{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	res, ok := g.payments[paymentID]
	if !ok || res.Status != StatusSuccess {
		return Refund{}, ErrPaymentNotFound
	}
	remaining := res.Amount - g.refunded[paymentID]
	if amount == 0 {
		amount = remaining
	}
	if amount <= 0 || amount > remaining {
		return Refund{}, ErrInvalidRefund
	}
	g.refunded[paymentID] += amount
	return Refund{
		RefundID:  "ref_" + randomHex(8),
		PaymentID: paymentID,
		Amount:    amount,
		Status:    StatusRefunded,
		Timestamp: g.now().UTC(),
	}, nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
