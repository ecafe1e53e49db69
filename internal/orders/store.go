package orders

import (
	"context"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/cart"
)

// Tx is the locked, transactional view used by the write paths. Every
// method runs inside the transaction opened by Store.InTx.
type Tx interface {
	// LockCart returns the user's cart with its row locked, or cart.ErrCartNotFound.
	LockCart(ctx context.Context, userID int64) (*cart.Cart, error)
	ClearCart(ctx context.Context, c *cart.Cart) error
	InsertOrder(ctx context.Context, o *Order) error
	// LockOrder returns the order with its row locked, or ErrOrderNotFound.
	LockOrder(ctx context.Context, orderID string) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, s Status) (time.Time, error)
	SetPayment(ctx context.Context, orderID string, p PaymentOutcome, s Status) (time.Time, error)
}

type Store interface {
	// InTx commits when fn returns nil and rolls back otherwise,
	// returning fn's error unchanged. Lookups made with the ctx passed to
	// fn run inside the same transaction.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Get(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID int64, skip, limit int) ([]Order, error)
	ListAll(ctx context.Context, skip, limit int) ([]Order, error)
}
