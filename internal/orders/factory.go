package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-marketplace.git/internal/cart"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

// PricingResolver is the price authority. Unknown products must yield
// catalog.ErrProductNotFound.
type PricingResolver interface {
	PriceOf(ctx context.Context, productID int64) (int64, error)
	NameOf(ctx context.Context, productID int64) (string, error)
}

// AddressBook returns users.ErrNoAddress when no delivery address is on file.
type AddressBook interface {
	AddressOf(ctx context.Context, userID int64) (string, error)
}

// CartInvalidator drops cached copies of a cart changed behind the cart service.
type CartInvalidator interface {
	Invalidate(ctx context.Context, userID int64)
}

// Factory converts carts into orders.
type Factory struct {
	store     Store
	pricing   PricingResolver
	addresses AddressBook
	carts     CartInvalidator
	listener  Listener
	now       func() time.Time
	newID     func() string
}

type FactoryOption func(*Factory)

func WithCartInvalidator(c CartInvalidator) FactoryOption {
	return func(f *Factory) { f.carts = c }
}

func WithFactoryListener(l Listener) FactoryOption {
	return func(f *Factory) { f.listener = l }
}

func NewFactory(store Store, pricing PricingResolver, addresses AddressBook, opts ...FactoryOption) *Factory {
	f := &Factory{
		store:     store,
		pricing:   pricing,
		addresses: addresses,
		listener:  nopListener{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateOrder turns the user's cart into a PendingPayment order and empties
// the cart. Everything happens in one transaction holding the cart row
// lock: a concurrent second call waits, then finds the cart empty.
func (f *Factory) CreateOrder(ctx context.Context, userID int64) (*Order, error) {
	var order *Order
	err := f.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.LockCart(ctx, userID)
		if errors.Is(err, cart.ErrCartNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return ErrEmptyCart
		}

		addr, err := f.addresses.AddressOf(ctx, userID)
		if errors.Is(err, users.ErrNoAddress) {
			return ErrMissingAddress
		}
		if err != nil {
			return fmt.Errorf("resolve address: %w", err)
		}

		items, err := f.priceLines(ctx, c.Items)
		if err != nil {
			return err
		}

		now := f.now().UTC()
		o := &Order{
			ID:              f.newID(),
			UserID:          userID,
			Items:           items,
			TotalPrice:      Total(items),
			Status:          StatusPendingPayment,
			DeliveryAddress: addr,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := tx.ClearCart(ctx, c); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if f.carts != nil {
		f.carts.Invalidate(ctx, userID)
	}
	slog.InfoContext(ctx, "order created",
		"order_id", order.ID, "user_id", userID, "total_price", order.TotalPrice, "lines", len(order.Items))
	f.listener.OrderCreated(ctx, order)
	return order, nil
}

// priceLines snapshots name and unit price for every line. One missing
// product fails the whole conversion.
func (f *Factory) priceLines(ctx context.Context, lines []cart.Item) ([]Item, error) {
	out := make([]Item, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		name, err := f.pricing.NameOf(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", l.ProductID, err)
		}
		price, err := f.pricing.PriceOf(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", l.ProductID, err)
		}
		out = append(out, Item{
			ProductID:   l.ProductID,
			ProductName: name,
			Quantity:    l.Quantity,
			UnitPrice:   price,
		})
	}
	if len(out) == 0 {
		return nil, ErrEmptyCart
	}
	return out, nil
}
