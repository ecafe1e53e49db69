package orders

import "context"

// Listener observes committed order changes. Implementations must not
// block and must not fail the operation that triggered them.
type Listener interface {
	OrderCreated(ctx context.Context, o *Order)
	StatusChanged(ctx context.Context, o *Order, from Status)
	PaymentApplied(ctx context.Context, o *Order)
}

type nopListener struct{}

func (nopListener) OrderCreated(context.Context, *Order)          {}
func (nopListener) StatusChanged(context.Context, *Order, Status) {}
func (nopListener) PaymentApplied(context.Context, *Order)        {}

// Listeners fans every notification out in order.
type Listeners []Listener

func (ls Listeners) OrderCreated(ctx context.Context, o *Order) {
	for _, l := range ls {
		l.OrderCreated(ctx, o)
	}
}

func (ls Listeners) StatusChanged(ctx context.Context, o *Order, from Status) {
	for _, l := range ls {
		l.StatusChanged(ctx, o, from)
	}
}

func (ls Listeners) PaymentApplied(ctx context.Context, o *Order) {
	for _, l := range ls {
		l.PaymentApplied(ctx, o)
	}
}
