package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-marketplace.git/internal/orders"
)

var (
	ErrAmountMismatch    = errors.New("amount does not match order total")
	ErrPaymentInProgress = errors.New("a payment for this order is in progress")
	ErrLockUnavailable   = errors.New("payment lock unavailable")
)

type PayRequest struct {
	OrderID string `json:"order_id"`
	Method  string `json:"payment_method"`
	// Amount is optional; when sent it must equal the order total.
	Amount         *int64 `json:"amount,omitempty"`
	IdempotencyKey string `json:"-"`
}

// Receipt is what the caller gets back for a payment attempt, successful or not.
type Receipt struct {
	OrderID     string        `json:"order_id"`
	PaymentID   string        `json:"payment_id"`
	Status      string        `json:"status"`
	Amount      int64         `json:"amount"`
	Method      string        `json:"method"`
	OrderStatus orders.Status `json:"order_status"`
	AlreadyPaid bool          `json:"already_paid,omitempty"`
	// Refunded is set when the charge went through but the order moved on
	// before it could be recorded, so the money was given back.
	Refunded bool `json:"refunded,omitempty"`
}

type OrderReader interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
}

type Reconciler interface {
	ApplyPaymentOutcome(ctx context.Context, orderID string, userID int64, outcome orders.PaymentOutcome) (*orders.Order, error)
}

// Idempotency remembers receipts per caller key and serializes attempts per order.
type Idempotency interface {
	Lookup(ctx context.Context, userID int64, key string) (*Receipt, error)
	Save(ctx context.Context, userID int64, key string, r *Receipt) error
	Lock(ctx context.Context, orderID string) (release func(), ok bool, err error)
}

type Processor struct {
	orders     OrderReader
	gateway    Gateway
	reconciler Reconciler
	idem       Idempotency
}

func NewProcessor(o OrderReader, g Gateway, r Reconciler, idem Idempotency) *Processor {
	return &Processor{orders: o, gateway: g, reconciler: r, idem: idem}
}

// Pay charges the order total through the gateway and applies the outcome.
// The order total is the price authority; the gateway is never called for
// an order that is already Paid.
func (p *Processor) Pay(ctx context.Context, userID int64, req PayRequest) (*Receipt, error) {
	if req.IdempotencyKey != "" && p.idem != nil {
		r, err := p.idem.Lookup(ctx, userID, req.IdempotencyKey)
		if err != nil {
			slog.WarnContext(ctx, "idempotency lookup failed", "error", err)
		} else if r != nil {
			return r, nil
		}
	}

	if p.idem != nil {
		release, ok, err := p.idem.Lock(ctx, req.OrderID)
		switch {
		case err != nil:
			return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
		case !ok:
			return nil, ErrPaymentInProgress
		default:
			defer release()
		}
	}

	o, err := p.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, orders.ErrOwnershipMismatch
	}
	if req.Amount != nil && *req.Amount != o.TotalPrice {
		return nil, fmt.Errorf("%w: got %d, order total is %d", ErrAmountMismatch, *req.Amount, o.TotalPrice)
	}
	if o.Status == orders.StatusPaid {
		return paidReceipt(o), nil
	}
	if !orders.CanTransition(o.Status, orders.StatusPaid) {
		return nil, fmt.Errorf("%w: cannot pay a %s order", orders.ErrIllegalTransition, o.Status)
	}

	res, err := p.gateway.Create(ctx, Request{OrderID: o.ID, Amount: o.TotalPrice, Method: req.Method})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	var receipt *Receipt
	updated, err := p.reconciler.ApplyPaymentOutcome(ctx, o.ID, userID, orders.PaymentOutcome{
		PaymentID: res.PaymentID,
		Status:    res.Status,
		Amount:    res.Amount,
		Method:    res.Method,
		Timestamp: res.Timestamp,
	})
	switch {
	case err != nil && res.Status != StatusSuccess:
		return nil, err
	case err != nil:
		if receipt, err = p.refund(ctx, o, res, err); err != nil {
			return nil, err
		}
	default:
		receipt = &Receipt{
			OrderID:     updated.ID,
			PaymentID:   res.PaymentID,
			Status:      res.Status,
			Amount:      res.Amount,
			Method:      res.Method,
			OrderStatus: updated.Status,
		}
	}

	if req.IdempotencyKey != "" && p.idem != nil {
		if err := p.idem.Save(ctx, userID, req.IdempotencyKey, receipt); err != nil {
			slog.WarnContext(ctx, "idempotency save failed", "order_id", o.ID, "error", err)
		}
	}
	return receipt, nil
}

// refund gives back a captured charge that could not be recorded on the
// order, typically because it was cancelled while the gateway call was in
// flight.
func (p *Processor) refund(ctx context.Context, o *orders.Order, res Result, cause error) (*Receipt, error) {
	ctx = context.WithoutCancel(ctx)
	slog.WarnContext(ctx, "refunding unrecorded charge", "order_id", o.ID, "payment_id", res.PaymentID, "error", cause)

	if _, err := p.gateway.Refund(ctx, res.PaymentID, 0); err != nil {
		slog.ErrorContext(ctx, "refund of unrecorded charge failed", "order_id", o.ID, "payment_id", res.PaymentID, "error", err)
		return nil, fmt.Errorf("refund payment %s: %w", res.PaymentID, errors.Join(cause, err))
	}

	status := o.Status
	if cur, err := p.orders.Get(ctx, o.ID); err == nil {
		status = cur.Status
	}
	return &Receipt{
		OrderID:     o.ID,
		PaymentID:   res.PaymentID,
		Status:      StatusRefunded,
		Amount:      res.Amount,
		Method:      res.Method,
		OrderStatus: status,
		Refunded:    true,
	}, nil
}

func paidReceipt(o *orders.Order) *Receipt {
	r := &Receipt{OrderID: o.ID, Amount: o.TotalPrice, OrderStatus: o.Status, AlreadyPaid: true, Status: StatusSuccess}
	if pd := o.PaymentDetails; pd != nil {
		r.PaymentID = pd.PaymentID
		r.Status = pd.Status
		r.Amount = pd.Amount
		r.Method = pd.Method
	}
	return r
}
