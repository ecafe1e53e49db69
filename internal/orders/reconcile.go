package orders

import (
	"context"
	"fmt"
	"log/slog"
)

// Reconciler applies gateway outcomes to orders.
type Reconciler struct {
	store    Store
	listener Listener
}

func NewReconciler(store Store, l Listener) *Reconciler {
	if l == nil {
		l = nopListener{}
	}
	return &Reconciler{store: store, listener: l}
}

// ApplyPaymentOutcome records outcome on the order owned by userID and
// moves it to Paid on success, PaymentFailed otherwise. Re-applying an
// outcome that leaves the status where it is only replaces the payment
// details, so a repeated success on a Paid order is harmless.
func (r *Reconciler) ApplyPaymentOutcome(ctx context.Context, orderID string, userID int64, outcome PaymentOutcome) (*Order, error) {
	target := StatusPaymentFailed
	if outcome.Succeeded() {
		target = StatusPaid
	}

	var (
		order *Order
		from  Status
	)
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrOwnershipMismatch
		}
		if o.Status != target && !CanTransition(o.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, target)
		}
		updated, err := tx.SetPayment(ctx, orderID, outcome, target)
		if err != nil {
			return fmt.Errorf("set payment: %w", err)
		}
		from = o.Status
		o.Status = target
		o.PaymentDetails = &outcome
		o.UpdatedAt = updated
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "payment outcome applied",
		"order_id", orderID, "payment_id", outcome.PaymentID, "outcome", outcome.Status, "status", target.String())
	r.listener.PaymentApplied(ctx, order)
	if from != target {
		r.listener.StatusChanged(ctx, order, from)
	}
	return order, nil
}
