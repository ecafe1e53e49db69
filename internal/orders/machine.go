package orders

import (
	"context"
	"fmt"
	"log/slog"
)

// Machine is the only way order status changes outside payment
// reconciliation. It never bypasses the transition table.
type Machine struct {
	store    Store
	listener Listener
}

func NewMachine(store Store, l Listener) *Machine {
	if l == nil {
		l = nopListener{}
	}
	return &Machine{store: store, listener: l}
}

func (m *Machine) SetStatus(ctx context.Context, orderID string, target Status) (*Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(target))
	}

	var (
		order *Order
		from  Status
	)
	err := m.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, target)
		}
		updated, err := tx.UpdateStatus(ctx, orderID, target)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		from = o.Status
		o.Status = target
		o.UpdatedAt = updated
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order status changed", "order_id", orderID, "from", from.String(), "to", target.String())
	m.listener.StatusChanged(ctx, order, from)
	return order, nil
}
