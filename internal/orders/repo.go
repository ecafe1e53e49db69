package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace.git/internal/cart"
	"github.com/ariefcatur/go-marketplace.git/internal/postgres"
)

// Repo is the Postgres Store. Cart rows are locked and cleared through the
// cart package inside the same transaction as the order insert.
type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id::text, user_id, items, total_price, status, delivery_address, payment_details, created_at, updated_at`

func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return postgres.InTx(ctx, r.DB, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

func (r *Repo) Get(ctx context.Context, orderID string) (*Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrOrderNotFound
	}
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID))
}

func (r *Repo) ListByUser(ctx context.Context, userID int64, skip, limit int) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderCols+` FROM orders
		WHERE user_id=$1
		ORDER BY created_at DESC, id
		OFFSET $2 LIMIT $3`, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectOrders(rows)
}

func (r *Repo) ListAll(ctx context.Context, skip, limit int) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderCols+` FROM orders
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectOrders(rows)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockCart(ctx context.Context, userID int64) (*cart.Cart, error) {
	return cart.LockForUpdate(ctx, t.tx, userID)
}

func (t *pgTx) ClearCart(ctx context.Context, c *cart.Cart) error {
	c.Items = []cart.Item{}
	return cart.WriteItems(ctx, t.tx, c)
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	return t.tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, items, total_price, status, delivery_address, payment_details)
		VALUES ($1, $2, $3, $4, $5, $6, '{}')
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, items, o.TotalPrice, int16(o.Status), o.DeliveryAddress,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (t *pgTx) LockOrder(ctx context.Context, orderID string) (*Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrOrderNotFound
	}
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
}

func (t *pgTx) UpdateStatus(ctx context.Context, orderID string, s Status) (time.Time, error) {
	var updated time.Time
	err := t.tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=clock_timestamp()
		WHERE id=$1
		RETURNING updated_at`, orderID, int16(s)).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return updated, ErrOrderNotFound
	}
	return updated, err
}

func (t *pgTx) SetPayment(ctx context.Context, orderID string, p PaymentOutcome, s Status) (time.Time, error) {
	details, err := json.Marshal(p)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal payment details: %w", err)
	}
	var updated time.Time
	err = t.tx.QueryRow(ctx, `
		UPDATE orders SET payment_details=$2, status=$3, updated_at=clock_timestamp()
		WHERE id=$1
		RETURNING updated_at`, orderID, details, int16(s)).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return updated, ErrOrderNotFound
	}
	return updated, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o              Order
		status         int16
		items, payment []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &items, &o.TotalPrice, &status, &o.DeliveryAddress, &payment, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	var pd PaymentOutcome
	if err := json.Unmarshal(payment, &pd); err != nil {
		return nil, fmt.Errorf("unmarshal payment details: %w", err)
	}
	if !pd.empty() {
		o.PaymentDetails = &pd
	}
	return &o, nil
}
