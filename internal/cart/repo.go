package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace.git/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const selectCart = `SELECT id, user_id, items, expires_at, created_at, updated_at FROM carts WHERE user_id=$1`

func (r *Repo) Get(ctx context.Context, userID int64) (*Cart, error) {
	return scanCart(r.DB.QueryRow(ctx, selectCart, userID))
}

// Update locks the user's cart row, lets fn mutate it and writes the
// result back in the same transaction. With create=true a missing cart is
// created first; otherwise ErrCartNotFound is returned.
func (r *Repo) Update(ctx context.Context, userID int64, create bool, fn func(c *Cart) error) (*Cart, error) {
	var out *Cart
	err := postgres.InTx(ctx, r.DB, func(ctx context.Context, tx pgx.Tx) error {
		if create {
			// ON CONFLICT waits for a concurrent first write instead of failing on the unique key
			if _, err := tx.Exec(ctx, `
				INSERT INTO carts(user_id, items, expires_at)
				VALUES ($1, '[]', now())
				ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
				return fmt.Errorf("insert cart: %w", err)
			}
		}
		c, err := LockForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := WriteItems(ctx, tx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LockForUpdate reads the user's cart with a row lock held until q's
// transaction ends.
func LockForUpdate(ctx context.Context, q postgres.Querier, userID int64) (*Cart, error) {
	return scanCart(q.QueryRow(ctx, selectCart+` FOR UPDATE`, userID))
}

// WriteItems persists c.Items and c.ExpiresAt, stamping c.UpdatedAt.
func WriteItems(ctx context.Context, q postgres.Querier, c *Cart) error {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart items: %w", err)
	}
	err = q.QueryRow(ctx, `
		UPDATE carts SET items=$2, expires_at=$3, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`, c.ID, b, c.ExpiresAt).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	c.Items = items
	return nil
}

func scanCart(row pgx.Row) (*Cart, error) {
	var (
		c   Cart
		raw []byte
	)
	err := row.Scan(&c.ID, &c.UserID, &raw, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	if err := json.Unmarshal(raw, &c.Items); err != nil {
		return nil, fmt.Errorf("unmarshal cart items: %w", err)
	}
	c.ExpiresAt = c.ExpiresAt.UTC()
	return &c, nil
}
