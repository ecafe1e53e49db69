// Package cart owns the per-user shopping cart: a price-less list of
// product/quantity pairs with an advisory expiry.
package cart

import (
	"errors"
	"time"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("product not in cart")
)

// Item is a cart line. Prices and names are never stored on a cart;
// they are resolved when the cart becomes an order.
type Item struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Cart struct {
	ID        int64     `json:"cart_id"`
	UserID    int64     `json:"user_id"`
	Items     []Item    `json:"products"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Cart) IsEmpty() bool { return c == nil || len(c.Items) == 0 }

// Expired reports whether the cart has passed its advisory expiry.
func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// MergeItems applies incoming lines onto existing ones. A line for a
// product already in the cart replaces its quantity; lines for other
// products are appended in input order. Existing lines not mentioned are
// kept as-is. Lines with quantity <= 0 are dropped.
func MergeItems(existing, incoming []Item) []Item {
	out := make([]Item, 0, len(existing)+len(incoming))
	out = append(out, existing...)

	idx := make(map[int64]int, len(out))
	for i, it := range out {
		idx[it.ProductID] = i
	}

	for _, it := range incoming {
		if it.Quantity <= 0 {
			continue
		}
		if i, ok := idx[it.ProductID]; ok {
			out[i].Quantity = it.Quantity
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

// RemoveProduct returns items without productID, and false when the
// product was not present.
func RemoveProduct(items []Item, productID int64) ([]Item, bool) {
	out := make([]Item, 0, len(items))
	found := false
	for _, it := range items {
		if it.ProductID == productID {
			found = true
			continue
		}
		out = append(out, it)
	}
	return out, found
}
