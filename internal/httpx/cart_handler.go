package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-marketplace.git/internal/cart"
)

type removeItemReq struct {
	ProductID int64 `json:"product_id"`
}

func (a *API) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := a.Cart.Get(r.Context(), caller(r).UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// replaceCart takes a JSON array of {product_id, quantity}. A zero
// quantity is ignored; negative quantities are rejected.
func (a *API) replaceCart(w http.ResponseWriter, r *http.Request) {
	var items []cart.Item
	if err := decodeJSON(r, &items); err != nil {
		writeErr(w, r, err)
		return
	}
	if len(items) == 0 {
		writeErr(w, r, badRequest("at least one item is required"))
		return
	}
	for i, it := range items {
		if it.ProductID <= 0 {
			writeErr(w, r, badRequest("item %d: product_id must be positive", i))
			return
		}
		if it.Quantity < 0 {
			writeErr(w, r, badRequest("item %d: quantity must not be negative", i))
			return
		}
	}
	c, err := a.Cart.ReplaceItems(r.Context(), caller(r).UserID, items)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := a.Cart.Clear(r.Context(), caller(r).UserID); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) removeCartItem(w http.ResponseWriter, r *http.Request) {
	var req removeItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.ProductID <= 0 {
		writeErr(w, r, badRequest("product_id must be positive"))
		return
	}
	c, err := a.Cart.RemoveItem(r.Context(), caller(r).UserID, req.ProductID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
