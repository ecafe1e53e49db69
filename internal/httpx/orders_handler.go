package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-marketplace.git/internal/orders"
	"github.com/ariefcatur/go-marketplace.git/internal/payment"
)

type changeStatusReq struct {
	Status *orders.Status `json:"order_status"`
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.Factory.CreateOrder(r.Context(), caller(r).UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	list, err := a.Orders.ListByUser(r.Context(), caller(r).UserID, skip, limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (a *API) listAllOrders(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	list, err := a.Orders.ListAll(r.Context(), skip, limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if id := caller(r); o.UserID != id.UserID && !id.IsAdmin() {
		writeErr(w, r, errForbidden)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus serves from the status cache and fills it on a miss.
func (a *API) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "id")
	id := caller(r)

	if a.Status != nil {
		v, err := a.Status.Get(ctx, orderID)
		if err == nil {
			if v.UserID != id.UserID && !id.IsAdmin() {
				writeErr(w, r, errForbidden)
				return
			}
			writeJSON(w, http.StatusOK, v)
			return
		}
		if !errors.Is(err, orders.ErrStatusNotCached) {
			slog.WarnContext(ctx, "status cache read failed", "order_id", orderID, "error", err)
		}
	}

	o, err := a.Orders.Get(ctx, orderID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if o.UserID != id.UserID && !id.IsAdmin() {
		writeErr(w, r, errForbidden)
		return
	}
	if a.Status != nil {
		a.Status.Put(ctx, o)
	}
	writeJSON(w, http.StatusOK, orders.StatusView{
		OrderID:   o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		UpdatedAt: o.UpdatedAt,
	})
}

func (a *API) changeStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeErr(w, r, badRequest("order_id query parameter is required"))
		return
	}
	var req changeStatusReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Status == nil {
		writeErr(w, r, badRequest("order_status is required"))
		return
	}
	o, err := a.Machine.SetStatus(r.Context(), orderID, *req.Status)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) authoriseDelivery(w http.ResponseWriter, r *http.Request) {
	o, err := a.Machine.SetStatus(r.Context(), chi.URLParam(r, "id"), orders.StatusDelivered)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// pay answers 200 for a successful charge and 402 with the receipt when the
// gateway declined; the order is PaymentFailed in that case. A charge that
// was refunded because the order changed underneath it answers 409.
func (a *API) pay(w http.ResponseWriter, r *http.Request) {
	var req payment.PayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.OrderID == "" {
		writeErr(w, r, badRequest("order_id is required"))
		return
	}
	req.IdempotencyKey = r.Header.Get("X-Idempotency-Key")

	rc, err := a.Payments.Pay(r.Context(), caller(r).UserID, req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	code := http.StatusOK
	switch {
	case rc.Refunded:
		code = http.StatusConflict
	case rc.OrderStatus == orders.StatusPaymentFailed:
		code = http.StatusPaymentRequired
	}
	writeJSON(w, code, rc)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
