package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-marketplace.git/internal/auth"
	"github.com/ariefcatur/go-marketplace.git/internal/breaker"
	"github.com/ariefcatur/go-marketplace.git/internal/cart"
	"github.com/ariefcatur/go-marketplace.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace.git/internal/orders"
	"github.com/ariefcatur/go-marketplace.git/internal/payment"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

var (
	errBadRequest = errors.New("bad request")
	errForbidden  = errors.New("permission denied")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, users.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrOwnershipMismatch), errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, users.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrMissingAddress),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, payment.ErrAmountMismatch),
		errors.Is(err, catalog.ErrEmptySheet),
		errors.Is(err, catalog.ErrBadSheet),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, users.ErrInvalidUser),
		errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrIllegalTransition),
		errors.Is(err, payment.ErrPaymentInProgress),
		errors.Is(err, catalog.ErrDuplicateProduct):
		return http.StatusConflict
	case errors.Is(err, breaker.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, payment.ErrLockUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeErr is the single place domain errors become HTTP responses.
// Internal failures are logged and reported without detail.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	switch {
	case code == http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable:
		slog.WarnContext(r.Context(), "upstream failure", "path", r.URL.Path, "error", err)
	case code == http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, code, errorBody{Error: msg, Code: code})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid json: %v", err)
	}
	return nil
}

const (
	defaultLimit = 10
	maxLimit     = 100
)

func pagination(r *http.Request) (skip, limit int, err error) {
	limit = defaultLimit
	q := r.URL.Query()
	if v := q.Get("skip"); v != "" {
		skip, err = strconv.Atoi(v)
		if err != nil || skip < 0 {
			return 0, 0, badRequest("skip must be a non-negative integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return 0, 0, badRequest("limit must be a positive integer")
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	return skip, limit, nil
}
