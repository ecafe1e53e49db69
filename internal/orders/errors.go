package orders

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrMissingAddress    = errors.New("no delivery address on file")
	ErrOrderNotFound     = errors.New("order not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrOwnershipMismatch = errors.New("order belongs to another user")
	ErrInvalidStatus     = errors.New("invalid order status")
)
