package orders

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Status is the order lifecycle state. The zero value is not a valid status.
type Status int16

const (
	StatusPendingPayment Status = iota + 1
	StatusPaid
	StatusPaymentFailed
	StatusOutForDelivery
	StatusDelivered
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusPendingPayment: "pending_payment",
	StatusPaid:           "paid",
	StatusPaymentFailed:  "payment_failed",
	StatusOutForDelivery: "out_for_delivery",
	StatusDelivered:      "delivered",
	StatusCancelled:      "cancelled",
}

// validNext is the full transition table. Statuses with no entries are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPendingPayment: {StatusPaid: true, StatusPaymentFailed: true, StatusCancelled: true},
	StatusPaymentFailed:  {StatusPaid: true, StatusCancelled: true},
	StatusPaid:           {StatusOutForDelivery: true, StatusCancelled: true},
	StatusOutForDelivery: {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// ParseStatus accepts a status name or its numeric code.
func ParseStatus(v string) (Status, error) {
	for s, n := range statusNames {
		if n == v {
			return s, nil
		}
	}
	if i, err := strconv.Atoi(v); err == nil && Status(i).Valid() {
		return Status(i), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, v)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalJSON also takes the bare numeric code.
func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		return s.UnmarshalText([]byte(name))
	}
	var code int
	if err := json.Unmarshal(b, &code); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, b)
	}
	return s.UnmarshalText([]byte(strconv.Itoa(code)))
}
