package orders

import "time"

// Item is the priced snapshot of a cart line taken at order creation.
type Item struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

func (i Item) Subtotal() int64 { return i.UnitPrice * int64(i.Quantity) }

const OutcomeSuccess = "success"

// PaymentOutcome is what a gateway reports for one payment attempt. It
// replaces the order's payment details wholesale.
type PaymentOutcome struct {
	PaymentID string    `json:"payment_id"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

func (p PaymentOutcome) Succeeded() bool { return p.Status == OutcomeSuccess }

func (p *PaymentOutcome) empty() bool {
	return p == nil || (p.PaymentID == "" && p.Status == "")
}

// Order is immutable after creation except for Status, PaymentDetails and
// UpdatedAt. Money is in minor units.
type Order struct {
	ID              string          `json:"order_id"`
	UserID          int64           `json:"user_id"`
	Items           []Item          `json:"products"`
	TotalPrice      int64           `json:"total_price"`
	Status          Status          `json:"order_status"`
	DeliveryAddress string          `json:"delivery_address"`
	PaymentDetails  *PaymentOutcome `json:"payment_details,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func Total(items []Item) int64 {
	var t int64
	for _, it := range items {
		t += it.Subtotal()
	}
	return t
}
