package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ariefcatur/go-marketplace.git/internal/orders"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct{ Logger *slog.Logger }

func (l LogMailer) Send(ctx context.Context, m Message) error {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.InfoContext(ctx, "mail", "from", m.From, "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}

const ConfirmationSubject = "Your Order Confirmation"

// RenderConfirmation builds the plain-text order confirmation body.
func RenderConfirmation(p orders.OrderCreatedPayload) string {
	var b strings.Builder
	b.WriteString("Thank you for your order!\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", p.OrderID)
	b.WriteString("Order Details:\n-------------\n\nItems:\n")
	for _, it := range p.Items {
		fmt.Fprintf(&b, "- %s (Qty: %d) - $%s each\n", it.ProductName, it.Quantity, money(it.UnitPrice))
	}
	fmt.Fprintf(&b, "\nDelivery Address: %s\n", p.DeliveryAddress)
	fmt.Fprintf(&b, "Total Amount: $%s\n\n", money(p.TotalPrice))
	b.WriteString("Your order will be delivered soon. Thank you for shopping with us!\n")
	b.WriteString("If you have any questions, please contact our customer service.")
	return b.String()
}

// money formats minor units as major.minor.
func money(v int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
