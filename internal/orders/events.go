package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventPaymentApplied     = "PaymentApplied"

	EventVersion = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID         string `json:"order_id"`
	UserID          int64  `json:"user_id"`
	Items           []Item `json:"items"`
	TotalPrice      int64  `json:"total_price"`
	DeliveryAddress string `json:"delivery_address"`
}

type StatusChangedPayload struct {
	OrderID string `json:"order_id"`
	UserID  int64  `json:"user_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

type PaymentAppliedPayload struct {
	OrderID     string `json:"order_id"`
	UserID      int64  `json:"user_id"`
	PaymentID   string `json:"payment_id"`
	Outcome     string `json:"outcome"`
	Amount      int64  `json:"amount"`
	OrderStatus Status `json:"order_status"`
}

// Producer is the async message sink events are written to.
type Producer interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// EventPublisher turns committed order changes into envelope v1 messages.
type EventPublisher struct {
	producer Producer
	service  string
	now      func() time.Time
}

func NewEventPublisher(p Producer, service string) *EventPublisher {
	return &EventPublisher{producer: p, service: service, now: time.Now}
}

func (e *EventPublisher) OrderCreated(ctx context.Context, o *Order) {
	e.publish(ctx, TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:         o.ID,
		UserID:          o.UserID,
		Items:           o.Items,
		TotalPrice:      o.TotalPrice,
		DeliveryAddress: o.DeliveryAddress,
	})
}

func (e *EventPublisher) StatusChanged(ctx context.Context, o *Order, from Status) {
	e.publish(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, o.ID, StatusChangedPayload{
		OrderID: o.ID,
		UserID:  o.UserID,
		From:    from,
		To:      o.Status,
	})
}

func (e *EventPublisher) PaymentApplied(ctx context.Context, o *Order) {
	p := PaymentAppliedPayload{OrderID: o.ID, UserID: o.UserID, OrderStatus: o.Status}
	if o.PaymentDetails != nil {
		p.PaymentID = o.PaymentDetails.PaymentID
		p.Outcome = o.PaymentDetails.Status
		p.Amount = o.PaymentDetails.Amount
	}
	e.publish(ctx, TopicPaymentApplied, EventPaymentApplied, o.ID, p)
}

func (e *EventPublisher) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event payload", "event_type", eventType, "order_id", orderID, "error", err)
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    e.now().UTC(),
		Producer:      e.service,
		TraceID:       traceID(ctx),
		CorrelationID: orderID,
		Payload:       body,
	}
	value, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event envelope", "event_type", eventType, "order_id", orderID, "error", err)
		return
	}
	e.producer.Publish(topic, PartitionKey(orderID), value,
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// traceID prefers the OpenTelemetry trace and falls back to the request id.
func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return middleware.GetReqID(ctx)
}
