package redisx

import (
	"fmt"
	"time"
)

const (
	// Cart read-through cache: cart:{user_id} -> cart JSON
	KeyCart = "cart:%d"

	// Cart cache generation, bumped on every invalidation: cart:gen:{user_id}
	KeyCartGen = "cart:gen:%d"

	// Payment idempotency: idem:order:payment:{user_id}:{idempotency_key} -> response JSON
	KeyIdemPayment = "idem:order:payment:%d:%s"

	// Cache status order: order_status:{order_id} -> hash {v: updated_at micros, body: status JSON}
	KeyOrderStatus = "order_status:%s"

	// In-flight payment guard: lock:payment:{order_id}
	KeyPaymentLock = "lock:payment:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCart        = 15 * time.Minute
	TTLCartGen     = 24 * time.Hour
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func CartKey(userID int64) string { return fmt.Sprintf(KeyCart, userID) }

func CartGenKey(userID int64) string { return fmt.Sprintf(KeyCartGen, userID) }

func PaymentIdemKey(userID int64, key string) string {
	return fmt.Sprintf(KeyIdemPayment, userID, key)
}

func PaymentLockKey(orderID string) string { return fmt.Sprintf(KeyPaymentLock, orderID) }

func OrderStatusKey(orderID string) string { return fmt.Sprintf(KeyOrderStatus, orderID) }

func DedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
