// Package notify sends order confirmations for order.created events.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-marketplace.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace.git/internal/orders"
	"github.com/ariefcatur/go-marketplace.git/internal/redisx"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

type UserDirectory interface {
	Get(ctx context.Context, id int64) (*users.User, error)
}

type Service struct {
	Redis  *redis.Client
	Users  UserDirectory
	Mailer Mailer
	From   string
	// Name scopes the dedup keys.
	Name string
}

// HandleOrderCreated is the consumer handler for order.created. Each event
// id is mailed at most once; a failed send releases the claim so the
// redelivered message can try again.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		slog.WarnContext(ctx, "skip undecodable event", "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}
	log := slog.With("event_id", env.EventID, "order_id", env.CorrelationID, "trace_id", env.TraceID)

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		log.WarnContext(ctx, "skip bad payload", "error", err)
		return nil
	}

	key := redisx.DedupKey(s.Name, env.EventID)
	first, err := redisx.Claim(ctx, s.Redis, key, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup claim: %w", err)
	}
	if !first {
		log.DebugContext(ctx, "duplicate event")
		return nil
	}

	if err := s.send(ctx, p); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			log.WarnContext(ctx, "no recipient for order", "user_id", p.UserID)
			return nil
		}
		// free the claim so the consumer's retry, or a redelivery, sends again
		if derr := s.Redis.Del(ctx, key).Err(); derr != nil {
			log.ErrorContext(ctx, "release dedup claim", "error", derr)
		}
		return err
	}
	log.InfoContext(ctx, "order confirmation sent", "user_id", p.UserID)
	return nil
}

func (s *Service) send(ctx context.Context, p orders.OrderCreatedPayload) error {
	u, err := s.Users.Get(ctx, p.UserID)
	if err != nil {
		return err
	}
	err = s.Mailer.Send(ctx, Message{
		From:    s.From,
		To:      u.Email,
		Subject: ConfirmationSubject,
		Body:    RenderConfirmation(p),
	})
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}
