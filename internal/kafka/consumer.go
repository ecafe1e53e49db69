package kafka

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler returns nil only when the message is fully processed and its
// offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultRetries = 3
	defaultBackoff = 500 * time.Millisecond
)

type Consumer struct {
	r       messageReader
	workers int
	retries int
	backoff time.Duration
	offsets *offsetTracker
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
	})
	return newConsumer(r, workers)
}

func newConsumer(r messageReader, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:       r,
		workers: workers,
		retries: defaultRetries,
		backoff: defaultBackoff,
		offsets: newOffsetTracker(),
	}
}

// Start fetches until ctx is cancelled. Messages with the same key always
// land on the same worker, so per-order ordering holds. A failing message
// is retried in its lane; if it still fails, its partition stops
// committing until the consumer restarts, so the message is redelivered.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				c.handle(ctx, h, m)
			}
		}(lanes[i])
	}
	defer func() {
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		c.offsets.track(m)
		select {
		case lanes[c.lane(m)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) {
	if err := c.process(ctx, h, m); err != nil {
		slog.ErrorContext(ctx, "handle message, holding partition commits",
			"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", err)
		return
	}
	err := c.offsets.ack(m, func(last kafka.Message) error {
		return c.r.CommitMessages(ctx, last)
	})
	if err != nil {
		slog.ErrorContext(ctx, "commit message",
			"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", err)
	}
}

func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) error {
	wait := c.backoff
	var err error
	for attempt := 0; ; attempt++ {
		if err = h(ctx, m); err == nil || attempt == c.retries {
			return err
		}
		slog.WarnContext(ctx, "retrying message",
			"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "attempt", attempt+1, "error", err)
		select {
		case <-time.After(wait):
			wait *= 2
		case <-ctx.Done():
			return err
		}
	}
}

func (c *Consumer) lane(m kafka.Message) int {
	if len(m.Key) == 0 {
		return m.Partition % c.workers
	}
	f := fnv.New32a()
	_, _ = f.Write(m.Key)
	return int(f.Sum32() % uint32(c.workers))
}
