package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues messages in memory and writes them from one goroutine.
// Publish never waits on the broker; delivery errors are logged.
type Producer struct {
	w       messageWriter
	mu      sync.RWMutex
	closed  bool
	once    sync.Once
	inbox   chan kafka.Message
	closeCh chan struct{}
}

// NewProducer builds a producer for any topic; each message names its own.
func NewProducer(brokers []string, buf int) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range msgs {
				slog.Error("kafka delivery failed", "topic", m.Topic, "key", string(m.Key), "error", err)
			}
		},
	}, buf)
}

func newProducer(w messageWriter, buf int) *Producer {
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop. Cancelling ctx closes the producer; queued
// messages are still flushed.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		p.Close()
	}()
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				slog.Error("kafka write", "topic", m.Topic, "key", string(m.Key), "error", err)
			}
		}
		if err := p.w.Close(); err != nil {
			slog.Error("kafka writer close", "error", err)
		}
	}()
}

func (p *Producer) Publish(topic string, key, value []byte, headers ...kafka.Header) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		slog.Warn("kafka producer closed, message dropped", "topic", topic, "key", string(key))
		return
	}
	p.inbox <- kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close stops accepting messages. Safe to call more than once.
func (p *Producer) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
	})
}

// WaitClosed blocks until queued messages are flushed and the writer closed.
func (p *Producer) WaitClosed() { <-p.closeCh }
