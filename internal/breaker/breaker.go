// Package breaker guards calls to collaborators with a circuit breaker so a
// failing dependency is reported quickly instead of stalling requests.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrUpstream marks a failure of the guarded collaborator, including calls
// refused while the breaker is open.
var ErrUpstream = errors.New("upstream failure")

type Settings struct {
	// ConsecutiveFailures trips the breaker. Defaults to 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open. Defaults to 10s.
	OpenTimeout time.Duration
	// Expected reports errors that belong to the caller's domain (not
	// found, declined) and must neither count as failures nor be wrapped.
	Expected func(error) bool
}

type Breaker[T any] struct {
	name     string
	cb       *gobreaker.CircuitBreaker[T]
	expected func(error) bool
}

func New[T any](name string, s Settings) *Breaker[T] {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 10 * time.Second
	}
	expected := s.Expected
	if expected == nil {
		expected = func(error) bool { return false }
	}
	trip := s.ConsecutiveFailures

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= trip
		},
		IsSuccessful: func(err error) bool {
			return err == nil || expected(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Breaker[T]{name: name, cb: cb, expected: expected}
}

// Do runs fn through the breaker. Expected errors and caller cancellation
// come back unchanged; every other failure, timeouts included, is wrapped
// with ErrUpstream.
func (b *Breaker[T]) Do(fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(fn)
	if err == nil || b.expected(err) || errors.Is(err, context.Canceled) {
		return v, err
	}
	return v, fmt.Errorf("%s: %w: %w", b.name, ErrUpstream, err)
}

func (b *Breaker[T]) State() gobreaker.State { return b.cb.State() }
