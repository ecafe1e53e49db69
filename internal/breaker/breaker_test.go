package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

func TestBreaker_WrapsFailuresAndTrips(t *testing.T) {
	b := New[int]("test", Settings{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	boom := errors.New("boom")
	calls := 0
	fail := func() (int, error) { calls++; return 0, boom }

	_, err := b.Do(fail)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, boom)

	_, err = b.Do(fail)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	// open breaker refuses without calling through
	_, err = b.Do(fail)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
}

func TestBreaker_ExpectedErrorsPassThrough(t *testing.T) {
	b := New[string]("test", Settings{
		ConsecutiveFailures: 1,
		Expected:            func(err error) bool { return errors.Is(err, errNotFound) },
	})

	for i := 0; i < 3; i++ {
		_, err := b.Do(func() (string, error) { return "", errNotFound })
		assert.ErrorIs(t, err, errNotFound)
		assert.NotErrorIs(t, err, ErrUpstream)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())

	v, err := b.Do(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
