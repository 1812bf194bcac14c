package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := DefaultConfig("kafka")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour
	cb := New[int](cfg, zap.New(core))

	boom := errors.New("broker unavailable")
	calls := 0
	fail := func() (int, error) {
		calls++
		return 0, boom
	}

	_, err := cb.Execute(fail)
	assert.ErrorIs(t, err, boom)
	_, err = cb.Execute(fail)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err = cb.Execute(fail)
	assert.True(t, IsOpen(err))
	assert.Equal(t, 2, calls)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "circuit breaker state changed", logs.All()[0].Message)
}

func TestBreaker_SuccessPassesThrough(t *testing.T) {
	cb := New[string](DefaultConfig("ok"), nil)
	v, err := cb.Execute(func() (string, error) { return "done", nil })
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.False(t, IsOpen(errors.New("other")))
}
