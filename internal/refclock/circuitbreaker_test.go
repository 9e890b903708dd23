package refclock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_PassesThrough(t *testing.T) {
	mock := NewMockQuerier()
	mock.SetupSuccessfulServer("ntp.test", 3*time.Millisecond)
	cb := NewCircuitBreakerClient(mock, DefaultCircuitBreakerConfig())

	resp, err := cb.Query(context.Background(), "ntp.test")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Millisecond, resp.Offset)
	assert.Equal(t, gobreaker.StateClosed, cb.GetState("ntp.test"))
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	mock := NewMockQuerier()
	mock.SetError("ntp.down", errors.New("i/o timeout"))

	var mu sync.Mutex
	var transitions []gobreaker.State
	cfg := NewCircuitBreakerConfigWithThreshold(1, time.Minute, time.Minute, 0.5)
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, to)
	}
	cb := NewCircuitBreakerClient(mock, cfg)

	for i := 0; i < 3; i++ {
		_, err := cb.Query(context.Background(), "ntp.down")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.GetState("ntp.down"))

	_, err := cb.Query(context.Background(), "ntp.down")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, mock.GetCallCount("ntp.down"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}

func TestCircuitBreaker_RateLimitIsNotFailure(t *testing.T) {
	mock := NewMockQuerier()
	mock.SetError("ntp.busy", ErrRateLimited)
	cb := NewCircuitBreakerClient(mock, NewCircuitBreakerConfigWithThreshold(1, time.Minute, time.Minute, 0.5))

	for i := 0; i < 5; i++ {
		_, err := cb.Query(context.Background(), "ntp.busy")
		assert.ErrorIs(t, err, ErrRateLimited)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.GetState("ntp.busy"))
}

func TestCircuitBreaker_ZeroConfigUsesDefaults(t *testing.T) {
	called := false
	cb := NewCircuitBreakerClient(NewMockQuerier(), CircuitBreakerConfig{
		OnStateChange: func(string, gobreaker.State, gobreaker.State) { called = true },
	})

	assert.Equal(t, uint32(3), cb.config.MaxRequests)
	assert.Equal(t, 30*time.Second, cb.config.Timeout)
	require.NotNil(t, cb.config.OnStateChange)
	cb.config.OnStateChange("x", gobreaker.StateClosed, gobreaker.StateOpen)
	assert.True(t, called)
}

func TestCircuitBreaker_UnknownServerIsClosed(t *testing.T) {
	cb := NewCircuitBreakerClient(NewMockQuerier(), DefaultCircuitBreakerConfig())
	assert.Equal(t, gobreaker.StateClosed, cb.GetState("never.queried"))
}
