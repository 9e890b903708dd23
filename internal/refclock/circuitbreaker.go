package refclock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/maximewewer/timerfd-exporter/pkg/logger"
)

// CircuitBreakerClient wraps a Querier with a circuit breaker per server.
type CircuitBreakerClient struct {
	querier  Querier
	breakers map[string]*gobreaker.CircuitBreaker
	mu       sync.RWMutex
	config   CircuitBreakerConfig
}

// CircuitBreakerConfig holds configuration for circuit breakers.
type CircuitBreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts are cleared.
	Interval time.Duration

	// Timeout is the period of the open state before moving to half-open.
	Timeout time.Duration

	// ReadyToTrip decides, after a failure, whether the breaker opens.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called after every state transition.
	OnStateChange func(server string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the default breaker settings.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return NewCircuitBreakerConfigWithThreshold(3, 60*time.Second, 30*time.Second, 0.6)
}

// NewCircuitBreakerConfigWithThreshold creates a config that trips once at
// least three requests were seen and the failure ratio reaches threshold.
func NewCircuitBreakerConfigWithThreshold(maxRequests uint32, interval, timeout time.Duration, failureThreshold float64) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= failureThreshold
		},
	}
}

// NewCircuitBreakerClient creates a circuit breaker protected querier.
func NewCircuitBreakerClient(querier Querier, config CircuitBreakerConfig) *CircuitBreakerClient {
	if config.MaxRequests == 0 {
		hook := config.OnStateChange
		config = DefaultCircuitBreakerConfig()
		config.OnStateChange = hook
	}

	return &CircuitBreakerClient{
		querier:  querier,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		config:   config,
	}
}

func (cb *CircuitBreakerClient) getBreakerForServer(server string) *gobreaker.CircuitBreaker {
	cb.mu.RLock()
	breaker, exists := cb.breakers[server]
	cb.mu.RUnlock()

	if exists {
		return breaker
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if breaker, exists := cb.breakers[server]; exists {
		return breaker
	}

	hook := cb.config.OnStateChange
	breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        server,
		MaxRequests: cb.config.MaxRequests,
		Interval:    cb.config.Interval,
		Timeout:     cb.config.Timeout,
		ReadyToTrip: cb.config.ReadyToTrip,
		// Rate limiting is local back-pressure, not a server failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRateLimited)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.SafeWarn("refclock", "Circuit breaker state changed", map[string]interface{}{
				"server": name,
				"from":   from.String(),
				"to":     to.String(),
			})
			if hook != nil {
				hook(name, from, to)
			}
		},
	})

	cb.breakers[server] = breaker
	return breaker
}

// Query performs a single NTP query with circuit breaker protection.
func (cb *CircuitBreakerClient) Query(ctx context.Context, server string) (*Response, error) {
	breaker := cb.getBreakerForServer(server)

	result, err := breaker.Execute(func() (interface{}, error) {
		return cb.querier.Query(ctx, server)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("circuit breaker open for %s: %w", server, err)
		}
		return nil, err
	}

	return result.(*Response), nil
}

// GetState returns the current state of the circuit breaker for a server.
func (cb *CircuitBreakerClient) GetState(server string) gobreaker.State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	breaker, exists := cb.breakers[server]
	if !exists {
		return gobreaker.StateClosed
	}

	return breaker.State()
}
