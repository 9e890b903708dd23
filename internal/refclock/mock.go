package refclock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockQuerier is a Querier with canned responses, for tests
type MockQuerier struct {
	mu         sync.RWMutex
	responses  map[string]*Response
	errors     map[string]error
	delays     map[string]time.Duration
	callCounts map[string]int
}

// NewMockQuerier creates an empty mock
func NewMockQuerier() *MockQuerier {
	return &MockQuerier{
		responses:  make(map[string]*Response),
		errors:     make(map[string]error),
		delays:     make(map[string]time.Duration),
		callCounts: make(map[string]int),
	}
}

// Query returns the configured response or error for server
func (m *MockQuerier) Query(ctx context.Context, server string) (*Response, error) {
	m.mu.Lock()
	m.callCounts[server]++
	delay := m.delays[server]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.errors[server]; ok {
		return nil, err
	}
	if resp, ok := m.responses[server]; ok {
		return resp, nil
	}
	return nil, errors.New("server not configured in mock")
}

// SetupSuccessfulServer configures server to answer with offset
func (m *MockQuerier) SetupSuccessfulServer(server string, offset time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.errors, server)
	m.responses[server] = &Response{
		Server:  server,
		Offset:  offset,
		RTT:     20 * time.Millisecond,
		Stratum: 2,
		Time:    time.Now(),
	}
}

// SetResponse makes server answer with resp
func (m *MockQuerier) SetResponse(server string, resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.errors, server)
	m.responses[server] = resp
}

// SetError makes every query to server fail with err
func (m *MockQuerier) SetError(server string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errors[server] = err
}

// SetDelay delays every answer from server
func (m *MockQuerier) SetDelay(server string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.delays[server] = delay
}

// GetCallCount returns the number of times server was queried
func (m *MockQuerier) GetCallCount(server string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.callCounts[server]
}
