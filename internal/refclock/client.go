// Package refclock samples CLOCK_REALTIME against an NTP reference and the
// kernel discipline state. Samples are taken when a probe observes a
// discontinuous realtime change, not on a schedule.
package refclock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beevik/ntp"
	"golang.org/x/time/rate"

	"github.com/maximewewer/timerfd-exporter/pkg/logger"
)

// ErrRateLimited is returned when a query arrives sooner than the minimum interval
var ErrRateLimited = errors.New("reference query rate limited")

// Querier queries a single NTP server
type Querier interface {
	Query(ctx context.Context, server string) (*Response, error)
}

// Response is the subset of an NTP reply the exporter reports
type Response struct {
	Server        string
	Offset        time.Duration
	RTT           time.Duration
	Stratum       uint8
	LeapIndicator uint8
	Time          time.Time
	KissCode      string
	ValidateError error
}

// IsKissOfDeath checks if the response contains a Kiss-of-Death code
func (r *Response) IsKissOfDeath() bool {
	return r.KissCode != ""
}

// IsValid checks if the response passed validation and carries no kiss code
func (r *Response) IsValid() bool {
	return r.ValidateError == nil && !r.IsKissOfDeath()
}

// Client queries NTP servers with a timeout, protocol version and an
// optional minimum spacing between queries.
type Client struct {
	timeout time.Duration
	version int
	limiter *rate.Limiter
}

// NewClient creates a client. A zero minInterval disables rate limiting.
func NewClient(timeout time.Duration, version int, minInterval time.Duration) *Client {
	var limiter *rate.Limiter
	if minInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}

	return &Client{
		timeout: timeout,
		version: version,
		limiter: limiter,
	}
}

// Query performs a single NTP query to server
func (c *Client) Query(ctx context.Context, server string) (*Response, error) {
	// Clock steps tend to arrive in bursts; drop rather than queue.
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	opts := ntp.QueryOptions{
		Timeout: c.timeout,
		Version: c.version,
	}

	type queryResult struct {
		response *ntp.Response
		err      error
	}

	// Buffered so the query goroutine never blocks after ctx is done
	resultChan := make(chan queryResult, 1)

	go func() {
		resp, err := ntp.QueryWithOptions(server, opts)
		resultChan <- queryResult{response: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("query context cancelled: %w", ctx.Err())
	case result := <-resultChan:
		if result.err != nil {
			logger.SafeDebug("refclock", "NTP query failed", map[string]interface{}{
				"server": server,
				"error":  result.err.Error(),
			})
			return nil, fmt.Errorf("ntp query to %s failed: %w", server, result.err)
		}

		resp := &Response{
			Server:        server,
			Offset:        result.response.ClockOffset,
			RTT:           result.response.RTT,
			Stratum:       result.response.Stratum,
			LeapIndicator: uint8(result.response.Leap),
			Time:          result.response.Time,
			KissCode:      result.response.KissCode,
			ValidateError: result.response.Validate(),
		}

		if resp.ValidateError != nil {
			logger.SafeWarn("refclock", "NTP response validation failed", map[string]interface{}{
				"server": server,
				"error":  resp.ValidateError.Error(),
			})
		}

		logger.SafeDebug("refclock", "NTP query successful", map[string]interface{}{
			"server":  server,
			"offset":  resp.Offset.Seconds(),
			"rtt":     resp.RTT.Seconds(),
			"stratum": resp.Stratum,
		})

		return resp, nil
	}
}
