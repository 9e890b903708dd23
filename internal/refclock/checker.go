package refclock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sony/gobreaker"

	"github.com/maximewewer/timerfd-exporter/pkg/logger"
	"github.com/maximewewer/timerfd-exporter/pkg/metrics"
	"github.com/maximewewer/timerfd-exporter/pkg/timerfd"
)

// ErrInvalidResponse is returned when the reference replies with a kiss code,
// an unsynchronised stratum or a reply that fails validation
var ErrInvalidResponse = errors.New("invalid reference response")

// Checker samples the reference after realtime clock changes
type Checker struct {
	querier Querier
	server  string
	kernel  *KernelReader
	metrics *metrics.TimerMetrics

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inflight atomic.Bool
}

// NewChecker creates a checker. querier may be nil to sample only the kernel.
func NewChecker(querier Querier, server string, kernel *KernelReader, m *metrics.TimerMetrics) *Checker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Checker{
		querier: querier,
		server:  server,
		kernel:  kernel,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnClockChange schedules a sample when clock is a realtime clock. Changes
// arriving while a sample is running are coalesced into it.
func (c *Checker) OnClockChange(clock timerfd.ClockSource) {
	if !clock.IsRealtime() {
		return
	}
	if c.ctx.Err() != nil {
		return
	}
	if !c.inflight.CompareAndSwap(false, true) {
		logger.Debug("refclock", "Reference check already running, clock change coalesced")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inflight.Store(false)

		if err := c.Check(c.ctx); err != nil {
			logger.SafeDebug("refclock", "Reference check failed", map[string]interface{}{
				"clock": clock.String(),
				"error": err.Error(),
			})
		}
	}()
}

// Check samples the kernel state and, when configured, the NTP reference
func (c *Checker) Check(ctx context.Context) error {
	if c.kernel.Enabled() {
		if ks, err := c.kernel.Read(); err == nil {
			c.metrics.KernelSynchronized.Set(boolToFloat(ks.Synchronized))
			c.metrics.KernelMaxErrorSeconds.Set(ks.MaxError.Seconds())
		}
	}

	if c.querier == nil {
		return nil
	}

	resp, err := c.querier.Query(ctx, c.server)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrRateLimited) {
			result = "rate_limited"
		}
		c.metrics.ReferenceQueriesTotal.WithLabelValues(c.server, result).Inc()
		return err
	}

	if !resp.IsValid() {
		c.metrics.ReferenceQueriesTotal.WithLabelValues(c.server, "invalid").Inc()
		logger.SafeWarn("refclock", "Reference reply rejected", map[string]interface{}{
			"server":    c.server,
			"stratum":   resp.Stratum,
			"kiss_code": resp.KissCode,
		})
		return fmt.Errorf("%w from %s", ErrInvalidResponse, c.server)
	}

	c.metrics.ReferenceQueriesTotal.WithLabelValues(c.server, "success").Inc()
	c.metrics.ReferenceOffsetSeconds.WithLabelValues(c.server).Set(resp.Offset.Seconds())

	logger.SafeInfo("refclock", "Reference offset sampled", map[string]interface{}{
		"server":  c.server,
		"offset":  resp.Offset.Seconds(),
		"stratum": resp.Stratum,
	})
	return nil
}

// Close cancels any running sample and waits for it
func (c *Checker) Close() {
	c.cancel()
	c.wg.Wait()
}

// CircuitStateHook returns an OnStateChange hook that exports breaker state
func CircuitStateHook(m *metrics.TimerMetrics) func(server string, from, to gobreaker.State) {
	return func(server string, _, to gobreaker.State) {
		m.ReferenceCircuitState.WithLabelValues(server).Set(float64(to))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
