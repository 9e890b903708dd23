package collector

import (
	"context"
	"errors"
	"time"

	"github.com/maximewewer/timerfd-exporter/internal/probe"
	"github.com/maximewewer/timerfd-exporter/pkg/logger"
)

// ProbeSource lists the probes whose timers are sampled
type ProbeSource interface {
	Probes() []*probe.Probe
}

// TimerCollector exports the live state of every probe timer
type TimerCollector struct {
	*CommonCollector
	source ProbeSource
}

// NewTimerCollector creates a timer state collector
func NewTimerCollector(source ProbeSource, c *CommonCollector) *TimerCollector {
	return &TimerCollector{
		CommonCollector: c,
		source:          source,
	}
}

// Collect queries each probe timer
func (c *TimerCollector) Collect(ctx context.Context) error {
	start := time.Now()
	defer c.observeDuration(start)

	m := c.GetMetrics()
	var errs []error

	for _, p := range c.source.Probes() {
		if err := ctx.Err(); err != nil {
			return err
		}

		clock := p.Clock().String()
		spec, err := p.Query()
		if err != nil {
			logger.SafeWarn("collector", "Failed to query probe timer", map[string]interface{}{
				"clock": clock,
				"error": err.Error(),
			})
			errs = append(errs, err)
			continue
		}

		m.TimerRemainingSeconds.WithLabelValues(clock).Set(spec.Value.Seconds())
		m.TimerIntervalSeconds.WithLabelValues(clock).Set(spec.Interval.Seconds())
		armed := 0.0
		if spec.Armed() {
			armed = 1
		}
		m.TimerArmed.WithLabelValues(clock).Set(armed)

		up := 0.0
		if p.Running() {
			up = 1
		}
		m.ProbeUp.WithLabelValues(clock).Set(up)
	}

	return errors.Join(errs...)
}
