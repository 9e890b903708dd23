package collector

import (
	"time"

	"github.com/maximewewer/timerfd-exporter/pkg/metrics"
)

// CommonCollector provides shared functionality for all collectors
type CommonCollector struct {
	metrics *metrics.TimerMetrics
	enabled bool
	name    string
}

// NewCommonCollector creates a new common collector base
func NewCommonCollector(m *metrics.TimerMetrics, name string, enabled bool) *CommonCollector {
	return &CommonCollector{
		metrics: m,
		enabled: enabled,
		name:    name,
	}
}

// Name returns the collector name
func (c *CommonCollector) Name() string {
	return c.name
}

// Enabled returns whether the collector is enabled
func (c *CommonCollector) Enabled() bool {
	return c.enabled
}

// GetMetrics returns the exporter metrics
func (c *CommonCollector) GetMetrics() *metrics.TimerMetrics {
	return c.metrics
}

// observeDuration records the time since start under the collector name
func (c *CommonCollector) observeDuration(start time.Time) {
	c.metrics.CollectorDurationSeconds.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
}
