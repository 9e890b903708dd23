package collector

import (
	"context"
	"runtime"
	"time"
)

// RuntimeCollector exports the exporter's own heap and goroutine counts
type RuntimeCollector struct {
	*CommonCollector
}

// NewRuntimeCollector creates a runtime collector
func NewRuntimeCollector(c *CommonCollector) *RuntimeCollector {
	return &RuntimeCollector{CommonCollector: c}
}

// Collect samples runtime statistics
func (c *RuntimeCollector) Collect(_ context.Context) error {
	start := time.Now()
	defer c.observeDuration(start)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := c.GetMetrics()
	m.ExporterMemoryUsageBytes.Set(float64(ms.Alloc))
	m.ExporterGoroutinesCount.Set(float64(runtime.NumGoroutine()))
	return nil
}
