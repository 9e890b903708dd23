package collector

import (
	"context"
	"time"
)

// HandleCounter reports how many handles a binding table owns
type HandleCounter interface {
	Len() int
}

// BindingCollector exports the number of timer handles open through the API
type BindingCollector struct {
	*CommonCollector
	table HandleCounter
}

// NewBindingCollector creates a binding table collector
func NewBindingCollector(table HandleCounter, c *CommonCollector) *BindingCollector {
	return &BindingCollector{
		CommonCollector: c,
		table:           table,
	}
}

// Collect samples the table size
func (c *BindingCollector) Collect(_ context.Context) error {
	start := time.Now()
	defer c.observeDuration(start)

	c.GetMetrics().APITimersOpen.Set(float64(c.table.Len()))
	return nil
}
