// Package collector refreshes point-in-time metrics on the collection tick.
//
// Counters driven by events (probe wakeups, API calls) are updated where the
// event happens; collectors sample state that has to be polled: live timer
// handles, the kernel discipline and the Go runtime.
package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/maximewewer/timerfd-exporter/pkg/logger"
)

// Collector samples one source of state into metrics
type Collector interface {
	Collect(ctx context.Context) error
	Name() string
	Enabled() bool
}

// Registry runs collectors in registration order
type Registry struct {
	collectors []Collector
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends c; disabled collectors are kept but never run
func (r *Registry) Register(c Collector) {
	r.collectors = append(r.collectors, c)
}

// CollectAll runs every enabled collector. One failing collector does not
// stop the others; all failures are joined, each prefixed by its collector
// name. A cancelled ctx stops the pass before the next collector.
func (r *Registry) CollectAll(ctx context.Context) error {
	var errs []error

	for _, c := range r.collectors {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if !c.Enabled() {
			continue
		}

		if err := c.Collect(ctx); err != nil {
			logger.SafeWarn("collector", "Collection failed", map[string]interface{}{
				"collector": c.Name(),
				"error":     err.Error(),
			})
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// Names returns the names of the registered collectors, enabled first
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.collectors))
	for _, c := range r.collectors {
		if c.Enabled() {
			names = append(names, c.Name())
		}
	}
	for _, c := range r.collectors {
		if !c.Enabled() {
			names = append(names, c.Name())
		}
	}
	return names
}

// Count returns the number of registered collectors
func (r *Registry) Count() int {
	return len(r.collectors)
}

// EnabledCount returns the number of collectors CollectAll will run
func (r *Registry) EnabledCount() int {
	count := 0
	for _, c := range r.collectors {
		if c.Enabled() {
			count++
		}
	}
	return count
}
