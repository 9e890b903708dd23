package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry manages Prometheus metric registration
type Registry struct {
	registry     *prometheus.Registry
	timerMetrics *TimerMetrics
}

// NewRegistry creates a new metrics registry with the default "timerfd" namespace
func NewRegistry() *Registry {
	return NewRegistryWithConfig("timerfd", "")
}

// NewRegistryWithConfig creates a new metrics registry with custom namespace and subsystem
func NewRegistryWithConfig(namespace, subsystem string) *Registry {
	return &Registry{
		registry:     prometheus.NewRegistry(),
		timerMetrics: NewTimerMetricsWithConfig(namespace, subsystem),
	}
}

// Register registers the exporter metrics plus Go runtime and process collectors
func (r *Registry) Register() error {
	if err := r.registry.Register(r.timerMetrics); err != nil {
		return err
	}

	r.registry.MustRegister(collectors.NewGoCollector())
	r.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return nil
}

// GetRegistry returns the underlying Prometheus registry
func (r *Registry) GetRegistry() *prometheus.Registry {
	return r.registry
}

// GetMetrics returns the exporter metrics instance
func (r *Registry) GetMetrics() *TimerMetrics {
	return r.timerMetrics
}

// MustRegister registers all metrics and panics on error
func (r *Registry) MustRegister() {
	if err := r.Register(); err != nil {
		panic(err)
	}
}
