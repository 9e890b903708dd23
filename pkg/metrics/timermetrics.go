package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// TimerMetrics encapsulates all exporter metrics
type TimerMetrics struct {
	// Probe metrics, one series per clock
	ProbeUp                   *prometheus.GaugeVec
	ProbeWakeupLatencySeconds *prometheus.HistogramVec
	ProbeExpirationsTotal     *prometheus.CounterVec
	ProbeOverrunsTotal        *prometheus.CounterVec
	ProbeClockChangesTotal    *prometheus.CounterVec

	// Timer handle state, refreshed by the collector loop
	TimerRemainingSeconds *prometheus.GaugeVec
	TimerIntervalSeconds  *prometheus.GaugeVec
	TimerArmed            *prometheus.GaugeVec

	// Kernel call accounting
	TimerOperationsTotal      *prometheus.CounterVec
	TimerOperationErrorsTotal *prometheus.CounterVec

	// HTTP timer API
	APITimersOpen       prometheus.Gauge
	APIRateLimitedTotal prometheus.Counter
	APIRequestsTotal    *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec

	// NTP reference
	ReferenceOffsetSeconds *prometheus.GaugeVec
	ReferenceQueriesTotal  *prometheus.CounterVec
	ReferenceCircuitState  *prometheus.GaugeVec

	// Kernel NTP discipline state, sampled with the reference
	KernelSynchronized    prometheus.Gauge
	KernelMaxErrorSeconds prometheus.Gauge

	// Exporter operational metrics
	ExporterBuildInfo        *prometheus.GaugeVec
	ExporterMemoryUsageBytes prometheus.Gauge
	ExporterGoroutinesCount  prometheus.Gauge
	CollectorDurationSeconds *prometheus.HistogramVec
}

// NewTimerMetrics creates the metrics with the default "timerfd" namespace
func NewTimerMetrics() *TimerMetrics {
	return NewTimerMetricsWithConfig("timerfd", "")
}

// NewTimerMetricsWithConfig creates all exporter metrics under namespace and subsystem
func NewTimerMetricsWithConfig(namespace, subsystem string) *TimerMetrics {
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		}, labels)
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}

	return &TimerMetrics{
		ProbeUp: gaugeVec("probe_up",
			"Whether the wakeup probe for the clock is running (1) or not (0)", "clock"),
		ProbeWakeupLatencySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "probe_wakeup_latency_seconds",
				Help:      "Delay between a timer deadline and the probe observing the expiration",
				// 1us .. ~16ms
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"clock"},
		),
		ProbeExpirationsTotal: counterVec("probe_expirations_total",
			"Timer expirations consumed by the probe", "clock"),
		ProbeOverrunsTotal: counterVec("probe_overruns_total",
			"Expirations that elapsed before the probe could consume the previous one", "clock"),
		ProbeClockChangesTotal: counterVec("probe_clock_changes_total",
			"Discontinuous clock changes reported through TFD_TIMER_CANCEL_ON_SET", "clock"),

		TimerRemainingSeconds: gaugeVec("timer_remaining_seconds",
			"Time until the next expiration of the probe timer, 0 when disarmed", "clock"),
		TimerIntervalSeconds: gaugeVec("timer_interval_seconds",
			"Repeat interval of the probe timer", "clock"),
		TimerArmed: gaugeVec("timer_armed",
			"Whether the probe timer has a pending deadline (1) or not (0)", "clock"),

		TimerOperationsTotal: counterVec("timer_operations_total",
			"Timer kernel calls issued", "operation"),
		TimerOperationErrorsTotal: counterVec("timer_operation_errors_total",
			"Timer kernel calls that failed, by errno", "operation", "errno"),

		APITimersOpen: gauge("api_timers_open",
			"Timer handles currently owned by the HTTP API"),
		APIRateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_rate_limited_total",
			Help:      "API requests rejected by the rate limiter",
		}),
		APIRequestsTotal: counterVec("api_requests_total",
			"API requests by operation and outcome", "operation", "result"),
		HTTPRequestsTotal: counterVec("http_requests_total",
			"HTTP requests served, by method and status code", "method", "code"),

		ReferenceOffsetSeconds: gaugeVec("reference_offset_seconds",
			"Offset of CLOCK_REALTIME against the NTP reference, sampled after clock changes", "server"),
		ReferenceQueriesTotal: counterVec("reference_queries_total",
			"NTP reference queries by result", "server", "result"),
		ReferenceCircuitState: gaugeVec("reference_circuit_state",
			"Circuit breaker state for the reference (0 closed, 1 half-open, 2 open)", "server"),

		KernelSynchronized: gauge("kernel_synchronized",
			"Whether adjtimex reports CLOCK_REALTIME as synchronized (1) or not (0)"),
		KernelMaxErrorSeconds: gauge("kernel_max_error_seconds",
			"Maximum error of CLOCK_REALTIME reported by adjtimex"),

		ExporterBuildInfo: gaugeVec("exporter_build_info",
			"Build information of the exporter", "version", "goversion"),
		ExporterMemoryUsageBytes: gauge("exporter_memory_usage_bytes",
			"Heap bytes allocated by the exporter"),
		ExporterGoroutinesCount: gauge("exporter_goroutines",
			"Goroutines running in the exporter"),
		CollectorDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "collector_duration_seconds",
				Help:      "Time spent in each collector",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collector"},
		),
	}
}

// ObserveOperation records one timer kernel call and its failure, if any.
// errno is the raw error number, 0 on success.
func (m *TimerMetrics) ObserveOperation(op string, errno int) {
	m.TimerOperationsTotal.WithLabelValues(op).Inc()
	if errno != 0 {
		m.TimerOperationErrorsTotal.WithLabelValues(op, strconv.Itoa(errno)).Inc()
	}
}

func (m *TimerMetrics) getAllMetrics() []prometheus.Collector {
	return []prometheus.Collector{
		m.ProbeUp,
		m.ProbeWakeupLatencySeconds,
		m.ProbeExpirationsTotal,
		m.ProbeOverrunsTotal,
		m.ProbeClockChangesTotal,
		m.TimerRemainingSeconds,
		m.TimerIntervalSeconds,
		m.TimerArmed,
		m.TimerOperationsTotal,
		m.TimerOperationErrorsTotal,
		m.APITimersOpen,
		m.APIRateLimitedTotal,
		m.APIRequestsTotal,
		m.HTTPRequestsTotal,
		m.ReferenceOffsetSeconds,
		m.ReferenceQueriesTotal,
		m.ReferenceCircuitState,
		m.KernelSynchronized,
		m.KernelMaxErrorSeconds,
		m.ExporterBuildInfo,
		m.ExporterMemoryUsageBytes,
		m.ExporterGoroutinesCount,
		m.CollectorDurationSeconds,
	}
}

// Describe implements prometheus.Collector interface
func (m *TimerMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range m.getAllMetrics() {
		metric.Describe(ch)
	}
}

// Collect implements prometheus.Collector interface
func (m *TimerMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, metric := range m.getAllMetrics() {
		metric.Collect(ch)
	}
}
