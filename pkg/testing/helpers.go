// Package testutil holds helpers shared by the exporter's tests
package testutil

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

var (
	validMetricName = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	validLabelName  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// MetricValue returns the value of a single counter, gauge or untyped metric.
// Histograms report their sample count.
func MetricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()

	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return valueOf(&out)
}

func valueOf(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.GetCounter().GetValue()
	case m.Gauge != nil:
		return m.GetGauge().GetValue()
	case m.Histogram != nil:
		return float64(m.GetHistogram().GetSampleCount())
	case m.Untyped != nil:
		return m.GetUntyped().GetValue()
	default:
		return 0
	}
}

// FindMetric gathers registry and returns the series of metricName with exactly labels
func FindMetric(t *testing.T, registry prometheus.Gatherer, metricName string, labels map[string]string) (*dto.Metric, bool) {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != metricName {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m.GetLabel(), labels) {
				return m, true
			}
		}
	}
	return nil, false
}

// AssertMetricValue validates a Prometheus metric value
func AssertMetricValue(t *testing.T, registry prometheus.Gatherer, metricName string, labels map[string]string, expected float64) {
	t.Helper()

	m, ok := FindMetric(t, registry, metricName, labels)
	if !ok {
		t.Errorf("Metric %s with labels %v not found", metricName, labels)
		return
	}
	if got := valueOf(m); got != expected {
		t.Errorf("Metric %s with labels %v: expected %f, got %f", metricName, labels, expected, got)
	}
}

// AssertMetricExists checks if a metric exists with given labels
func AssertMetricExists(t *testing.T, registry prometheus.Gatherer, metricName string, labels map[string]string) {
	t.Helper()

	if _, ok := FindMetric(t, registry, metricName, labels); !ok {
		t.Errorf("Metric %s with labels %v not found", metricName, labels)
	}
}

// labelsMatch checks if metric labels match expected labels
func labelsMatch(metricLabels []*dto.LabelPair, expected map[string]string) bool {
	if len(metricLabels) != len(expected) {
		return false
	}

	for _, label := range metricLabels {
		expectedValue, exists := expected[label.GetName()]
		if !exists || expectedValue != label.GetValue() {
			return false
		}
	}

	return true
}

// WaitForCondition polls condition every 5ms until it holds or timeout expires
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for condition: %s", message)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// NewTestHTTPServer creates a test HTTP server closed at test cleanup
func NewTestHTTPServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

// CountGoroutines returns the current number of goroutines
func CountGoroutines() int {
	return runtime.NumGoroutine()
}

// ValidatePrometheusMetricName validates that a metric name follows Prometheus conventions
func ValidatePrometheusMetricName(t *testing.T, name string) {
	t.Helper()

	if !validMetricName.MatchString(name) {
		t.Errorf("Invalid metric name: %s (must match [a-zA-Z_:][a-zA-Z0-9_:]*)", name)
	}

	if !strings.HasPrefix(name, "timerfd_") {
		t.Errorf("Metric name %s should have the timerfd_ prefix", name)
	}
}

// ValidatePrometheusLabelName validates that a label name follows Prometheus conventions
func ValidatePrometheusLabelName(t *testing.T, name string) {
	t.Helper()

	if !validLabelName.MatchString(name) {
		t.Errorf("Invalid label name: %s (must match [a-zA-Z_][a-zA-Z0-9_]*)", name)
	}

	switch name {
	case "__name__", "job", "instance":
		t.Errorf("Label name %s is reserved", name)
	}
}
