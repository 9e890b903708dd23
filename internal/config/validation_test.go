package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidateServer_Port(t *testing.T) {
	tests := []struct {
		name string
		port int
		want bool
	}{
		{"minimum_port", 1, true},
		{"standard_port", 9569, true},
		{"maximum_port", 65535, true},
		{"zero_port", 0, false},
		{"negative_port", -1, false},
		{"too_high_port", 65536, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServer(&ServerConfig{
				Port:         tt.port,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			})

			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, "port")
			}
		})
	}
}

func TestValidateServer_TLS(t *testing.T) {
	cfg := &ServerConfig{Port: 9569, ReadTimeout: time.Second, WriteTimeout: time.Second, TLSEnabled: true}
	assert.ErrorContains(t, validateServer(cfg), "tls_cert_file")

	cfg.TLSCertFile = "cert.pem"
	assert.ErrorContains(t, validateServer(cfg), "tls_key_file")

	cfg.TLSKeyFile = "key.pem"
	assert.NoError(t, validateServer(cfg))
}

func TestValidateProbe(t *testing.T) {
	valid := func() *ProbeConfig {
		return &ProbeConfig{
			Enabled:         true,
			Clocks:          []string{"monotonic"},
			Interval:        100 * time.Millisecond,
			CollectInterval: 5 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ProbeConfig)
		wantErr string
	}{
		{"valid", func(*ProbeConfig) {}, ""},
		{"disabled_skips_checks", func(c *ProbeConfig) { c.Enabled = false; c.Clocks = nil }, ""},
		{"no_clocks", func(c *ProbeConfig) { c.Clocks = nil }, "at least one clock"},
		{"unknown_clock", func(c *ProbeConfig) { c.Clocks = []string{"tai"} }, "unknown clock"},
		{"duplicate_clock", func(c *ProbeConfig) { c.Clocks = []string{"monotonic", "CLOCK_MONOTONIC"} }, "duplicate"},
		{"interval_too_short", func(c *ProbeConfig) { c.Interval = time.Microsecond }, "probe.interval"},
		{"interval_too_long", func(c *ProbeConfig) { c.Interval = 2 * time.Minute }, "probe.interval"},
		{"collect_too_short", func(c *ProbeConfig) { c.CollectInterval = time.Millisecond }, "collect_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateProbe(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAPI(t *testing.T) {
	assert.NoError(t, validateAPI(&APIConfig{Enabled: false}))
	assert.ErrorContains(t, validateAPI(&APIConfig{Enabled: true, MaxTimers: 0}), "max_timers")
	assert.ErrorContains(t, validateAPI(&APIConfig{Enabled: true, MaxTimers: 5000}), "max_timers")
	assert.ErrorContains(t, validateAPI(&APIConfig{
		Enabled:   true,
		MaxTimers: 4,
		RateLimit: RateLimitConfig{Enabled: true, Rate: 0, Burst: 1},
	}), "rate")
	assert.ErrorContains(t, validateAPI(&APIConfig{
		Enabled:   true,
		MaxTimers: 4,
		RateLimit: RateLimitConfig{Enabled: true, Rate: 1, Burst: 0},
	}), "burst")
}

func TestValidateReference(t *testing.T) {
	valid := ReferenceConfig{
		Enabled:        true,
		Server:         "pool.ntp.org",
		Timeout:        5 * time.Second,
		Version:        4,
		CircuitBreaker: CircuitBreakerConfig{FailureThreshold: 0.5},
	}
	assert.NoError(t, validateReference(&valid))
	assert.NoError(t, validateReference(&ReferenceConfig{Enabled: false}))

	noServer := valid
	noServer.Server = ""
	assert.ErrorContains(t, validateReference(&noServer), "server")

	badVersion := valid
	badVersion.Version = 5
	assert.ErrorContains(t, validateReference(&badVersion), "version")

	badTimeout := valid
	badTimeout.Timeout = 0
	assert.ErrorContains(t, validateReference(&badTimeout), "timeout")

	badThreshold := valid
	badThreshold.CircuitBreaker.FailureThreshold = 1.5
	assert.ErrorContains(t, validateReference(&badThreshold), "failure_threshold")
}

func TestValidateLogging(t *testing.T) {
	assert.NoError(t, validateLogging(&LoggingConfig{Level: "info", Format: "json"}))
	assert.ErrorContains(t, validateLogging(&LoggingConfig{Level: "loud", Format: "json"}), "log level")
	assert.ErrorContains(t, validateLogging(&LoggingConfig{Level: "info", Format: "xml"}), "log format")
	assert.ErrorContains(t, validateLogging(&LoggingConfig{Level: "info", Format: "json", EnableFile: true}), "file_path")
}

func TestValidate_MetricsNamespace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Namespace = ""
	assert.ErrorContains(t, Validate(cfg), "namespace")
}
