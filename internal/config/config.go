// Package config loads exporter configuration from YAML and the environment.
//
// Available functions:
//
//	LoadFromEnvVarsOnly()              - Environment variables only
//	LoadFromYamlFile(path)             - YAML file only (no env overrides)
//	LoadFromYamlWithEnvOverrides(path) - YAML base + environment overrides
//	                                     Priority: Env Vars > YAML > Defaults
//
// Environment variables supported:
//
//	SERVER:    TIMERFD_EXPORTER_ADDRESS, TIMERFD_EXPORTER_PORT,
//	           SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT,
//	           TLS_ENABLED, TLS_CERT_FILE, TLS_KEY_FILE,
//	           ENABLE_CORS, ALLOWED_ORIGINS (comma-separated)
//	PROBE:     PROBE_ENABLED, PROBE_CLOCKS (comma-separated), PROBE_INTERVAL,
//	           PROBE_CANCEL_ON_SET, PROBE_COLLECT_INTERVAL
//	API:       API_ENABLED, API_MAX_TIMERS, API_RATE_LIMIT_ENABLED,
//	           API_RATE_LIMIT_RATE, API_RATE_LIMIT_BURST
//	REFERENCE: REFERENCE_ENABLED, REFERENCE_SERVER, REFERENCE_TIMEOUT,
//	           REFERENCE_VERSION, REFERENCE_MIN_INTERVAL,
//	           CIRCUIT_BREAKER_MAX_REQUESTS, CIRCUIT_BREAKER_INTERVAL,
//	           CIRCUIT_BREAKER_TIMEOUT, CIRCUIT_BREAKER_FAILURE_THRESHOLD
//	LOGGING:   LOG_LEVEL, LOG_FORMAT, LOG_ENABLE_FILE, LOG_FILE_PATH
//	METRICS:   METRICS_NAMESPACE, METRICS_SUBSYSTEM
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/maximewewer/timerfd-exporter/pkg/logger"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Probe     ProbeConfig     `yaml:"probe"`
	API       APIConfig       `yaml:"api"`
	Reference ReferenceConfig `yaml:"reference"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Address        string        `yaml:"address"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	EnableCORS     bool          `yaml:"enable_cors"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	TLSEnabled     bool          `yaml:"tls_enabled"`
	TLSCertFile    string        `yaml:"tls_cert_file"`
	TLSKeyFile     string        `yaml:"tls_key_file"`
}

// ProbeConfig controls the wakeup-latency probes, one per clock
type ProbeConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Clocks          []string      `yaml:"clocks"`
	Interval        time.Duration `yaml:"interval"`
	CancelOnSet     bool          `yaml:"cancel_on_set"`
	CollectInterval time.Duration `yaml:"collect_interval"`
}

// APIConfig controls the HTTP timer API
type APIConfig struct {
	Enabled   bool            `yaml:"enabled"`
	MaxTimers int             `yaml:"max_timers"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig contains token bucket settings
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	Rate    float64 `yaml:"rate"`
	Burst   int     `yaml:"burst"`
}

// ReferenceConfig configures the NTP reference queried after realtime clock steps
type ReferenceConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	Server         string               `yaml:"server"`
	Timeout        time.Duration        `yaml:"timeout"`
	Version        int                  `yaml:"version"`
	MinInterval    time.Duration        `yaml:"min_interval"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig contains circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	EnableFile bool   `yaml:"enable_file"`
	FilePath   string `yaml:"file_path"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// LoadFromYamlFile reads configuration from a YAML file only (no env var overrides)
func LoadFromYamlFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("config", "Failed to read config file", err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Start from defaults so booleans left out of the file keep their default
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		logger.Error("config", "Failed to parse config file", err)
		return nil, fmt.Errorf("failed to parse YAML config file %s: %w", path, err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		logger.Error("config", "Invalid configuration", err)
		return nil, fmt.Errorf("configuration validation failed for %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromYamlWithEnvOverrides loads base config from YAML, then overrides with environment variables.
// Priority: Environment Variables > YAML File > Defaults
func LoadFromYamlWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadFromYamlFile(path)
	if err != nil {
		logger.Warn("config", "Failed to load YAML config file, falling back to env vars only")
		cfg = DefaultConfig()
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		logger.Error("config", "Invalid configuration after env overrides", err)
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromEnvVarsOnly loads configuration from environment variables only (no YAML file).
// Priority: Environment Variables > Defaults
func LoadFromEnvVarsOnly() (*Config, error) {
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		logger.Error("config", "Invalid configuration from environment", err)
		return nil, fmt.Errorf("environment configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to an existing config.
// Unparseable values are ignored and the previous value is kept.
func applyEnvOverrides(cfg *Config) {
	// Server
	envString("TIMERFD_EXPORTER_ADDRESS", &cfg.Server.Address)
	envInt("TIMERFD_EXPORTER_PORT", &cfg.Server.Port)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envBool("TLS_ENABLED", &cfg.Server.TLSEnabled)
	envString("TLS_CERT_FILE", &cfg.Server.TLSCertFile)
	envString("TLS_KEY_FILE", &cfg.Server.TLSKeyFile)
	envBool("ENABLE_CORS", &cfg.Server.EnableCORS)
	envList("ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)

	// Probe
	envBool("PROBE_ENABLED", &cfg.Probe.Enabled)
	envList("PROBE_CLOCKS", &cfg.Probe.Clocks)
	envDuration("PROBE_INTERVAL", &cfg.Probe.Interval)
	envBool("PROBE_CANCEL_ON_SET", &cfg.Probe.CancelOnSet)
	envDuration("PROBE_COLLECT_INTERVAL", &cfg.Probe.CollectInterval)

	// API
	envBool("API_ENABLED", &cfg.API.Enabled)
	envInt("API_MAX_TIMERS", &cfg.API.MaxTimers)
	envBool("API_RATE_LIMIT_ENABLED", &cfg.API.RateLimit.Enabled)
	envFloat("API_RATE_LIMIT_RATE", &cfg.API.RateLimit.Rate)
	envInt("API_RATE_LIMIT_BURST", &cfg.API.RateLimit.Burst)

	// Reference
	envBool("REFERENCE_ENABLED", &cfg.Reference.Enabled)
	envString("REFERENCE_SERVER", &cfg.Reference.Server)
	envDuration("REFERENCE_TIMEOUT", &cfg.Reference.Timeout)
	envInt("REFERENCE_VERSION", &cfg.Reference.Version)
	envDuration("REFERENCE_MIN_INTERVAL", &cfg.Reference.MinInterval)
	if v := os.Getenv("CIRCUIT_BREAKER_MAX_REQUESTS"); v != "" {
		if r, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Reference.CircuitBreaker.MaxRequests = uint32(r)
		}
	}
	envDuration("CIRCUIT_BREAKER_INTERVAL", &cfg.Reference.CircuitBreaker.Interval)
	envDuration("CIRCUIT_BREAKER_TIMEOUT", &cfg.Reference.CircuitBreaker.Timeout)
	envFloat("CIRCUIT_BREAKER_FAILURE_THRESHOLD", &cfg.Reference.CircuitBreaker.FailureThreshold)

	// Logging
	envString("LOG_LEVEL", &cfg.Logging.Level)
	envString("LOG_FORMAT", &cfg.Logging.Format)
	envBool("LOG_ENABLE_FILE", &cfg.Logging.EnableFile)
	envString("LOG_FILE_PATH", &cfg.Logging.FilePath)

	// Metrics
	envString("METRICS_NAMESPACE", &cfg.Metrics.Namespace)
	envString("METRICS_SUBSYSTEM", &cfg.Metrics.Subsystem)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envList(key string, dst *[]string) {
	if v := os.Getenv(key); v != "" {
		*dst = parseCommaSeparated(v)
	}
}

// parseCommaSeparated splits a comma-separated string, dropping empty items
func parseCommaSeparated(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
