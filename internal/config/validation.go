package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/maximewewer/timerfd-exporter/pkg/timerfd"
)

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if err := validateProbe(&cfg.Probe); err != nil {
		return err
	}

	if err := validateAPI(&cfg.API); err != nil {
		return err
	}

	if err := validateReference(&cfg.Reference); err != nil {
		return err
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	if cfg.Metrics.Namespace == "" {
		return errors.New("metrics namespace is required")
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.New("port must be between 1 and 65535, got " + strconv.Itoa(cfg.Port))
	}

	if cfg.ReadTimeout < 1*time.Second || cfg.ReadTimeout > 60*time.Second {
		return errors.New("read_timeout must be between 1s and 60s")
	}

	if cfg.WriteTimeout < 1*time.Second || cfg.WriteTimeout > 60*time.Second {
		return errors.New("write_timeout must be between 1s and 60s")
	}

	if cfg.TLSEnabled {
		if cfg.TLSCertFile == "" {
			return errors.New("tls_cert_file is required when tls_enabled is true")
		}
		if cfg.TLSKeyFile == "" {
			return errors.New("tls_key_file is required when tls_enabled is true")
		}
	}

	return nil
}

func validateProbe(cfg *ProbeConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if len(cfg.Clocks) == 0 {
		return errors.New("probe.clocks must list at least one clock")
	}

	seen := make(map[timerfd.ClockSource]bool, len(cfg.Clocks))
	for i, name := range cfg.Clocks {
		clock, err := timerfd.ParseClockSource(name)
		if err != nil {
			return fmt.Errorf("probe.clocks[%d]: %w", i, err)
		}
		if seen[clock] {
			return fmt.Errorf("probe.clocks[%d]: duplicate clock %s", i, clock)
		}
		seen[clock] = true
	}

	if cfg.Interval < time.Millisecond || cfg.Interval > time.Minute {
		return errors.New("probe.interval must be between 1ms and 1m")
	}

	if cfg.CollectInterval < time.Second || cfg.CollectInterval > 10*time.Minute {
		return errors.New("probe.collect_interval must be between 1s and 10m")
	}

	return nil
}

func validateAPI(cfg *APIConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.MaxTimers < 1 || cfg.MaxTimers > 4096 {
		return errors.New("api.max_timers must be between 1 and 4096, got " + strconv.Itoa(cfg.MaxTimers))
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Rate <= 0 {
			return errors.New("api.rate_limit.rate must be positive")
		}
		if cfg.RateLimit.Burst < 1 {
			return errors.New("api.rate_limit.burst must be at least 1")
		}
	}

	return nil
}

func validateReference(cfg *ReferenceConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Server == "" {
		return errors.New("reference.server is required when the reference is enabled")
	}

	if cfg.Timeout < 1*time.Second || cfg.Timeout > 60*time.Second {
		return errors.New("reference.timeout must be between 1s and 60s")
	}

	if cfg.Version < 2 || cfg.Version > 4 {
		return errors.New("reference.version must be 2, 3, or 4, got " + strconv.Itoa(cfg.Version))
	}

	if cfg.MinInterval < 0 {
		return errors.New("reference.min_interval must not be negative")
	}

	if cfg.CircuitBreaker.FailureThreshold <= 0 || cfg.CircuitBreaker.FailureThreshold > 1 {
		return errors.New("reference.circuit_breaker.failure_threshold must be in (0, 1]")
	}

	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLevels[cfg.Level] {
		return errors.New("invalid log level (must be trace, debug, info, warn, error, fatal, or panic)")
	}

	if cfg.Format != "json" && cfg.Format != "console" {
		return errors.New("invalid log format (must be json or console)")
	}

	if cfg.EnableFile && cfg.FilePath == "" {
		return errors.New("file_path is required when enable_file is true")
	}

	return nil
}
