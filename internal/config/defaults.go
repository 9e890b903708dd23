package config

import "time"

// ApplyDefaults sets default values for unspecified configuration fields
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9569
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{}
	}

	// Probe defaults: clocks every unprivileged process may use
	if len(cfg.Probe.Clocks) == 0 {
		cfg.Probe.Clocks = []string{"monotonic", "boottime", "realtime"}
	}
	if cfg.Probe.Interval == 0 {
		cfg.Probe.Interval = 100 * time.Millisecond
	}
	if cfg.Probe.CollectInterval == 0 {
		cfg.Probe.CollectInterval = 5 * time.Second
	}

	// API defaults
	if cfg.API.MaxTimers == 0 {
		cfg.API.MaxTimers = 64
	}
	if cfg.API.RateLimit.Rate == 0 {
		cfg.API.RateLimit.Rate = 50
	}
	if cfg.API.RateLimit.Burst == 0 {
		cfg.API.RateLimit.Burst = 10
	}

	// Reference defaults
	if cfg.Reference.Server == "" {
		cfg.Reference.Server = "pool.ntp.org"
	}
	if cfg.Reference.Timeout == 0 {
		cfg.Reference.Timeout = 5 * time.Second
	}
	if cfg.Reference.Version == 0 {
		cfg.Reference.Version = 4
	}
	if cfg.Reference.MinInterval == 0 {
		cfg.Reference.MinInterval = 10 * time.Second
	}
	if cfg.Reference.CircuitBreaker.MaxRequests == 0 {
		cfg.Reference.CircuitBreaker.MaxRequests = 3
	}
	if cfg.Reference.CircuitBreaker.Interval == 0 {
		cfg.Reference.CircuitBreaker.Interval = 60 * time.Second
	}
	if cfg.Reference.CircuitBreaker.Timeout == 0 {
		cfg.Reference.CircuitBreaker.Timeout = 30 * time.Second
	}
	if cfg.Reference.CircuitBreaker.FailureThreshold == 0 {
		cfg.Reference.CircuitBreaker.FailureThreshold = 0.6
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "timerfd"
	}
}

// DefaultConfig returns a configuration with all defaults applied.
// Probes, the API and CANCEL_ON_SET are on; the NTP reference is off.
func DefaultConfig() *Config {
	cfg := &Config{
		Probe: ProbeConfig{Enabled: true, CancelOnSet: true},
		API: APIConfig{
			Enabled:   true,
			RateLimit: RateLimitConfig{Enabled: true},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
