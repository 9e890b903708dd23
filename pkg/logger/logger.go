package logger

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Global logger instance
	Logger zerolog.Logger

	// Pre-compiled patterns for sensitive data detection
	secretKeyPattern  = regexp.MustCompile(`(?i)(password|passwd|pwd|secret|token|api[_-]?key|auth)`)
	credentialPattern = regexp.MustCompile(`(?i)://([^:/@]+):([^@]+)@`)
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, file
	FilePath   string // path to log file if output=file
	Component  string // component name for structured logging
	EnableFile bool   // enable file output
}

// InitLogger initializes the global logger with the provided configuration
func InitLogger(cfg Config) error {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	writer, err := openOutput(cfg)
	if err != nil {
		return err
	}

	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339Nano,
		}
	}

	Logger = zerolog.New(writer).With().Timestamp().Str("component", cfg.Component).Logger()
	log.Logger = Logger

	return nil
}

func openOutput(cfg Config) (io.Writer, error) {
	switch cfg.Output {
	case "stderr":
		return os.Stderr, nil
	case "file":
		if !cfg.EnableFile || cfg.FilePath == "" {
			return os.Stdout, nil
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, err
		}
		return file, nil
	default:
		return os.Stdout, nil
	}
}

// parseLevel converts string level to zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// sanitizeFields returns a copy of fields with sensitive values redacted
func sanitizeFields(fields map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		if secretKeyPattern.MatchString(key) {
			result[key] = "***REDACTED***"
			continue
		}

		if s, ok := value.(string); ok {
			result[key] = sanitizeString(s)
		} else {
			result[key] = value
		}
	}
	return result
}

// sanitizeString hides credentials embedded in URLs
func sanitizeString(s string) string {
	return credentialPattern.ReplaceAllString(s, "://$1:***@")
}

func withFields(event *zerolog.Event, fields map[string]interface{}) *zerolog.Event {
	for k, v := range sanitizeFields(fields) {
		event = event.Interface(k, v)
	}
	return event
}

// Debug logs a debug message
func Debug(pkg, message string) {
	Logger.Debug().Str("package", pkg).Msg(message)
}

// Debugf logs a formatted debug message
func Debugf(pkg, format string, args ...interface{}) {
	Logger.Debug().Str("package", pkg).Msgf(format, args...)
}

// Info logs an info message
func Info(pkg, message string) {
	Logger.Info().Str("package", pkg).Msg(message)
}

// Infof logs a formatted info message
func Infof(pkg, format string, args ...interface{}) {
	Logger.Info().Str("package", pkg).Msgf(format, args...)
}

// Warn logs a warning message
func Warn(pkg, message string) {
	Logger.Warn().Str("package", pkg).Msg(message)
}

// Warnf logs a formatted warning message
func Warnf(pkg, format string, args ...interface{}) {
	Logger.Warn().Str("package", pkg).Msgf(format, args...)
}

// Error logs an error message
func Error(pkg, message string, err error) {
	Logger.Error().Str("package", pkg).Err(err).Msg(message)
}

// Errorf logs a formatted error message
func Errorf(pkg string, err error, format string, args ...interface{}) {
	Logger.Error().Str("package", pkg).Err(err).Msgf(format, args...)
}

// Fatal logs a fatal message and exits
func Fatal(pkg, message string, err error) {
	Logger.Fatal().Str("package", pkg).Err(err).Msg(message)
}

// SafeDebug logs a debug message with sanitized fields
func SafeDebug(pkg, message string, fields map[string]interface{}) {
	withFields(Logger.Debug().Str("package", pkg), fields).Msg(message)
}

// SafeInfo logs an info message with sanitized fields
func SafeInfo(pkg, message string, fields map[string]interface{}) {
	withFields(Logger.Info().Str("package", pkg), fields).Msg(message)
}

// SafeWarn logs a warning message with sanitized fields
func SafeWarn(pkg, message string, fields map[string]interface{}) {
	withFields(Logger.Warn().Str("package", pkg), fields).Msg(message)
}

// SafeError logs an error message with sanitized fields
func SafeError(pkg, message string, err error, fields map[string]interface{}) {
	withFields(Logger.Error().Str("package", pkg).Err(err), fields).Msg(message)
}

// WithFields creates a logger with predefined fields
func WithFields(pkg string, fields map[string]interface{}) zerolog.Logger {
	ctx := Logger.With().Str("package", pkg)
	for k, v := range sanitizeFields(fields) {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}

// HTTP logs HTTP request information
func HTTP(method, path string, statusCode int, duration time.Duration, remoteAddr string) {
	Logger.Info().
		Str("package", "http").
		Str("method", method).
		Str("path", path).
		Int("status", statusCode).
		Dur("duration", duration).
		Str("remote_addr", sanitizeString(remoteAddr)).
		Msg("HTTP request")
}

// Timer logs a timer handle operation. Failed operations are logged at warn level.
func Timer(op, clock string, err error, fields map[string]interface{}) {
	event := Logger.Debug()
	if err != nil {
		event = Logger.Warn().Err(err)
	}
	event = event.
		Str("package", "timerfd").
		Str("operation", op).
		Str("clock", clock)

	withFields(event, fields).Msg("Timer operation")
}

// Wakeup logs one probe wakeup at trace level
func Wakeup(clock string, latency time.Duration, expirations uint64) {
	Logger.Trace().
		Str("package", "probe").
		Str("clock", clock).
		Dur("latency", latency).
		Uint64("expirations", expirations).
		Msg("Timer wakeup")
}

// ClockChange logs a discontinuous change of a settable clock
func ClockChange(clock string, fields map[string]interface{}) {
	event := Logger.Warn().
		Str("package", "probe").
		Str("event", "clock_set").
		Str("clock", clock)

	withFields(event, fields).Msg("Clock discontinuity detected")
}

// Startup logs application startup information
func Startup(version string, config interface{}) {
	Logger.Info().
		Str("package", "main").
		Str("version", version).
		Interface("config", config).
		Msg("timerfd exporter starting")
}

// Shutdown logs application shutdown
func Shutdown(reason string) {
	Logger.Info().
		Str("package", "main").
		Str("reason", reason).
		Msg("timerfd exporter shutting down")
}
