package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maximewewer/timerfd-exporter/internal/config"
	"github.com/maximewewer/timerfd-exporter/pkg/logger"
	"github.com/maximewewer/timerfd-exporter/pkg/metrics"
)

// Middleware manages HTTP middleware
type Middleware struct {
	config  *config.Config
	metrics *metrics.TimerMetrics
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(cfg *config.Config, m *metrics.TimerMetrics) *Middleware {
	return &Middleware{
		config:  cfg,
		metrics: m,
	}
}

// Apply wraps next with recovery, metrics, logging and, when enabled, CORS
func (m *Middleware) Apply(next http.Handler) http.Handler {
	handler := next

	// Innermost first
	handler = m.recoveryMiddleware(handler)
	handler = m.metricsMiddleware(handler)
	handler = m.loggingMiddleware(handler)

	if m.config.Server.EnableCORS {
		handler = m.corsMiddleware(handler)
	}

	return handler
}

func (m *Middleware) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrapResponseWriter(w)

		next.ServeHTTP(rw, r)

		logger.HTTP(r.Method, r.URL.Path, rw.statusCode, time.Since(start), r.RemoteAddr)
	})
}

func (m *Middleware) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := wrapResponseWriter(w)

		next.ServeHTTP(rw, r)

		m.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rw.statusCode)).Inc()
	})
}

func (m *Middleware) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if m.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "3600")
		} else if origin != "" {
			logger.SafeWarn("security", "CORS request blocked", map[string]interface{}{
				"origin": origin,
				"path":   r.URL.Path,
			})
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin matches origin against the whitelist; "*.example.com"
// entries match any subdomain.
func (m *Middleware) isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range m.config.Server.AllowedOrigins {
		if allowed == origin {
			return true
		}

		if strings.HasPrefix(allowed, "*.") {
			domain := allowed[2:]
			if strings.HasSuffix(origin, "."+domain) || origin == "https://"+domain {
				return true
			}
		}
	}

	return false
}

func (m *Middleware) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.SafeError("server", "Panic recovered", nil, map[string]interface{}{
					"panic":  err,
					"method": r.Method,
					"path":   r.URL.Path,
				})

				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
