package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maximewewer/timerfd-exporter/internal/config"
	"github.com/maximewewer/timerfd-exporter/pkg/logger"
)

// Handlers contains HTTP request handlers
type Handlers struct {
	config   *config.Config
	registry *prometheus.Registry
	server   *Server
	metrics  http.Handler
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, registry *prometheus.Registry, s *Server) *Handlers {
	return &Handlers{
		config:   cfg,
		registry: registry,
		server:   s,
		metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			ErrorLog:      &loggerAdapter{},
			ErrorHandling: promhttp.ContinueOnError,
		}),
	}
}

// MetricsHandler serves Prometheus metrics
func (h *Handlers) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

type probeHealth struct {
	Clock   string `json:"clock"`
	Running bool   `json:"running"`
}

type healthResponse struct {
	Status        string        `json:"status"`
	Service       string        `json:"service"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Probes        []probeHealth `json:"probes,omitempty"`
}

// HealthHandler returns health status. A stopped probe degrades the service.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "healthy",
		Service:       "timerfd-exporter",
		UptimeSeconds: h.server.uptime().Seconds(),
	}

	if h.server.probes != nil {
		for _, p := range h.server.probes.Probes() {
			running := p.Running()
			resp.Probes = append(resp.Probes, probeHealth{Clock: p.Clock().String(), Running: running})
			if !running {
				resp.Status = "degraded"
			}
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>timerfd Exporter</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        h1 { color: #333; }
        ul { list-style-type: none; padding: 0; }
        li { margin: 10px 0; }
        a { color: #0066cc; text-decoration: none; }
        a:hover { text-decoration: underline; }
        .info { background-color: #f0f0f0; padding: 15px; border-radius: 5px; }
    </style>
</head>
<body>
    <h1>timerfd Prometheus Exporter</h1>
    <div class="info">
        <h2>Available Endpoints:</h2>
        <ul>
            <li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
            <li><a href="/health">/health</a> - Health check</li>
{{- if .API}}
            <li><a href="/api/v1/constants">/api/v1/constants</a> - Clock and flag constants</li>
            <li><a href="/api/v1/timers">/api/v1/timers</a> - Timer handles</li>
{{- end}}
        </ul>
        <h2>Configuration:</h2>
        <ul>
            <li>Probe clocks: {{.Clocks}}</li>
            <li>Probe interval: {{.Interval}}</li>
            <li>Timer API: {{if .API}}enabled, up to {{.MaxTimers}} handles{{else}}disabled{{end}}</li>
            <li>NTP reference: {{if .Reference}}{{.Reference}}{{else}}disabled{{end}}</li>
        </ul>
    </div>
</body>
</html>
`))

// IndexHandler serves the index page
func (h *Handlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := struct {
		Clocks    string
		Interval  string
		API       bool
		MaxTimers int
		Reference string
	}{
		Clocks:    strings.Join(h.config.Probe.Clocks, ", "),
		Interval:  h.config.Probe.Interval.String(),
		API:       h.config.API.Enabled,
		MaxTimers: h.config.API.MaxTimers,
	}
	if h.config.Reference.Enabled {
		data.Reference = h.config.Reference.Server
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		logger.Error("server", "Failed to render index", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("server", "Failed to encode response", err)
	}
}

// loggerAdapter adapts pkg/logger to the promhttp logger interface
type loggerAdapter struct{}

func (l *loggerAdapter) Println(v ...interface{}) {
	parts := make([]string, 0, len(v))
	for _, val := range v {
		switch x := val.(type) {
		case string:
			parts = append(parts, x)
		case error:
			parts = append(parts, x.Error())
		}
	}
	logger.Error("promhttp", strings.Join(parts, " "), nil)
}
