package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximewewer/timerfd-exporter/internal/collector"
	"github.com/maximewewer/timerfd-exporter/internal/config"
	"github.com/maximewewer/timerfd-exporter/pkg/metrics"
	testutil "github.com/maximewewer/timerfd-exporter/pkg/testing"
)

func TestLoadConfig_FromFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "test-config.yaml")

	configContent := `
server:
  port: 9570
probe:
  enabled: true
  clocks:
    - monotonic
logging:
  level: info
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))

	cfg, err := loadConfig(configFile)
	require.NoError(t, err)
	assert.Equal(t, 9570, cfg.Server.Port)
	assert.Equal(t, []string{"monotonic"}, cfg.Probe.Clocks)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("TIMERFD_EXPORTER_PORT", "9571")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 9571, cfg.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunCollectionLoop_ContextCancellation(t *testing.T) {
	m := metrics.NewTimerMetrics()
	registry := collector.NewRegistry()
	registry.Register(collector.NewRuntimeCollector(collector.NewCommonCollector(m, "runtime", true)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, runCollectionLoop(ctx, time.Second, registry))
	assert.Greater(t, testutil.MetricValue(t, m.ExporterGoroutinesCount), 0.0)
}

func TestRunCollectionLoop_WithTimeout(t *testing.T) {
	m := metrics.NewTimerMetrics()
	registry := collector.NewRegistry()
	registry.Register(collector.NewRuntimeCollector(collector.NewCommonCollector(m, "runtime", true)))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.NoError(t, runCollectionLoop(ctx, 20*time.Millisecond, registry))
}

func TestNewApp_APIOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Probe.Enabled = false

	a, err := newApp(cfg, metrics.NewTimerMetrics())
	require.NoError(t, err)
	defer a.stop()

	assert.Nil(t, a.probes)
	require.NotNil(t, a.table)
	assert.Equal(t, 3, a.collectors.Count())
	assert.Len(t, a.serverOptions(), 1)
}

func TestNewApp_NothingEnabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Probe.Enabled = false
	cfg.API.Enabled = false

	a, err := newApp(cfg, metrics.NewTimerMetrics())
	require.NoError(t, err)
	defer a.stop()

	assert.Nil(t, a.table)
	assert.Empty(t, a.serverOptions())
	assert.Equal(t, 2, a.collectors.Count())
}

func TestNewApp_UnknownClock(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Probe.Clocks = []string{"sundial"}

	_, err := newApp(cfg, metrics.NewTimerMetrics())
	assert.Error(t, err)
}
