package probe

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/maximewewer/timerfd-exporter/pkg/logger"
	"github.com/maximewewer/timerfd-exporter/pkg/metrics"
	"github.com/maximewewer/timerfd-exporter/pkg/timerfd"
)

// Manager owns one probe per configured clock
type Manager struct {
	probes  []*Probe
	running []*Probe
}

// NewManager creates stopped probes for the named clocks
func NewManager(clocks []string, interval time.Duration, cancelOnSet bool, m *metrics.TimerMetrics, opts ...Option) (*Manager, error) {
	mgr := &Manager{}
	for _, name := range clocks {
		clock, err := timerfd.ParseClockSource(name)
		if err != nil {
			return nil, fmt.Errorf("probe clock: %w", err)
		}
		mgr.probes = append(mgr.probes, New(Config{
			Clock:       clock,
			Interval:    interval,
			CancelOnSet: cancelOnSet,
		}, m, opts...))
	}
	return mgr, nil
}

// Start starts every probe. Alarm clocks the process may not use are
// skipped; any other failure stops the probes already started.
func (mgr *Manager) Start() error {
	for _, p := range mgr.probes {
		err := p.Start()
		if err == nil {
			mgr.running = append(mgr.running, p)
			continue
		}

		if p.Clock().IsAlarm() && errors.Is(err, syscall.EPERM) {
			logger.SafeWarn("probe", "Skipping alarm clock probe, CAP_WAKE_ALARM required", map[string]interface{}{
				"clock": p.Clock().String(),
			})
			continue
		}

		mgr.Stop()
		return fmt.Errorf("starting %s probe: %w", p.Clock(), err)
	}
	return nil
}

// Stop stops every running probe
func (mgr *Manager) Stop() {
	for _, p := range mgr.running {
		p.Stop()
	}
	mgr.running = nil
}

// Probes returns the running probes
func (mgr *Manager) Probes() []*Probe {
	return mgr.running
}
