// Package probe consumes periodic timers to measure how late the kernel
// delivers expirations on each clock, and to notice realtime clock steps.
package probe

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/maximewewer/timerfd-exporter/pkg/logger"
	"github.com/maximewewer/timerfd-exporter/pkg/metrics"
	"github.com/maximewewer/timerfd-exporter/pkg/timerfd"
)

// ErrNotRunning is returned by Query on a probe that is not started
var ErrNotRunning = errors.New("probe not running")

// Config describes one probe
type Config struct {
	Clock       timerfd.ClockSource
	Interval    time.Duration
	CancelOnSet bool
}

// Stats are the cumulative counters of a probe
type Stats struct {
	Wakeups      uint64
	Expirations  uint64
	Overruns     uint64
	ClockChanges uint64
	LastLatency  time.Duration
	MaxLatency   time.Duration
}

// Option configures a Probe
type Option func(*Probe)

// WithClockChangeHook registers fn to run after every detected clock change
func WithClockChangeHook(fn func(timerfd.ClockSource)) Option {
	return func(p *Probe) {
		p.onClockChange = fn
	}
}

// Probe arms an absolute periodic timer and reads its expirations
type Probe struct {
	cfg           Config
	metrics       *metrics.TimerMetrics
	onClockChange func(timerfd.ClockSource)
	log           zerolog.Logger

	handle   *timerfd.Handle
	next     timerfd.TimeValue // deadline of the next expected expiration
	stopping atomic.Bool
	done     chan struct{}

	mu    sync.Mutex
	stats Stats
}

// New creates a stopped probe
func New(cfg Config, m *metrics.TimerMetrics, opts ...Option) *Probe {
	p := &Probe{
		cfg:           cfg,
		metrics:       m,
		onClockChange: func(timerfd.ClockSource) {},
		log:           logger.WithFields("probe", map[string]interface{}{"clock": cfg.Clock.String()}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Clock returns the clock the probe measures
func (p *Probe) Clock() timerfd.ClockSource {
	return p.cfg.Clock
}

// Start creates and arms the timer and starts the reader goroutine
func (p *Probe) Start() error {
	if p.handle != nil {
		return fmt.Errorf("probe %s already started", p.cfg.Clock)
	}
	if p.cfg.Interval <= 0 {
		return fmt.Errorf("probe %s: interval must be positive", p.cfg.Clock)
	}

	// Blocking: the reader goroutine parks in read(2)
	h, err := timerfd.Create(p.cfg.Clock, timerfd.CloseOnExec)
	p.observe("timerfd_create", err)
	if err != nil {
		return err
	}
	p.handle = h

	if p.cfg.Clock.IsRealtime() {
		logger.SafeDebug("probe", "Absolute deadlines on a settable clock move with clock steps", map[string]interface{}{
			"clock":         p.cfg.Clock.String(),
			"cancel_on_set": p.cfg.CancelOnSet,
		})
	}

	if err := p.arm(); err != nil {
		_ = h.Release()
		p.handle = nil
		return err
	}

	p.done = make(chan struct{})
	p.metrics.ProbeUp.WithLabelValues(p.cfg.Clock.String()).Set(1)
	go p.run(h.Fd())

	p.log.Info().Str("interval", p.cfg.Interval.String()).Msg("Probe started")
	return nil
}

// arm schedules the first expiration one interval from now
func (p *Probe) arm() error {
	now, err := timerfd.Now(p.cfg.Clock)
	if err != nil {
		return err
	}

	interval := timerfd.FromDuration(p.cfg.Interval)
	first := now.Add(interval)
	flags := timerfd.Absolute
	if p.cfg.CancelOnSet && p.cfg.Clock.IsRealtime() {
		flags |= timerfd.CancelOnSet
	}

	_, err = p.handle.Arm(first, interval, flags)
	p.observe("timerfd_settime", err)
	if err != nil {
		return err
	}

	p.next = first
	return nil
}

func (p *Probe) run(fd int) {
	defer close(p.done)
	clock := p.cfg.Clock.String()
	interval := timerfd.FromDuration(p.cfg.Interval)

	for !p.stopping.Load() {
		count, err := readExpirations(fd)
		if p.stopping.Load() {
			return
		}

		if err != nil {
			if isClockChange(err) {
				if err := p.clockChanged(); err != nil {
					p.metrics.ProbeUp.WithLabelValues(clock).Set(0)
					return
				}
				continue
			}
			logger.SafeError("probe", "Probe read failed", err, map[string]interface{}{"clock": clock})
			p.metrics.ProbeUp.WithLabelValues(clock).Set(0)
			return
		}

		now, err := timerfd.Now(p.cfg.Clock)
		if err != nil {
			logger.SafeError("probe", "Probe clock read failed", err, map[string]interface{}{"clock": clock})
			p.metrics.ProbeUp.WithLabelValues(clock).Set(0)
			return
		}

		expected := lastDeadline(p.next, p.cfg.Interval, count)
		p.next = expected.Add(interval)
		latency := now.Sub(expected).Duration()

		p.record(count, latency)
		logger.Wakeup(clock, latency, count)
	}
}

// lastDeadline returns the deadline of the last of count expirations, the
// first being due at next. Results past the Duration range saturate.
func lastDeadline(next timerfd.TimeValue, interval time.Duration, count uint64) timerfd.TimeValue {
	if count <= 1 || interval <= 0 {
		return next
	}
	skip := count - 1
	if skip > uint64(math.MaxInt64/int64(interval)) {
		return next.Add(timerfd.FromDuration(math.MaxInt64))
	}
	return next.Add(timerfd.FromDuration(time.Duration(skip) * interval))
}

func (p *Probe) record(count uint64, latency time.Duration) {
	clock := p.cfg.Clock.String()
	overruns := uint64(0)
	if count > 0 {
		overruns = count - 1
	}

	p.mu.Lock()
	p.stats.Wakeups++
	p.stats.Expirations += count
	p.stats.Overruns += overruns
	p.stats.LastLatency = latency
	if latency > p.stats.MaxLatency {
		p.stats.MaxLatency = latency
	}
	p.mu.Unlock()

	p.metrics.ProbeExpirationsTotal.WithLabelValues(clock).Add(float64(count))
	p.metrics.ProbeOverrunsTotal.WithLabelValues(clock).Add(float64(overruns))
	p.metrics.ProbeWakeupLatencySeconds.WithLabelValues(clock).Observe(latency.Seconds())
}

// clockChanged counts a discontinuity, rearms and notifies. A failed rearm
// leaves the timer cancelled and is returned so the reader stops.
func (p *Probe) clockChanged() error {
	clock := p.cfg.Clock.String()

	p.mu.Lock()
	p.stats.ClockChanges++
	total := p.stats.ClockChanges
	p.mu.Unlock()

	p.metrics.ProbeClockChangesTotal.WithLabelValues(clock).Inc()
	logger.ClockChange(clock, map[string]interface{}{"total": total})

	// Rearming clears the cancelled state and realigns the deadline
	err := p.arm()
	if err != nil {
		logger.SafeError("probe", "Probe rearm after clock change failed", err, map[string]interface{}{"clock": clock})
	}

	p.onClockChange(p.cfg.Clock)
	return err
}

// Stop wakes the reader, waits for it and releases the timer
func (p *Probe) Stop() {
	if p.handle == nil || !p.stopping.CompareAndSwap(false, true) {
		return
	}

	// A 1ns relative deadline makes the pending read return at once
	if _, err := p.handle.Arm(timerfd.TimeValue{Nsec: 1}, timerfd.TimeValue{}, 0); err != nil {
		logger.SafeWarn("probe", "Failed to wake probe reader", map[string]interface{}{
			"clock": p.cfg.Clock.String(),
			"error": err.Error(),
		})
	}
	<-p.done

	err := p.handle.Release()
	p.observe("close", err)
	p.metrics.ProbeUp.WithLabelValues(p.cfg.Clock.String()).Set(0)

	p.log.Info().Msg("Probe stopped")
}

// Running reports whether the reader goroutine is active
func (p *Probe) Running() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Snapshot returns a copy of the probe counters
func (p *Probe) Snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Query returns the live state of the probe timer
func (p *Probe) Query() (timerfd.Spec, error) {
	if p.handle == nil {
		return timerfd.Spec{}, ErrNotRunning
	}
	spec, err := p.handle.Query()
	p.observe("timerfd_gettime", err)
	return spec, err
}

func (p *Probe) observe(op string, err error) {
	p.metrics.ObserveOperation(op, errnoOf(err))
}

func errnoOf(err error) int {
	if err == nil {
		return 0
	}
	var osErr *timerfd.OsError
	if errors.As(err, &osErr) {
		return osErr.Code()
	}
	return int(syscall.EIO)
}
