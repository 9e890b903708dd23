package collector

import (
	"context"
	"time"

	"github.com/maximewewer/timerfd-exporter/internal/refclock"
)

// KernelCollector exports the kernel discipline state of CLOCK_REALTIME
type KernelCollector struct {
	*CommonCollector
	reader *refclock.KernelReader
}

// NewKernelCollector creates a kernel state collector, enabled with the reader
func NewKernelCollector(reader *refclock.KernelReader, c *CommonCollector) *KernelCollector {
	c.enabled = c.enabled && reader.Enabled()
	return &KernelCollector{
		CommonCollector: c,
		reader:          reader,
	}
}

// Collect reads adjtimex
func (c *KernelCollector) Collect(_ context.Context) error {
	start := time.Now()
	defer c.observeDuration(start)

	ks, err := c.reader.Read()
	if err != nil {
		return err
	}

	m := c.GetMetrics()
	synced := 0.0
	if ks.Synchronized {
		synced = 1
	}
	m.KernelSynchronized.Set(synced)
	m.KernelMaxErrorSeconds.Set(ks.MaxError.Seconds())
	return nil
}
