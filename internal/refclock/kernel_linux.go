//go:build linux

package refclock

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/maximewewer/timerfd-exporter/pkg/logger"
)

// Read queries adjtimex in read-only mode
func (k *KernelReader) Read() (*KernelState, error) {
	if !k.Enabled() {
		return nil, errors.New("kernel reader is disabled")
	}

	var tx unix.Timex
	state, err := unix.Adjtimex(&tx)
	if err != nil {
		logger.SafeWarn("refclock", "Failed to read kernel timex", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("adjtimex: %w", err)
	}

	status := int32(tx.Status)
	offset := time.Duration(int64(tx.Offset)) * time.Microsecond
	if status&staNano != 0 {
		offset = time.Duration(int64(tx.Offset))
	}

	ks := &KernelState{
		Synchronized: synchronized(status, state),
		Status:       statusString(status, state),
		Offset:       offset,
		MaxError:     time.Duration(int64(tx.Maxerror)) * time.Microsecond,
		EstError:     time.Duration(int64(tx.Esterror)) * time.Microsecond,
	}

	logger.SafeDebug("refclock", "Kernel timex state read", map[string]interface{}{
		"offset_us":    ks.Offset.Microseconds(),
		"max_error_us": ks.MaxError.Microseconds(),
		"status":       ks.Status,
	})

	return ks, nil
}
