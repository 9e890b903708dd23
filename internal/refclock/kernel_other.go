//go:build !linux

package refclock

import "errors"

// Read is not supported off Linux
func (k *KernelReader) Read() (*KernelState, error) {
	return nil, errors.New("kernel timex reading is not supported on this platform (Linux only)")
}
