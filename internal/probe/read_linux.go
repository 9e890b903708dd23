//go:build linux

package probe

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// readExpirations blocks until the timer on fd expires and returns the
// number of expirations since the previous read.
func readExpirations(fd int) (uint64, error) {
	var buf [8]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n != len(buf) {
			return 0, fmt.Errorf("short timer read: %d bytes", n)
		}
		return binary.NativeEndian.Uint64(buf[:]), nil
	}
}

// isClockChange reports a read cancelled by a discontinuous clock change
func isClockChange(err error) bool {
	return errors.Is(err, unix.ECANCELED)
}
