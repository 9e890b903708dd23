package timerfd

import (
	"errors"
	"syscall"
)

// ErrReleased matches errors returned for operations on a released handle
var ErrReleased = errors.New("timer handle already released")

// OsError is the single failure kind of this package: the name of the failing
// kernel call and the errno it reported.
type OsError struct {
	Op    string
	Errno syscall.Errno

	released bool
}

func (e *OsError) Error() string {
	if e.released {
		return e.Op + ": " + ErrReleased.Error()
	}
	return e.Op + ": " + e.Errno.Error()
}

// Code returns the raw OS error number
func (e *OsError) Code() int {
	return int(e.Errno)
}

// Unwrap exposes the errno so errors.Is(err, unix.EINVAL) works
func (e *OsError) Unwrap() error {
	return e.Errno
}

// Is matches ErrReleased for use-after-release failures
func (e *OsError) Is(target error) bool {
	return target == ErrReleased && e.released
}

// Temporary reports whether retrying the call may succeed
func (e *OsError) Temporary() bool {
	return e.Errno.Temporary()
}

func newOsError(op string, err error) *OsError {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		errno = syscall.EIO
	}
	return &OsError{Op: op, Errno: errno}
}

func releasedError(op string) *OsError {
	return &OsError{Op: op, Errno: syscall.EBADF, released: true}
}
