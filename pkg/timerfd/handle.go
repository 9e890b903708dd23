package timerfd

import (
	"runtime"
	"sync"
	"syscall"
)

// Handle owns one kernel timer descriptor.
//
// Arm and Query may be called concurrently; the kernel serialises them and
// concurrent Arm calls are last-writer-wins. Release waits for in-flight calls
// so a recycled descriptor number is never touched by a stale handle.
//
// Only Create produces a live handle. The zero value owns no descriptor and
// behaves like a released one.
type Handle struct {
	mu    sync.RWMutex
	fd    int
	clock ClockSource
	flags CreateFlags
	live  bool
}

// Create allocates a new timer against clock. The returned handle is disarmed.
func Create(clock ClockSource, flags CreateFlags) (*Handle, error) {
	fd, err := sysCreate(clock, flags)
	if err != nil {
		return nil, newOsError("timerfd_create", err)
	}

	h := &Handle{fd: fd, clock: clock, flags: flags, live: true}
	runtime.SetFinalizer(h, (*Handle).Release)
	return h, nil
}

// Arm sets the deadline and repeat interval in one kernel call and returns
// the pair that was in effect before. A zero deadline disarms the timer
// whatever the interval. With Absolute set the deadline is a point on the
// handle's clock rather than an offset from now.
func (h *Handle) Arm(deadline, interval TimeValue, flags ArmFlags) (Spec, error) {
	const op = "timerfd_settime"

	if deadline.Validate() != nil || interval.Validate() != nil {
		return Spec{}, &OsError{Op: op, Errno: syscall.EINVAL}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.live {
		return Spec{}, releasedError(op)
	}

	prev, err := sysSettime(h.fd, flags, Spec{Value: deadline, Interval: interval})
	if err != nil {
		return Spec{}, newOsError(op, err)
	}
	return prev, nil
}

// Disarm clears any pending deadline and returns the previous pair
func (h *Handle) Disarm() (Spec, error) {
	return h.Arm(TimeValue{}, TimeValue{}, 0)
}

// Query returns the time remaining until the next expiration and the repeat
// interval. A zero Value means the timer is disarmed.
func (h *Handle) Query() (Spec, error) {
	const op = "timerfd_gettime"

	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.live {
		return Spec{}, releasedError(op)
	}

	cur, err := sysGettime(h.fd)
	if err != nil {
		return Spec{}, newOsError(op, err)
	}
	return cur, nil
}

// Release closes the descriptor. Only the first call closes it; later calls
// return an error matching ErrReleased.
func (h *Handle) Release() error {
	const op = "close"

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.live {
		return releasedError(op)
	}
	h.live = false
	runtime.SetFinalizer(h, nil)

	fd := h.fd
	h.fd = -1
	if err := sysClose(fd); err != nil {
		return newOsError(op, err)
	}
	return nil
}

// Released reports whether the handle no longer owns a descriptor
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.live
}

// Fd returns the descriptor for consumers that wait on or read the timer.
// It returns -1 after Release. The handle keeps ownership.
func (h *Handle) Fd() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.live {
		return -1
	}
	return h.fd
}

// Clock returns the clock source the handle was created against
func (h *Handle) Clock() ClockSource {
	return h.clock
}

// Flags returns the creation flags
func (h *Handle) Flags() CreateFlags {
	return h.flags
}

// Now reads the current time of clock, for building Absolute deadlines
func Now(clock ClockSource) (TimeValue, error) {
	v, err := sysClockGettime(clock)
	if err != nil {
		return TimeValue{}, newOsError("clock_gettime", err)
	}
	return v, nil
}
