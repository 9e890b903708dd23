//go:build !linux

package timerfd

import "syscall"

// Placeholder values so callers compile; no handle can be created on this platform.
const (
	Realtime ClockSource = iota
	Monotonic
	Boottime
	RealtimeAlarm
	BoottimeAlarm
)

const (
	NonBlock CreateFlags = 1 << iota
	CloseOnExec
)

const (
	Absolute ArmFlags = 1 << iota
	CancelOnSet
)

func sysCreate(ClockSource, CreateFlags) (int, error) {
	return -1, syscall.ENOSYS
}

func sysSettime(int, ArmFlags, Spec) (Spec, error) {
	return Spec{}, syscall.ENOSYS
}

func sysGettime(int) (Spec, error) {
	return Spec{}, syscall.ENOSYS
}

func sysClose(int) error {
	return syscall.ENOSYS
}

func sysClockGettime(ClockSource) (TimeValue, error) {
	return TimeValue{}, syscall.ENOSYS
}
