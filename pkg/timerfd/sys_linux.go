//go:build linux

package timerfd

import (
	"golang.org/x/sys/unix"
)

// Clock sources, as defined by the kernel headers
const (
	Realtime      ClockSource = unix.CLOCK_REALTIME
	Monotonic     ClockSource = unix.CLOCK_MONOTONIC
	Boottime      ClockSource = unix.CLOCK_BOOTTIME
	RealtimeAlarm ClockSource = unix.CLOCK_REALTIME_ALARM
	BoottimeAlarm ClockSource = unix.CLOCK_BOOTTIME_ALARM
)

// Creation flags
const (
	NonBlock    CreateFlags = unix.TFD_NONBLOCK
	CloseOnExec CreateFlags = unix.TFD_CLOEXEC
)

// Arm flags
const (
	Absolute    ArmFlags = unix.TFD_TIMER_ABSTIME
	CancelOnSet ArmFlags = unix.TFD_TIMER_CANCEL_ON_SET
)

func sysCreate(clock ClockSource, flags CreateFlags) (int, error) {
	return unix.TimerfdCreate(int(clock), int(flags))
}

func sysSettime(fd int, flags ArmFlags, next Spec) (Spec, error) {
	newValue := unix.ItimerSpec{
		Interval: toTimespec(next.Interval),
		Value:    toTimespec(next.Value),
	}
	var oldValue unix.ItimerSpec
	if err := unix.TimerfdSettime(fd, int(flags), &newValue, &oldValue); err != nil {
		return Spec{}, err
	}
	return fromItimerSpec(&oldValue), nil
}

func sysGettime(fd int) (Spec, error) {
	var cur unix.ItimerSpec
	if err := unix.TimerfdGettime(fd, &cur); err != nil {
		return Spec{}, err
	}
	return fromItimerSpec(&cur), nil
}

func sysClose(fd int) error {
	return unix.Close(fd)
}

func sysClockGettime(clock ClockSource) (TimeValue, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(int32(clock), &ts); err != nil {
		return TimeValue{}, err
	}
	return fromTimespec(&ts), nil
}

// toTimespec relies on TimeValue.Validate having bounded Sec
func toTimespec(v TimeValue) unix.Timespec {
	return unix.NsecToTimespec(v.Nanoseconds())
}

func fromTimespec(ts *unix.Timespec) TimeValue {
	sec, nsec := ts.Unix()
	return TimeValue{Sec: sec, Nsec: nsec}
}

func fromItimerSpec(its *unix.ItimerSpec) Spec {
	return Spec{
		Value:    fromTimespec(&its.Value),
		Interval: fromTimespec(&its.Interval),
	}
}
