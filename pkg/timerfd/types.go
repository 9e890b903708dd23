package timerfd

import (
	"fmt"
	"strings"
)

// ClockSource selects the kernel clock a timer measures against
type ClockSource int

// CreateFlags control blocking and exec inheritance of the descriptor
type CreateFlags int

// ArmFlags control how Arm interprets its deadline
type ArmFlags int

// ClockSources lists every clock source a handle can be created against
var ClockSources = []ClockSource{Realtime, Monotonic, Boottime, RealtimeAlarm, BoottimeAlarm}

// String returns the lower-case kernel name of the clock
func (c ClockSource) String() string {
	switch c {
	case Realtime:
		return "realtime"
	case Monotonic:
		return "monotonic"
	case Boottime:
		return "boottime"
	case RealtimeAlarm:
		return "realtime_alarm"
	case BoottimeAlarm:
		return "boottime_alarm"
	default:
		return fmt.Sprintf("clock(%d)", int(c))
	}
}

// IsRealtime reports whether the clock follows wall-clock time and can be stepped
func (c ClockSource) IsRealtime() bool {
	return c == Realtime || c == RealtimeAlarm
}

// IsAlarm reports whether the clock wakes a suspended system (needs CAP_WAKE_ALARM)
func (c ClockSource) IsAlarm() bool {
	return c == RealtimeAlarm || c == BoottimeAlarm
}

// ParseClockSource converts a clock name to a ClockSource.
// Both "monotonic" and "CLOCK_MONOTONIC" are accepted.
func ParseClockSource(name string) (ClockSource, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "clock_")
	for _, c := range ClockSources {
		if c.String() == key {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown clock source %q", name)
}

// String lists the set flags, "0" when none are set
func (f CreateFlags) String() string {
	var parts []string
	if f&NonBlock != 0 {
		parts = append(parts, "nonblock")
	}
	if f&CloseOnExec != 0 {
		parts = append(parts, "cloexec")
	}
	if rest := f &^ (NonBlock | CloseOnExec); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", int(rest)))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

// String lists the set flags, "0" when none are set
func (f ArmFlags) String() string {
	var parts []string
	if f&Absolute != 0 {
		parts = append(parts, "abstime")
	}
	if f&CancelOnSet != 0 {
		parts = append(parts, "cancel_on_set")
	}
	if rest := f &^ (Absolute | CancelOnSet); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", int(rest)))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

// Spec is a deadline and repeat interval pair.
// As an Arm argument Value is the deadline; as a result it is the time remaining.
type Spec struct {
	Value    TimeValue
	Interval TimeValue
}

// Armed reports whether a deadline is pending
func (s Spec) Armed() bool {
	return !s.Value.IsZero()
}

// Periodic reports whether the timer repeats after firing
func (s Spec) Periodic() bool {
	return !s.Interval.IsZero()
}
