package binding

import "github.com/maximewewer/timerfd-exporter/pkg/timerfd"

// Constants returns the numeric values an embedding caller passes to Create
// and SetTime, keyed by their kernel header names.
func Constants() map[string]uint {
	return map[string]uint{
		"CLOCK_REALTIME":          uint(timerfd.Realtime),
		"CLOCK_MONOTONIC":         uint(timerfd.Monotonic),
		"CLOCK_BOOTTIME":          uint(timerfd.Boottime),
		"CLOCK_REALTIME_ALARM":    uint(timerfd.RealtimeAlarm),
		"CLOCK_BOOTTIME_ALARM":    uint(timerfd.BoottimeAlarm),
		"TFD_NONBLOCK":            uint(timerfd.NonBlock),
		"TFD_CLOEXEC":             uint(timerfd.CloseOnExec),
		"TFD_TIMER_ABSTIME":       uint(timerfd.Absolute),
		"TFD_TIMER_CANCEL_ON_SET": uint(timerfd.CancelOnSet),
	}
}
