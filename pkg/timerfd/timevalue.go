package timerfd

import (
	"errors"
	"math"
	"strconv"
	"time"
)

const nanosPerSecond = 1_000_000_000

// MaxSeconds bounds the whole-second count of a TimeValue (exclusive).
// It keeps the value representable as int64 nanoseconds.
const MaxSeconds = math.MaxInt64 / nanosPerSecond

// ErrInvalidTime is returned for negative, non-finite or out-of-range time values
var ErrInvalidTime = errors.New("invalid time value")

// TimeValue is a non-negative duration or absolute instant split into whole
// seconds and nanoseconds. The zero value means "disarmed".
type TimeValue struct {
	Sec  int64
	Nsec int64
}

// FromSeconds splits a real number of seconds into whole seconds and
// nanoseconds. The fractional part is truncated, not rounded.
func FromSeconds(s float64) (TimeValue, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 || s >= float64(MaxSeconds) {
		return TimeValue{}, ErrInvalidTime
	}
	whole, frac := math.Modf(s)
	return TimeValue{Sec: int64(whole), Nsec: int64(frac * nanosPerSecond)}, nil
}

// FromDuration converts d to a TimeValue. Negative durations become zero.
func FromDuration(d time.Duration) TimeValue {
	if d <= 0 {
		return TimeValue{}
	}
	return TimeValue{Sec: int64(d / time.Second), Nsec: int64(d % time.Second)}
}

// Seconds returns the value as a real number of seconds
func (v TimeValue) Seconds() float64 {
	return float64(v.Sec) + float64(v.Nsec)/nanosPerSecond
}

// Nanoseconds returns the value as an integer nanosecond count
func (v TimeValue) Nanoseconds() int64 {
	return v.Sec*nanosPerSecond + v.Nsec
}

// Duration converts the value to a time.Duration
func (v TimeValue) Duration() time.Duration {
	return time.Duration(v.Nanoseconds())
}

// IsZero reports whether the value is exactly zero seconds and zero nanoseconds
func (v TimeValue) IsZero() bool {
	return v.Sec == 0 && v.Nsec == 0
}

// Validate checks the value is non-negative, normalised and in range
func (v TimeValue) Validate() error {
	if v.Sec < 0 || v.Sec >= MaxSeconds || v.Nsec < 0 || v.Nsec >= nanosPerSecond {
		return ErrInvalidTime
	}
	return nil
}

// Add returns v+o, normalised
func (v TimeValue) Add(o TimeValue) TimeValue {
	sec := v.Sec + o.Sec
	nsec := v.Nsec + o.Nsec
	if nsec >= nanosPerSecond {
		sec++
		nsec -= nanosPerSecond
	}
	return TimeValue{Sec: sec, Nsec: nsec}
}

// Sub returns v-o, or zero if o is after v
func (v TimeValue) Sub(o TimeValue) TimeValue {
	if !o.Before(v) {
		return TimeValue{}
	}
	sec := v.Sec - o.Sec
	nsec := v.Nsec - o.Nsec
	if nsec < 0 {
		sec--
		nsec += nanosPerSecond
	}
	return TimeValue{Sec: sec, Nsec: nsec}
}

// Before reports whether v is strictly less than o
func (v TimeValue) Before(o TimeValue) bool {
	if v.Sec != o.Sec {
		return v.Sec < o.Sec
	}
	return v.Nsec < o.Nsec
}

// String formats the value as decimal seconds with nanosecond precision
func (v TimeValue) String() string {
	frac := strconv.FormatInt(v.Nsec+nanosPerSecond, 10)[1:]
	return strconv.FormatInt(v.Sec, 10) + "." + frac + "s"
}
