//go:build linux

package timerfd

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newHandle(t *testing.T, clock ClockSource, flags CreateFlags) *Handle {
	t.Helper()
	h, err := Create(clock, flags)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Release() })
	return h
}

// consume reads one expiration counter from a blocking handle
func consume(t *testing.T, h *Handle) uint64 {
	t.Helper()
	var buf [8]byte
	n, err := unix.Read(h.Fd(), buf[:])
	require.NoError(t, err)
	require.Equal(t, 8, n)
	return binary.NativeEndian.Uint64(buf[:])
}

func TestConstantsMatchKernelHeaders(t *testing.T) {
	assert.Equal(t, unix.CLOCK_REALTIME, int(Realtime))
	assert.Equal(t, unix.CLOCK_MONOTONIC, int(Monotonic))
	assert.Equal(t, unix.CLOCK_BOOTTIME, int(Boottime))
	assert.Equal(t, unix.CLOCK_REALTIME_ALARM, int(RealtimeAlarm))
	assert.Equal(t, unix.CLOCK_BOOTTIME_ALARM, int(BoottimeAlarm))
	assert.Equal(t, unix.TFD_NONBLOCK, int(NonBlock))
	assert.Equal(t, unix.TFD_CLOEXEC, int(CloseOnExec))
	assert.Equal(t, unix.TFD_TIMER_ABSTIME, int(Absolute))
	assert.Equal(t, unix.TFD_TIMER_CANCEL_ON_SET, int(CancelOnSet))
}

func TestCreate_FreshTimerIsDisarmed(t *testing.T) {
	for _, clock := range []ClockSource{Realtime, Monotonic, Boottime} {
		for _, flags := range []CreateFlags{0, NonBlock, CloseOnExec, NonBlock | CloseOnExec} {
			h := newHandle(t, clock, flags)

			cur, err := h.Query()
			require.NoError(t, err)
			assert.True(t, cur.Value.IsZero(), "%s/%s value", clock, flags)
			assert.True(t, cur.Interval.IsZero(), "%s/%s interval", clock, flags)
			assert.Equal(t, clock, h.Clock())
			assert.Equal(t, flags, h.Flags())
		}
	}
}

func TestCreate_InvalidClock(t *testing.T) {
	h, err := Create(ClockSource(9999), 0)

	assert.Nil(t, h)
	var osErr *OsError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "timerfd_create", osErr.Op)
	assert.NotZero(t, osErr.Code())
}

func TestCreate_InvalidFlags(t *testing.T) {
	_, err := Create(Monotonic, CreateFlags(0x1))
	assert.ErrorIs(t, err, unix.EINVAL)
}

func TestArm_RelativeDeadlineBounded(t *testing.T) {
	h := newHandle(t, Monotonic, NonBlock)
	deadline := TimeValue{Sec: 2}

	prev, err := h.Arm(deadline, TimeValue{}, 0)
	require.NoError(t, err)
	assert.False(t, prev.Armed())

	cur, err := h.Query()
	require.NoError(t, err)
	assert.True(t, cur.Armed())
	assert.True(t, cur.Value.Before(deadline) || cur.Value == deadline)
	assert.True(t, cur.Interval.IsZero())

	later, err := h.Query()
	require.NoError(t, err)
	assert.False(t, cur.Value.Before(later.Value), "remaining time must not increase")
}

func TestArm_ZeroDeadlineDisarms(t *testing.T) {
	h := newHandle(t, Monotonic, NonBlock)

	_, err := h.Arm(TimeValue{Sec: 10}, TimeValue{Sec: 1}, 0)
	require.NoError(t, err)

	prev, err := h.Arm(TimeValue{}, TimeValue{Sec: 5}, 0)
	require.NoError(t, err)
	assert.True(t, prev.Armed())
	assert.Equal(t, TimeValue{Sec: 1}, prev.Interval)

	cur, err := h.Query()
	require.NoError(t, err)
	assert.True(t, cur.Value.IsZero())
}

func TestArm_ReturnsPreviousSpec(t *testing.T) {
	h := newHandle(t, Boottime, NonBlock)
	interval := TimeValue{Nsec: 250_000_000}

	_, err := h.Arm(TimeValue{Sec: 30}, interval, 0)
	require.NoError(t, err)

	queried, err := h.Query()
	require.NoError(t, err)

	prev, err := h.Disarm()
	require.NoError(t, err)
	assert.Equal(t, interval, prev.Interval)
	assert.False(t, queried.Value.Before(prev.Value), "previous deadline only shrinks by elapsed time")
	assert.Less(t, queried.Value.Sub(prev.Value).Duration(), time.Second)
}

func TestArm_InvalidTimeValue(t *testing.T) {
	h := newHandle(t, Monotonic, NonBlock)

	_, err := h.Arm(TimeValue{Nsec: nanosPerSecond}, TimeValue{}, 0)
	var osErr *OsError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "timerfd_settime", osErr.Op)
	assert.Equal(t, unix.EINVAL, osErr.Errno)
}

func TestArm_AbsoluteDeadline(t *testing.T) {
	h := newHandle(t, Monotonic, NonBlock)

	now, err := Now(Monotonic)
	require.NoError(t, err)

	_, err = h.Arm(now.Add(TimeValue{Sec: 5}), TimeValue{}, Absolute)
	require.NoError(t, err)

	cur, err := h.Query()
	require.NoError(t, err)
	assert.True(t, cur.Armed())
	assert.InDelta(t, 5.0, cur.Value.Seconds(), 0.5)
}

func TestArm_AbsoluteDeadlineInPastFiresImmediately(t *testing.T) {
	h := newHandle(t, Monotonic, 0)

	_, err := h.Arm(TimeValue{Nsec: 1}, TimeValue{}, Absolute)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), consume(t, h))

	cur, err := h.Query()
	require.NoError(t, err)
	assert.False(t, cur.Armed(), "one-shot timer disarms after firing")
}

func TestArm_CancelOnSetRealtime(t *testing.T) {
	h := newHandle(t, Realtime, NonBlock)

	now, err := Now(Realtime)
	require.NoError(t, err)

	_, err = h.Arm(now.Add(TimeValue{Sec: 60}), TimeValue{}, Absolute|CancelOnSet)
	require.NoError(t, err)
}

func TestPeriodicScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	h := newHandle(t, Monotonic, 0)
	deadline := TimeValue{Nsec: 500_000_000}
	interval := TimeValue{Nsec: 100_000_000}

	prev, err := h.Arm(deadline, interval, 0)
	require.NoError(t, err)
	assert.Equal(t, Spec{}, prev)

	cur, err := h.Query()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, cur.Value.Seconds(), 0.05)
	assert.LessOrEqual(t, cur.Value.Seconds(), 0.5)
	assert.Equal(t, interval, cur.Interval)

	assert.GreaterOrEqual(t, consume(t, h), uint64(1))

	cur, err = h.Query()
	require.NoError(t, err)
	assert.True(t, cur.Armed())
	assert.LessOrEqual(t, cur.Value.Seconds(), 0.1)
	assert.Equal(t, interval, cur.Interval)
}

func TestRelease(t *testing.T) {
	h, err := Create(Monotonic, NonBlock|CloseOnExec)
	require.NoError(t, err)
	require.GreaterOrEqual(t, h.Fd(), 0)

	require.NoError(t, h.Release())
	assert.True(t, h.Released())
	assert.Equal(t, -1, h.Fd())

	_, err = h.Query()
	assert.ErrorIs(t, err, ErrReleased)
	_, err = h.Arm(TimeValue{Sec: 1}, TimeValue{}, 0)
	assert.ErrorIs(t, err, ErrReleased)

	err = h.Release()
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, err, unix.EBADF)
}

func TestRelease_DoesNotTouchRecycledDescriptor(t *testing.T) {
	h, err := Create(Monotonic, NonBlock)
	require.NoError(t, err)
	fd := h.Fd()
	require.NoError(t, h.Release())

	// the kernel hands out the lowest free number, usually the one just closed
	other := newHandle(t, Monotonic, NonBlock)
	_, err = other.Arm(TimeValue{Sec: 30}, TimeValue{}, 0)
	require.NoError(t, err)

	_, err = h.Disarm()
	assert.ErrorIs(t, err, ErrReleased)

	cur, err := other.Query()
	require.NoError(t, err)
	assert.True(t, cur.Armed(), "stale handle must not disarm descriptor %d", fd)
}

func TestConcurrentArmAndQuery(t *testing.T) {
	h := newHandle(t, Monotonic, NonBlock)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := h.Arm(TimeValue{Sec: int64(i + 1)}, TimeValue{}, 0); err != nil {
					t.Error(err)
					return
				}
				if _, err := h.Query(); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	cur, err := h.Query()
	require.NoError(t, err)
	assert.True(t, cur.Armed())
	assert.LessOrEqual(t, cur.Value.Seconds(), 8.0)
}

func TestConcurrentRelease(t *testing.T) {
	h, err := Create(Monotonic, NonBlock)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.Release()
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, ErrReleased))
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestNow(t *testing.T) {
	a, err := Now(Monotonic)
	require.NoError(t, err)
	b, err := Now(Monotonic)
	require.NoError(t, err)
	assert.False(t, b.Before(a))

	_, err = Now(ClockSource(9999))
	var osErr *OsError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "clock_gettime", osErr.Op)
}

func BenchmarkArmQuery(b *testing.B) {
	h, err := Create(Monotonic, NonBlock)
	if err != nil {
		b.Fatal(err)
	}
	defer h.Release()

	for i := 0; i < b.N; i++ {
		_, _ = h.Arm(TimeValue{Sec: 1}, TimeValue{}, 0)
		_, _ = h.Query()
	}
}

func TestHandle_ZeroValueLeavesDescriptorZeroOpen(t *testing.T) {
	if _, err := unix.FcntlInt(0, unix.F_GETFD, 0); err != nil {
		t.Skip("descriptor 0 is not open in this process")
	}

	var h Handle
	_, _ = h.Query()
	assert.ErrorIs(t, h.Release(), ErrReleased)

	_, err := unix.FcntlInt(0, unix.F_GETFD, 0)
	assert.NoError(t, err)
}
