package refclock

import "time"

// Kernel clock states returned by adjtimex
const (
	timeOK    = 0
	timeIns   = 1
	timeDel   = 2
	timeOOP   = 3
	timeWait  = 4
	timeError = 5
)

// Kernel status bits
const (
	staUnsync   = 0x0040
	staClockErr = 0x1000
	staNano     = 0x2000
)

// KernelState is the kernel's view of CLOCK_REALTIME discipline
type KernelState struct {
	Synchronized bool
	Status       string
	Offset       time.Duration
	MaxError     time.Duration
	EstError     time.Duration
}

// KernelReader reads kernel NTP state
type KernelReader struct {
	enabled bool
}

// NewKernelReader creates a new kernel reader
func NewKernelReader(enabled bool) *KernelReader {
	return &KernelReader{
		enabled: enabled,
	}
}

// Enabled reports whether Read will query the kernel
func (k *KernelReader) Enabled() bool {
	return k != nil && k.enabled
}

func statusString(status int32, state int) string {
	if status&staUnsync != 0 {
		return "unsynchronized"
	}
	if status&staClockErr != 0 {
		return "clock_error"
	}

	switch state {
	case timeOK:
		return "synchronized"
	case timeIns:
		return "leap_insert_pending"
	case timeDel:
		return "leap_delete_pending"
	case timeOOP:
		return "leap_in_progress"
	case timeWait:
		return "leap_occurred"
	case timeError:
		return "error"
	default:
		return "unknown"
	}
}

func synchronized(status int32, state int) bool {
	return status&staUnsync == 0 && state != timeError
}
