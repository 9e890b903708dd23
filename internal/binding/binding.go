// Package binding exposes timer handles to an embedding caller that only
// deals in integers and real-valued seconds: a script runtime, the HTTP API.
//
// Handles are identified by their descriptor number and owned by a Table.
// Every failure is a *Failure carrying "<operation>: <description>" and the
// raw errno, mirroring the (nil, message, errno) convention of such runtimes.
package binding

import (
	"errors"
	"sync"
	"syscall"

	"github.com/maximewewer/timerfd-exporter/pkg/logger"
	"github.com/maximewewer/timerfd-exporter/pkg/timerfd"
)

// Failure is the boundary form of an error
type Failure struct {
	Message string `json:"error"`
	Errno   int    `json:"errno"`
}

func (f *Failure) Error() string {
	return f.Message
}

// Observer is notified of every kernel-facing operation; errno is 0 on success
type Observer func(op string, errno int)

// Option configures a Table
type Option func(*Table)

// WithObserver installs an operation observer, typically a metrics hook
func WithObserver(fn Observer) Option {
	return func(t *Table) {
		t.observe = fn
	}
}

// Table owns the handles created through the boundary
type Table struct {
	mu      sync.Mutex
	handles map[int]*timerfd.Handle
	max     int
	observe Observer
}

// NewTable creates a table holding at most max handles
func NewTable(max int, opts ...Option) *Table {
	t := &Table{
		handles: make(map[int]*timerfd.Handle),
		max:     max,
		observe: func(string, int) {},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create allocates a timer on clockID with creation flags and returns its id
func (t *Table) Create(clockID, flags int) (int, error) {
	const op = "timerfd_create"

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.handles) >= t.max {
		return 0, t.fail(op, &timerfd.OsError{Op: op, Errno: syscall.EMFILE})
	}

	h, err := timerfd.Create(timerfd.ClockSource(clockID), timerfd.CreateFlags(flags))
	if err != nil {
		return 0, t.fail(op, err)
	}

	id := h.Fd()
	t.handles[id] = h
	t.observe(op, 0)
	logger.Timer(op, h.Clock().String(), nil, map[string]interface{}{
		"id":    id,
		"flags": h.Flags().String(),
	})
	return id, nil
}

// SetTime arms or disarms timer id and returns the previous deadline and
// interval in seconds. A zero value disarms.
func (t *Table) SetTime(id, flags int, value, interval float64) (float64, float64, error) {
	const op = "timerfd_settime"

	h, err := t.lookup(op, id)
	if err != nil {
		return 0, 0, err
	}

	deadline, err := timerfd.FromSeconds(value)
	if err != nil {
		return 0, 0, t.fail(op, &timerfd.OsError{Op: op, Errno: syscall.EINVAL})
	}
	period, err := timerfd.FromSeconds(interval)
	if err != nil {
		return 0, 0, t.fail(op, &timerfd.OsError{Op: op, Errno: syscall.EINVAL})
	}

	prev, err := h.Arm(deadline, period, timerfd.ArmFlags(flags))
	if err != nil {
		return 0, 0, t.fail(op, err)
	}

	t.observe(op, 0)
	logger.Timer(op, h.Clock().String(), nil, map[string]interface{}{
		"id":       id,
		"flags":    timerfd.ArmFlags(flags).String(),
		"value":    deadline.String(),
		"interval": period.String(),
	})
	return prev.Value.Seconds(), prev.Interval.Seconds(), nil
}

// GetTime returns the remaining time and interval of timer id in seconds
func (t *Table) GetTime(id int) (float64, float64, error) {
	const op = "timerfd_gettime"

	h, err := t.lookup(op, id)
	if err != nil {
		return 0, 0, err
	}

	cur, err := h.Query()
	if err != nil {
		return 0, 0, t.fail(op, err)
	}

	t.observe(op, 0)
	return cur.Value.Seconds(), cur.Interval.Seconds(), nil
}

// Close releases timer id and forgets it
func (t *Table) Close(id int) error {
	const op = "close"

	t.mu.Lock()
	h, ok := t.handles[id]
	delete(t.handles, id)
	t.mu.Unlock()

	if !ok {
		return t.fail(op, &timerfd.OsError{Op: op, Errno: syscall.EBADF})
	}
	if err := h.Release(); err != nil {
		return t.fail(op, err)
	}

	t.observe(op, 0)
	logger.Timer(op, h.Clock().String(), nil, map[string]interface{}{"id": id})
	return nil
}

// CloseAll releases every handle in the table
func (t *Table) CloseAll() {
	t.mu.Lock()
	handles := t.handles
	t.handles = make(map[int]*timerfd.Handle)
	t.mu.Unlock()

	for id, h := range handles {
		if err := h.Release(); err != nil {
			logger.SafeWarn("binding", "Failed to release timer", map[string]interface{}{
				"id":    id,
				"error": err.Error(),
			})
		}
	}
	logger.Debugf("binding", "Released %d timer handles", len(handles))
}

// Len returns the number of handles currently owned
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

// IDs returns the ids currently owned, in no particular order
func (t *Table) IDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int, 0, len(t.handles))
	for id := range t.handles {
		ids = append(ids, id)
	}
	return ids
}

func (t *Table) lookup(op string, id int) (*timerfd.Handle, error) {
	t.mu.Lock()
	h, ok := t.handles[id]
	t.mu.Unlock()

	if !ok {
		return nil, t.fail(op, &timerfd.OsError{Op: op, Errno: syscall.EBADF})
	}
	return h, nil
}

func (t *Table) fail(op string, err error) *Failure {
	f := toFailure(err)
	t.observe(op, f.Errno)
	logger.Timer(op, "", err, nil)
	return f
}

func toFailure(err error) *Failure {
	var osErr *timerfd.OsError
	if errors.As(err, &osErr) {
		return &Failure{Message: osErr.Error(), Errno: osErr.Code()}
	}
	return &Failure{Message: err.Error(), Errno: int(syscall.EIO)}
}
