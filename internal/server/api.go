package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/maximewewer/timerfd-exporter/internal/binding"
	"github.com/maximewewer/timerfd-exporter/internal/config"
	"github.com/maximewewer/timerfd-exporter/pkg/metrics"
	"github.com/maximewewer/timerfd-exporter/pkg/timerfd"
)

const maxBodyBytes = 4096

// API serves the binding table over JSON
type API struct {
	table   *binding.Table
	metrics *metrics.TimerMetrics
	limiter *rate.Limiter
}

// NewAPI creates the timer API; a disabled rate limit admits every request
func NewAPI(table *binding.Table, m *metrics.TimerMetrics, rl config.RateLimitConfig) *API {
	a := &API{table: table, metrics: m}
	if rl.Enabled {
		a.limiter = rate.NewLimiter(rate.Limit(rl.Rate), rl.Burst)
	}
	return a
}

// Register mounts the API routes on mux
func (a *API) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/v1/constants", a.handle("constants", a.constants))
	mux.Handle("GET /api/v1/timers", a.handle("list", a.list))
	mux.Handle("POST /api/v1/timers", a.handle("create", a.create))
	mux.Handle("GET /api/v1/timers/{id}", a.handle("gettime", a.getTime))
	mux.Handle("PUT /api/v1/timers/{id}", a.handle("settime", a.setTime))
	mux.Handle("DELETE /api/v1/timers/{id}", a.handle("close", a.closeTimer))
}

type apiFunc func(w http.ResponseWriter, r *http.Request) error

// handle applies the rate limit, accounts the request and renders failures
func (a *API) handle(op string, fn apiFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter != nil && !a.limiter.Allow() {
			a.metrics.APIRateLimitedTotal.Inc()
			a.metrics.APIRequestsTotal.WithLabelValues(op, "rate_limited").Inc()
			writeJSON(w, http.StatusTooManyRequests, &binding.Failure{
				Message: op + ": " + syscall.EAGAIN.Error(),
				Errno:   int(syscall.EAGAIN),
			})
			return
		}

		if err := fn(w, r); err != nil {
			a.metrics.APIRequestsTotal.WithLabelValues(op, "error").Inc()
			writeFailure(w, err)
			return
		}
		a.metrics.APIRequestsTotal.WithLabelValues(op, "success").Inc()
	})
}

func (a *API) constants(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, binding.Constants())
	return nil
}

func (a *API) list(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, map[string][]int{"timers": a.table.IDs()})
	return nil
}

type createRequest struct {
	Clock *clockParam `json:"clock"`
	Flags int         `json:"flags"`
}

type createResponse struct {
	ID int `json:"id"`
}

func (a *API) create(w http.ResponseWriter, r *http.Request) error {
	const op = "timerfd_create"

	var req createRequest
	if err := decode(w, r, &req); err != nil {
		return invalid(op, err)
	}
	if req.Clock == nil {
		return invalid(op, errors.New("clock is required"))
	}

	id, err := a.table.Create(int(*req.Clock), req.Flags)
	if err != nil {
		return err
	}
	a.metrics.APITimersOpen.Set(float64(a.table.Len()))

	writeJSON(w, http.StatusCreated, createResponse{ID: id})
	return nil
}

// timeResponse is the (value, interval) pair in seconds
type timeResponse struct {
	Value    float64 `json:"value"`
	Interval float64 `json:"interval"`
}

func (a *API) getTime(w http.ResponseWriter, r *http.Request) error {
	const op = "timerfd_gettime"

	id, err := pathID(r, op)
	if err != nil {
		return err
	}

	value, interval, err := a.table.GetTime(id)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, timeResponse{Value: value, Interval: interval})
	return nil
}

type setTimeRequest struct {
	Flags    int     `json:"flags"`
	Value    float64 `json:"value"`
	Interval float64 `json:"interval"`
}

func (a *API) setTime(w http.ResponseWriter, r *http.Request) error {
	const op = "timerfd_settime"

	id, err := pathID(r, op)
	if err != nil {
		return err
	}

	var req setTimeRequest
	if err := decode(w, r, &req); err != nil {
		return invalid(op, err)
	}

	value, interval, err := a.table.SetTime(id, req.Flags, req.Value, req.Interval)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, timeResponse{Value: value, Interval: interval})
	return nil
}

func (a *API) closeTimer(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "close")
	if err != nil {
		return err
	}

	if err := a.table.Close(id); err != nil {
		return err
	}
	a.metrics.APITimersOpen.Set(float64(a.table.Len()))

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// clockParam accepts either a clock name or its numeric id
type clockParam int

func (c *clockParam) UnmarshalJSON(b []byte) error {
	var id int
	if err := json.Unmarshal(b, &id); err == nil {
		*c = clockParam(id)
		return nil
	}

	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return errors.New("clock must be a name or a number")
	}
	clock, err := timerfd.ParseClockSource(name)
	if err != nil {
		return err
	}
	*c = clockParam(clock)
	return nil
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathID parses the {id} segment; a non-numeric id names no open timer
func pathID(r *http.Request, op string) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, failure(op, syscall.EBADF)
	}
	return id, nil
}

func failure(op string, errno syscall.Errno) *binding.Failure {
	osErr := &timerfd.OsError{Op: op, Errno: errno}
	return &binding.Failure{Message: osErr.Error(), Errno: osErr.Code()}
}

func invalid(op string, err error) *binding.Failure {
	return &binding.Failure{Message: op + ": " + err.Error(), Errno: int(syscall.EINVAL)}
}

// writeFailure renders err as {"error": message, "errno": code}
func writeFailure(w http.ResponseWriter, err error) {
	var f *binding.Failure
	if !errors.As(err, &f) {
		f = &binding.Failure{Message: err.Error(), Errno: int(syscall.EIO)}
	}
	writeJSON(w, statusFor(f.Errno), f)
}

func statusFor(errno int) int {
	switch syscall.Errno(errno) {
	case syscall.EBADF:
		return http.StatusNotFound
	case syscall.EMFILE:
		return http.StatusConflict
	case syscall.EIO:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
