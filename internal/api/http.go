package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/avfallsor-mqtt/internal/calendar"
	"github.com/bher20/avfallsor-mqtt/internal/metrics"
	"github.com/bher20/avfallsor-mqtt/internal/storage"
)

// ScheduleSource runs the calendar pipeline for an address.
type ScheduleSource interface {
	Run(ctx context.Context, address string, ref calendar.Date) (calendar.Schedule, error)
}

// Refresher performs a full lookup-and-publish run under the publish lock.
type Refresher interface {
	Run(ctx context.Context) (calendar.Schedule, error)
}

// Deps are the collaborators served by the mux.
type Deps struct {
	Provider calendar.ProviderDescriptor
	Address  string
	Source   ScheduleSource
	Job      Refresher
	Store    storage.Storage
	Today    func() calendar.Date
}

// ScheduleResponse is the body of GET /schedule and POST /refresh.
type ScheduleResponse struct {
	Provider string            `json:"provider"`
	Address  string            `json:"address"`
	Date     calendar.Date     `json:"reference_date"`
	Schedule calendar.Schedule `json:"schedule"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewMux constructs the HTTP mux, wiring in the schedule endpoints, metrics,
// and health endpoints.
func NewMux(d Deps) *http.ServeMux {
	if d.Today == nil {
		d.Today = calendar.Today
	}

	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Store != nil {
			if err := d.Store.Ping(r.Context()); err != nil {
				log.Printf("readyz: db ping failed: %v", err)
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	mux.HandleFunc("/schedule", handleSchedule(d))
	mux.HandleFunc("/refresh", handleRefresh(d))

	return mux
}

// handleSchedule runs the pipeline live. An address query parameter overrides
// the configured address.
func handleSchedule(d Deps) http.HandlerFunc {
	const path = "/schedule"
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(path).Inc()
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
		}()

		if r.Method != http.MethodGet {
			writeError(w, path, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}

		address := d.Address
		if q := strings.TrimSpace(r.URL.Query().Get("address")); q != "" {
			address = q
		}
		ref := d.Today()

		sched, err := d.Source.Run(r.Context(), address, ref)
		metrics.ObservePipeline(d.Provider.Key, start, len(sched), err)
		if err != nil {
			log.Printf("api: schedule lookup for %q failed: %v", address, err)
			writeError(w, path, statusFor(err), err)
			return
		}

		writeJSON(w, http.StatusOK, ScheduleResponse{
			Provider: d.Provider.Key,
			Address:  address,
			Date:     ref,
			Schedule: sched,
		})
	}
}

// handleRefresh triggers the publish job on demand, for CronJobs or manual use.
func handleRefresh(d Deps) http.HandlerFunc {
	const path = "/refresh"
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(path).Inc()
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
		}()

		if r.Method != http.MethodPost {
			writeError(w, path, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		if d.Job == nil {
			writeError(w, path, http.StatusServiceUnavailable, errors.New("publishing is not configured"))
			return
		}

		sched, err := d.Job.Run(r.Context())
		if err != nil {
			writeError(w, path, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, ScheduleResponse{
			Provider: d.Provider.Key,
			Address:  d.Address,
			Date:     d.Today(),
			Schedule: sched,
		})
	}
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calendar.ErrEmptyAddress):
		return http.StatusBadRequest
	case errors.Is(err, calendar.ErrAddressNotFound), errors.Is(err, calendar.ErrNoScheduleFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrAmbiguousAddress), errors.Is(err, storage.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, calendar.ErrFetch),
		errors.Is(err, calendar.ErrMalformedResponse),
		errors.Is(err, calendar.ErrParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, path string, code int, err error) {
	metrics.RequestErrorsTotal.WithLabelValues(path, strconv.Itoa(code)).Inc()
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
