package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bher20/avfallsor-mqtt/internal/calendar"
	"github.com/bher20/avfallsor-mqtt/internal/storage"
)

type stubSource struct {
	sched   calendar.Schedule
	err     error
	address string
}

func (s *stubSource) Run(ctx context.Context, address string, ref calendar.Date) (calendar.Schedule, error) {
	s.address = address
	return s.sched, s.err
}

type stubJob struct {
	calls int
	sched calendar.Schedule
	err   error
}

func (j *stubJob) Run(ctx context.Context) (calendar.Schedule, error) {
	j.calls++
	return j.sched, j.err
}

type downStore struct{ storage.Storage }

func (downStore) Ping(ctx context.Context) error { return errors.New("connection refused") }

func testDeps(src ScheduleSource, job Refresher) Deps {
	return Deps{
		Provider: calendar.ProviderDescriptor{Key: "avfallsor", Name: "Avfall Sør"},
		Address:  "Testveien 1",
		Source:   src,
		Job:      job,
		Store:    storage.NewMemory(),
		Today: func() calendar.Date {
			return calendar.Date{Year: 2024, Month: time.April, Day: 2}
		},
	}
}

func TestHealthEndpoints(t *testing.T) {
	mux := NewMux(testDeps(&stubSource{}, nil))
	for _, path := range []string{"/healthz", "/readyz", "/livez"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestReadyzReportsStorageFailure(t *testing.T) {
	d := testDeps(&stubSource{}, nil)
	d.Store = downStore{}
	rec := httptest.NewRecorder()
	NewMux(d).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestScheduleReturnsDates(t *testing.T) {
	src := &stubSource{sched: calendar.Schedule{
		"restavfall": {Year: 2024, Month: time.April, Day: 10},
	}}
	rec := httptest.NewRecorder()
	NewMux(testDeps(src, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Provider string            `json:"provider"`
		Address  string            `json:"address"`
		Date     string            `json:"reference_date"`
		Schedule map[string]string `json:"schedule"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Schedule["restavfall"] != "2024-04-10" {
		t.Errorf("unexpected schedule: %v", body.Schedule)
	}
	if body.Date != "2024-04-02" || body.Address != "Testveien 1" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestScheduleAddressOverride(t *testing.T) {
	src := &stubSource{sched: calendar.Schedule{}}
	rec := httptest.NewRecorder()
	NewMux(testDeps(src, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule?address=Annenveien+2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if src.address != "Annenveien 2" {
		t.Errorf("expected override address, got %q", src.address)
	}
}

func TestScheduleErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{calendar.ErrEmptyAddress, http.StatusBadRequest},
		{calendar.ErrAddressNotFound, http.StatusNotFound},
		{calendar.ErrAmbiguousAddress, http.StatusConflict},
		{&calendar.FetchError{URL: "https://example.test", StatusCode: 500}, http.StatusBadGateway},
		{calendar.ErrMalformedResponse, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		NewMux(testDeps(&stubSource{err: tc.err}, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule", nil))
		if rec.Code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestScheduleRejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(testDeps(&stubSource{}, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schedule", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRefreshRunsJob(t *testing.T) {
	job := &stubJob{sched: calendar.Schedule{"papir": {Year: 2024, Month: time.April, Day: 17}}}
	mux := NewMux(testDeps(&stubSource{}, job))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/refresh", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /refresh: expected 405, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if job.calls != 1 {
		t.Errorf("expected 1 run, got %d", job.calls)
	}
}

func TestRefreshWithoutJob(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(testDeps(&stubSource{}, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRefreshWhileRunInProgress(t *testing.T) {
	job := &stubJob{err: storage.ErrLocked}
	rec := httptest.NewRecorder()
	NewMux(testDeps(&stubSource{}, job)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
