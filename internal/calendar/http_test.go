package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "avfallsor-mqtt" {
			t.Errorf("unexpected user agent %q", ua)
		}
		_, _ = w.Write([]byte("<html><body>Hei</body></html>"))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != "<html><body>Hei</body></html>" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestHTTPFetcher_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", fe.StatusCode)
	}
	if !errors.Is(err, ErrFetch) {
		t.Errorf("expected errors.Is(err, ErrFetch)")
	}
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(nil).Fetch(context.Background(), url)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestHTTPFetcher_RejectsOversizedBody(t *testing.T) {
	page := strings.Repeat("x", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client())
	f.MaxBodyBytes = 63
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetch) || !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("expected oversized body to fail with ErrFetch, got %v", err)
	}

	f.MaxBodyBytes = 64
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("body at the limit should pass: %v", err)
	}
	if len(body) != 64 {
		t.Errorf("expected 64 bytes, got %d", len(body))
	}
}

func TestHTTPFetcher_DefaultLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, maxBodyBytes+1))
	}))
	defer srv.Close()

	if _, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL); !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("expected errBodyTooLarge, got %v", err)
	}
}
