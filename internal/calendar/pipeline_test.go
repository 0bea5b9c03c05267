package calendar

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// stubFetcher serves canned bodies keyed by URL prefix.
type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.calls = append(s.calls, url)
	for prefix, body := range s.pages {
		if strings.HasPrefix(url, prefix) {
			return []byte(body), nil
		}
	}
	return nil, &FetchError{URL: url, StatusCode: 404}
}

var testProvider = ProviderDescriptor{
	Key:       "avfallsor",
	Name:      "Avfall Sør",
	LookupURL: "https://avfallsor.no/wp-json/addresses/v1/address",
}

func newStubPipeline(t *testing.T, f *stubFetcher) *Pipeline {
	t.Helper()
	p, err := NewPipeline(testProvider, f)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestPipeline_Run(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://avfallsor.no/wp-json/": `{"Storgata 1": {"href": "/henting/storgata-1/"}}`,
		"https://avfallsor.no/henting/storgata-1/": samplePickupPage,
	}}
	p := newStubPipeline(t, f)
	ref := mustDate(t, 2024, time.April, 2)

	got, err := p.Run(context.Background(), "Storgata 1", ref)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// 1. april has passed, so its pickups belong to next year.
	want := Schedule{
		"restavfall": mustDate(t, 2024, time.April, 10),
		"papir":      mustDate(t, 2025, time.April, 1),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(f.calls) != 2 {
		t.Errorf("expected 2 fetches, got %v", f.calls)
	}
}

func TestPipeline_RunIsRepeatable(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://avfallsor.no/wp-json/": `{"Storgata 1": {"href": "https://avfallsor.no/henting/storgata-1/"}}`,
		"https://avfallsor.no/henting/": samplePickupPage,
	}}
	p := newStubPipeline(t, f)
	ref := mustDate(t, 2024, time.March, 1)

	first, err := p.Run(context.Background(), "Storgata 1", ref)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := p.Run(context.Background(), "Storgata 1", ref)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("runs differ: %v vs %v", first, second)
	}
	if len(first) != 2 {
		t.Errorf("expected papir and restavfall, got %v", first)
	}
}

func TestPipeline_PropagatesErrors(t *testing.T) {
	cases := []struct {
		name  string
		pages map[string]string
		want  error
	}{
		{
			name:  "ambiguous address",
			pages: map[string]string{"https://avfallsor.no/wp-json/": `{"a": {"href": "/a"}, "b": {"href": "/b"}}`},
			want:  ErrAmbiguousAddress,
		},
		{
			name:  "calendar page missing",
			pages: map[string]string{"https://avfallsor.no/wp-json/": `{"a": {"href": "/gone/"}}`},
			want:  ErrFetch,
		},
		{
			name: "page drift",
			pages: map[string]string{
				"https://avfallsor.no/wp-json/": `{"a": {"href": "/henting/a/"}}`,
				"https://avfallsor.no/henting/": `<html><body><h2>Ny side</h2></body></html>`,
			},
			want: ErrNoScheduleFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newStubPipeline(t, &stubFetcher{pages: tc.pages})
			got, err := p.Run(context.Background(), "Storgata 1", mustDate(t, 2024, time.March, 1))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got != nil {
				t.Errorf("expected nil schedule on error, got %v", got)
			}
		})
	}
}
