package calendar

import (
	"testing"
	"time"
)

func TestNextPickups_OmitsTypesWithoutFutureDates(t *testing.T) {
	assocs := []Association{
		{Date: mustDate(t, 2024, time.April, 1), Types: []string{"restavfall"}},
		{Date: mustDate(t, 2024, time.April, 10), Types: []string{"restavfall"}},
		{Date: mustDate(t, 2024, time.April, 1), Types: []string{"papir"}},
	}

	got := NextPickups(assocs, mustDate(t, 2024, time.April, 2))

	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %v", got)
	}
	if d := got["restavfall"]; d != mustDate(t, 2024, time.April, 10) {
		t.Errorf("expected restavfall 2024-04-10, got %s", d)
	}
	if _, ok := got["papir"]; ok {
		t.Errorf("papir should be absent, got %s", got["papir"])
	}
}

func TestNextPickups_PicksEarliestAndIncludesReferenceDay(t *testing.T) {
	ref := mustDate(t, 2024, time.May, 6)
	assocs := []Association{
		{Date: mustDate(t, 2024, time.May, 20), Types: []string{"papir", "bio"}},
		{Date: mustDate(t, 2024, time.May, 6), Types: []string{"bio"}},
		{Date: mustDate(t, 2024, time.May, 13), Types: []string{"papir"}},
		{Date: mustDate(t, 2024, time.May, 13), Types: []string{"papir"}},
		{Date: mustDate(t, 2024, time.May, 27), Types: nil},
	}

	got := NextPickups(assocs, ref)

	want := Schedule{
		"bio":   mustDate(t, 2024, time.May, 6),
		"papir": mustDate(t, 2024, time.May, 13),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: expected %s, got %s", k, v, got[k])
		}
	}
	if types := got.Types(); len(types) != 2 || types[0] != "bio" || types[1] != "papir" {
		t.Errorf("unexpected sorted types %v", types)
	}
}

func TestNextPickups_Empty(t *testing.T) {
	if got := NextPickups(nil, mustDate(t, 2024, time.May, 6)); len(got) != 0 {
		t.Errorf("expected empty schedule, got %v", got)
	}
}
