package calendar

import "sort"

// Schedule maps a waste type to its next pickup date.
type Schedule map[string]Date

// Types returns the waste types in s, sorted.
func (s Schedule) Types() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NextPickups returns, for every waste type, the earliest associated date on or
// after ref. Types whose dates are all before ref are left out.
func NextPickups(assocs []Association, ref Date) Schedule {
	out := make(Schedule)
	for _, a := range assocs {
		if a.Date.Before(ref) {
			continue
		}
		for _, t := range a.Types {
			if cur, ok := out[t]; !ok || a.Date.Before(cur) {
				out[t] = a.Date
			}
		}
	}
	return out
}
