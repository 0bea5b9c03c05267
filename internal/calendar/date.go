package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar day with no time-of-day and no zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates the components and returns the Date. It rejects days that
// do not exist in the given month, e.g. 30 February.
func NewDate(year int, month time.Month, day int) (Date, error) {
	if month < time.January || month > time.December {
		return Date{}, fmt.Errorf("%w: month %d out of range", ErrParse, month)
	}
	if day < 1 || day > 31 {
		return Date{}, fmt.Errorf("%w: day %d out of range", ErrParse, day)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return Date{}, fmt.Errorf("%w: %s has no day %d in %d", ErrParse, month, day, year)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// DateOf returns the local calendar date of t.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current local calendar date.
func Today() Date { return DateOf(time.Now()) }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to, or
// after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrParse, string(b))
	}
	*d = DateOf(t)
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var norwegianMonths = map[string]time.Month{
	"januar":    time.January,
	"februar":   time.February,
	"mars":      time.March,
	"april":     time.April,
	"mai":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"august":    time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"desember":  time.December,
}

// Matches "15. mars" anywhere in the text, so a leading weekday
// ("Fredag 15. mars") is tolerated. The day may not follow another digit.
var norwegianDateRe = regexp.MustCompile(`(?:^|\D)(\d{1,2})\.\s*(\p{L}+)`)

// ParseNorwegianDate parses pickup date text such as "15. mars". The site never
// prints a year, so the date is placed at its nearest occurrence on or after
// ref: a day/month already passed in ref's year belongs to the next year. The
// day must exist in ref's year and, when rolled, in the following year too.
func ParseNorwegianDate(text string, ref Date) (Date, error) {
	m := norwegianDateRe.FindStringSubmatch(text)
	if m == nil {
		return Date{}, fmt.Errorf("%w: %q", ErrParse, text)
	}

	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return Date{}, fmt.Errorf("%w: bad day in %q", ErrParse, text)
	}

	month, ok := norwegianMonths[strings.ToLower(m[2])]
	if !ok {
		return Date{}, fmt.Errorf("%w: unknown month %q in %q", ErrParse, m[2], text)
	}

	d, err := NewDate(ref.Year, month, day)
	if err != nil {
		return Date{}, fmt.Errorf("%q: %w", text, err)
	}
	if d.Before(ref) {
		if d, err = NewDate(ref.Year+1, month, day); err != nil {
			return Date{}, fmt.Errorf("%q: %w", text, err)
		}
	}
	return d, nil
}
