package calendar

import (
	"errors"
	"fmt"
)

// Errors returned by the calendar pipeline. Callers match them with errors.Is.
var (
	ErrParse             = errors.New("unparseable pickup date")
	ErrNoScheduleFound   = errors.New("no pickup dates found on calendar page")
	ErrAddressNotFound   = errors.New("address not found")
	ErrAmbiguousAddress  = errors.New("address lookup returned more than one match")
	ErrMalformedResponse = errors.New("malformed address lookup response")
	ErrEmptyAddress      = errors.New("address query is empty")
	ErrFetch             = errors.New("fetch failed")
)

// FetchError reports a network failure or a non-2xx response from a remote page.
type FetchError struct {
	URL        string
	StatusCode int // zero when the request never got a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFetch) match any *FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }
