package tracker

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDecode marks a response that is not a well-formed tracker reply.
var ErrDecode = errors.New("cannot decode response")

func decodeErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

// TransportError reports that the tracker could not be reached or did not
// produce a usable response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tracker %s: %s", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-200 reply whose body is not a tracker response.
type StatusError struct {
	Code   int
	Header http.Header
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %q", e.Code, e.Body)
}

// Error is a failure reason returned by the tracker where the protocol has
// no result variant for it (scrape).
type Error struct {
	FailureReason string
}

func (e *Error) Error() string {
	return e.FailureReason
}
