package bencode

import (
	"errors"
	"fmt"
)

var ErrTrailingBytes = errors.New("bencode: unused trailing bytes")

// Malformed bencode input
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("bencode: syntax error: %s", e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// A value of the wrong kind was found where another was expected.
type TypeError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("bencode: expected %s, got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("bencode: key %q: expected %s, got %s", e.Key, e.Want, e.Got)
}

type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("bencode: missing key %q", e.Key)
}
