package metainfo

import (
	"errors"
	"fmt"
)

var (
	errNotDict          = errors.New("not a dictionary")
	errInvalidPieceData = errors.New("pieces length is not a multiple of 20")
	errPieceCount       = errors.New("number of pieces does not match payload size")
	errZeroPieceLength  = errors.New("torrent has zero piece length")
	errNegativeLength   = errors.New("negative length")
	errChecksum         = errors.New("md5sum must be 16 raw bytes or 32 hex characters")
)

// DecodeError reports a malformed torrent description. Field is the offending
// key, dotted for nested values ("info.files[2].path").
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("metainfo: %s", e.Err)
	}
	return fmt.Sprintf("metainfo: %s: %s", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(field string, err error) error {
	return &DecodeError{Field: field, Err: err}
}
