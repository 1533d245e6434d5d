package torrent

import (
	"errors"
	"io"

	"github.com/al002/zbfetch/internal/version"
)

const (
	peerIDPrefix = "-ZB" + version.PeerIDVersion + "-"
	peerIDDigits = 20 - len(peerIDPrefix)
)

var ErrInvalidPeerIDDigits = errors.New("peer id needs 12 decimal digits")

// GeneratePeerID builds a peer id from the client prefix and 12 decimal
// digits drawn from r.
func GeneratePeerID(r io.Reader) ([20]byte, error) {
	digits := make([]byte, 0, peerIDDigits)
	buf := make([]byte, peerIDDigits)

	for len(digits) < peerIDDigits {
		if _, err := io.ReadFull(r, buf); err != nil {
			return [20]byte{}, err
		}
		for _, b := range buf {
			// 250 is the largest multiple of 10 that fits a byte
			if b >= 250 || len(digits) == peerIDDigits {
				continue
			}
			digits = append(digits, '0'+b%10)
		}
	}

	return PeerIDWithDigits(string(digits))
}

// PeerIDWithDigits builds a peer id from the client prefix and the given
// digits.
func PeerIDWithDigits(digits string) ([20]byte, error) {
	var id [20]byte

	if len(digits) != peerIDDigits {
		return id, ErrInvalidPeerIDDigits
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return id, ErrInvalidPeerIDDigits
		}
	}

	n := copy(id[:], peerIDPrefix)
	copy(id[n:], digits)
	return id, nil
}
