package infohash

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

const Size = 20

// 20-byte SHA1 hash used for info and pieces.
type T [Size]byte

func HashBytes(b []byte) T {
	return T(sha1.Sum(b))
}

func FromBytes(b []byte) (t T, err error) {
	if len(b) != Size {
		return T{}, fmt.Errorf("hash has bad length: %d", len(b))
	}
	copy(t[:], b)
	return t, nil
}

func FromHexString(s string) (t T, err error) {
	if len(s) != 2*Size {
		return T{}, fmt.Errorf("hash hex string has bad length: %d", len(s))
	}

	n, err := hex.Decode(t[:], []byte(s))
	if err != nil {
		return T{}, err
	}

	if n != Size {
		return T{}, fmt.Errorf("hex.Decode decoded %d bytes, expected %d", n, Size)
	}

	return t, nil
}

func (t T) Bytes() []byte {
	return t[:]
}

func (t T) String() string {
	return t.HexString()
}

func (t T) HexString() string {
	return hex.EncodeToString(t[:])
}

// URLEncoded returns the raw hash percent-encoded for a query string.
func (t T) URLEncoded() string {
	return Escape(t[:])
}

const upperhex = "0123456789ABCDEF"

// Escape percent-encodes every byte outside A-Z a-z 0-9 . - _ ~
func Escape(b []byte) string {
	var sb strings.Builder
	sb.Grow(3 * len(b))
	for _, c := range b {
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '.' || c == '-' || c == '_' || c == '~':
		return true
	}
	return false
}
