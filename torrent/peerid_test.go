package torrent

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePeerID(t *testing.T) {
	src := bytes.NewReader([]byte{
		0, 1, 2, 3, 4, 5, 250, 255, 16, 27, 38, 49,
		// refill after the two rejected bytes
		99, 100, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	})

	id, err := GeneratePeerID(src)
	require.NoError(t, err)
	assert.Equal(t, "-ZB0001-012345678990", string(id[:]))
}

func TestGeneratePeerIDRandom(t *testing.T) {
	id, err := GeneratePeerID(rand.Reader)
	require.NoError(t, err)
	assert.Regexp(t, `^-ZB0001-[0-9]{12}$`, string(id[:]))
}

func TestGeneratePeerIDShortSource(t *testing.T) {
	_, err := GeneratePeerID(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestPeerIDWithDigits(t *testing.T) {
	id, err := PeerIDWithDigits("123456789012")
	require.NoError(t, err)
	assert.Equal(t, "-ZB0001-123456789012", string(id[:]))

	_, err = PeerIDWithDigits("12345")
	assert.ErrorIs(t, err, ErrInvalidPeerIDDigits)

	_, err = PeerIDWithDigits("12345678901x")
	assert.ErrorIs(t, err, ErrInvalidPeerIDDigits)
}
