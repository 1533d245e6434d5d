package tracker

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/al002/zbfetch/pkg/bencode"
	"github.com/al002/zbfetch/pkg/metainfo"
)

func encode(t *testing.T, d bencode.Dict) []byte {
	t.Helper()
	b, err := bencode.Encode(d)
	require.NoError(t, err)
	return b
}

func TestParseAnnounceFailure(t *testing.T) {
	resp, err := ParseAnnounce([]byte("d14:failure reason11:bad requeste"))
	require.NoError(t, err)
	require.True(t, resp.Failed())
	assert.Equal(t, "bad request", resp.Failure.Reason)
	assert.Empty(t, resp.Peers)
}

func TestParseAnnounceFailureNotString(t *testing.T) {
	resp, err := ParseAnnounce([]byte("d14:failure reasoni3ee"))
	require.NoError(t, err)
	require.True(t, resp.Failed())
	assert.Equal(t, "unknown error", resp.Failure.Reason)
}

func TestParseAnnounceDefaults(t *testing.T) {
	resp, err := ParseAnnounce([]byte("de"))
	require.NoError(t, err)
	assert.False(t, resp.Failed())
	assert.Equal(t, 600*time.Second, resp.Interval)
	assert.Zero(t, resp.MinInterval)
	assert.Zero(t, resp.Complete)
	assert.Zero(t, resp.Incomplete)
	assert.Empty(t, resp.Peers)
	assert.Empty(t, resp.TrackerID)
}

func TestParseAnnounceSuccess(t *testing.T) {
	id := bytes.Repeat([]byte("p"), 20)
	body := encode(t, bencode.Dict{
		"interval":        bencode.Integer(1800),
		"min interval":    bencode.Integer(60),
		"tracker id":      bencode.ByteString("abc"),
		"warning message": bencode.ByteString("slow down"),
		"complete":        bencode.Integer(5),
		"incomplete":      bencode.Integer(2),
		"peers": bencode.List{
			bencode.Dict{"ip": bencode.ByteString("10.0.0.1"), "port": bencode.Integer(6881), "peer id": bencode.ByteString(id)},
			bencode.Dict{"ip": bencode.ByteString("::1"), "port": bencode.Integer(51413)},
			bencode.Dict{"ip": bencode.ByteString("10.0.0.2"), "port": bencode.Integer(1), "peer_id": bencode.ByteString(id)},
			// malformed entries
			bencode.Dict{"ip": bencode.ByteString("10.0.0.3")},
			bencode.Dict{"ip": bencode.ByteString("not an ip"), "port": bencode.Integer(1)},
			bencode.Dict{"ip": bencode.ByteString("10.0.0.4"), "port": bencode.Integer(70000)},
			bencode.Dict{"ip": bencode.ByteString("10.0.0.5"), "port": bencode.Integer(1), "peer id": bencode.ByteString("short")},
			bencode.Integer(7),
		},
	})

	resp, err := ParseAnnounce(body)
	require.NoError(t, err)
	assert.Equal(t, 1800*time.Second, resp.Interval)
	assert.Equal(t, 60*time.Second, resp.MinInterval)
	assert.Equal(t, "abc", resp.TrackerID)
	assert.Equal(t, "slow down", resp.WarningMessage)
	assert.Equal(t, int64(5), resp.Complete)
	assert.Equal(t, int64(2), resp.Incomplete)

	require.Len(t, resp.Peers, 3)
	assert.True(t, resp.Peers[0].Equal(Peer{IP: net.ParseIP("10.0.0.1"), Port: 6881, ID: id}))
	assert.True(t, resp.Peers[1].Equal(Peer{IP: net.ParseIP("::1"), Port: 51413}))
	assert.Nil(t, resp.Peers[1].ID)
	assert.Equal(t, id, resp.Peers[2].ID)
}

func TestParseAnnounceUnsortedKeys(t *testing.T) {
	resp, err := ParseAnnounce([]byte("d8:intervali900e5:peers6:\x0a\x00\x00\x01\x1a\xe18:completei1ee"))
	require.NoError(t, err)
	assert.Equal(t, 900*time.Second, resp.Interval)
	assert.Equal(t, int64(1), resp.Complete)
	require.Len(t, resp.Peers, 1)
	assert.Equal(t, "10.0.0.1:6881", resp.Peers[0].Addr())
}

func TestParseAnnounceCompact(t *testing.T) {
	compact := []byte{
		10, 0, 0, 1, 0x1a, 0xe1,
		192, 168, 1, 2, 0x00, 0x50,
	}

	resp, err := ParseAnnounce(encode(t, bencode.Dict{"peers": bencode.ByteString(compact)}))
	require.NoError(t, err)
	require.Len(t, resp.Peers, 2)
	assert.Equal(t, "10.0.0.1:6881", resp.Peers[0].Addr())
	assert.Equal(t, "192.168.1.2:80", resp.Peers[1].Addr())
	for _, p := range resp.Peers {
		assert.Nil(t, p.ID)
	}
}

func TestParseAnnounceCompact6(t *testing.T) {
	v6 := net.ParseIP("2001:db8::1")
	peers6 := append([]byte(v6.To16()), 0x1a, 0xe1)

	resp, err := ParseAnnounce(encode(t, bencode.Dict{
		"peers":  bencode.ByteString([]byte{127, 0, 0, 1, 0, 1}),
		"peers6": bencode.ByteString(peers6),
	}))
	require.NoError(t, err)
	require.Len(t, resp.Peers, 2)
	assert.True(t, resp.Peers[1].Equal(Peer{IP: v6, Port: 6881}))
}

func TestDecodePeersCompact(t *testing.T) {
	for n := 0; n < 5; n++ {
		b := bytes.Repeat([]byte{1, 2, 3, 4, 0, 9}, n)
		peers, err := DecodePeersCompact(b)
		require.NoError(t, err)
		assert.Len(t, peers, n)

		// a partial trailing record is dropped
		peers, err = DecodePeersCompact(append(b, 1, 2, 3))
		require.NoError(t, err)
		assert.Len(t, peers, n)
	}
}

func TestParseAnnounceMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not bencode":     "<html>",
		"not dictionary":  "li1ee",
		"interval string": "d8:interval3:abce",
		"negative count":  "d8:completei-1ee",
		"peers integer":   "d5:peersi1ee",
		"peers6 list":     "d6:peers6lee",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAnnounce([]byte(body))
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestParseScrape(t *testing.T) {
	var h metainfo.Hash
	for i := range h {
		h[i] = byte(i)
	}

	body := encode(t, bencode.Dict{
		"files": bencode.Dict{
			string(h[:]): bencode.Dict{
				"complete":   bencode.Integer(5),
				"downloaded": bencode.Integer(100),
				"incomplete": bencode.Integer(2),
			},
		},
	})

	m, err := ParseScrape(body)
	require.NoError(t, err)
	require.Contains(t, m, h)
	assert.Equal(t, TorrentScrape{Complete: 5, Downloaded: 100, Incomplete: 2}, m[h])

	var other metainfo.Hash
	_, ok := m[other]
	assert.False(t, ok)
}

func TestParseScrapeErrors(t *testing.T) {
	_, err := ParseScrape([]byte("d14:failure reason7:go awaye"))
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "go away", te.FailureReason)

	_, err = ParseScrape([]byte("de"))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = ParseScrape([]byte("d5:filesd20:aaaaaaaaaaaaaaaaaaaad8:completei1eeee"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestScrapeURL(t *testing.T) {
	var h metainfo.Hash
	h[0] = 0xff

	u := ScrapeURL("http://t.example/announce", h)
	assert.Equal(t, "http://t.example/scrape?info_hash=%FF"+repeat("%00", 19), u)

	u = ScrapeURL("http://t.example/announce.php?passkey=x", h)
	assert.Equal(t, "http://t.example/scrape.php?passkey=x&info_hash=%FF"+repeat("%00", 19), u)

	// no "announce" in the path: left unchanged
	u = ScrapeURL("http://t.example/tr", h)
	assert.Equal(t, "http://t.example/tr?info_hash=%FF"+repeat("%00", 19), u)
}

func repeat(s string, n int) string {
	return string(bytes.Repeat([]byte(s), n))
}
