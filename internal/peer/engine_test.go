package peer_test

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"math/rand"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/al002/zbfetch/internal/log"
	"github.com/al002/zbfetch/internal/peer"
	"github.com/al002/zbfetch/internal/peer/peertest"
	"github.com/al002/zbfetch/pkg/bencode"
	"github.com/al002/zbfetch/pkg/metainfo"
)

const pieceLength = 16384

var (
	localID  = [20]byte{'-', 'Z', 'B', '0', '0', '0', '1', '-', '0', '0', '0', '0', '0', '0', '0', '0', '0', '0', '0', '1'}
	remoteID = [20]byte{'-', 'X', 'X', '0', '0', '0', '1', '-', '9', '9', '9', '9', '9', '9', '9', '9', '9', '9', '9', '9'}
)

func makeTorrent(t *testing.T, payload []byte) *metainfo.TorrentInfo {
	t.Helper()

	var pieces []byte
	for off := 0; off < len(payload); off += pieceLength {
		end := min(off+pieceLength, len(payload))
		sum := sha1.Sum(payload[off:end])
		pieces = append(pieces, sum[:]...)
	}

	b, err := bencode.Encode(bencode.Dict{
		"announce": bencode.ByteString("http://tracker.example/announce"),
		"info": bencode.Dict{
			"name":         bencode.ByteString("payload.bin"),
			"piece length": bencode.Integer(pieceLength),
			"length":       bencode.Integer(len(payload)),
			"pieces":       bencode.ByteString(pieces),
		},
	})
	require.NoError(t, err)

	ti, err := metainfo.Decode(b)
	require.NoError(t, err)
	return ti
}

func makePayload(n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(1)).Read(b)
	return b
}

func newSeeder(ti *metainfo.TorrentInfo, payload []byte) *peertest.Seeder {
	return &peertest.Seeder{
		InfoHash:    ti.InfoHash,
		PeerID:      remoteID,
		Payload:     payload,
		PieceLength: pieceLength,
	}
}

func testConfig() peer.Config {
	return peer.Config{
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    5 * time.Second,
	}
}

func run(t *testing.T, s *peertest.Seeder, ti *metainfo.TorrentInfo, cfg peer.Config) (*peer.Engine, error) {
	t.Helper()

	addr, done, err := s.Listen()
	require.NoError(t, err)

	e := peer.New(addr, ti, localID, cfg, log.Discard())
	runErr := e.Run(context.Background())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("seeder did not finish")
	}

	return e, runErr
}

func TestDownload(t *testing.T) {
	payload := makePayload(3*pieceLength + 1000)
	ti := makeTorrent(t, payload)
	s := newSeeder(ti, payload)

	var blocks atomic.Int64
	cfg := testConfig()
	cfg.OnBlock = func(n int) { blocks.Add(int64(n)) }

	e, err := run(t, s, ti, cfg)
	require.NoError(t, err)

	assert.Equal(t, peer.Complete, e.State())
	assert.NoError(t, e.Err())
	assert.Equal(t, int64(len(payload)), e.Received())
	assert.Equal(t, int64(len(payload)), blocks.Load())
	assert.Equal(t, remoteID, e.RemotePeerID())

	pieces := e.Pieces()
	require.Len(t, pieces, 4)
	assert.Len(t, pieces[3], 1000)
	assert.Equal(t, payload, bytes.Join(pieces, nil))

	var buf bytes.Buffer
	n, err := e.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())

	// 4 blocks for each full piece, one for the short last piece
	assert.Equal(t, int32(3*4+1), s.Requests.Load())
	assert.Equal(t, int32(2), s.Controls.Load())
	assert.Equal(t, ti.InfoHash, metainfo.Hash(s.Handshake.InfoHash))
	assert.Equal(t, localID, s.Handshake.PeerID)
	assert.Zero(t, s.KeepAlives.Load())
}

func TestKeepAliveEcho(t *testing.T) {
	payload := makePayload(2 * pieceLength)
	ti := makeTorrent(t, payload)
	s := newSeeder(ti, payload)
	s.SendKeepAlive = true

	e, err := run(t, s, ti, testConfig())
	require.NoError(t, err)

	assert.Equal(t, peer.Complete, e.State())
	assert.Equal(t, int32(1), s.KeepAlives.Load())
	assert.Equal(t, int64(len(payload)), e.Received())
	assert.Equal(t, payload, bytes.Join(e.Pieces(), nil))
}

func TestIgnoresOtherMessages(t *testing.T) {
	payload := makePayload(pieceLength + 10)
	ti := makeTorrent(t, payload)
	s := newSeeder(ti, payload)

	var noise []byte
	noise = peer.AppendMessage(noise, peer.Have, []byte{0, 0, 0, 1})
	noise = peer.AppendMessage(noise, peer.Choke, nil)
	noise = peer.AppendMessage(noise, peer.MessageID(20), bytes.Repeat([]byte{7}, 300))
	s.Noise = noise

	e, err := run(t, s, ti, testConfig())
	require.NoError(t, err)
	assert.Equal(t, payload, bytes.Join(e.Pieces(), nil))
}

func TestInfoHashMismatch(t *testing.T) {
	payload := makePayload(pieceLength)
	ti := makeTorrent(t, payload)
	s := newSeeder(ti, payload)
	s.InfoHash[0] ^= 0xff

	e, err := run(t, s, ti, testConfig())
	require.ErrorIs(t, err, peer.ErrProtocolViolation)

	var ae *peer.AbortError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, peer.HandshakeSent, ae.State)
	assert.Equal(t, peer.Aborted, e.State())
	assert.Equal(t, err, e.Err())

	assert.Zero(t, s.Requests.Load())
	assert.Zero(t, s.Controls.Load())
	assert.Nil(t, e.Pieces())

	_, err = e.WriteTo(&bytes.Buffer{})
	assert.ErrorIs(t, err, peer.ErrNotComplete)
}

func TestUnexpectedFirstMessage(t *testing.T) {
	payload := makePayload(pieceLength)
	ti := makeTorrent(t, payload)
	s := newSeeder(ti, payload)
	s.FirstMessage = peer.AppendMessage(nil, peer.Have, []byte{0, 0, 0, 0})

	e, err := run(t, s, ti, testConfig())
	require.ErrorIs(t, err, peer.ErrProtocolViolation)

	var ae *peer.AbortError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, peer.HandshakeVerified, ae.State)
	assert.Equal(t, peer.Aborted, e.State())
	assert.Zero(t, s.Requests.Load())
}

func TestBlockOutsidePiece(t *testing.T) {
	payload := makePayload(pieceLength)
	ti := makeTorrent(t, payload)
	s := newSeeder(ti, payload)

	var bad []byte
	bad = binary.BigEndian.AppendUint32(bad, 9+4)
	bad = append(bad, byte(peer.Piece))
	bad = binary.BigEndian.AppendUint32(bad, 99)
	bad = binary.BigEndian.AppendUint32(bad, 0)
	bad = append(bad, 1, 2, 3, 4)
	s.Noise = bad

	e, err := run(t, s, ti, testConfig())
	require.ErrorIs(t, err, peer.ErrProtocolViolation)

	var ae *peer.AbortError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, peer.Exchanging, ae.State)
	assert.Equal(t, peer.Aborted, e.State())
}

func TestEmptyPayload(t *testing.T) {
	ti := makeTorrent(t, nil)
	s := newSeeder(ti, nil)

	e, err := run(t, s, ti, testConfig())
	require.NoError(t, err)
	assert.Equal(t, peer.Complete, e.State())
	assert.Empty(t, e.Pieces())
	assert.Zero(t, s.Requests.Load())
}

func TestConnectFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	ti := makeTorrent(t, makePayload(10))
	e := peer.New(addr, ti, localID, testConfig(), log.Discard())
	err = e.Run(context.Background())

	var ce *peer.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, addr, ce.Addr)

	var ae *peer.AbortError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, peer.Connecting, ae.State)
	assert.Equal(t, peer.Aborted, e.State())
}

func TestCustomDialer(t *testing.T) {
	dialErr := errors.New("no route")
	cfg := testConfig()
	cfg.Dial = func(context.Context, string, string) (net.Conn, error) {
		return nil, dialErr
	}

	e := peer.New("10.0.0.1:6881", makeTorrent(t, makePayload(10)), localID, cfg, log.Discard())
	err := e.Run(context.Background())
	assert.ErrorIs(t, err, dialErr)
}

// silentPeer accepts a connection and never writes.
func silentPeer(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 512)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	return l.Addr().String()
}

func TestReadTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ReadTimeout = 50 * time.Millisecond

	e := peer.New(silentPeer(t), makeTorrent(t, makePayload(10)), localID, cfg, log.Discard())
	err := e.Run(context.Background())

	var ce *peer.ConnectionError
	require.ErrorAs(t, err, &ce)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}

func TestContextCancel(t *testing.T) {
	cfg := testConfig()
	cfg.ReadTimeout = 0

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	e := peer.New(silentPeer(t), makeTorrent(t, makePayload(10)), localID, cfg, log.Discard())
	err := e.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, peer.Aborted, e.State())
}
