// Package peertest provides a scripted seeding peer for tests.
package peertest

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/al002/zbfetch/internal/peer"
)

// Seeder serves Payload to a single downloader.
type Seeder struct {
	// InfoHash is echoed in the handshake.
	InfoHash    [20]byte
	PeerID      [20]byte
	Payload     []byte
	PieceLength int64

	// FirstMessage replaces the empty bitfield sent after the handshake.
	FirstMessage []byte
	// SendKeepAlive sends a keep-alive right after the first message.
	SendKeepAlive bool
	// Noise is sent before the first block, e.g. a have message.
	Noise []byte

	Handshake  peer.Handshake
	KeepAlives atomic.Int32
	Requests   atomic.Int32
	Controls   atomic.Int32
}

var errBadRequest = errors.New("request outside payload")

// Serve runs the seeder side of the protocol on conn until the downloader
// closes it. It returns nil on a clean close.
func (s *Seeder) Serve(conn net.Conn) error {
	defer conn.Close()
	r := bufio.NewReader(conn)

	h, err := peer.ReadHandshake(r)
	if err != nil {
		return eof(err)
	}
	s.Handshake = h

	reply, _ := peer.Handshake{InfoHash: s.InfoHash, PeerID: s.PeerID}.MarshalBinary()
	if _, err := conn.Write(reply); err != nil {
		return eof(err)
	}

	first := s.FirstMessage
	if first == nil {
		first = peer.AppendMessage(nil, peer.Bitfield, nil)
	}
	out := append([]byte(nil), first...)
	if s.SendKeepAlive {
		out = append(out, 0, 0, 0, 0)
	}
	out = append(out, s.Noise...)
	if _, err := conn.Write(out); err != nil {
		return eof(err)
	}

	for {
		var lb [4]byte
		if _, err := io.ReadFull(r, lb[:]); err != nil {
			return eof(err)
		}
		length := binary.BigEndian.Uint32(lb[:])
		if length == 0 {
			s.KeepAlives.Add(1)
			continue
		}

		msg := make([]byte, length)
		if _, err := io.ReadFull(r, msg); err != nil {
			return eof(err)
		}

		if peer.MessageID(msg[0]) != peer.Request {
			s.Controls.Add(1)
			continue
		}
		s.Requests.Add(1)

		index := int64(binary.BigEndian.Uint32(msg[1:5]))
		begin := int64(binary.BigEndian.Uint32(msg[5:9]))
		n := int64(binary.BigEndian.Uint32(msg[9:13]))

		off := index*s.PieceLength + begin
		if off+n > int64(len(s.Payload)) {
			return errBadRequest
		}

		var b []byte
		b = binary.BigEndian.AppendUint32(b, uint32(9+n))
		b = append(b, byte(peer.Piece))
		b = binary.BigEndian.AppendUint32(b, uint32(index))
		b = binary.BigEndian.AppendUint32(b, uint32(begin))
		b = append(b, s.Payload[off:off+n]...)
		if _, err := conn.Write(b); err != nil {
			return eof(err)
		}
	}
}

// Listen serves one connection on a loopback listener. The returned channel
// yields the result of Serve.
func (s *Seeder) Listen() (addr string, done <-chan error, err error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	c := make(chan error, 1)
	go func() {
		defer l.Close()
		conn, err := l.Accept()
		if err != nil {
			c <- err
			return
		}
		c <- s.Serve(conn)
	}()

	return l.Addr().String(), c, nil
}

func eof(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		// connection reset by the downloader closing early
		return nil
	}
	return err
}
