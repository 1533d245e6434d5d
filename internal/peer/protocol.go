package peer

import (
	"bufio"
	"encoding/binary"
	"io"
)

const (
	ProtocolName = "BitTorrent protocol"
	HandshakeLen = 1 + len(ProtocolName) + 8 + 20 + 20

	// BlockSize is the length requested for every block but the last one
	// of a piece.
	BlockSize = 1 << 12

	requestLen = 13
	// index and begin precede the block data of a piece message
	pieceHeaderLen = 9
)

type MessageID uint8

const (
	Choke MessageID = iota
	Unchoke
	Interested
	NotInterested
	Have
	Bitfield
	Request
	Piece
	Cancel
)

var messageNames = [...]string{
	"choke",
	"unchoke",
	"interested",
	"not interested",
	"have",
	"bitfield",
	"request",
	"piece",
	"cancel",
}

func (id MessageID) String() string {
	if int(id) < len(messageNames) {
		return messageNames[id]
	}
	return "unknown"
}

var keepAlive = []byte{0, 0, 0, 0}

type Handshake struct {
	Reserved [8]byte
	InfoHash [20]byte
	PeerID   [20]byte
}

func (h Handshake) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, HandshakeLen)
	b = append(b, byte(len(ProtocolName)))
	b = append(b, ProtocolName...)
	b = append(b, h.Reserved[:]...)
	b = append(b, h.InfoHash[:]...)
	b = append(b, h.PeerID[:]...)
	return b, nil
}

// ReadHandshake reads a handshake and checks its protocol string. I/O
// failures are returned as is; a wrong protocol string is a protocol
// violation.
func ReadHandshake(r io.Reader) (Handshake, error) {
	var (
		h   Handshake
		buf [HandshakeLen]byte
	)

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return h, err
	}

	if int(buf[0]) != len(ProtocolName) || string(buf[1:1+len(ProtocolName)]) != ProtocolName {
		return h, violation("unexpected protocol string %q", buf[1:1+len(ProtocolName)])
	}

	off := 1 + len(ProtocolName)
	copy(h.Reserved[:], buf[off:off+8])
	copy(h.InfoHash[:], buf[off+8:off+28])
	copy(h.PeerID[:], buf[off+28:off+48])

	return h, nil
}

// AppendMessage appends a framed message with the given id and payload.
func AppendMessage(b []byte, id MessageID, payload []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(1+len(payload)))
	b = append(b, byte(id))
	return append(b, payload...)
}

func appendRequest(b []byte, index, begin, length uint32) []byte {
	b = binary.BigEndian.AppendUint32(b, requestLen)
	b = append(b, byte(Request))
	b = binary.BigEndian.AppendUint32(b, index)
	b = binary.BigEndian.AppendUint32(b, begin)
	return binary.BigEndian.AppendUint32(b, length)
}

// readLength reads the length prefix of the next message. Zero is a
// keep-alive.
func readLength(r *bufio.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func discard(r *bufio.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	return err
}
