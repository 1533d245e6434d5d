package peer

import (
	"bufio"
	"io"
)

// pieceBuffer is written only by the receive duty.
type pieceBuffer struct {
	data []byte
	// received is the high-water mark of written bytes. Blocks may arrive
	// out of order so it does not prove the buffer is filled.
	received int
}

func newPieceBuffers(sizes []int64) []*pieceBuffer {
	pieces := make([]*pieceBuffer, len(sizes))
	for i, n := range sizes {
		pieces[i] = &pieceBuffer{data: make([]byte, n)}
	}
	return pieces
}

// fill reads n bytes of block data from r into the buffer at begin.
func (p *pieceBuffer) fill(r *bufio.Reader, begin, n int) error {
	if _, err := io.ReadFull(r, p.data[begin:begin+n]); err != nil {
		return err
	}
	if end := begin + n; end > p.received {
		p.received = end
	}
	return nil
}

func (p *pieceBuffer) full() bool {
	return p.received == len(p.data)
}
