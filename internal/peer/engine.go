// Package peer implements a single-connection download over the peer wire
// protocol: handshake, then every block of the payload is requested in order
// while incoming blocks are assembled into per-piece buffers.
package peer

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/al002/zbfetch/internal/log"
	"github.com/al002/zbfetch/pkg/metainfo"
)

var ErrNotComplete = errors.New("download is not complete")

type Config struct {
	ConnectTimeout time.Duration
	// ReadTimeout bounds every read from the peer. Zero disables it.
	ReadTimeout time.Duration
	// OnBlock is called from the receive duty after each stored block with
	// the number of bytes it carried.
	OnBlock func(n int)
	// Dial replaces the TCP dialer when set.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
	// Source is where addr came from, for logging.
	Source Source
}

var DefaultConfig = Config{
	ConnectTimeout: 10 * time.Second,
	ReadTimeout:    2 * time.Minute,
}

// Engine downloads a whole torrent payload from one peer. An engine runs
// once; a new one is needed to retry.
type Engine struct {
	addr   string
	info   *metainfo.TorrentInfo
	peerID [20]byte
	cfg    Config
	log    log.Logger

	state    atomic.Int32
	received atomic.Int64

	mu       sync.Mutex
	err      error
	remoteID [20]byte
	pieces   []*pieceBuffer
}

func New(addr string, info *metainfo.TorrentInfo, peerID [20]byte, cfg Config, l log.Logger) *Engine {
	return &Engine{
		addr:   addr,
		info:   info,
		peerID: peerID,
		cfg:    cfg,
		log:    l.With("peer", addr, "source", cfg.Source.String()),
	}
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

// Err returns the reason of an abort, nil otherwise.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine) RemotePeerID() [20]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remoteID
}

// Received is the number of block bytes stored so far.
func (e *Engine) Received() int64 {
	return e.received.Load()
}

// Pieces returns the assembled piece buffers in index order, or nil unless
// the engine is complete.
func (e *Engine) Pieces() [][]byte {
	if e.State() != Complete {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ret := make([][]byte, len(e.pieces))
	for i, p := range e.pieces {
		ret[i] = p.data
	}
	return ret
}

// WriteTo writes the payload to w in piece order.
func (e *Engine) WriteTo(w io.Writer) (int64, error) {
	pieces := e.Pieces()
	if pieces == nil {
		return 0, ErrNotComplete
	}

	var total int64
	for _, p := range pieces {
		n, err := w.Write(p)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Run connects to the peer and downloads the payload.
func (e *Engine) Run(ctx context.Context) error {
	dial := e.cfg.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: e.cfg.ConnectTimeout}
		dial = d.DialContext
	}

	dctx := ctx
	if e.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, e.cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := dial(dctx, "tcp", e.addr)
	if err != nil {
		return e.abort(&ConnectionError{Addr: e.addr, Err: err})
	}

	return e.RunConn(ctx, conn)
}

// RunConn downloads the payload over an established connection. The engine
// owns conn and closes it before returning.
func (e *Engine) RunConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	if e.State() != Connecting {
		return errors.New("engine already ran")
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	r := bufio.NewReader(conn)

	if err := e.handshake(ctx, conn, r); err != nil {
		return e.abort(err)
	}

	if err := e.start(ctx, conn, r); err != nil {
		return e.abort(err)
	}

	if err := e.exchange(ctx, conn, r); err != nil {
		return e.abort(err)
	}

	return nil
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	e.log.Debug("peer state", "state", s.String())
}

func (e *Engine) abort(err error) error {
	prev := e.State()
	if prev.Terminal() {
		return e.Err()
	}

	aerr := &AbortError{State: prev, Err: err}

	e.mu.Lock()
	e.err = aerr
	e.mu.Unlock()

	e.setState(Aborted)
	e.log.Warn("peer connection aborted", "state", prev.String(), "error", err)

	return aerr
}

// connErr maps an I/O error to the error the engine aborts with.
func (e *Engine) connErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrProtocolViolation) {
		return err
	}
	return &ConnectionError{Addr: e.addr, Err: err}
}

func (e *Engine) setReadDeadline(conn net.Conn) error {
	if e.cfg.ReadTimeout <= 0 {
		return nil
	}
	return conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout))
}

func (e *Engine) handshake(ctx context.Context, conn net.Conn, r *bufio.Reader) error {
	out := Handshake{
		InfoHash: e.info.InfoHash,
		PeerID:   e.peerID,
	}
	b, _ := out.MarshalBinary()

	if _, err := conn.Write(b); err != nil {
		return e.connErr(ctx, err)
	}
	e.setState(HandshakeSent)

	if err := e.setReadDeadline(conn); err != nil {
		return e.connErr(ctx, err)
	}

	in, err := ReadHandshake(r)
	if err != nil {
		return e.connErr(ctx, err)
	}

	if in.InfoHash != out.InfoHash {
		return violation("info hash mismatch: got %x", in.InfoHash[:])
	}

	e.mu.Lock()
	e.remoteID = in.PeerID
	e.mu.Unlock()

	e.setState(HandshakeVerified)
	return nil
}

// start sends unchoke and interested and expects a bitfield as the first
// message. The bitfield is not used: every piece is requested.
func (e *Engine) start(ctx context.Context, conn net.Conn, r *bufio.Reader) error {
	var b []byte
	b = AppendMessage(b, Unchoke, nil)
	b = AppendMessage(b, Interested, nil)
	if _, err := conn.Write(b); err != nil {
		return e.connErr(ctx, err)
	}

	if err := e.setReadDeadline(conn); err != nil {
		return e.connErr(ctx, err)
	}

	length, err := readLength(r)
	if err != nil {
		return e.connErr(ctx, err)
	}
	if length == 0 {
		return violation("keep-alive before bitfield")
	}

	id, err := r.ReadByte()
	if err != nil {
		return e.connErr(ctx, err)
	}
	if MessageID(id) != Bitfield {
		return violation("first message is %s, want bitfield", MessageID(id))
	}

	if err := discard(r, int64(length)-1); err != nil {
		return e.connErr(ctx, err)
	}

	e.setState(BitfieldReceived)
	return nil
}

func (e *Engine) exchange(ctx context.Context, conn net.Conn, r *bufio.Reader) error {
	mi := &e.info.MetaInfo

	sizes := make([]int64, mi.NumPieces())
	for i := range sizes {
		sizes[i] = mi.PieceSize(i)
	}

	e.mu.Lock()
	e.pieces = newPieceBuffers(sizes)
	pieces := e.pieces
	e.mu.Unlock()

	e.setState(Exchanging)

	total := e.info.TotalLength()
	if total == 0 {
		e.setState(Complete)
		return nil
	}

	var (
		g      errgroup.Group
		reqErr error
	)

	g.Go(func() error {
		reqErr = e.requestAll(conn, sizes)
		if reqErr != nil && e.State() != Complete {
			// unblocks the receive duty
			conn.Close()
		}
		return nil
	})

	g.Go(func() error {
		err := e.receive(conn, r, pieces, total)
		if err == nil {
			e.setState(Complete)
			e.log.Debug("download complete", "bytes", total)
		}
		// unblocks a pending request write
		conn.Close()
		return err
	})

	err := g.Wait()
	switch {
	case err == nil:
		return nil
	case reqErr != nil && errors.Is(err, net.ErrClosed):
		return e.connErr(ctx, reqErr)
	default:
		return e.connErr(ctx, err)
	}
}

// requestAll sends a request for every block of every piece in order, one
// write per piece.
func (e *Engine) requestAll(conn net.Conn, sizes []int64) error {
	var b []byte
	for i, size := range sizes {
		b = b[:0]
		for begin := int64(0); begin < size; begin += BlockSize {
			length := min(int64(BlockSize), size-begin)
			b = appendRequest(b, uint32(i), uint32(begin), uint32(length))
		}

		if _, err := conn.Write(b); err != nil {
			return err
		}
	}

	e.log.Debug("all blocks requested", "pieces", len(sizes))
	return nil
}

// receive reads messages until total block bytes are stored.
func (e *Engine) receive(conn net.Conn, r *bufio.Reader, pieces []*pieceBuffer, total int64) error {
	for e.received.Load() < total {
		if err := e.setReadDeadline(conn); err != nil {
			return err
		}

		length, err := readLength(r)
		if err != nil {
			return err
		}

		if length == 0 {
			if _, err := conn.Write(keepAlive); err != nil {
				return err
			}
			continue
		}

		id, err := r.ReadByte()
		if err != nil {
			return err
		}

		if MessageID(id) != Piece {
			if err := discard(r, int64(length)-1); err != nil {
				return err
			}
			continue
		}

		if length < pieceHeaderLen {
			return violation("piece message of length %d", length)
		}

		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return err
		}
		index := int(binary.BigEndian.Uint32(hdr[0:4]))
		begin := int(binary.BigEndian.Uint32(hdr[4:8]))
		n := int(length - pieceHeaderLen)

		if index >= len(pieces) {
			return violation("block for piece %d of %d", index, len(pieces))
		}
		p := pieces[index]
		if begin+n > len(p.data) {
			return violation("block %d+%d outside piece %d of size %d", begin, n, index, len(p.data))
		}

		if err := p.fill(r, begin, n); err != nil {
			return err
		}

		e.received.Add(int64(n))
		if e.cfg.OnBlock != nil {
			e.cfg.OnBlock(n)
		}

		if p.full() {
			e.log.Debug("piece buffered", "index", index)
		}
	}

	return nil
}
