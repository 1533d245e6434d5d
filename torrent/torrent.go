package torrent

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/al002/zbfetch/internal/allocator"
	"github.com/al002/zbfetch/internal/announcer"
	"github.com/al002/zbfetch/internal/log"
	"github.com/al002/zbfetch/internal/peer"
	"github.com/al002/zbfetch/internal/storage"
	"github.com/al002/zbfetch/internal/tracker"
	"github.com/al002/zbfetch/internal/trackermanager"
	"github.com/al002/zbfetch/pkg/metainfo"
)

var (
	ErrNoPeers     = errors.New("tracker returned no peers")
	ErrDownloading = errors.New("download already running")
)

type Status int

const (
	Stopped Status = iota
	Downloading
	Seeding
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Downloading:
		return "downloading"
	case Seeding:
		return "seeding"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of a torrent's counters and last tracker results.
type Stats struct {
	Status          Status
	BytesTotal      int64
	BytesDownloaded int64
	BytesUploaded   int64
	BytesLeft       int64
	// ConnectedPeers counts live peer connections past the handshake.
	ConnectedPeers int
	// KnownPeers is the size of the last announced peer list.
	KnownPeers   int
	Seeders      int64
	Leechers     int64
	Interval     time.Duration
	Warning      string
	LastAnnounce time.Time
	Error        error
}

type Torrent struct {
	session *Session
	id      string
	addedAt time.Time
	info    *metainfo.TorrentInfo

	// nil when the torrent has no usable tracker
	announcer *announcer.Announcer

	log log.Logger

	// mu guards the fields below. They are written by announces and by
	// the receive duty of a running download.
	mu              sync.Mutex
	status          Status
	started         bool
	bytesDownloaded int64
	bytesUploaded   int64
	peers           []tracker.Peer
	engine          *peer.Engine
	seeders         int64
	leechers        int64
	interval        time.Duration
	warning         string
	lastAnnounce    time.Time
	lastError       error
	cancel          context.CancelFunc
}

func newTorrent(s *Session, ti *metainfo.TorrentInfo) *Torrent {
	t := &Torrent{
		session: s,
		id:      ti.HashHex(),
		addedAt: time.Now(),
		info:    ti,
		log:     s.log.With("torrent", ti.HashHex()),
	}

	tier, err := s.trackerManager.Tier(ti.Trackers())
	if err != nil {
		t.log.Warn("torrent has no usable tracker", "trackers", ti.Trackers())
	} else {
		t.announcer = announcer.New(tier, s.announcerConfig(), t.log)
	}

	return t
}

// ID is the hex infohash.
func (t *Torrent) ID() string {
	return t.id
}

func (t *Torrent) Name() string {
	return t.info.MetaInfo.Name
}

func (t *Torrent) InfoHash() metainfo.Hash {
	return t.info.InfoHash
}

func (t *Torrent) Info() *metainfo.TorrentInfo {
	return t.info
}

func (t *Torrent) AddedAt() time.Time {
	return t.addedAt
}

func (t *Torrent) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Torrent) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Stats{
		Status:          t.status,
		BytesTotal:      t.info.TotalLength(),
		BytesDownloaded: t.bytesDownloaded,
		BytesUploaded:   t.bytesUploaded,
		BytesLeft:       t.bytesLeft(),
		ConnectedPeers:  t.connectedPeers(),
		KnownPeers:      len(t.peers),
		Seeders:         t.seeders,
		Leechers:        t.leechers,
		Interval:        t.interval,
		Warning:         t.warning,
		LastAnnounce:    t.lastAnnounce,
		Error:           t.lastError,
	}
}

func (t *Torrent) connectedPeers() int {
	if t.engine == nil {
		return 0
	}
	switch t.engine.State() {
	case peer.Connecting, peer.Complete, peer.Aborted:
		return 0
	}
	return 1
}

// Peers returns the peers of the last successful announce.
func (t *Torrent) Peers() []tracker.Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]tracker.Peer(nil), t.peers...)
}

type File struct {
	path   string
	length int64
}

func (f File) Path() string {
	return f.path
}

func (f File) Length() int64 {
	return f.length
}

// Files returns the payload files as they are laid out under the data dir.
func (t *Torrent) Files() ([]File, error) {
	entries, err := storage.Layout(t.info)
	if err != nil {
		return nil, err
	}

	files := make([]File, len(entries))
	for i, e := range entries {
		files[i] = File{path: e.Path, length: e.Length}
	}
	return files, nil
}

func (t *Torrent) bytesLeft() int64 {
	return max(t.info.TotalLength()-t.bytesDownloaded, 0)
}

func (t *Torrent) announceTorrent() tracker.Torrent {
	t.mu.Lock()
	defer t.mu.Unlock()

	return tracker.Torrent{
		InfoHash:        t.info.InfoHash,
		PeerID:          t.session.peerID,
		Port:            t.session.config.Port,
		Key:             t.session.key,
		BytesDownloaded: t.bytesDownloaded,
		BytesUploaded:   t.bytesUploaded,
		BytesLeft:       t.bytesLeft(),
	}
}

func (t *Torrent) addDownloaded(n int) {
	t.mu.Lock()
	t.bytesDownloaded += int64(n)
	t.mu.Unlock()
}

// Announce asks the tracker for peers. The first announce carries the
// started event. A tracker failure is returned as a response, not an error.
func (t *Torrent) Announce(ctx context.Context) (*tracker.AnnounceResponse, error) {
	event := tracker.EventNone

	t.mu.Lock()
	if !t.started {
		event = tracker.EventStarted
	}
	t.mu.Unlock()

	return t.announce(ctx, event)
}

func (t *Torrent) announce(ctx context.Context, event tracker.Event) (*tracker.AnnounceResponse, error) {
	if t.announcer == nil {
		return nil, trackermanager.ErrNoTracker
	}

	resp, err := t.announcer.Announce(ctx, event, t.announceTorrent())

	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastAnnounce = time.Now()

	if err != nil {
		aerr := announcer.Describe(err, t.announcer.Tracker.URL())
		t.lastError = aerr
		t.log.Warn("announce failed", "event", event.String(), "error", aerr.Message)
		return nil, aerr
	}

	if resp.Failed() {
		t.lastError = &tracker.Error{FailureReason: resp.Failure.Reason}
		t.log.Warn("tracker rejected announce", "event", event.String(), "reason", resp.Failure.Reason)
		return resp, nil
	}

	t.lastError = nil
	if event == tracker.EventStarted {
		t.started = true
	}
	t.peers = resp.Peers
	t.seeders = resp.Complete
	t.leechers = resp.Incomplete
	t.interval = resp.Interval
	t.warning = resp.WarningMessage

	t.log.Info("announced",
		"event", event.String(),
		"peers", len(resp.Peers),
		"interval", resp.Interval,
	)

	return resp, nil
}

// Scrape asks the tracker for swarm statistics. It returns nil, nil when
// the tracker does not know the torrent.
func (t *Torrent) Scrape(ctx context.Context) (*tracker.TorrentScrape, error) {
	if t.announcer == nil {
		return nil, trackermanager.ErrNoTracker
	}

	ts, err := t.announcer.Scrape(ctx, t.info.InfoHash)
	if err != nil {
		return nil, announcer.Describe(err, t.announcer.Tracker.URL())
	}

	if ts != nil {
		t.mu.Lock()
		t.seeders = ts.Complete
		t.leechers = ts.Incomplete
		t.mu.Unlock()
	}

	return ts, nil
}

// Download fetches the whole payload from one peer and writes it under the
// session data dir. With an empty addr the first peer of an announce is
// used. The completed event is only sent when a start was announced.
func (t *Torrent) Download(ctx context.Context, addr string) error {
	t.mu.Lock()
	if t.status == Downloading {
		t.mu.Unlock()
		return ErrDownloading
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.status = Downloading
	t.bytesDownloaded = 0
	t.cancel = cancel
	t.mu.Unlock()

	err := t.download(ctx, addr)

	t.mu.Lock()
	t.cancel = nil
	t.engine = nil
	started := t.started
	if err != nil {
		t.status = Stopped
		t.lastError = err
	} else {
		t.status = Seeding
	}
	t.mu.Unlock()

	if err != nil {
		t.log.Error("download failed", "error", err)
		return err
	}

	t.log.Info("download complete", "bytes", t.info.TotalLength())

	if started && t.announcer != nil {
		if _, err := t.announce(ctx, tracker.EventCompleted); err != nil {
			t.log.Warn("completed announce failed", "error", err)
		}
	}

	return nil
}

func (t *Torrent) download(ctx context.Context, addr string) error {
	source := peer.Manual
	if addr == "" {
		source = peer.Tracker
		p, err := t.pickPeer(ctx)
		if err != nil {
			return err
		}
		addr = p.Addr()
	}

	cfg := peer.Config{
		ConnectTimeout: t.session.config.PeerConnectTimeout,
		ReadTimeout:    t.session.config.PeerReadTimeout,
		OnBlock:        t.addDownloaded,
		Source:         source,
	}

	e := peer.New(addr, t.info, t.session.peerID, cfg, t.log)
	t.mu.Lock()
	t.engine = e
	t.mu.Unlock()

	if err := e.Run(ctx); err != nil {
		return err
	}

	return t.write(e)
}

func (t *Torrent) pickPeer(ctx context.Context) (tracker.Peer, error) {
	peers := t.Peers()
	if len(peers) == 0 {
		resp, err := t.Announce(ctx)
		if err != nil {
			return tracker.Peer{}, err
		}
		if resp.Failed() {
			return tracker.Peer{}, &tracker.Error{FailureReason: resp.Failure.Reason}
		}
		peers = resp.Peers
	}

	if len(peers) == 0 {
		return tracker.Peer{}, ErrNoPeers
	}
	return peers[0], nil
}

// write stores the assembled payload into the torrent's files.
func (t *Torrent) write(e *peer.Engine) (err error) {
	entries, err := storage.Layout(t.info)
	if err != nil {
		return err
	}

	a, err := allocator.Allocate(entries, t.session.storage)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	_, err = e.WriteTo(io.NewOffsetWriter(a, 0))
	return err
}

// Stop cancels a running download and sends the stopped event if a start
// was announced.
func (t *Torrent) Stop() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	started := t.started
	t.started = false
	t.status = Stopped
	t.mu.Unlock()

	if !started || t.announcer == nil {
		return
	}

	announcer.AnnounceStopped(
		context.Background(),
		[]tracker.Tracker{t.announcer.Tracker},
		t.announceTorrent(),
		t.session.config.TrackerStopTimeout,
	)
	t.log.Info("stopped")
}
