package torrent

import (
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/al002/zbfetch/internal/announcer"
	"github.com/al002/zbfetch/internal/log"
	"github.com/al002/zbfetch/internal/resolver"
	"github.com/al002/zbfetch/internal/storage"
	"github.com/al002/zbfetch/internal/storage/filestorage"
	"github.com/al002/zbfetch/internal/trackermanager"
	"github.com/al002/zbfetch/pkg/metainfo"
)

var (
	ErrTorrentExists   = errors.New("torrent already added")
	ErrTorrentNotFound = errors.New("torrent not found")
	ErrSessionClosed   = errors.New("session is closed")
)

// Session owns the client identity and the torrents added to it.
type Session struct {
	config Config
	peerID [20]byte
	key    uint32

	resolver       *resolver.Resolver
	trackerManager *trackermanager.TrackerManager
	storage        storage.Storage
	log            log.Logger

	mTorrents sync.RWMutex
	torrents  map[string]*Torrent

	closeOnce sync.Once
	closeC    chan struct{}
	doneC     chan struct{}
}

// NewSession creates a session identified by peerID.
func NewSession(cfg Config, peerID [20]byte, l log.Logger) (*Session, error) {
	sto, err := filestorage.New(cfg.DataDir, cfg.FilePermissions)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	r := resolver.New(cfg.DNSResolveTimeout)

	sum := sha1.Sum(peerID[:])

	s := &Session{
		config:   cfg,
		peerID:   peerID,
		key:      binary.BigEndian.Uint32(sum[:4]),
		resolver: r,
		trackerManager: trackermanager.New(r, trackermanager.Options{
			Timeout:           cfg.TrackerHTTPTimeout,
			UserAgent:         cfg.TrackerHTTPUserAgent,
			MaxResponseLength: cfg.TrackerHTTPMaxResponseSize,
		}, l),
		storage:  sto,
		log:      l,
		torrents: make(map[string]*Torrent),
		closeC:   make(chan struct{}),
		doneC:    make(chan struct{}),
	}

	go s.refreshDNS()

	l.Info("session started",
		"peer_id", string(peerID[:]),
		"data_dir", sto.RootDir(),
	)

	return s, nil
}

func (s *Session) PeerID() [20]byte {
	return s.peerID
}

func (s *Session) refreshDNS() {
	defer close(s.doneC)

	if s.config.DNSRefreshInterval <= 0 {
		<-s.closeC
		return
	}

	ticker := time.NewTicker(s.config.DNSRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.resolver.Refresh()
		case <-s.closeC:
			return
		}
	}
}

func (s *Session) closed() bool {
	select {
	case <-s.closeC:
		return true
	default:
		return false
	}
}

// AddTorrent reads a torrent file from r and adds it to the session.
func (s *Session) AddTorrent(r io.Reader) (*Torrent, error) {
	if s.closed() {
		return nil, ErrSessionClosed
	}

	if s.config.MaxTorrentSize > 0 {
		r = io.LimitReader(r, s.config.MaxTorrentSize)
	}

	ti, err := metainfo.Load(r)
	if err != nil {
		return nil, err
	}

	return s.insertTorrent(ti)
}

func (s *Session) AddTorrentFile(path string) (*Torrent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return s.AddTorrent(f)
}

func (s *Session) insertTorrent(ti *metainfo.TorrentInfo) (*Torrent, error) {
	id := ti.HashHex()

	s.mTorrents.Lock()
	defer s.mTorrents.Unlock()

	if _, ok := s.torrents[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTorrentExists, id)
	}

	t := newTorrent(s, ti)
	s.torrents[id] = t

	s.log.Info("torrent added",
		"id", id,
		"name", ti.MetaInfo.Name,
		"trackers", len(ti.Trackers()),
	)

	return t, nil
}

// GetTorrent returns the torrent with the given hex infohash or nil.
func (s *Session) GetTorrent(id string) *Torrent {
	s.mTorrents.RLock()
	defer s.mTorrents.RUnlock()
	return s.torrents[id]
}

// ListTorrents returns the torrents sorted by name.
func (s *Session) ListTorrents() []*Torrent {
	s.mTorrents.RLock()
	torrents := make([]*Torrent, 0, len(s.torrents))
	for _, t := range s.torrents {
		torrents = append(torrents, t)
	}
	s.mTorrents.RUnlock()

	sort.Slice(torrents, func(i, j int) bool {
		return torrents[i].Name() < torrents[j].Name()
	})
	return torrents
}

// RemoveTorrent stops the torrent and forgets it.
func (s *Session) RemoveTorrent(id string) error {
	s.mTorrents.Lock()
	t, ok := s.torrents[id]
	delete(s.torrents, id)
	s.mTorrents.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrTorrentNotFound, id)
	}

	t.Stop()
	s.log.Info("torrent removed", "id", id)
	return nil
}

// Close stops every torrent, announcing stopped where a start was announced.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closeC)
		<-s.doneC

		s.mTorrents.Lock()
		torrents := s.torrents
		s.torrents = make(map[string]*Torrent)
		s.mTorrents.Unlock()

		var wg sync.WaitGroup
		for _, t := range torrents {
			wg.Add(1)
			go func(t *Torrent) {
				defer wg.Done()
				t.Stop()
			}(t)
		}
		wg.Wait()

		s.trackerManager.Close()
		s.log.Info("session closed")
	})
}

func (s *Session) announcerConfig() announcer.Config {
	cfg := announcer.DefaultConfig
	cfg.MaxRetries = s.config.TrackerMaxRetries
	return cfg
}
