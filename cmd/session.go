package cmd

import (
	"context"
	"crypto/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/al002/zbfetch/internal/config"
	"github.com/al002/zbfetch/torrent"
)

func sessionConfig(c *config.Config) torrent.Config {
	tc := torrent.DefaultConfig

	tc.DataDir = c.DownloadDir
	tc.Port = c.ListenPort

	tc.TrackerHTTPTimeout = c.Tracker.TimeoutDuration()
	tc.TrackerMaxRetries = c.Tracker.MaxRetries
	tc.TrackerHTTPMaxResponseSize = c.Tracker.MaxResponseSize
	if c.Tracker.UserAgent != "" {
		tc.TrackerHTTPUserAgent = c.Tracker.UserAgent
	}
	tc.DNSRefreshInterval = c.Tracker.DNSRefreshDuration()

	tc.PeerConnectTimeout = c.Peer.ConnectTimeoutDuration()
	tc.PeerReadTimeout = c.Peer.ReadTimeoutDuration()

	return tc
}

// openTorrent starts a session holding the torrent file at path.
func openTorrent(path string) (*torrent.Session, *torrent.Torrent, error) {
	peerID, err := torrent.GeneratePeerID(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	s, err := torrent.NewSession(sessionConfig(cfg), peerID, *log)
	if err != nil {
		return nil, nil, err
	}

	t, err := s.AddTorrentFile(path)
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	return s, t, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
