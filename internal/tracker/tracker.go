// Package tracker holds the tracker protocol model shared by tracker
// implementations: requests, results, peers and response parsing.
package tracker

import (
	"context"
	"time"

	"github.com/al002/zbfetch/pkg/metainfo"
)

// DefaultInterval is used when an announce response carries no interval.
const DefaultInterval = 600 * time.Second

type Tracker interface {
	Announce(ctx context.Context, req AnnounceRequest) (*AnnounceResponse, error)
	// Scrape returns nil, nil when the tracker knows nothing about infoHash.
	Scrape(ctx context.Context, infoHash metainfo.Hash) (*TorrentScrape, error)
	URL() string
}

type AnnounceRequest struct {
	Torrent Torrent
	Event   Event
}

// AnnounceResponse is either a tracker-asserted failure (Failure != nil, all
// other fields zero) or a success.
type AnnounceResponse struct {
	Failure *Failure

	WarningMessage string
	Interval       time.Duration
	// Zero when the tracker did not send one.
	MinInterval time.Duration
	TrackerID   string
	Complete    int64
	Incomplete  int64
	Peers       []Peer
}

func (r *AnnounceResponse) Failed() bool {
	return r.Failure != nil
}

// Failure is the tracker's own rejection of an announce.
type Failure struct {
	Reason string
}

func (f *Failure) String() string {
	return f.Reason
}

type TorrentScrape struct {
	Complete   int64
	Downloaded int64
	Incomplete int64
	Name       string
}
