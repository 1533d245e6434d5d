package tracker

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/al002/zbfetch/pkg/metainfo"
)

// Tier announces to the first working tracker of an ordered list. The
// tracker in use moves on after a transport failure and wraps around.
type Tier struct {
	Trackers []Tracker
	index    int32
}

var _ Tracker = (*Tier)(nil)

func NewTier(trackers []Tracker) *Tier {
	return &Tier{
		Trackers: trackers,
	}
}

func (t *Tier) Announce(ctx context.Context, req AnnounceRequest) (*AnnounceResponse, error) {
	index := t.loadIndex()
	resp, err := t.Trackers[index].Announce(ctx, req)
	t.advance(index, err)
	return resp, err
}

func (t *Tier) Scrape(ctx context.Context, infoHash metainfo.Hash) (*TorrentScrape, error) {
	index := t.loadIndex()
	resp, err := t.Trackers[index].Scrape(ctx, infoHash)
	t.advance(index, err)
	return resp, err
}

func (t *Tier) URL() string {
	return t.Trackers[t.loadIndex()].URL()
}

func (t *Tier) advance(index int32, err error) {
	var te *TransportError
	if errors.As(err, &te) {
		atomic.CompareAndSwapInt32(&t.index, index, (index+1)%int32(len(t.Trackers)))
	}
}

func (t *Tier) loadIndex() int32 {
	index := atomic.LoadInt32(&t.index)
	if index >= int32(len(t.Trackers)) {
		index = 0
	}

	return index
}
