// Package announcer wraps a tracker with the retry policy of a session:
// transport failures are retried with exponential backoff, everything else
// is returned at once.
package announcer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/al002/zbfetch/internal/log"
	"github.com/al002/zbfetch/internal/tracker"
	"github.com/al002/zbfetch/pkg/metainfo"
)

type Config struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultConfig = Config{
	MaxRetries:      3,
	InitialInterval: 5 * time.Second,
	MaxInterval:     time.Minute,
}

type Announcer struct {
	Tracker tracker.Tracker
	cfg     Config
	log     log.Logger
}

func New(t tracker.Tracker, cfg Config, l log.Logger) *Announcer {
	return &Announcer{
		Tracker: t,
		cfg:     cfg,
		log:     l,
	}
}

func (a *Announcer) Announce(ctx context.Context, e tracker.Event, torrent tracker.Torrent) (*tracker.AnnounceResponse, error) {
	req := tracker.AnnounceRequest{
		Torrent: torrent,
		Event:   e,
	}

	return retry(ctx, a, func() (*tracker.AnnounceResponse, error) {
		return a.Tracker.Announce(ctx, req)
	})
}

func (a *Announcer) Scrape(ctx context.Context, infoHash metainfo.Hash) (*tracker.TorrentScrape, error) {
	return retry(ctx, a, func() (*tracker.TorrentScrape, error) {
		return a.Tracker.Scrape(ctx, infoHash)
	})
}

func (a *Announcer) backoff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     a.cfg.InitialInterval,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         a.cfg.MaxInterval,
	}
}

func retry[T any](ctx context.Context, a *Announcer, call func() (T, error)) (T, error) {
	attempt := 0
	op := func() (T, error) {
		attempt++
		res, err := call()
		if err == nil {
			return res, nil
		}

		var te *tracker.TransportError
		if !errors.As(err, &te) {
			return res, backoff.Permanent(err)
		}

		a.log.Warn(
			"tracker request failed",
			"url", a.Tracker.URL(),
			"attempt", attempt,
			"error", Describe(err, a.Tracker.URL()).Message,
		)
		return res, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(a.backoff()),
		backoff.WithMaxTries(uint(a.cfg.MaxRetries+1)),
	)
}
