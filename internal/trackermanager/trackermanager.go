package trackermanager

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/al002/zbfetch/internal/log"
	"github.com/al002/zbfetch/internal/resolver"
	"github.com/al002/zbfetch/internal/tracker"
	"github.com/al002/zbfetch/internal/tracker/httptracker"
)

var ErrNoTracker = errors.New("no usable tracker")

type Options struct {
	Timeout           time.Duration
	UserAgent         string
	MaxResponseLength int64
}

// TrackerManager hands out trackers sharing one HTTP transport and DNS cache.
type TrackerManager struct {
	httpTransport *http.Transport
	resolver      *resolver.Resolver
	opts          Options
	log           log.Logger
}

func New(r *resolver.Resolver, opts Options, logger log.Logger) *TrackerManager {
	m := &TrackerManager{
		httpTransport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
		resolver: r,
		opts:     opts,
		log:      logger,
	}

	m.httpTransport.DialContext = r.DialContext

	return m
}

func (m *TrackerManager) Close() {
	m.httpTransport.CloseIdleConnections()
}

func (m *TrackerManager) Get(s string) (tracker.Tracker, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "http", "https":
		return httptracker.New(s, m.opts.Timeout, m.httpTransport, m.opts.UserAgent, m.opts.MaxResponseLength, m.log), nil
	default:
		return nil, fmt.Errorf("unsupported tracker scheme: %s", u.Scheme)
	}
}

// Tier builds a tracker tier from urls in order, skipping those that are not
// supported. The first url is the primary tracker.
func (m *TrackerManager) Tier(urls []string) (*tracker.Tier, error) {
	var trackers []tracker.Tracker
	for _, s := range urls {
		tr, err := m.Get(s)
		if err != nil {
			m.log.Debug("skipping tracker", "url", s, "error", err)
			continue
		}
		trackers = append(trackers, tr)
	}

	if len(trackers) == 0 {
		return nil, ErrNoTracker
	}

	return tracker.NewTier(trackers), nil
}
