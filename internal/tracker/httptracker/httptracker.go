package httptracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/al002/zbfetch/internal/log"
	"github.com/al002/zbfetch/internal/tracker"
	"github.com/al002/zbfetch/pkg/metainfo"
)

type HTTPTracker struct {
	rawURL            string
	http              *http.Client
	userAgent         string
	maxResponseLength int64
	log               log.Logger

	mu        sync.Mutex
	trackerID string
}

var _ tracker.Tracker = (*HTTPTracker)(nil)

func New(rawURL string, timeout time.Duration, t http.RoundTripper, userAgent string, maxResponseLength int64, log log.Logger) *HTTPTracker {
	return &HTTPTracker{
		rawURL:            rawURL,
		userAgent:         userAgent,
		maxResponseLength: maxResponseLength,
		http: &http.Client{
			Timeout:   timeout,
			Transport: t,
		},
		log: log,
	}
}

func (t *HTTPTracker) URL() string {
	return t.rawURL
}

func (t *HTTPTracker) Announce(ctx context.Context, req tracker.AnnounceRequest) (*tracker.AnnounceResponse, error) {
	s := t.buildRequest(req)

	t.log.Debug(
		"announce request",
		"request_str", s,
	)

	code, header, body, err := t.get(ctx, s)
	if err != nil {
		return nil, err
	}

	resp, err := tracker.ParseAnnounce(body)
	if err != nil {
		if code != http.StatusOK {
			return nil, t.statusError(code, header, body)
		}
		return nil, err
	}

	if resp.Failed() {
		t.log.Debug(
			"tracker failure",
			"reason", resp.Failure.Reason,
		)
		return resp, nil
	}

	if resp.TrackerID != "" {
		t.mu.Lock()
		t.trackerID = resp.TrackerID
		t.mu.Unlock()
	}

	t.log.Debug(
		"got peers",
		"peers_length", len(resp.Peers),
	)

	return resp, nil
}

func (t *HTTPTracker) Scrape(ctx context.Context, infoHash metainfo.Hash) (*tracker.TorrentScrape, error) {
	s := tracker.ScrapeURL(t.rawURL, infoHash)

	t.log.Debug(
		"scrape request",
		"request_str", s,
	)

	code, header, body, err := t.get(ctx, s)
	if err != nil {
		return nil, err
	}

	files, err := tracker.ParseScrape(body)
	if err != nil {
		var terr *tracker.Error
		if code != http.StatusOK && !errors.As(err, &terr) {
			return nil, t.statusError(code, header, body)
		}
		return nil, err
	}

	ts, ok := files[infoHash]
	if !ok {
		return nil, nil
	}

	return &ts, nil
}

func (t *HTTPTracker) get(ctx context.Context, s string) (int, http.Header, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s, nil)
	if err != nil {
		return 0, nil, nil, &tracker.TransportError{URL: t.rawURL, Err: err}
	}

	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, nil, ctx.Err()
		}
		return 0, nil, nil, &tracker.TransportError{URL: t.rawURL, Err: err}
	}
	defer resp.Body.Close()

	t.log.Debug(
		"tracker response",
		"resp_code", resp.StatusCode,
		"content_length", resp.ContentLength,
	)

	if resp.ContentLength > t.maxResponseLength {
		return 0, nil, nil, &tracker.TransportError{
			URL: t.rawURL,
			Err: fmt.Errorf("tracker response too large: %d", resp.ContentLength),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseLength+1))
	if err != nil {
		return 0, nil, nil, &tracker.TransportError{URL: t.rawURL, Err: err}
	}
	if int64(len(body)) > t.maxResponseLength {
		return 0, nil, nil, &tracker.TransportError{
			URL: t.rawURL,
			Err: fmt.Errorf("tracker response exceeds %d bytes", t.maxResponseLength),
		}
	}

	t.log.Debug(
		"read bytes from body",
		"body_length", len(body),
	)

	return resp.StatusCode, resp.Header, body, nil
}

func (t *HTTPTracker) statusError(code int, header http.Header, body []byte) error {
	return &tracker.TransportError{
		URL: t.rawURL,
		Err: &tracker.StatusError{
			Code:   code,
			Header: header,
			Body:   string(body),
		},
	}
}

func (t *HTTPTracker) buildRequest(req tracker.AnnounceRequest) string {
	var sb strings.Builder
	sb.WriteString(t.rawURL)

	if strings.ContainsRune(t.rawURL, '?') {
		sb.WriteString("&info_hash=")
	} else {
		sb.WriteString("?info_hash=")
	}
	sb.WriteString(req.Torrent.InfoHash.URLEncoded())

	sb.WriteString("&peer_id=")
	sb.WriteString(metainfo.Escape(req.Torrent.PeerID[:]))

	sb.WriteString("&port=")
	sb.WriteString(strconv.Itoa(req.Torrent.Port))

	sb.WriteString("&uploaded=")
	sb.WriteString(strconv.FormatInt(req.Torrent.BytesUploaded, 10))

	sb.WriteString("&downloaded=")
	sb.WriteString(strconv.FormatInt(req.Torrent.BytesDownloaded, 10))

	left := req.Torrent.BytesLeft
	if left < 0 {
		left = 0
	}
	sb.WriteString("&left=")
	sb.WriteString(strconv.FormatInt(left, 10))

	if req.Event != tracker.EventNone {
		sb.WriteString("&event=")
		sb.WriteString(req.Event.String())
	}

	sb.WriteString("&key=")
	sb.WriteString(fmt.Sprintf("%08x", req.Torrent.Key))

	sb.WriteString("&compact=1")

	t.mu.Lock()
	trackerID := t.trackerID
	t.mu.Unlock()
	if trackerID != "" {
		sb.WriteString("&trackerid=")
		sb.WriteString(metainfo.Escape([]byte(trackerID)))
	}

	return sb.String()
}
