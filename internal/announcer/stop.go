package announcer

import (
	"context"
	"sync"
	"time"

	"github.com/al002/zbfetch/internal/tracker"
)

// AnnounceStopped sends a stopped event to every tracker at once and waits
// until all of them answered or timeout passed. Errors are ignored.
func AnnounceStopped(ctx context.Context, trackers []tracker.Tracker, torrent tracker.Torrent, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := tracker.AnnounceRequest{
		Torrent: torrent,
		Event:   tracker.EventStopped,
	}

	var wg sync.WaitGroup
	for _, trk := range trackers {
		wg.Add(1)
		go func(t tracker.Tracker) {
			defer wg.Done()
			_, _ = t.Announce(ctx, req)
		}(trk)
	}

	wg.Wait()
}
