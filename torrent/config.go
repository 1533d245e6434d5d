package torrent

import (
	"io/fs"
	"time"

	"github.com/al002/zbfetch/internal/version"
)

type Config struct {
	// DataDir is where files are downloaded.
	DataDir string `mapstructure:"data_dir"`
	// Port reported to trackers. Incoming connections are not accepted.
	Port int `mapstructure:"port"`
	// The unix permission of created files, execute bit is removed for files.
	FilePermissions fs.FileMode `mapstructure:"file_permissions"`
	// Maximum allowed size to be read when adding torrent.
	MaxTorrentSize int64 `mapstructure:"max_torrent_size"`
	// Time to wait when resolving host names for trackers.
	DNSResolveTimeout time.Duration `mapstructure:"dns_resolve_timeout"`
	// Cached tracker addresses are refreshed at this interval. Zero disables it.
	DNSRefreshInterval time.Duration `mapstructure:"dns_refresh_interval"`

	// Total time to wait for response to be read.
	TrackerHTTPTimeout time.Duration `mapstructure:"tracker_http_timeout"`
	// User agent sent when communicating with HTTP trackers.
	TrackerHTTPUserAgent string `mapstructure:"tracker_http_user_agent"`
	// Max number of bytes in a tracker response.
	TrackerHTTPMaxResponseSize int64 `mapstructure:"tracker_http_max_response_size"`
	// Transport failures are retried this many times.
	TrackerMaxRetries int `mapstructure:"tracker_max_retries"`
	// Time to wait for announcing stopped event.
	TrackerStopTimeout time.Duration `mapstructure:"tracker_stop_timeout"`

	PeerConnectTimeout time.Duration `mapstructure:"peer_connect_timeout"`
	// Zero disables the read timeout.
	PeerReadTimeout time.Duration `mapstructure:"peer_read_timeout"`
}

var DefaultConfig = Config{
	DataDir:            "./downloads",
	Port:               6881,
	FilePermissions:    0o750,
	MaxTorrentSize:     10 << 20,
	DNSResolveTimeout:  5 * time.Second,
	DNSRefreshInterval: 5 * time.Minute,

	// Tracker
	TrackerHTTPTimeout:         15 * time.Second,
	TrackerHTTPUserAgent:       version.DefaultHttpUserAgent,
	TrackerHTTPMaxResponseSize: 2 << 20,
	TrackerMaxRetries:          3,
	TrackerStopTimeout:         5 * time.Second,

	// Peer
	PeerConnectTimeout: 10 * time.Second,
	PeerReadTimeout:    2 * time.Minute,
}
