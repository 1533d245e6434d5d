package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/al002/zbfetch/internal/config"
	"github.com/al002/zbfetch/internal/version"
)

func TestSessionConfig(t *testing.T) {
	c := &config.Config{
		ListenPort:  7000,
		DownloadDir: "/tmp/dl",
		Tracker: config.TrackerConfig{
			Timeout:            20,
			MaxRetries:         5,
			MaxResponseSize:    4096,
			DNSRefreshInterval: 0,
		},
		Peer: config.PeerConfig{
			ConnectTimeout: 3,
			ReadTimeout:    0,
		},
	}

	tc := sessionConfig(c)
	assert.Equal(t, "/tmp/dl", tc.DataDir)
	assert.Equal(t, 7000, tc.Port)
	assert.Equal(t, 20*time.Second, tc.TrackerHTTPTimeout)
	assert.Equal(t, 5, tc.TrackerMaxRetries)
	assert.Equal(t, int64(4096), tc.TrackerHTTPMaxResponseSize)
	assert.Equal(t, version.DefaultHttpUserAgent, tc.TrackerHTTPUserAgent)
	assert.Zero(t, tc.DNSRefreshInterval)
	assert.Equal(t, 3*time.Second, tc.PeerConnectTimeout)
	assert.Zero(t, tc.PeerReadTimeout)

	c.Tracker.UserAgent = "custom/1.0"
	assert.Equal(t, "custom/1.0", sessionConfig(c).TrackerHTTPUserAgent)
}

func TestVerifyDirectory(t *testing.T) {
	assert.NoError(t, verifyDirectory(t.TempDir()+"/nested/dir"))
}
