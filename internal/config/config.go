package config

import "time"

type LogConfig struct {
	Dir    string `mapstructure:"dir"`
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"` // "text" or "json"
}

type TrackerConfig struct {
	Timeout            int    `mapstructure:"timeout" validate:"required,min=1"` // seconds
	MaxRetries         int    `mapstructure:"max_retries" validate:"min=0,max=10"`
	MaxResponseSize    int64  `mapstructure:"max_response_size" validate:"required,min=1024"`
	UserAgent          string `mapstructure:"user_agent"`
	DNSRefreshInterval int    `mapstructure:"dns_refresh_interval" validate:"min=0"` // seconds, 0 disables
}

type PeerConfig struct {
	ConnectTimeout int `mapstructure:"connect_timeout" validate:"required,min=1"` // seconds
	ReadTimeout    int `mapstructure:"read_timeout" validate:"min=0"`             // seconds, 0 disables
}

type Config struct {
	ListenPort  int    `mapstructure:"listen_port" validate:"required,min=1024,max=65535"`
	DownloadDir string `mapstructure:"download_dir" validate:"required"`

	Log     LogConfig     `mapstructure:"log"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Peer    PeerConfig    `mapstructure:"peer"`
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c TrackerConfig) TimeoutDuration() time.Duration {
	return seconds(c.Timeout)
}

func (c TrackerConfig) DNSRefreshDuration() time.Duration {
	return seconds(c.DNSRefreshInterval)
}

func (c PeerConfig) ConnectTimeoutDuration() time.Duration {
	return seconds(c.ConnectTimeout)
}

func (c PeerConfig) ReadTimeoutDuration() time.Duration {
	return seconds(c.ReadTimeout)
}
