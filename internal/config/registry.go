package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "ZBFETCH"

var defaults = map[string]interface{}{
	"listen_port":                  6881,
	"download_dir":                 "./downloads",
	"log.dir":                      "",
	"log.level":                    "info",
	"log.format":                   "json",
	"tracker.timeout":              15,
	"tracker.max_retries":          3,
	"tracker.max_response_size":    2 << 20,
	"tracker.user_agent":           "",
	"tracker.dns_refresh_interval": 300,
	"peer.connect_timeout":         10,
	"peer.read_timeout":            120,
}

type Registry struct {
	v *viper.Viper
}

func NewRegistry() *Registry {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Registry{
		v: v,
	}
}

// LoadConfig reads cfgFile, or config.yaml under $HOME/.zbfetch when cfgFile
// is empty. A missing file leaves the defaults and environment in effect.
func (r *Registry) LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		r.v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("Failed to get user home directory: %v", err)
		}

		r.v.AddConfigPath(filepath.Join(home, ".zbfetch"))
		r.v.SetConfigName("config")
		r.v.SetConfigType("yaml")
	}

	if err := r.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("Failed to read config: %v", err)
		}
	} else {
		r.v.OnConfigChange(func(e fsnotify.Event) {
			slog.Info("config file changed, restart to apply", "file", e.Name)
		})
		r.v.WatchConfig()
	}

	var cfg Config

	if err := r.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("Failed to unmarshal config: %v", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("Error on validating config: %v", err)
	}

	return nil
}

func (r *Registry) ConfigFile() string {
	return r.v.ConfigFileUsed()
}
