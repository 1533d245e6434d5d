package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/al002/zbfetch/internal/config"
	zlog "github.com/al002/zbfetch/internal/log"
)

var (
	cfgFile     string
	cfgRegistry *config.Registry
	cfg         *config.Config
	log         *zlog.Logger

	rootCmd = &cobra.Command{
		Use:           "zbfetch",
		Short:         "Fetch a torrent payload from a single peer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() error {
	defer func() {
		if log != nil {
			if err := log.Close(); err != nil {
				fmt.Printf("Failed to close logger: %v\n", err)
			}
		}
	}()
	return rootCmd.Execute()
}

func init() {
	cfgRegistry = config.NewRegistry()
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.zbfetch/config.yaml)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(announceCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(downloadCmd)
}

func initConfig() {
	var err error
	cfg, err = cfgRegistry.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err = zlog.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug("Configuration loaded successfully",
		"config_file", cfgRegistry.ConfigFile(),
		"listen_port", cfg.ListenPort,
		"download_dir", cfg.DownloadDir,
		"tracker_timeout", cfg.Tracker.Timeout,
		"peer_read_timeout", cfg.Peer.ReadTimeout,
	)
}

func verifyDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("Failed to create directory: %v", err)
	}

	tmpFile := filepath.Join(dir, ".zbfetch_write_test")
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("directory is not writable: %v", err)
	}
	f.Close()
	os.Remove(tmpFile)

	return nil
}
