package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info("Starting validation...")

		// Validate listen port is available
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ListenPort))
		if err != nil {
			log.Error("Listen port is not available", "port", cfg.ListenPort, "error", err)
			return err
		}
		listener.Close()
		log.Info("Listen port is available", "port", cfg.ListenPort)

		if err := verifyDirectory(cfg.DownloadDir); err != nil {
			log.Error("Directory verification failed", "dir", cfg.DownloadDir, "error", err)
			return err
		}
		log.Info("Download directory is writable", "dir", cfg.DownloadDir)

		log.Info("Validation completed successfully")
		return nil
	},
}
