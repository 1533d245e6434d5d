package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var downloadPeer string

var downloadCmd = &cobra.Command{
	Use:   "download <torrent>",
	Short: "Download the torrent payload from one peer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := verifyDirectory(cfg.DownloadDir); err != nil {
			log.Error("Directory verification failed", "dir", cfg.DownloadDir, "error", err)
			return err
		}

		s, t, err := openTorrent(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signalContext()
		defer cancel()

		if err := t.Download(ctx, downloadPeer); err != nil {
			return err
		}

		st := t.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "downloaded %d bytes of %s into %s\n", st.BytesDownloaded, t.Name(), cfg.DownloadDir)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadPeer, "peer", "", "peer address host:port (default is the first peer from the tracker)")
}
