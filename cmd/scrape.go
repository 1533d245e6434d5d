package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <torrent>",
	Short: "Get swarm statistics from the torrent tracker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, t, err := openTorrent(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signalContext()
		defer cancel()

		ts, err := t.Scrape(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if ts == nil {
			fmt.Fprintln(out, "tracker has no statistics for this torrent")
			return nil
		}

		if ts.Name != "" {
			fmt.Fprintf(out, "name:       %s\n", ts.Name)
		}
		fmt.Fprintf(out, "seeders:    %d\n", ts.Complete)
		fmt.Fprintf(out, "leechers:   %d\n", ts.Incomplete)
		fmt.Fprintf(out, "downloaded: %d\n", ts.Downloaded)
		return nil
	},
}
