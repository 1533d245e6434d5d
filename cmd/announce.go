package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var announceCmd = &cobra.Command{
	Use:   "announce <torrent>",
	Short: "Announce to the torrent tracker and list peers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, t, err := openTorrent(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signalContext()
		defer cancel()

		resp, err := t.Announce(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if resp.Failed() {
			fmt.Fprintf(out, "tracker failure: %s\n", resp.Failure.Reason)
			return nil
		}

		if resp.WarningMessage != "" {
			fmt.Fprintf(out, "warning:    %s\n", resp.WarningMessage)
		}
		fmt.Fprintf(out, "interval:   %s\n", resp.Interval)
		if resp.MinInterval > 0 {
			fmt.Fprintf(out, "min interval: %s\n", resp.MinInterval)
		}
		fmt.Fprintf(out, "seeders:    %d\n", resp.Complete)
		fmt.Fprintf(out, "leechers:   %d\n", resp.Incomplete)
		fmt.Fprintf(out, "peers:      %d\n", len(resp.Peers))
		for _, p := range resp.Peers {
			if p.ID != nil {
				fmt.Fprintf(out, "  %s %q\n", p.Addr(), p.ID)
			} else {
				fmt.Fprintf(out, "  %s\n", p.Addr())
			}
		}

		return nil
	},
}
