package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/al002/zbfetch/internal/storage"
	"github.com/al002/zbfetch/pkg/metainfo"
)

var infoCmd = &cobra.Command{
	Use:   "info <torrent>",
	Short: "Get torrent file metainfo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ti, err := metainfo.LoadFromFile(args[0])
		if err != nil {
			log.Error("parse torrent file error", "error", err)
			return err
		}

		mi := &ti.MetaInfo
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "name:         %s\n", mi.Name)
		fmt.Fprintf(out, "info hash:    %s\n", ti.HashHex())
		fmt.Fprintf(out, "size:         %d\n", ti.TotalLength())
		fmt.Fprintf(out, "piece length: %d\n", mi.PieceLength)
		fmt.Fprintf(out, "pieces:       %d\n", mi.NumPieces())
		fmt.Fprintf(out, "private:      %t\n", mi.Private)
		if ti.Comment != "" {
			fmt.Fprintf(out, "comment:      %s\n", ti.Comment)
		}
		if ti.CreatedBy != "" {
			fmt.Fprintf(out, "created by:   %s\n", ti.CreatedBy)
		}
		if !ti.CreationDate.IsZero() {
			fmt.Fprintf(out, "created:      %s\n", ti.CreationDate.UTC())
		}
		for _, tr := range ti.Trackers() {
			fmt.Fprintf(out, "tracker:      %s\n", tr)
		}

		entries, err := storage.Layout(ti)
		if err != nil {
			return err
		}

		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tSIZE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d\n", e.Path, e.Length)
		}
		return w.Flush()
	},
}
