package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Summarize the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			info, err := app.Ledger.Info(cmd.Context())
			if err != nil {
				return err
			}
			last := "-"
			if info.LastTimestamp != "" {
				last = info.LastTimestamp
				if t, err := time.Parse(time.RFC3339Nano, info.LastTimestamp); err == nil {
					last += " (" + humanize.Time(t) + ")"
				}
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "backend:\t%s\n", info.Backend)
			_, _ = fmt.Fprintf(tw, "path:\t%s\n", info.Path)
			_, _ = fmt.Fprintf(tw, "size:\t%s\n", humanize.Bytes(uint64(info.SizeBytes)))
			_, _ = fmt.Fprintf(tw, "blocks:\t%s\n", humanize.Comma(int64(info.Blocks)))
			_, _ = fmt.Fprintf(tw, "head:\t%s\n", info.Head)
			_, _ = fmt.Fprintf(tw, "last entry:\t%s\n", last)
			_, _ = fmt.Fprintf(tw, "sidecars:\t%s\n", info.SidecarDir)
			return tw.Flush()
		},
	}
	return cmd
}
