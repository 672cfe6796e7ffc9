package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrel/diarychain/internal/config"
	"github.com/mithrel/diarychain/internal/ledger"
)

func newBatchCmd() *cobra.Command {
	var dir, ext string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Append every diary file that has no sidecar yet",
		Long: "Scans the diary directory in name order. Files whose <stem>.json sidecar exists are skipped,\n" +
			"so editing an already ingested file never adds a second block.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = config.ResolveDiaryDir(app.Cfg)
			}
			if ext == "" {
				ext = app.Cfg.GetString("diary_ext")
			}
			key, err := app.Key()
			if err != nil {
				return err
			}
			rep, err := app.Ledger.Ingest(cmd.Context(), key, ledger.DirSource{Dir: dir, Ext: ext})
			if err != nil && len(rep.Added) == 0 {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range rep.Skipped {
				_, _ = fmt.Fprintf(out, "skip %s (already on chain)\n", name)
			}
			for _, b := range rep.Added {
				_, _ = fmt.Fprintf(out, "add  %s -> block %d\n", b.Filename, b.Index)
			}
			_, _ = fmt.Fprintf(out, "Added: %d\nSkipped: %d\n", len(rep.Added), len(rep.Skipped))
			return err
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "diary directory (default diary_dir)")
	cmd.Flags().StringVar(&ext, "ext", "", "file extension to ingest (default diary_ext)")
	return cmd
}
