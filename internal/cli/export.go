package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <out.csv>",
		Short: "Write the chain as a CSV report",
		Long:  "Columns: index,filename,timestamp,hash,previous_hash. Use - for stdout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			target := args[0]
			if target == "-" {
				_, err := app.Ledger.Export(cmd.Context(), cmd.OutOrStdout())
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.Create(target)
			if err != nil {
				return err
			}
			n, err := app.Ledger.Export(cmd.Context(), f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d blocks to %s\n", n, target)
			return nil
		},
	}
	return cmd
}
