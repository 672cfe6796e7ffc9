package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrel/diarychain/internal/chain"
	"github.com/mithrel/diarychain/internal/ui"
	"github.com/mithrel/diarychain/pkg/api"
)

func newVerifyCmd() *cobra.Command {
	var strict, quiet bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every block links to its predecessor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("strict") {
				strict = app.Cfg.GetBool("verify.strict")
			}
			out := cmd.OutOrStdout()
			styled := ui.Styled(out)

			var opts []chain.VerifyOption
			if strict {
				opts = append(opts, chain.Strict())
			}
			if !quiet {
				opts = append(opts, chain.WithVisitor(func(b api.Block) {
					_, _ = fmt.Fprintln(out, ui.VerifiedLine(b, styled))
				}))
			}
			r, err := app.Ledger.Verify(cmd.Context(), opts...)
			if err != nil {
				return err
			}
			if !r.Valid {
				_, _ = fmt.Fprintf(out, "%s %s\n", ui.FAIL(styled), r.Violation.Error())
				return fmt.Errorf("chain integrity violated: %w", r.Err())
			}
			_, _ = fmt.Fprintf(out, "%s chain intact (%d blocks)\n", ui.OK(styled), r.Blocks)
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "also check index sequence, genesis sentinel and stored metadata")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary line")
	return cmd
}
