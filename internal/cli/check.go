package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrel/diarychain/internal/chain"
	"github.com/mithrel/diarychain/internal/ui"
	"github.com/mithrel/diarychain/internal/util"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <filename>",
		Short: "Show the block recorded for a filename",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			blk, ok, err := app.Ledger.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ok {
				_, _ = fmt.Fprint(out, ui.FormatBlock(blk, ui.Styled(out)))
				return nil
			}
			c, err := app.Ledger.Chain(cmd.Context())
			if err != nil {
				return err
			}
			// A miss is an answer, not a failure.
			_, _ = fmt.Fprintf(out, "%s is not on the chain\n", args[0])
			if sugg := util.ScoreCompletions(args[0], util.Unique(chain.Filenames(c)), 3); len(sugg) > 0 {
				_, _ = fmt.Fprintln(out, "Did you mean:")
				for _, s := range sugg {
					_, _ = fmt.Fprintf(out, "  %s\n", s)
				}
			}
			return nil
		},
		ValidArgsFunction: completeFilenames,
	}
	return cmd
}

func completeFilenames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	app, err := getApp(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	c, err := app.Ledger.Chain(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return util.ScoreCompletions(toComplete, util.Unique(chain.Filenames(c)), 20), cobra.ShellCompDirectiveNoFileComp
}
