package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mithrel/diarychain/internal/present"
	"github.com/mithrel/diarychain/internal/util"
	"github.com/mithrel/diarychain/pkg/api"
)

func newListCmd() *cobra.Command {
	var outputMode, since, until string
	var noHeaders bool
	var hashWidth int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List blocks on the chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			mode, ok := present.ParseMode(strings.ToLower(outputMode))
			if !ok {
				return fmt.Errorf("invalid --output: %s", outputMode)
			}
			loc, err := time.LoadLocation(app.Cfg.GetString("timezone"))
			if err != nil {
				return err
			}
			window, err := util.ParseTimeRange(since, until, time.Now(), loc)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("hash-width") {
				hashWidth = app.Cfg.GetInt("list.hash_width")
			}

			c, err := app.Ledger.Chain(cmd.Context())
			if err != nil {
				return err
			}
			blocks := make([]api.Block, 0, len(c))
			for _, b := range c {
				if window.Contains(b.Timestamp) {
					blocks = append(blocks, b)
				}
			}
			opts := present.Options{
				Mode:       mode,
				JSONIndent: false, // pretty-print via external tools like jq
				Headers:    !noHeaders,
				HashWidth:  hashWidth,
			}
			pager := ""
			if mode == present.ModePlain {
				pager = pagerCommand(app.Cfg.GetString("list.pager"))
			}
			return withPager(cmd.Context(), pager, cmd.OutOrStdout(), cmd.ErrOrStderr(), func(w io.Writer) error {
				return present.RenderBlocks(w, blocks, opts)
			})
		},
	}
	cmd.Flags().StringVarP(&outputMode, "output", "o", "plain", "output mode: "+strings.Join(present.Modes(), "|"))
	cmd.Flags().StringVar(&since, "since", "", "only blocks at or after (e.g. 3d, 2w, 2024-05-01)")
	cmd.Flags().StringVar(&until, "until", "", "only blocks at or before")
	cmd.Flags().BoolVar(&noHeaders, "noheaders", false, "hide column headers (plain)")
	cmd.Flags().IntVar(&hashWidth, "hash-width", 0, "digest characters in plain output; 0 shows all (default list.hash_width)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return present.Modes(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
