package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mithrel/diarychain/internal/db"
)

// newLockCmd builds `lock` (readOnly=true) or `unlock`. Only the owner
// write bit is toggled; the advisory write lock is a separate mechanism.
func newLockCmd(readOnly bool) *cobra.Command {
	use, short := "unlock", "Make the ledger file writable again"
	if readOnly {
		use, short = "lock", "Make the ledger file read-only"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			store := app.Store
			switch store.Backend() {
			case db.BackendJSON, db.BackendJSONL:
			default:
				return fmt.Errorf("%s is only supported for the json and jsonl backends, not %s", use, store.Backend())
			}
			info, err := os.Stat(store.Path())
			if err != nil {
				return fmt.Errorf("%w: %s: %w", db.ErrChainRead, store.Path(), err)
			}
			mode := info.Mode().Perm()
			if readOnly {
				mode &^= 0o222
			} else {
				mode |= 0o200
			}
			if err := os.Chmod(store.Path(), mode); err != nil {
				return err
			}
			state := "writable"
			if readOnly {
				state = "read-only"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Ledger %s is now %s\n", store.Path(), state)
			return nil
		},
	}
	return cmd
}
