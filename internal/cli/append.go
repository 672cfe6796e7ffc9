package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mithrel/diarychain/internal/editor"
	"github.com/mithrel/diarychain/internal/ledger"
)

func newAppendCmd() *cobra.Command {
	var edit bool
	var name string

	cmd := &cobra.Command{
		Use:   "append [file]",
		Short: "Encrypt one diary entry and chain its hash",
		Long: "Encrypts the file content, hashes the ciphertext and links a new block to the ledger head.\n" +
			"The block's filename is the base name of the file. A sidecar <stem>.json is written.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var filename, content string
			switch {
			case edit:
				if strings.TrimSpace(name) == "" {
					return errors.New("--edit requires --name")
				}
				filename = name
				content, err = composeInEditor(name, app.Cfg.GetBool("editor.delete_empty"))
				if err != nil {
					return err
				}
			case len(args) == 1:
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				filename = filepath.Base(args[0])
				if name != "" {
					filename = name
				}
				content = string(data)
			default:
				return errors.New("give a file to append or use --edit --name <name>")
			}

			key, err := app.Key()
			if err != nil {
				return err
			}
			blk, err := app.Ledger.Append(cmd.Context(), key, filename, content)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Block %d appended for %s\n", blk.Index, blk.Filename)
			_, _ = fmt.Fprintf(out, "hash: %s\n", blk.DataHash)
			_, _ = fmt.Fprintf(out, "metadata: %s\n", app.Ledger.Sidecars().Path(ledger.Stem(blk.Filename)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&edit, "edit", "e", false, "compose the entry in $EDITOR")
	cmd.Flags().StringVarP(&name, "name", "n", "", "filename recorded on the chain")
	return cmd
}

func composeInEditor(name string, abortEmpty bool) (string, error) {
	path, err := editor.PathForEntry(name)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)
	out, _, err := editor.OpenAt(path, []byte(editor.ComposeEntry(name, "")))
	if err != nil {
		return "", err
	}
	body := editor.ParseEditedEntry(string(out))
	if body == "" && abortEmpty {
		return "", errors.New("empty entry; nothing appended")
	}
	return body, nil
}
