package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/mithrel/diarychain/internal/config"
	"github.com/mithrel/diarychain/internal/keys"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "key",
		Short:       "Manage the ledger key",
		Annotations: noApp(),
	}
	cmd.AddCommand(newKeyGenerateCmd())
	return cmd
}

func newKeyGenerateCmd() *cobra.Command {
	var store, writeConfig bool
	var cfgOut string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a fresh 32-byte key",
		Long: "Prints a new base64 key. --store saves it in the system keyring under key.id;\n" +
			"--write-config records it in the [key] section of config.toml.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if store && writeConfig {
				return errors.New("choose either --store or --write-config")
			}
			v := getConfig(cmd)
			key, err := keys.Generate()
			if err != nil {
				return err
			}
			encoded := keys.EncodeKey(key)
			out := cmd.OutOrStdout()
			id := v.GetString("key.id")
			if id == "" {
				id = keys.DefaultKeyID
			}

			switch {
			case store:
				ks, err := keys.StoreFor(v, keys.ProviderKeyring)
				if err != nil {
					return err
				}
				if err := ks.Put(id, key); err != nil {
					return fmt.Errorf("store key in keyring: %w", err)
				}
				_, _ = fmt.Fprintf(out, "Stored key %q in the system keyring. Set key.provider = \"keyring\" to use it.\n", id)
			case writeConfig:
				if cfgOut == "" {
					cfgOut = v.ConfigFileUsed()
				}
				if cfgOut == "" {
					cfgOut = config.DefaultConfigPath()
				}
				existing, err := os.ReadFile(cfgOut)
				if err != nil && !errors.Is(err, fs.ErrNotExist) {
					return err
				}
				updated, _ := config.UpsertSectionConfig(string(existing), "key", map[string]any{
					"provider": keys.ProviderConfig,
					"value":    encoded,
					"id":       id,
				})
				if err := saveConfig(out, cfgOut, updated); err != nil {
					return err
				}
			default:
				_, _ = fmt.Fprintln(out, encoded)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&store, "store", false, "save the key in the system keyring")
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "save the key into config.toml")
	cmd.Flags().StringVarP(&cfgOut, "output", "o", "", "config file for --write-config (default: active config)")
	return cmd
}
