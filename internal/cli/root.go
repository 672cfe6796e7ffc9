package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mithrel/diarychain/internal/config"
	"github.com/mithrel/diarychain/internal/wire"
)

type ctxKey string

const (
	appKey ctxKey = "app"
	cfgKey ctxKey = "cfg"
)

// skipAppAnnotation marks commands that only need configuration, not an
// open ledger.
const skipAppAnnotation = "diarychain/skip-app"

// Execute is the entrypoint: it builds the root cobra.Command
// and calls its Execute() method to run the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// globalFlagKeys maps persistent flags onto config keys.
var globalFlagKeys = map[string]string{
	"backend":   "storage.backend",
	"ledger":    "storage.path",
	"sidecars":  "sidecar_dir",
	"log-level": "log.level",
}

// NewRootCmd constructs the Cobra root command and wires dependencies.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "diarychain",
		Short:         "Tamper-evident, hash-linked diary ledger",
		SilenceUsage:  true, // don't show usage on runtime errors
		SilenceErrors: true, // let main print errors once
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load config with Viper.
			v := viper.New()
			if cfgPath != "" {
				v.SetConfigFile(cfgPath)
			}
			if err := config.Load(cmd.Context(), v); err != nil {
				return err
			}
			applyConfigFlagOverrides(cmd, v, globalFlagKeys)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, cfgKey, v)
			if skipsApp(cmd) {
				cmd.SetContext(ctx)
				return nil
			}
			// Wire up the app and stash it in context for subcommands.
			app, err := wire.BuildApp(ctx, v)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(ctx, appKey, app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeApp(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (yaml|toml)")
	pf.String("backend", "", "storage backend: json|jsonl|sqlite|leveldb|bolt|badger")
	pf.String("ledger", "", "ledger path (overrides storage.path)")
	pf.String("sidecars", "", "sidecar metadata directory (overrides sidecar_dir)")
	pf.String("log-level", "", "log level: debug|info|warn|error")
	pf.Bool("no-lock", false, "do not take the advisory ledger lock")
	_ = cmd.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "jsonl", "sqlite", "leveldb", "bolt", "badger"}, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(newAppendCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newLockCmd(true))
	cmd.AddCommand(newLockCmd(false))
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newCompletionCmd())
	cmd.AddCommand(newConfigCmd())

	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Help() }
	closeOnError(cmd)

	return cmd
}

func closeApp(cmd *cobra.Command) error {
	if app, ok := cmd.Context().Value(appKey).(*wire.App); ok {
		return app.Close()
	}
	return nil
}

// closeOnError releases the app when RunE fails; cobra skips
// PersistentPostRunE in that case.
func closeOnError(root *cobra.Command) {
	for _, c := range root.Commands() {
		closeOnError(c)
		if c.RunE == nil {
			continue
		}
		run := c.RunE
		c.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil {
				_ = closeApp(cmd)
			}
			return err
		}
	}
}

func skipsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipAppAnnotation] == "true" {
			return true
		}
	}
	return false
}

func noApp() map[string]string {
	return map[string]string{skipAppAnnotation: "true"}
}

func getApp(cmd *cobra.Command) (*wire.App, error) {
	app, ok := cmd.Context().Value(appKey).(*wire.App)
	if !ok || app == nil {
		return nil, errors.New("internal error: app not initialized")
	}
	return app, nil
}

func getConfig(cmd *cobra.Command) *viper.Viper {
	if v, ok := cmd.Context().Value(cfgKey).(*viper.Viper); ok {
		return v
	}
	return viper.New()
}
