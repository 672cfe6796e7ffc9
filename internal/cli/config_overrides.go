package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// invertedFlagKeys are boolean flags that clear the config key they map to.
var invertedFlagKeys = map[string]string{
	"no-lock": "storage.lock",
}

// applyConfigFlagOverrides copies every changed persistent flag onto its
// config key so flags win over file and environment.
func applyConfigFlagOverrides(cmd *cobra.Command, v *viper.Viper, keys map[string]string) {
	for flagName, key := range keys {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil || !flag.Changed {
			continue
		}
		setFromFlag(cmd, v, flagName, key)
	}
	for flagName, key := range invertedFlagKeys {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil || !flag.Changed {
			continue
		}
		if val, err := cmd.Flags().GetBool(flagName); err == nil {
			v.Set(key, !val)
		}
	}
}

func setFromFlag(cmd *cobra.Command, v *viper.Viper, flagName, key string) {
	switch cmd.Flags().Lookup(flagName).Value.Type() {
	case "bool":
		if val, err := cmd.Flags().GetBool(flagName); err == nil {
			v.Set(key, val)
		}
	case "int":
		if val, err := cmd.Flags().GetInt(flagName); err == nil {
			v.Set(key, val)
		}
	default:
		if val, err := cmd.Flags().GetString(flagName); err == nil {
			v.Set(key, val)
		}
	}
}
