package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mithrel/diarychain/internal/db"
)

// applyDefaults seeds Viper with defaults defined in GetConfigOptions.
// This centralizes default values and descriptions in one place.
func applyDefaults(v *viper.Viper) {
	for _, o := range GetConfigOptions() {
		v.SetDefault(o.Key, o.Default)
	}
}

// Load resolves configuration with precedence: defaults < file < env.
// The provided Viper instance is mutated with defaults, file contents, and env.
func Load(ctx context.Context, v *viper.Viper) error {
	// Configure Viper search paths. If SetConfigFile was provided upstream,
	// it takes precedence; these paths are harmless fallbacks.
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "diarychain"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "diarychain"))
		}
		v.AddConfigPath(".")
	}

	// Apply centralized defaults (lowest precedence)
	applyDefaults(v)

	// Read config file if present (overrides defaults)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	// Environment variables: DIARYCHAIN_* (highest among these sources)
	v.SetEnvPrefix("diarychain")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.GetString("data_dir") == "" {
		v.Set("data_dir", defaultDataDir())
	}
	return nil
}

// defaultDataDir resolves default data dir: $XDG_DATA_HOME/diarychain or ~/.local/share/diarychain
func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "diarychain")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "diarychain")
}

// DefaultConfigPath resolves the standard config.toml location.
func DefaultConfigPath() string {
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, _ := os.UserHomeDir()
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, "diarychain", "config.toml")
}

type ConfigOption struct {
	Key     string
	Default any
	Comment string
}

// GetConfigOptions returns the default configuration options and their meanings.
func GetConfigOptions() []ConfigOption {
	return []ConfigOption{
		// Core paths and conventions
		{Key: "data_dir", Default: defaultDataDir(), Comment: "Directory for local state; the ledger lives at data_dir/chain.<ext>"},
		{Key: "sidecar_dir", Default: "", Comment: "Per-entry metadata directory; empty means data_dir/metadata"},
		{Key: "diary_dir", Default: "diary", Comment: "Directory scanned by batch"},
		{Key: "diary_ext", Default: ".md", Comment: "File extension picked up by batch"},
		{Key: "timezone", Default: "Asia/Taipei", Comment: "IANA zone block timestamps are rendered in"},
		{Key: "cipher", Default: "aes-256-gcm", Comment: "Entry cipher: aes-256-gcm or chacha20-poly1305"},

		{Key: "storage.backend", Default: db.BackendJSON, Comment: "Ledger backend: json, jsonl, sqlite, leveldb, bolt or badger"},
		{Key: "storage.path", Default: "", Comment: "Ledger path override; empty means data_dir/" + db.DefaultFileName(db.BackendJSON) + " (extension follows the backend)"},
		{Key: "storage.lock", Default: true, Comment: "Hold an advisory lock on <ledger>.lock while writing"},

		{Key: "hash.algorithm", Default: "sha256", Comment: "Ciphertext digest: sha256 or blake3"},
		{Key: "verify.strict", Default: false, Comment: "Also check index sequence, genesis sentinel and stored metadata"},

		{Key: "key.provider", Default: "config", Comment: "Where the ledger key comes from: config, keyring or prompt"},
		{Key: "key.value", Default: "", Comment: "Base64 32-byte key when provider = config (prefer DIARYCHAIN_KEY_VALUE)"},
		{Key: "key.id", Default: "ledger", Comment: "Keyring entry name when provider = keyring"},

		{Key: "list.hash_width", Default: 12, Comment: "Digest characters shown by list in plain output; 0 shows all"},
		{Key: "list.pager", Default: "", Comment: "Pager for plain list output on a terminal; empty uses $PAGER, none disables"},

		{Key: "log.level", Default: "info", Comment: "Log level: debug, info, warn or error"},
		{Key: "log.format", Default: "text", Comment: "Log format: text or json"},

		{Key: "editor.delete_empty", Default: true, Comment: "Abort append --edit when the editor returns no content"},
	}
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}

func dataDir(v *viper.Viper) string {
	dir := v.GetString("data_dir")
	if dir == "" {
		dir = defaultDataDir()
	}
	return expandHome(dir)
}

// ResolveLedgerPath returns storage.path, or the backend's default file
// under data_dir.
func ResolveLedgerPath(v *viper.Viper) string {
	if p := strings.TrimSpace(v.GetString("storage.path")); p != "" {
		return expandHome(p)
	}
	return filepath.Join(dataDir(v), db.DefaultFileName(v.GetString("storage.backend")))
}

// ResolveSidecarDir returns sidecar_dir, or data_dir/metadata.
func ResolveSidecarDir(v *viper.Viper) string {
	if p := strings.TrimSpace(v.GetString("sidecar_dir")); p != "" {
		return expandHome(p)
	}
	return filepath.Join(dataDir(v), "metadata")
}

// ResolveDiaryDir returns diary_dir with ~ expanded. Relative paths stay
// relative to the working directory.
func ResolveDiaryDir(v *viper.Viper) string {
	return expandHome(v.GetString("diary_dir"))
}
