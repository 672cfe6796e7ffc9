package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	gcrypto "github.com/mithrel/diarychain/internal/crypto"
	"github.com/mithrel/diarychain/internal/db"
	"github.com/mithrel/diarychain/internal/keys"
)

// CheckConfigValidity reports every problem in v at once.
func CheckConfigValidity(v *viper.Viper) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(v.GetString("data_dir")) == "" {
		add("data_dir is required")
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("storage.backend")))
	if backend == db.BackendMem || !slices.Contains(db.Backends(), backend) {
		add("storage.backend %q is not one of json, jsonl, sqlite, leveldb, bolt, badger", backend)
	}

	if tz := v.GetString("timezone"); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add("timezone %q is not a known zone", tz)
		}
	}
	if _, err := gcrypto.NewCipher(v.GetString("cipher")); err != nil {
		add("cipher: %v", err)
	}
	if _, err := gcrypto.NewHasher(v.GetString("hash.algorithm")); err != nil {
		add("hash.algorithm: %v", err)
	}
	if ext := v.GetString("diary_ext"); ext != "" && !strings.HasPrefix(ext, ".") {
		add("diary_ext must start with a dot")
	}

	provider := strings.ToLower(strings.TrimSpace(v.GetString("key.provider")))
	switch {
	case !slices.Contains(keys.Providers(), provider):
		add("key.provider %q is not one of %s", provider, strings.Join(keys.Providers(), ", "))
	case provider == keys.ProviderConfig:
		if val := strings.TrimSpace(v.GetString("key.value")); val != "" {
			raw, err := base64.StdEncoding.DecodeString(val)
			if err != nil {
				add("key.value must be base64")
			} else if len(raw) != gcrypto.KeySize {
				add("key.value must decode to %d bytes, got %d", gcrypto.KeySize, len(raw))
			}
		}
	case provider == keys.ProviderKeyring:
		if strings.TrimSpace(v.GetString("key.id")) == "" {
			add("key.id is required for the keyring provider")
		}
	}

	if v.GetInt("list.hash_width") < 0 {
		add("list.hash_width must not be negative")
	}
	if _, err := logrus.ParseLevel(v.GetString("log.level")); err != nil {
		add("log.level %q is not a valid level", v.GetString("log.level"))
	}
	if f := v.GetString("log.format"); f != "text" && f != "json" {
		add("log.format must be text or json")
	}

	return errors.Join(errs...)
}
