package wire

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/mithrel/diarychain/internal/chain"
	"github.com/mithrel/diarychain/internal/config"
	gcrypto "github.com/mithrel/diarychain/internal/crypto"
	"github.com/mithrel/diarychain/internal/db"
	"github.com/mithrel/diarychain/internal/keys"
	"github.com/mithrel/diarychain/internal/ledger"
)

// App aggregates the major services for easy injection.
type App struct {
	Cfg    *viper.Viper
	Log    *logrus.Logger
	Store  db.Store
	Ledger *ledger.Ledger
	// Prompter is used when key.provider = prompt; nil means the terminal.
	Prompter keys.Prompter
}

// NewLogger builds the process logger from log.level and log.format.
func NewLogger(v *viper.Viper) (*logrus.Logger, error) {
	log := logrus.New()
	log.Out = os.Stderr
	level, err := logrus.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	if strings.EqualFold(v.GetString("log.format"), "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return log, nil
}

// BuildApp wires dependencies with the provided config.
func BuildApp(ctx context.Context, v *viper.Viper) (*App, error) {
	if err := config.CheckConfigValidity(v); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := NewLogger(v)
	if err != nil {
		return nil, err
	}

	sealer, err := gcrypto.NewSealer(v.GetString("cipher"), v.GetString("hash.algorithm"))
	if err != nil {
		return nil, err
	}
	builder, err := chain.NewBuilder(sealer, v.GetString("timezone"))
	if err != nil {
		return nil, err
	}
	sidecars, err := ledger.NewSidecarDir(config.ResolveSidecarDir(v))
	if err != nil {
		return nil, err
	}

	path := config.ResolveLedgerPath(v)
	store, err := db.Open(ctx, db.Options{
		Backend: v.GetString("storage.backend"),
		Path:    path,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	var locker ledger.Locker
	if v.GetBool("storage.lock") {
		locker = ledger.NewFileLock(path)
	}
	l, err := ledger.New(ledger.Options{
		Store:    store,
		Sidecars: sidecars,
		Builder:  builder,
		Locker:   locker,
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"backend": store.Backend(),
		"path":    store.Path(),
		"cipher":  sealer.Cipher.Algorithm,
		"hash":    sealer.Hasher.Algorithm,
	}).Debug("ledger opened")

	return &App{
		Cfg:    v,
		Log:    logger,
		Store:  store,
		Ledger: l,
	}, nil
}

// Key resolves the ledger key from the configured provider.
func (a *App) Key() ([]byte, error) {
	return keys.Resolve(a.Cfg, a.Prompter)
}

// Close releases the store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
