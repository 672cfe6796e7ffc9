package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mithrel/diarychain/pkg/api"
)

// Store persists a chain. Load returns an empty chain when nothing has been
// written yet; Save replaces the whole chain; Append adds blocks at the end.
type Store interface {
	Load(ctx context.Context) (api.Chain, error)
	Save(ctx context.Context, c api.Chain) error
	Append(ctx context.Context, blocks ...api.Block) error
	Backend() string
	Path() string
	Close() error
}

var (
	ErrChainRead  = errors.New("chain read failed")
	ErrChainWrite = errors.New("chain write failed")
	// ErrConflict means appended blocks do not start at the stored length.
	ErrConflict = errors.New("append conflict")
	// ErrReadOnly is returned when the ledger file has been locked read-only.
	ErrReadOnly = errors.New("ledger is read-only")
)

// Backend names.
const (
	BackendJSON    = "json"
	BackendJSONL   = "jsonl"
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendBadger  = "badger"
	BackendMem     = "mem"
)

// Backends lists the names accepted by Open.
func Backends() []string {
	return []string{BackendJSON, BackendJSONL, BackendSQLite, BackendLevelDB, BackendBolt, BackendBadger, BackendMem}
}

// DefaultFileName is the ledger file (or directory) name for a backend.
func DefaultFileName(backend string) string {
	switch normalizeBackend(backend) {
	case BackendJSONL:
		return "chain.jsonl"
	case BackendSQLite:
		return "chain.db"
	case BackendLevelDB:
		return "chain.leveldb"
	case BackendBolt:
		return "chain.bolt"
	case BackendBadger:
		return "chain.badger"
	default:
		return "chain.json"
	}
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string
	Logger  *logrus.Logger
}

// Open returns a Store for the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.Out = io.Discard
	}
	backend := normalizeBackend(opts.Backend)
	if backend != BackendMem && strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("storage path is required for backend %s", backend)
	}
	switch backend {
	case BackendJSON:
		return openJSON(opts.Path, log)
	case BackendJSONL:
		return openJSONL(opts.Path, log)
	case BackendSQLite:
		return openSQLite(ctx, opts.Path, log)
	case BackendLevelDB:
		return openLevelDB(opts.Path, log)
	case BackendBolt:
		return openBolt(opts.Path, log)
	case BackendBadger:
		return openBadger(opts.Path, log)
	case BackendMem:
		return newMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

func normalizeBackend(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return BackendJSON
	}
	return s
}

func readErr(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrChainRead, path, err)
}

func writeErr(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrChainWrite, path, err)
}

// checkAppend verifies that blocks continue a chain of length n.
func checkAppend(n uint64, blocks []api.Block) error {
	for i, b := range blocks {
		if want := n + uint64(i); b.Index != want {
			return fmt.Errorf("%w: block index %d, expected %d", ErrConflict, b.Index, want)
		}
	}
	return nil
}
