package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/mithrel/diarychain/pkg/api"
)

// sqliteStore keeps one row per block keyed by index. Appends run in a
// transaction and a second writer with a stale view fails on the key.
type sqliteStore struct {
	db   *sql.DB
	path string
	log  *logrus.Logger
}

// openSQLite connects using the modernc.org/sqlite driver and ensures the schema exists.
func openSQLite(ctx context.Context, dsn string, log *logrus.Logger) (Store, error) {
	path := strings.TrimPrefix(dsn, "sqlite://")
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, writeErr(path, err)
	}
	dbh, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, readErr(path, err)
	}
	// set WAL mode
	if _, err := dbh.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = dbh.Close()
		return nil, readErr(path, err)
	}
	if _, err := dbh.ExecContext(ctx, `PRAGMA busy_timeout=5000;`); err != nil {
		_ = dbh.Close()
		return nil, readErr(path, err)
	}
	if err := migrate(ctx, dbh); err != nil {
		_ = dbh.Close()
		return nil, writeErr(path, err)
	}
	return &sqliteStore{db: dbh, path: path, log: log}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS blocks (
  idx INTEGER PRIMARY KEY,
  timestamp TEXT NOT NULL,
  previous_hash TEXT NOT NULL,
  data_hash TEXT NOT NULL,
  filename TEXT NOT NULL,
  block TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blocks_filename ON blocks(filename);
`)
	return err
}

func (s *sqliteStore) Backend() string { return BackendSQLite }
func (s *sqliteStore) Path() string    { return s.path }
func (s *sqliteStore) Close() error    { return s.db.Close() }

func (s *sqliteStore) Load(ctx context.Context) (api.Chain, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, block FROM blocks ORDER BY idx ASC`)
	if err != nil {
		return nil, readErr(s.path, err)
	}
	defer rows.Close()

	c := api.Chain{}
	for rows.Next() {
		var idx int64
		var raw string
		if err := rows.Scan(&idx, &raw); err != nil {
			return nil, readErr(s.path, err)
		}
		var b api.Block
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, readErr(s.path, fmt.Errorf("row %d: %w", idx, err))
		}
		c = append(c, b)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(s.path, err)
	}
	return c, nil
}

func (s *sqliteStore) Save(ctx context.Context, c api.Chain) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(s.path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks`); err != nil {
		return writeErr(s.path, err)
	}
	if err := insertBlocksTx(ctx, tx, c); err != nil {
		return writeErr(s.path, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(s.path, err)
	}
	return nil
}

func (s *sqliteStore) Append(ctx context.Context, blocks ...api.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(s.path, err)
	}
	defer tx.Rollback()

	var n int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&n); err != nil {
		return writeErr(s.path, err)
	}
	if err := checkAppend(uint64(n), blocks); err != nil {
		return writeErr(s.path, err)
	}
	if err := insertBlocksTx(ctx, tx, blocks); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			err = fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return writeErr(s.path, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(s.path, err)
	}
	s.log.WithFields(logrus.Fields{"backend": BackendSQLite, "path": s.path, "appended": len(blocks)}).Debug("blocks appended")
	return nil
}

// insertBlocksTx writes blocks within the provided transaction.
func insertBlocksTx(ctx context.Context, tx *sql.Tx, blocks []api.Block) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO blocks(idx, timestamp, previous_hash, data_hash, filename, block) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range blocks {
		raw, err := json.Marshal(b)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, int64(b.Index), b.Timestamp, b.PreviousHash, b.DataHash, b.Filename, string(raw)); err != nil {
			return err
		}
	}
	return nil
}
