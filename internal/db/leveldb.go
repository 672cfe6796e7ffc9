package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/mithrel/diarychain/pkg/api"
)

// levelStore keys blocks by zero-padded index next to a length counter.
type levelStore struct {
	db   *leveldb.DB
	path string
	log  *logrus.Logger
}

func openLevelDB(path string, log *logrus.Logger) (Store, error) {
	if err := ensureParent(path); err != nil {
		return nil, writeErr(path, err)
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, readErr(path, fmt.Errorf("failed to open database: %w", err))
	}
	return &levelStore{db: db, path: path, log: log}, nil
}

func (s *levelStore) Backend() string { return BackendLevelDB }
func (s *levelStore) Path() string    { return s.path }
func (s *levelStore) Close() error    { return s.db.Close() }

func (s *levelStore) length() (uint64, error) {
	raw, err := s.db.Get(lengthKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeLength(raw)
}

func (s *levelStore) Load(ctx context.Context) (api.Chain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := s.length()
	if err != nil {
		return nil, readErr(s.path, err)
	}
	c := make(api.Chain, 0, n)
	iter := s.db.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		var b api.Block
		if err := json.Unmarshal(iter.Value(), &b); err != nil {
			return nil, readErr(s.path, fmt.Errorf("key %s: %w", iter.Key(), err))
		}
		c = append(c, b)
	}
	if err := iter.Error(); err != nil {
		return nil, readErr(s.path, fmt.Errorf("iterator error: %w", err))
	}
	if uint64(len(c)) != n {
		return nil, readErr(s.path, fmt.Errorf("found %d blocks, length counter says %d", len(c), n))
	}
	return c, nil
}

func (s *levelStore) Save(ctx context.Context, c api.Chain) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix(blockPrefix), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return writeErr(s.path, err)
	}
	if err := putBlocks(batch, c); err != nil {
		return writeErr(s.path, err)
	}
	batch.Put(lengthKey, encodeLength(uint64(len(c))))
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return writeErr(s.path, err)
	}
	return nil
}

func (s *levelStore) Append(ctx context.Context, blocks ...api.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := s.length()
	if err != nil {
		return writeErr(s.path, err)
	}
	if err := checkAppend(n, blocks); err != nil {
		return writeErr(s.path, err)
	}
	batch := new(leveldb.Batch)
	if err := putBlocks(batch, blocks); err != nil {
		return writeErr(s.path, err)
	}
	batch.Put(lengthKey, encodeLength(n+uint64(len(blocks))))
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return writeErr(s.path, err)
	}
	s.log.WithFields(logrus.Fields{"backend": BackendLevelDB, "path": s.path, "appended": len(blocks)}).Debug("blocks appended")
	return nil
}

func putBlocks(batch *leveldb.Batch, blocks []api.Block) error {
	for _, b := range blocks {
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to marshal block %d: %w", b.Index, err)
		}
		batch.Put(blockKey(b.Index), raw)
	}
	return nil
}
