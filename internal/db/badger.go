package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/mithrel/diarychain/pkg/api"
)

// badgerStore uses the same key layout as levelStore.
type badgerStore struct {
	db   *badger.DB
	path string
	log  *logrus.Logger
}

func openBadger(path string, log *logrus.Logger) (Store, error) {
	if err := ensureParent(path); err != nil {
		return nil, writeErr(path, err)
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	db, err := badger.Open(opts)
	if err != nil {
		return nil, readErr(path, err)
	}
	return &badgerStore{db: db, path: path, log: log}, nil
}

func (s *badgerStore) Backend() string { return BackendBadger }
func (s *badgerStore) Path() string    { return s.path }
func (s *badgerStore) Close() error    { return s.db.Close() }

func txnLength(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get(lengthKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return decodeLength(raw)
}

func (s *badgerStore) Load(ctx context.Context) (api.Chain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := api.Chain{}
	err := s.db.View(func(txn *badger.Txn) error {
		n, err := txnLength(txn)
		if err != nil {
			return err
		}
		opts := badger.DefaultIteratorOptions
		opts.Prefix = blockPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var b api.Block
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &b)
			}); err != nil {
				return fmt.Errorf("key %s: %w", item.Key(), err)
			}
			c = append(c, b)
		}
		if uint64(len(c)) != n {
			return fmt.Errorf("found %d blocks, length counter says %d", len(c), n)
		}
		return nil
	})
	if err != nil {
		return nil, readErr(s.path, err)
	}
	return c, nil
}

func (s *badgerStore) Save(ctx context.Context, c api.Chain) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DropPrefix(blockPrefix); err != nil {
		return writeErr(s.path, err)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := setBadgerBlocks(txn, c); err != nil {
			return err
		}
		return txn.Set(lengthKey, encodeLength(uint64(len(c))))
	})
	if err != nil {
		return writeErr(s.path, err)
	}
	return nil
}

func (s *badgerStore) Append(ctx context.Context, blocks ...api.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		n, err := txnLength(txn)
		if err != nil {
			return err
		}
		if err := checkAppend(n, blocks); err != nil {
			return err
		}
		if err := setBadgerBlocks(txn, blocks); err != nil {
			return err
		}
		return txn.Set(lengthKey, encodeLength(n+uint64(len(blocks))))
	})
	if err != nil {
		return writeErr(s.path, err)
	}
	s.log.WithFields(logrus.Fields{"backend": BackendBadger, "path": s.path, "appended": len(blocks)}).Debug("blocks appended")
	return nil
}

func setBadgerBlocks(txn *badger.Txn, blocks []api.Block) error {
	for _, b := range blocks {
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal block %d: %w", b.Index, err)
		}
		if err := txn.Set(blockKey(b.Index), raw); err != nil {
			return err
		}
	}
	return nil
}
