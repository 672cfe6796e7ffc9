package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/mithrel/diarychain/pkg/api"
)

const (
	blocksBucket = "blocks"
	metaBucket   = "meta"
)

// boltStore keeps blocks in a bucket keyed by big-endian index.
type boltStore struct {
	db   *bbolt.DB
	path string
	log  *logrus.Logger
}

func openBolt(path string, log *logrus.Logger) (Store, error) {
	if err := ensureParent(path); err != nil {
		return nil, writeErr(path, err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, readErr(path, fmt.Errorf("open storage db: %w", err))
	}
	s := &boltStore{db: db, path: path, log: log}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, writeErr(path, err)
	}
	return s, nil
}

func (s *boltStore) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{blocksBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func (s *boltStore) Backend() string { return BackendBolt }
func (s *boltStore) Path() string    { return s.path }
func (s *boltStore) Close() error    { return s.db.Close() }

func (s *boltStore) Load(ctx context.Context) (api.Chain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := api.Chain{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(blocksBucket))
		if bucket == nil {
			return fmt.Errorf("blocks bucket is missing")
		}
		n, err := decodeLength(tx.Bucket([]byte(metaBucket)).Get(lengthKey))
		if err != nil {
			return err
		}
		if err := bucket.ForEach(func(k, v []byte) error {
			var b api.Block
			if err := json.Unmarshal(v, &b); err != nil {
				return fmt.Errorf("unmarshal block %x: %w", k, err)
			}
			c = append(c, b)
			return nil
		}); err != nil {
			return err
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

func (s *boltStore) Save(ctx context.Context, c api.Chain) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(blocksBucket)); err != nil {
			return err
		}
		bucket, err := tx.CreateBucket([]byte(blocksBucket))
		if err != nil {
			return err
		}
		if err := putBoltBlocks(bucket, c); err != nil {
			return err
		}
		return tx.Bucket([]byte(metaBucket)).Put(lengthKey, encodeLength(uint64(len(c))))
	})
	if err != nil {
		return writeErr(s.path, err)
	}
	return nil
}

func (s *boltStore) Append(ctx context.Context, blocks ...api.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		n, err := decodeLength(meta.Get(lengthKey))
		if err != nil {
			return err
		}
		if err := checkAppend(n, blocks); err != nil {
			return err
		}
		if err := putBoltBlocks(tx.Bucket([]byte(blocksBucket)), blocks); err != nil {
			return err
		}
		return meta.Put(lengthKey, encodeLength(n+uint64(len(blocks))))
	})
	if err != nil {
		return writeErr(s.path, err)
	}
	s.log.WithFields(logrus.Fields{"backend": BackendBolt, "path": s.path, "appended": len(blocks)}).Debug("blocks appended")
	return nil
}

func putBoltBlocks(bucket *bbolt.Bucket, blocks []api.Block) error {
	for _, b := range blocks {
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal block %d: %w", b.Index, err)
		}
		if err := bucket.Put(boltKey(b.Index), raw); err != nil {
			return err
		}
	}
	return nil
}
