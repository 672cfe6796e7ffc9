package db

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mithrel/diarychain/pkg/api"
)

// jsonStore keeps the chain as one pretty-printed JSON array. Every append
// rewrites the whole file.
type jsonStore struct {
	path string
	log  *logrus.Logger
}

func openJSON(path string, log *logrus.Logger) (Store, error) {
	if err := ensureParent(path); err != nil {
		return nil, writeErr(path, err)
	}
	return &jsonStore{path: path, log: log}, nil
}

func (s *jsonStore) Backend() string { return BackendJSON }
func (s *jsonStore) Path() string    { return s.path }
func (s *jsonStore) Close() error    { return nil }

func (s *jsonStore) Load(ctx context.Context) (api.Chain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return api.Chain{}, nil
	}
	if err != nil {
		return nil, readErr(s.path, err)
	}
	var c api.Chain
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, readErr(s.path, err)
	}
	if c == nil {
		c = api.Chain{}
	}
	return c, nil
}

func (s *jsonStore) Save(ctx context.Context, c api.Chain) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil {
		c = api.Chain{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return writeErr(s.path, err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return writeErr(s.path, err)
	}
	s.log.WithFields(logrus.Fields{"backend": BackendJSON, "path": s.path, "blocks": len(c)}).Debug("chain rewritten")
	return nil
}

func (s *jsonStore) Append(ctx context.Context, blocks ...api.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	c, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := checkAppend(c.NextIndex(), blocks); err != nil {
		return writeErr(s.path, err)
	}
	return s.Save(ctx, append(c, blocks...))
}
