package db

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mithrel/diarychain/pkg/api"
)

// jsonlStore appends one JSON block per line; appends never rewrite
// earlier records.
type jsonlStore struct {
	path string
	log  *logrus.Logger
}

func openJSONL(path string, log *logrus.Logger) (Store, error) {
	if err := ensureParent(path); err != nil {
		return nil, writeErr(path, err)
	}
	return &jsonlStore{path: path, log: log}, nil
}

func (s *jsonlStore) Backend() string { return BackendJSONL }
func (s *jsonlStore) Path() string    { return s.path }
func (s *jsonlStore) Close() error    { return nil }

func (s *jsonlStore) Load(ctx context.Context) (api.Chain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return api.Chain{}, nil
	}
	if err != nil {
		return nil, readErr(s.path, err)
	}
	defer f.Close()

	c := api.Chain{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var b api.Block
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, readErr(s.path, fmt.Errorf("line %d: %w", line, err))
		}
		c = append(c, b)
	}
	if err := sc.Err(); err != nil {
		return nil, readErr(s.path, err)
	}
	return c, nil
}

func (s *jsonlStore) Save(ctx context.Context, c api.Chain) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeLines(c)
	if err != nil {
		return writeErr(s.path, err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return writeErr(s.path, err)
	}
	return nil
}

func (s *jsonlStore) Append(ctx context.Context, blocks ...api.Block) error {
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
	if err := ensureWritable(s.path); err != nil {
		return writeErr(s.path, err)
	}
	data, err := encodeLines(blocks)
	if err != nil {
		return writeErr(s.path, err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return writeErr(s.path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return writeErr(s.path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return writeErr(s.path, err)
	}
	if err := f.Close(); err != nil {
		return writeErr(s.path, err)
	}
	s.log.WithFields(logrus.Fields{"backend": BackendJSONL, "path": s.path, "appended": len(blocks)}).Debug("blocks appended")
	return nil
}

func encodeLines(blocks []api.Block) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, b := range blocks {
		if err := enc.Encode(b); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
