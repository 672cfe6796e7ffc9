package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mithrel/diarychain/pkg/api"
)

// SidecarDir holds one metadata file per ingested entry. The presence of a
// sidecar is what marks an entry as already on the chain.
type SidecarDir struct {
	Dir string
}

// NewSidecarDir creates dir if needed.
func NewSidecarDir(dir string) (*SidecarDir, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("sidecar directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sidecar dir: %w", err)
	}
	return &SidecarDir{Dir: dir}, nil
}

// Stem strips the directory and final extension from filename.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Path is the sidecar location for stem.
func (s *SidecarDir) Path(stem string) string {
	return filepath.Join(s.Dir, stem+".json")
}

// Exists reports whether a sidecar for stem is present.
func (s *SidecarDir) Exists(stem string) (bool, error) {
	_, err := os.Stat(s.Path(stem))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write stores meta as pretty JSON under the stem of its filename.
func (s *SidecarDir) Write(meta api.Metadata) (string, error) {
	path := s.Path(Stem(meta.Filename))
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	return path, nil
}

// Read loads the sidecar for stem.
func (s *SidecarDir) Read(stem string) (api.Metadata, error) {
	var meta api.Metadata
	data, err := os.ReadFile(s.Path(stem))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("decode sidecar %s: %w", stem, err)
	}
	return meta, nil
}
