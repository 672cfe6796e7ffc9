package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one candidate file for batch ingestion.
type Entry struct {
	Name string
	Path string
}

// Stem is the sidecar key of the entry.
func (e Entry) Stem() string { return Stem(e.Name) }

// Source lists candidate entries in name order and reads their content
// on demand.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
	Read(e Entry) (string, error)
}

// DirSource scans a single directory for files ending in Ext.
type DirSource struct {
	Dir string
	Ext string
}

func (d DirSource) Entries(ctx context.Context) ([]Entry, error) {
	ents, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read diary dir: %w", err)
	}
	ext := d.Ext
	if ext == "" {
		ext = ".md"
	}
	var out []Entry
	for _, de := range ents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !de.Type().IsRegular() || !strings.HasSuffix(de.Name(), ext) {
			continue
		}
		// A bare ".md" has no stem to key its sidecar on.
		if Stem(de.Name()) == "" {
			continue
		}
		out = append(out, Entry{Name: de.Name(), Path: filepath.Join(d.Dir, de.Name())})
	}
	// os.ReadDir returns entries sorted by filename.
	return out, nil
}

func (d DirSource) Read(e Entry) (string, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return "", fmt.Errorf("read entry %s: %w", e.Name, err)
	}
	return string(data), nil
}
