// Package ledger orchestrates load, build and persist cycles against a
// Store and keeps per-entry sidecars in step with the chain.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/sirupsen/logrus"

	"github.com/mithrel/diarychain/internal/chain"
	"github.com/mithrel/diarychain/internal/db"
	"github.com/mithrel/diarychain/internal/present/format"
	"github.com/mithrel/diarychain/pkg/api"
)

// Options wires a Ledger. Locker may be nil to disable locking.
type Options struct {
	Store    db.Store
	Sidecars *SidecarDir
	Builder  *chain.Builder
	Locker   Locker
	Logger   *logrus.Logger
}

type Ledger struct {
	store    db.Store
	sidecars *SidecarDir
	builder  *chain.Builder
	locker   Locker
	log      *logrus.Logger
}

// IngestReport lists what one batch did.
type IngestReport struct {
	Added   []api.Block
	Skipped []string
}

// Info summarizes the ledger for display.
type Info struct {
	Blocks        int
	Head          string
	LastTimestamp string
	Backend       string
	Path          string
	SizeBytes     int64
	SidecarDir    string
}

func New(opts Options) (*Ledger, error) {
	if opts.Store == nil {
		return nil, errors.New("ledger: store is required")
	}
	if opts.Builder == nil {
		return nil, errors.New("ledger: builder is required")
	}
	if opts.Sidecars == nil {
		return nil, errors.New("ledger: sidecar dir is required")
	}
	l := &Ledger{
		store:    opts.Store,
		sidecars: opts.Sidecars,
		builder:  opts.Builder,
		locker:   opts.Locker,
		log:      opts.Logger,
	}
	if l.locker == nil {
		l.locker = noLock{}
	}
	if l.log == nil {
		l.log = logrus.New()
		l.log.Out = io.Discard
	}
	return l, nil
}

// Store exposes the underlying store.
func (l *Ledger) Store() db.Store { return l.store }

// Sidecars exposes the sidecar directory.
func (l *Ledger) Sidecars() *SidecarDir { return l.sidecars }

func (l *Ledger) withLock(ctx context.Context, fn func() error) (err error) {
	unlock, err := l.locker.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("release lock: %w", uerr)
		}
	}()
	return fn()
}

// Append encrypts content, links a new block for filename and persists it
// together with its sidecar.
func (l *Ledger) Append(ctx context.Context, key []byte, filename, content string) (api.Block, error) {
	var blk api.Block
	var persisted bool
	err := l.withLock(ctx, func() error {
		c, err := l.store.Load(ctx)
		if err != nil {
			return err
		}
		blk, err = l.builder.Next(c, filename, content, key)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.store.Append(ctx, blk); err != nil {
			return err
		}
		persisted = true
		path, err := l.sidecars.Write(blk.Metadata())
		if err != nil {
			return err
		}
		l.log.WithFields(logrus.Fields{
			"index":    blk.Index,
			"filename": blk.Filename,
			"hash":     blk.DataHash,
			"sidecar":  path,
		}).Info("block appended")
		return nil
	})
	if err != nil && !persisted {
		return api.Block{}, err
	}
	// A persisted block is returned even if its sidecar write failed.
	return blk, err
}

// Ingest appends every entry of src that has no sidecar yet. Entries are
// skipped by sidecar existence only; an edited file is never re-ingested.
func (l *Ledger) Ingest(ctx context.Context, key []byte, src Source) (IngestReport, error) {
	var rep IngestReport
	var persisted bool
	entries, err := src.Entries(ctx)
	if err != nil {
		return rep, err
	}
	err = l.withLock(ctx, func() error {
		c, err := l.store.Load(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen, err := l.sidecars.Exists(e.Stem())
			if err != nil {
				return err
			}
			if seen {
				rep.Skipped = append(rep.Skipped, e.Name)
				l.log.WithField("filename", e.Name).Debug("sidecar exists, skipping")
				continue
			}
			content, err := src.Read(e)
			if err != nil {
				return err
			}
			var blk api.Block
			c, blk, err = l.builder.Append(c, e.Name, content, key)
			if err != nil {
				return fmt.Errorf("%s: %w", e.Name, err)
			}
			rep.Added = append(rep.Added, blk)
		}
		if len(rep.Added) == 0 {
			return nil
		}
		if err := l.store.Append(ctx, rep.Added...); err != nil {
			return err
		}
		persisted = true
		var errs []error
		for _, blk := range rep.Added {
			fields := logrus.Fields{
				"index":    blk.Index,
				"filename": blk.Filename,
				"hash":     blk.DataHash,
			}
			if _, err := l.sidecars.Write(blk.Metadata()); err != nil {
				l.log.WithFields(fields).WithError(err).Error("block appended without sidecar")
				errs = append(errs, fmt.Errorf("%s: %w", blk.Filename, err))
				continue
			}
			l.log.WithFields(fields).Info("block appended")
		}
		return errors.Join(errs...)
	})
	if err != nil && !persisted {
		// Nothing reached the store.
		return IngestReport{Skipped: rep.Skipped}, err
	}
	// After a successful store append every block in Added is on the chain,
	// even when some sidecar writes failed.
	return rep, err
}

// Chain loads the persisted chain.
func (l *Ledger) Chain(ctx context.Context) (api.Chain, error) {
	return l.store.Load(ctx)
}

// Verify loads the chain and checks it. A broken link is reported in the
// Report, not as an error.
func (l *Ledger) Verify(ctx context.Context, opts ...chain.VerifyOption) (chain.Report, error) {
	c, err := l.store.Load(ctx)
	if err != nil {
		return chain.Report{}, err
	}
	r := chain.Verify(c, opts...)
	entry := l.log.WithFields(logrus.Fields{"blocks": r.Blocks, "backend": l.store.Backend()})
	if r.Valid {
		entry.Debug("chain verified")
	} else {
		entry.WithField("index", r.Violation.Index).Warn(r.Violation.Reason)
	}
	return r, nil
}

// Check looks up the block holding filename.
func (l *Ledger) Check(ctx context.Context, filename string) (api.Block, bool, error) {
	c, err := l.store.Load(ctx)
	if err != nil {
		return api.Block{}, false, err
	}
	blk, ok := chain.FindByFilename(c, filename)
	return blk, ok, nil
}

// Export writes the CSV report and returns the number of data rows.
func (l *Ledger) Export(ctx context.Context, w io.Writer) (int, error) {
	c, err := l.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := format.WriteCSV(w, c); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(c), nil
}

// Info gathers summary figures. A missing ledger file reports size zero.
func (l *Ledger) Info(ctx context.Context) (Info, error) {
	c, err := l.store.Load(ctx)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Blocks:     len(c),
		Head:       c.Head(),
		Backend:    l.store.Backend(),
		Path:       l.store.Path(),
		SidecarDir: l.sidecars.Dir,
	}
	if last, ok := c.Last(); ok {
		info.LastTimestamp = last.Timestamp
	}
	if info.Path != "" {
		size, err := db.DiskUsage(info.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return info, err
		}
		info.SizeBytes = size
	}
	return info, nil
}
