package ledger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/diarychain/internal/chain"
	gcrypto "github.com/mithrel/diarychain/internal/crypto"
	"github.com/mithrel/diarychain/internal/db"
	"github.com/mithrel/diarychain/internal/present/format"
	"github.com/mithrel/diarychain/pkg/api"
)

var testKey = []byte("anexampleverysecurekey12345678!!")

type fixture struct {
	ledger  *Ledger
	store   db.Store
	diary   string
	sidecar string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	store, err := db.Open(context.Background(), db.Options{Backend: db.BackendJSON, Path: filepath.Join(root, "chain.json")})
	require.NoError(t, err)

	sealer, err := gcrypto.NewSealer("", "")
	require.NoError(t, err)
	builder, err := chain.NewBuilder(sealer, "")
	require.NoError(t, err)

	sidecars, err := NewSidecarDir(filepath.Join(root, "metadata"))
	require.NoError(t, err)

	l, err := New(Options{
		Store:    store,
		Sidecars: sidecars,
		Builder:  builder,
		Locker:   NewFileLock(store.Path()),
	})
	require.NoError(t, err)

	diary := filepath.Join(root, "diary")
	require.NoError(t, os.MkdirAll(diary, 0o755))
	return fixture{ledger: l, store: store, diary: diary, sidecar: sidecars.Dir}
}

func (f fixture) writeEntry(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.diary, name), []byte(body), 0o644))
}

func TestLedger_AppendWritesSidecar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blk, err := f.ledger.Append(ctx, testKey, "2024-05-01.md", "dear diary")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), blk.Index)
	assert.Equal(t, api.SentinelHash, blk.PreviousHash)

	meta, err := f.ledger.Sidecars().Read("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, blk.Metadata(), meta)

	blk2, err := f.ledger.Append(ctx, testKey, "2024-05-02.md", "again")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), blk2.Index)
	assert.Equal(t, blk.DataHash, blk2.PreviousHash)

	r, err := f.ledger.Verify(ctx, chain.Strict())
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, 2, r.Blocks)
}

func TestLedger_AppendBadKeyLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Append(ctx, []byte("short"), "a.md", "x")
	var kerr *gcrypto.KeyLengthError
	require.ErrorAs(t, err, &kerr)

	c, err := f.ledger.Chain(ctx)
	require.NoError(t, err)
	assert.Empty(t, c)
	seen, err := f.ledger.Sidecars().Exists("a")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestLedger_IngestIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := DirSource{Dir: f.diary, Ext: ".md"}

	f.writeEntry(t, "b.md", "second")
	f.writeEntry(t, "a.md", "first")
	f.writeEntry(t, "notes.txt", "ignored")

	rep, err := f.ledger.Ingest(ctx, testKey, src)
	require.NoError(t, err)
	require.Len(t, rep.Added, 2)
	assert.Empty(t, rep.Skipped)
	assert.Equal(t, "a.md", rep.Added[0].Filename)
	assert.Equal(t, "b.md", rep.Added[1].Filename)

	t.Run("second run skips everything", func(t *testing.T) {
		rep, err := f.ledger.Ingest(ctx, testKey, src)
		require.NoError(t, err)
		assert.Empty(t, rep.Added)
		assert.Equal(t, []string{"a.md", "b.md"}, rep.Skipped)

		c, err := f.ledger.Chain(ctx)
		require.NoError(t, err)
		assert.Len(t, c, 2)
	})

	t.Run("edited file is not re-ingested", func(t *testing.T) {
		f.writeEntry(t, "a.md", "first, rewritten")
		rep, err := f.ledger.Ingest(ctx, testKey, src)
		require.NoError(t, err)
		assert.Empty(t, rep.Added)

		c, err := f.ledger.Chain(ctx)
		require.NoError(t, err)
		assert.Len(t, c, 2)
	})

	t.Run("new file continues the chain", func(t *testing.T) {
		f.writeEntry(t, "c.md", "third")
		rep, err := f.ledger.Ingest(ctx, testKey, src)
		require.NoError(t, err)
		require.Len(t, rep.Added, 1)
		assert.Equal(t, uint64(2), rep.Added[0].Index)

		r, err := f.ledger.Verify(ctx)
		require.NoError(t, err)
		assert.True(t, r.Valid)
	})
}

func TestLedger_IngestMissingDir(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Ingest(context.Background(), testKey, DirSource{Dir: filepath.Join(f.diary, "nope")})
	assert.Error(t, err)
}

func TestLedger_IngestSkipsEmptyStem(t *testing.T) {
	f := newFixture(t)
	f.writeEntry(t, ".md", "no stem")
	f.writeEntry(t, "a.md", "first")

	rep, err := f.ledger.Ingest(context.Background(), testKey, DirSource{Dir: f.diary, Ext: ".md"})
	require.NoError(t, err)
	require.Len(t, rep.Added, 1)
	assert.Equal(t, "a.md", rep.Added[0].Filename)
	assert.NoFileExists(t, filepath.Join(f.sidecar, ".json"))
}

// brokenSidecarSource replaces the sidecar directory with a plain file once
// content is read, so sidecar writes fail after the store append.
type brokenSidecarSource struct {
	DirSource
	sidecarDir string
}

func (s brokenSidecarSource) Read(e Entry) (string, error) {
	if err := os.RemoveAll(s.sidecarDir); err != nil {
		return "", err
	}
	if err := os.WriteFile(s.sidecarDir, []byte("x"), 0o644); err != nil {
		return "", err
	}
	return s.DirSource.Read(e)
}

func TestLedger_IngestSidecarFailureReportsAdded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.writeEntry(t, "a.md", "first")

	src := brokenSidecarSource{DirSource: DirSource{Dir: f.diary, Ext: ".md"}, sidecarDir: f.sidecar}
	rep, err := f.ledger.Ingest(ctx, testKey, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.md")
	require.Len(t, rep.Added, 1)
	assert.Equal(t, "a.md", rep.Added[0].Filename)

	c, err := f.ledger.Chain(ctx)
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, rep.Added[0].DataHash, c[0].DataHash)
}

func TestLedger_ExportFidelity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"one.md", "two.md", "three.md"} {
		_, err := f.ledger.Append(ctx, testKey, name, "body of "+name)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	n, err := f.ledger.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, format.CSVHeader, lines[0])

	c, err := f.ledger.Chain(ctx)
	require.NoError(t, err)
	for i, b := range c {
		fields := strings.Split(lines[i+1], ",")
		require.Len(t, fields, 5)
		assert.Equal(t, []string{
			strconv.FormatUint(b.Index, 10), b.Filename, b.Timestamp, b.DataHash, b.PreviousHash,
		}, fields)
	}
}

func TestLedger_CheckAndInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.ledger.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Blocks)
	assert.Equal(t, api.SentinelHash, info.Head)
	assert.Equal(t, int64(0), info.SizeBytes)

	blk, err := f.ledger.Append(ctx, testKey, "x.md", "x")
	require.NoError(t, err)

	got, ok, err := f.ledger.Check(ctx, "x.md")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, blk.DataHash, got.DataHash)

	_, ok, err = f.ledger.Check(ctx, "X.md")
	require.NoError(t, err)
	assert.False(t, ok)

	info, err = f.ledger.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Blocks)
	assert.Equal(t, blk.DataHash, info.Head)
	assert.Equal(t, blk.Timestamp, info.LastTimestamp)
	assert.Equal(t, db.BackendJSON, info.Backend)
	assert.Positive(t, info.SizeBytes)
}

func TestFileLock_Contention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	a := NewFileLock(path)
	b := NewFileLock(path)
	b.Wait = 100 * time.Millisecond
	b.Retry = 10 * time.Millisecond

	unlock, err := a.Lock(context.Background())
	require.NoError(t, err)

	_, err = b.Lock(context.Background())
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())
	unlockB, err := b.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlockB())
}

func TestStem(t *testing.T) {
	assert.Equal(t, "2024-05-01", Stem("2024-05-01.md"))
	assert.Equal(t, "entry", Stem("diary/entry.md"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.gz"))
	assert.Equal(t, "noext", Stem("noext"))
	assert.Equal(t, "", Stem(".md"))
}
