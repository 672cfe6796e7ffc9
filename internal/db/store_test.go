package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/diarychain/internal/chain"
	"github.com/mithrel/diarychain/pkg/api"
)

func fakeBlocks(start, n int, prev string) []api.Block {
	out := make([]api.Block, 0, n)
	for i := start; i < start+n; i++ {
		hash := fmt.Sprintf("%064x", i+1)
		out = append(out, api.Block{
			Index:        uint64(i),
			Timestamp:    "2024-05-01T12:00:00+08:00",
			PreviousHash: prev,
			DataHash:     hash,
			Filename:     fmt.Sprintf("day-%02d.md", i),
		})
		prev = hash
	}
	return out
}

func openTestStore(t *testing.T, backend string) Store {
	t.Helper()
	path := ""
	if backend != BackendMem {
		path = filepath.Join(t.TempDir(), DefaultFileName(backend))
	}
	s, err := Open(context.Background(), Options{Backend: backend, Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for _, backend := range Backends() {
		t.Run(backend, func(t *testing.T) {
			s := openTestStore(t, backend)
			assert.Equal(t, backend, s.Backend())

			t.Run("empty load", func(t *testing.T) {
				c, err := s.Load(ctx)
				require.NoError(t, err)
				assert.NotNil(t, c)
				assert.Empty(t, c)
			})

			first := fakeBlocks(0, 3, api.SentinelHash)
			t.Run("append", func(t *testing.T) {
				require.NoError(t, s.Append(ctx, first...))
				c, err := s.Load(ctx)
				require.NoError(t, err)
				require.Len(t, c, 3)
				for i, b := range c {
					assert.Equal(t, first[i].Index, b.Index)
					assert.Equal(t, first[i].DataHash, b.DataHash)
					assert.Equal(t, first[i].PreviousHash, b.PreviousHash)
					assert.Equal(t, first[i].Filename, b.Filename)
					assert.Equal(t, first[i].Timestamp, b.Timestamp)
				}
			})

			t.Run("conflict", func(t *testing.T) {
				err := s.Append(ctx, fakeBlocks(1, 1, first[0].DataHash)...)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConflict)
				assert.ErrorIs(t, err, ErrChainWrite)

				c, err := s.Load(ctx)
				require.NoError(t, err)
				assert.Len(t, c, 3)
			})

			t.Run("append continues", func(t *testing.T) {
				require.NoError(t, s.Append(ctx, fakeBlocks(3, 2, first[2].DataHash)...))
				c, err := s.Load(ctx)
				require.NoError(t, err)
				require.Len(t, c, 5)
				assert.Equal(t, uint64(4), c[4].Index)
			})

			t.Run("save replaces", func(t *testing.T) {
				replacement := fakeBlocks(0, 2, api.SentinelHash)
				replacement[1].Filename = "edited.md"
				require.NoError(t, s.Save(ctx, replacement))
				c, err := s.Load(ctx)
				require.NoError(t, err)
				require.Len(t, c, 2)
				assert.Equal(t, "edited.md", c[1].Filename)
			})

			t.Run("empty append is a no-op", func(t *testing.T) {
				require.NoError(t, s.Append(ctx))
			})
		})
	}
}

func TestStore_StoredMetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{BackendJSON, BackendJSONL, BackendSQLite, BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			s := openTestStore(t, backend)
			require.NoError(t, s.Append(ctx, fakeBlocks(0, 1, api.SentinelHash)...))
			c, err := s.Load(ctx)
			require.NoError(t, err)
			meta, ok := c[0].StoredMetadata()
			require.True(t, ok)
			assert.Equal(t, c[0].Metadata(), meta)
		})
	}
}

func TestJSONStore_Format(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, BackendJSON)
	require.NoError(t, s.Append(ctx, fakeBlocks(0, 1, api.SentinelHash)...))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	text := string(raw)
	assert.True(t, strings.HasPrefix(text, "[\n  {"))
	assert.Contains(t, text, `"previous_hash": "0000000000000000"`)
	assert.Contains(t, text, `"metadata": {`)
	assert.Contains(t, text, `"block_index": 0`)
}

func TestFileStores_ReadOnly(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{BackendJSON, BackendJSONL} {
		t.Run(backend, func(t *testing.T) {
			s := openTestStore(t, backend)
			require.NoError(t, s.Append(ctx, fakeBlocks(0, 1, api.SentinelHash)...))
			require.NoError(t, os.Chmod(s.Path(), 0o444))
			t.Cleanup(func() { _ = os.Chmod(s.Path(), 0o644) })

			err := s.Append(ctx, fakeBlocks(1, 1, fmt.Sprintf("%064x", 1))...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrReadOnly)

			c, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, c, 1)
		})
	}
}

func TestFileStores_Corrupt(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		BackendJSON:  `[{"index": 0,`,
		BackendJSONL: "{\"index\":0,\"timestamp\":\"t\",\"previous_hash\":\"p\",\"data_hash\":\"d\"," +
			"\"metadata\":{\"filename\":\"a.md\",\"hash\":\"d\",\"timestamp\":\"t\",\"block_index\":0,\"previous_hash\":\"p\"}}\nnot json\n",
	}
	for backend, body := range cases {
		t.Run(backend, func(t *testing.T) {
			s := openTestStore(t, backend)
			require.NoError(t, os.WriteFile(s.Path(), []byte(body), 0o644))
			_, err := s.Load(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrChainRead)
			assert.Contains(t, err.Error(), s.Path())
			if backend == BackendJSONL {
				assert.Contains(t, err.Error(), "line 2")
			}
		})
	}
}

func TestFileStores_SchemaInvalid(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		BackendJSON:  `[{"index":0},{"foo":1}]`,
		BackendJSONL: "{\"index\":0}\n{\"foo\":1}\n",
	}
	for backend, body := range cases {
		t.Run(backend, func(t *testing.T) {
			s := openTestStore(t, backend)
			require.NoError(t, os.WriteFile(s.Path(), []byte(body), 0o644))
			c, err := s.Load(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrChainRead)
			assert.ErrorContains(t, err, "timestamp")
			assert.Nil(t, c)
		})
	}
}

// A rewrite of the ledger must carry every earlier block's on-disk metadata
// over unchanged, or strict verification loses the evidence of an edit.
func TestFileStores_AppendKeepsTamperEvidence(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{BackendJSON, BackendJSONL} {
		t.Run(backend, func(t *testing.T) {
			s := openTestStore(t, backend)
			first := fakeBlocks(0, 1, api.SentinelHash)
			require.NoError(t, s.Append(ctx, first...))

			raw, err := os.ReadFile(s.Path())
			require.NoError(t, err)
			body := string(raw)
			for _, sep := range []string{`"hash": "`, `"hash":"`} {
				body = strings.Replace(body, sep+first[0].DataHash, sep+"tampered", 1)
			}
			require.NotEqual(t, string(raw), body, "metadata.hash not found in %s", raw)
			require.NoError(t, os.WriteFile(s.Path(), []byte(body), 0o644))

			c, err := s.Load(ctx)
			require.NoError(t, err)
			assert.False(t, chain.Verify(c, chain.Strict()).Valid)

			require.NoError(t, s.Append(ctx, fakeBlocks(1, 1, first[0].DataHash)...))

			c, err = s.Load(ctx)
			require.NoError(t, err)
			require.Len(t, c, 2)
			stored, ok := c[0].StoredMetadata()
			require.True(t, ok)
			assert.Equal(t, "tampered", stored.Hash)
			r := chain.Verify(c, chain.Strict())
			require.NotNil(t, r.Violation)
			assert.Equal(t, uint64(0), r.Violation.Index)
		})
	}
}

func TestOpen_Validation(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, Options{Backend: "json"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "papyrus", Path: filepath.Join(t.TempDir(), "x")})
	assert.ErrorContains(t, err, "unknown storage backend")

	s, err := Open(ctx, Options{Backend: " JSON ", Path: filepath.Join(t.TempDir(), "c.json")})
	require.NoError(t, err)
	assert.Equal(t, BackendJSON, s.Backend())
}

func TestDefaultFileName(t *testing.T) {
	assert.Equal(t, "chain.json", DefaultFileName(""))
	assert.Equal(t, "chain.jsonl", DefaultFileName("jsonl"))
	assert.Equal(t, "chain.db", DefaultFileName("sqlite"))
	assert.Equal(t, "chain.bolt", DefaultFileName("bolt"))
}

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 10), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 5), 0o644))

	n, err := DiskUsage(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)

	n, err = DiskUsage(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}
