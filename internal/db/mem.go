package db

import (
	"context"
	"sync"

	"github.com/mithrel/diarychain/pkg/api"
)

type memStore struct {
	mu     sync.RWMutex
	blocks api.Chain
}

func newMemStore() *memStore {
	return &memStore{blocks: api.Chain{}}
}

// NewMemStore returns a volatile Store, mainly for tests.
func NewMemStore() Store { return newMemStore() }

func (m *memStore) Backend() string { return BackendMem }
func (m *memStore) Path() string    { return "" }
func (m *memStore) Close() error    { return nil }

func (m *memStore) Load(ctx context.Context) (api.Chain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blocks.Clone(), nil
}

func (m *memStore) Save(ctx context.Context, c api.Chain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = append(api.Chain{}, c...)
	return nil
}

func (m *memStore) Append(ctx context.Context, blocks ...api.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkAppend(m.blocks.NextIndex(), blocks); err != nil {
		return writeErr("mem", err)
	}
	m.blocks = append(m.blocks, blocks...)
	return nil
}
