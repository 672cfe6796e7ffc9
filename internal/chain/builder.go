// Package chain builds, verifies and queries the hash-linked block chain.
package chain

import (
	"fmt"
	"time"
	_ "time/tzdata"

	gcrypto "github.com/mithrel/diarychain/internal/crypto"
	"github.com/mithrel/diarychain/pkg/api"
)

// DefaultTimezone is the civil zone block timestamps are rendered in.
const DefaultTimezone = "Asia/Taipei"

// Builder constructs the next block from chain state and entry content.
type Builder struct {
	Sealer   *gcrypto.Sealer
	Location *time.Location
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// NewBuilder resolves the timezone by IANA name.
func NewBuilder(sealer *gcrypto.Sealer, timezone string) (*Builder, error) {
	if sealer == nil {
		return nil, fmt.Errorf("sealer is required")
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Builder{Sealer: sealer, Location: loc}, nil
}

// Next builds the block that would follow c without modifying it.
func (b *Builder) Next(c api.Chain, filename, content string, key []byte) (api.Block, error) {
	prev := c.Head()
	index := c.NextIndex()

	hash, err := b.Sealer.Seal([]byte(content), key)
	if err != nil {
		return api.Block{}, err
	}

	return api.Block{
		Index:        index,
		Timestamp:    b.timestamp(),
		PreviousHash: prev,
		DataHash:     hash,
		Filename:     filename,
	}, nil
}

// Append builds the next block and returns the extended chain with it.
// On error the input chain is returned unchanged.
func (b *Builder) Append(c api.Chain, filename, content string, key []byte) (api.Chain, api.Block, error) {
	blk, err := b.Next(c, filename, content, key)
	if err != nil {
		return c, api.Block{}, err
	}
	return append(c, blk), blk, nil
}

func (b *Builder) timestamp() string {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	t := now()
	if b.Location != nil {
		t = t.In(b.Location)
	}
	return t.Format(time.RFC3339Nano)
}
