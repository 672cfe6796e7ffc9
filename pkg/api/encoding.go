package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// blockJSON is the on-disk schema of a block.
type blockJSON struct {
	Index        uint64   `json:"index"`
	Timestamp    string   `json:"timestamp"`
	PreviousHash string   `json:"previous_hash"`
	DataHash     string   `json:"data_hash"`
	Metadata     Metadata `json:"metadata"`
}

// blockFields mirrors blockJSON with pointers so absent fields can be told
// apart from zero values.
type blockFields struct {
	Index        *uint64         `json:"index"`
	Timestamp    *string         `json:"timestamp"`
	PreviousHash *string         `json:"previous_hash"`
	DataHash     *string         `json:"data_hash"`
	Metadata     *metadataFields `json:"metadata"`
}

type metadataFields struct {
	Filename     *string `json:"filename"`
	Hash         *string `json:"hash"`
	Timestamp    *string `json:"timestamp"`
	BlockIndex   *uint64 `json:"block_index"`
	PreviousHash *string `json:"previous_hash"`
}

// MarshalJSON writes the metadata object read from disk unchanged when there
// is one, so rewriting a ledger never alters an earlier block. Blocks built
// in memory get metadata derived from their fields.
func (b Block) MarshalJSON() ([]byte, error) {
	meta := b.Metadata()
	if b.stored != nil {
		meta = *b.stored
	}
	return json.Marshal(blockJSON{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		DataHash:     b.DataHash,
		Metadata:     meta,
	})
}

// UnmarshalJSON rejects objects missing any schema field, takes the filename
// from the metadata object and keeps the whole object for consistency checks.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw blockFields
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if missing := raw.missing(); len(missing) > 0 {
		return fmt.Errorf("block missing field(s): %s", strings.Join(missing, ", "))
	}
	m := raw.Metadata
	meta := Metadata{
		Filename:     *m.Filename,
		Hash:         *m.Hash,
		Timestamp:    *m.Timestamp,
		BlockIndex:   *m.BlockIndex,
		PreviousHash: *m.PreviousHash,
	}
	*b = Block{
		Index:        *raw.Index,
		Timestamp:    *raw.Timestamp,
		PreviousHash: *raw.PreviousHash,
		DataHash:     *raw.DataHash,
		Filename:     meta.Filename,
		stored:       &meta,
	}
	return nil
}

func (f blockFields) missing() []string {
	var out []string
	add := func(absent bool, name string) {
		if absent {
			out = append(out, name)
		}
	}
	add(f.Index == nil, "index")
	add(f.Timestamp == nil, "timestamp")
	add(f.PreviousHash == nil, "previous_hash")
	add(f.DataHash == nil, "data_hash")
	if f.Metadata == nil {
		return append(out, "metadata")
	}
	m := f.Metadata
	add(m.Filename == nil, "metadata.filename")
	add(m.Hash == nil, "metadata.hash")
	add(m.Timestamp == nil, "metadata.timestamp")
	add(m.BlockIndex == nil, "metadata.block_index")
	add(m.PreviousHash == nil, "metadata.previous_hash")
	return out
}
