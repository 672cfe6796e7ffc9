package api

// SentinelHash is the previous_hash of the genesis block.
const SentinelHash = "0000000000000000"

// Metadata is the flat per-entry view persisted in sidecar files and
// embedded in every block on disk.
type Metadata struct {
	Filename     string `json:"filename"`
	Hash         string `json:"hash"`
	Timestamp    string `json:"timestamp"`
	BlockIndex   uint64 `json:"block_index"`
	PreviousHash string `json:"previous_hash"`
}

// Block is one link in the chain. The metadata view is derived from the
// canonical fields; see Metadata and StoredMetadata.
type Block struct {
	Index        uint64
	Timestamp    string
	PreviousHash string
	DataHash     string
	Filename     string

	// stored is the metadata object as it was decoded from disk, if any.
	stored *Metadata
}

// Metadata returns the denormalized view of b.
func (b Block) Metadata() Metadata {
	return Metadata{
		Filename:     b.Filename,
		Hash:         b.DataHash,
		Timestamp:    b.Timestamp,
		BlockIndex:   b.Index,
		PreviousHash: b.PreviousHash,
	}
}

// StoredMetadata returns the metadata object read from persistent storage.
// Blocks built in memory have none.
func (b Block) StoredMetadata() (Metadata, bool) {
	if b.stored == nil {
		return Metadata{}, false
	}
	return *b.stored, true
}

// Chain is the ordered, append-only sequence of blocks.
type Chain []Block

// Last returns the final block, if any.
func (c Chain) Last() (Block, bool) {
	if len(c) == 0 {
		return Block{}, false
	}
	return c[len(c)-1], true
}

// Head returns the hash the next block must link to.
func (c Chain) Head() string {
	if last, ok := c.Last(); ok {
		return last.DataHash
	}
	return SentinelHash
}

// NextIndex is the index the next appended block receives.
func (c Chain) NextIndex() uint64 { return uint64(len(c)) }

// Clone returns a copy that shares no backing array with c.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	return append(Chain(nil), c...)
}
