package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
)

// Hash algorithm names accepted by NewHasher.
const (
	SHA256 = "sha256"
	BLAKE3 = "blake3"
)

// Hasher produces a 256-bit hex digest of ciphertext bytes.
type Hasher struct {
	Algorithm string
}

// NewHasher validates the algorithm name. Empty selects SHA-256.
func NewHasher(algorithm string) (*Hasher, error) {
	algo := strings.ToLower(strings.TrimSpace(algorithm))
	if algo == "" {
		algo = SHA256
	}
	switch algo {
	case SHA256, BLAKE3:
		return &Hasher{Algorithm: algo}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

// Digest returns the lowercase hex digest of data.
func (h *Hasher) Digest(data []byte) string {
	fn := h.newHash()
	fn.Write(data)
	return hex.EncodeToString(fn.Sum(nil))
}

func (h *Hasher) newHash() hash.Hash {
	if h != nil && h.Algorithm == BLAKE3 {
		return blake3.New()
	}
	return sha256.New()
}
