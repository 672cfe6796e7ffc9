package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the only accepted key length.
	KeySize = 32
	// NonceSize is the per-call nonce length (96 bits).
	NonceSize = 12
)

// Cipher algorithm names accepted by NewCipher.
const (
	AES256GCM        = "aes-256-gcm"
	ChaCha20Poly1305 = "chacha20-poly1305"
)

// ErrEncryption wraps any failure inside the AEAD or the nonce source.
var ErrEncryption = errors.New("encryption failed")

// KeyLengthError reports a key that is not KeySize bytes long.
type KeyLengthError struct {
	Got int
}

func (e *KeyLengthError) Error() string {
	return fmt.Sprintf("key must be %d bytes, got %d", KeySize, e.Got)
}

// Sealed is the output of one encryption. Neither field is persisted.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
}

// Cipher performs authenticated encryption with a fresh random nonce per call.
type Cipher struct {
	Algorithm string
	// Rand is the nonce source; crypto/rand when nil.
	Rand io.Reader
}

// NewCipher validates the algorithm name. Empty selects AES-256-GCM.
func NewCipher(algorithm string) (*Cipher, error) {
	algo := strings.ToLower(strings.TrimSpace(algorithm))
	if algo == "" {
		algo = AES256GCM
	}
	switch algo {
	case AES256GCM, ChaCha20Poly1305:
		return &Cipher{Algorithm: algo}, nil
	default:
		return nil, fmt.Errorf("unsupported cipher %q", algorithm)
	}
}

// Encrypt seals content under key.
func (c *Cipher) Encrypt(content []byte, key []byte) (Sealed, error) {
	if len(key) != KeySize {
		return Sealed{}, &KeyLengthError{Got: len(key)}
	}
	aead, err := c.aead(key)
	if err != nil {
		return Sealed{}, fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(c.random(), nonce); err != nil {
		return Sealed{}, fmt.Errorf("%w: nonce: %v", ErrEncryption, err)
	}
	return Sealed{
		Ciphertext: aead.Seal(nil, nonce, content, nil),
		Nonce:      nonce,
	}, nil
}

func (c *Cipher) aead(key []byte) (cipher.AEAD, error) {
	switch c.Algorithm {
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	case AES256GCM, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	default:
		return nil, fmt.Errorf("unsupported cipher %q", c.Algorithm)
	}
}

func (c *Cipher) random() io.Reader {
	if c != nil && c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}
