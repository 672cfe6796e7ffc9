package crypto

// Sealer encrypts content and hashes the ciphertext. The ciphertext and nonce
// are dropped; only the digest leaves this type. Encrypting the same content
// twice yields two different digests.
type Sealer struct {
	Cipher *Cipher
	Hasher *Hasher
}

// NewSealer builds a Sealer from algorithm names.
func NewSealer(cipherAlgo, hashAlgo string) (*Sealer, error) {
	c, err := NewCipher(cipherAlgo)
	if err != nil {
		return nil, err
	}
	h, err := NewHasher(hashAlgo)
	if err != nil {
		return nil, err
	}
	return &Sealer{Cipher: c, Hasher: h}, nil
}

// Seal returns the data hash for content under key.
func (s *Sealer) Seal(content []byte, key []byte) (string, error) {
	sealed, err := s.Cipher.Encrypt(content, key)
	if err != nil {
		return "", err
	}
	return s.Hasher.Digest(sealed.Ciphertext), nil
}
