package keys

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const DefaultKeyringService = "diarychain"

// KeyringStore keeps base64 key material in the system keyring under
// Service/<key id>.
type KeyringStore struct {
	Service string
}

func (s *KeyringStore) Get(id string) ([]byte, error) {
	val, err := keyring.Get(s.service(), id)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return nil, ErrKeyNotFound
	case err != nil:
		return nil, fmt.Errorf("keyring %s/%s: %w", s.service(), id, err)
	}
	return decodeKey(val)
}

func (s *KeyringStore) Put(id string, key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("refusing to store a %d-byte key; want %d", len(key), KeySize)
	}
	if err := keyring.Set(s.service(), id, EncodeKey(key)); err != nil {
		return fmt.Errorf("keyring %s/%s: %w", s.service(), id, err)
	}
	return nil
}

func (s *KeyringStore) Delete(id string) error {
	if err := keyring.Delete(s.service(), id); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

func (s *KeyringStore) service() string {
	if s != nil && s.Service != "" {
		return s.Service
	}
	return DefaultKeyringService
}
