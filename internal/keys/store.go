package keys

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// KeyStore provides access to ledger key material by id.
type KeyStore interface {
	Get(id string) ([]byte, error)
	Put(id string, key []byte) error
	Delete(id string) error
}

var ErrKeyNotFound = errors.New("key not found")

// ConfigStore keeps base64 key material taken from configuration.
type ConfigStore struct {
	Keys map[string]string
}

func (s *ConfigStore) Get(id string) ([]byte, error) {
	if s == nil || s.Keys == nil {
		return nil, ErrKeyNotFound
	}
	val, ok := s.Keys[id]
	if !ok || val == "" {
		return nil, ErrKeyNotFound
	}
	return decodeKey(val)
}

func (s *ConfigStore) Put(id string, key []byte) error {
	if s.Keys == nil {
		s.Keys = map[string]string{}
	}
	s.Keys[id] = EncodeKey(key)
	return nil
}

func (s *ConfigStore) Delete(id string) error {
	if s == nil || s.Keys == nil {
		return nil
	}
	delete(s.Keys, id)
	return nil
}

// EncodeKey renders key material the way configuration stores it.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

func decodeKey(val string) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("key is not valid base64: %w", err)
	}
	return out, nil
}
