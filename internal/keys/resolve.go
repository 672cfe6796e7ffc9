package keys

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Key providers accepted by key.provider.
const (
	ProviderConfig  = "config"
	ProviderKeyring = "keyring"
	ProviderPrompt  = "prompt"
)

// DefaultKeyID names the keyring entry when key.id is unset.
const DefaultKeyID = "ledger"

// KeySize is the length of a generated key.
const KeySize = 32

// Providers lists the accepted provider names.
func Providers() []string { return []string{ProviderConfig, ProviderKeyring, ProviderPrompt} }

// Prompter reads a secret from the operator.
type Prompter interface {
	ReadSecret(prompt string) (string, error)
}

// TermPrompter reads from the controlling terminal without echo.
type TermPrompter struct{}

func (TermPrompter) ReadSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; cannot prompt for key")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StoreFor returns the KeyStore backing provider.
func StoreFor(v *viper.Viper, provider string) (KeyStore, error) {
	switch provider {
	case ProviderConfig, "":
		return &ConfigStore{Keys: map[string]string{keyID(v): strings.TrimSpace(v.GetString("key.value"))}}, nil
	case ProviderKeyring:
		return &KeyringStore{}, nil
	default:
		return nil, fmt.Errorf("key provider %q has no store", provider)
	}
}

// Resolve returns the ledger key according to key.provider.
func Resolve(v *viper.Viper, prompt Prompter) ([]byte, error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("key.provider")))
	id := keyID(v)
	switch provider {
	case ProviderConfig, "", ProviderKeyring:
		store, err := StoreFor(v, provider)
		if err != nil {
			return nil, err
		}
		key, err := store.Get(id)
		if errors.Is(err, ErrKeyNotFound) {
			if provider == ProviderKeyring {
				return nil, fmt.Errorf("no key %q in keyring; run `diarychain key generate --store`", id)
			}
			return nil, errors.New("no key configured; set key.value or DIARYCHAIN_KEY_VALUE")
		}
		return key, err
	case ProviderPrompt:
		if prompt == nil {
			prompt = TermPrompter{}
		}
		val, err := prompt.ReadSecret("Ledger key (base64): ")
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		return decodeKey(strings.TrimSpace(val))
	default:
		return nil, fmt.Errorf("unknown key provider %q (want one of %s)", provider, strings.Join(Providers(), ", "))
	}
}

// Generate returns a fresh random key.
func Generate() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func keyID(v *viper.Viper) string {
	if id := strings.TrimSpace(v.GetString("key.id")); id != "" {
		return id
	}
	return DefaultKeyID
}
