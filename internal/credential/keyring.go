package credential

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const (
	serviceName = "finmail"

	// KeyName is the keyring entry holding the vault secret.
	KeyName = "vault-key"
)

// openKeyring returns a configured keyring instance. File-backend
// credentials live under dir.
func openKeyring(dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("finmail-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// KeyringProvider keeps the vault secret in the system keyring. A random
// secret is generated and stored the first time one is requested.
type KeyringProvider struct {
	ring keyring.Keyring
	key  string
}

// NewKeyringProvider opens the system keyring, using dir for the file
// backend fallback.
func NewKeyringProvider(dir string) (*KeyringProvider, error) {
	ring, err := openKeyring(dir)
	if err != nil {
		return nil, err
	}
	return NewKeyringProviderWith(ring), nil
}

// NewKeyringProviderWith wraps an already opened keyring.
func NewKeyringProviderWith(ring keyring.Keyring) *KeyringProvider {
	return &KeyringProvider{ring: ring, key: KeyName}
}

// Secret returns the stored secret, creating it on first use.
func (p *KeyringProvider) Secret() ([]byte, error) {
	item, err := p.ring.Get(p.key)
	if err == nil {
		return decodeSecret(string(item.Data))
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, fmt.Errorf("getting credential %q: %w", p.key, err)
	}

	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}
	err = p.ring.Set(keyring.Item{
		Key:   p.key,
		Data:  []byte(base64.StdEncoding.EncodeToString(secret)),
		Label: "finmail credential vault key",
	})
	if err != nil {
		return nil, fmt.Errorf("setting credential %q: %w", p.key, err)
	}
	return secret, nil
}

// Delete removes the stored secret. Every blob sealed with it becomes
// unreadable.
func (p *KeyringProvider) Delete() error {
	if err := p.ring.Remove(p.key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", p.key, err)
	}
	return nil
}
