package credential

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// secretSize is the length of generated secrets in bytes.
const secretSize = 32

// ErrNoSecret is returned when a provider has no secret to hand out.
var ErrNoSecret = errors.New("no encryption secret configured")

// SecretProvider supplies the secret the vault derives its key from.
type SecretProvider interface {
	Secret() ([]byte, error)
}

// SecretFunc adapts a function to SecretProvider.
type SecretFunc func() ([]byte, error)

// Secret calls f.
func (f SecretFunc) Secret() ([]byte, error) { return f() }

// Static returns a provider for a fixed secret.
func Static(secret []byte) SecretProvider {
	return SecretFunc(func() ([]byte, error) {
		if len(secret) == 0 {
			return nil, ErrNoSecret
		}
		return secret, nil
	})
}

// EnvProvider reads the secret from an environment variable. The value
// may be base64; anything else is used as a passphrase.
type EnvProvider struct {
	Var string
}

// Secret implements SecretProvider.
func (p EnvProvider) Secret() ([]byte, error) {
	value := strings.TrimSpace(os.Getenv(p.Var))
	if value == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoSecret, p.Var)
	}
	return decodeSecret(value)
}

func decodeSecret(value string) ([]byte, error) {
	if value == "" {
		return nil, ErrNoSecret
	}
	if raw, err := base64.StdEncoding.DecodeString(value); err == nil && len(raw) >= 16 {
		return raw, nil
	}
	return []byte(value), nil
}

// Backend names accepted by NewProvider.
const (
	BackendKeyring = "keyring"
	BackendEnv     = "env"
)

// NewProvider returns the provider for a configured backend.
func NewProvider(backend, envVar, dir string) (SecretProvider, error) {
	switch backend {
	case BackendEnv:
		return EnvProvider{Var: envVar}, nil
	case BackendKeyring, "":
		return NewKeyringProvider(filepath.Clean(dir))
	default:
		return nil, fmt.Errorf("unknown secret backend %q", backend)
	}
}
