// Package credential seals mailbox credentials and server settings for
// storage. The encryption key is derived from a secret supplied by a
// SecretProvider, normally the system keyring.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/nhle/finmail/internal/model"
)

// sealPrefix versions the blob format.
const sealPrefix = "v1:"

var hkdfInfo = []byte("finmail credential vault")

// ErrMalformed is returned for blobs that were not produced by Seal.
var ErrMalformed = errors.New("malformed sealed value")

// Vault encrypts values with AES-256-GCM.
type Vault struct {
	provider SecretProvider
}

// NewVault returns a vault keyed by p.
func NewVault(p SecretProvider) *Vault {
	return &Vault{provider: p}
}

func (v *Vault) aead() (cipher.AEAD, error) {
	secret, err := v.provider.Secret()
	if err != nil {
		return nil, fmt.Errorf("loading secret: %w", err)
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encodes value as JSON and encrypts it.
func (v *Vault) Seal(value any) (string, error) {
	plain, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding value: %w", err)
	}

	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)
	return sealPrefix + base64.URLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a blob produced by Seal into out.
func (v *Vault) Open(blob string, out any) error {
	encoded, ok := strings.CutPrefix(blob, sealPrefix)
	if !ok {
		return ErrMalformed
	}
	sealed, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	aead, err := v.aead()
	if err != nil {
		return err
	}
	if len(sealed) < aead.NonceSize() {
		return ErrMalformed
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("decrypting: %w", err)
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}
	return nil
}

// SealAccount encrypts creds and settings into the account's blobs.
func (v *Vault) SealAccount(acct *model.MailboxAccount, creds model.Credentials, settings model.ServerSettings) error {
	sealedCreds, err := v.Seal(creds)
	if err != nil {
		return fmt.Errorf("sealing credentials: %w", err)
	}
	sealedSettings, err := v.Seal(settings)
	if err != nil {
		return fmt.Errorf("sealing server settings: %w", err)
	}
	acct.Credentials = sealedCreds
	acct.ServerSettings = sealedSettings
	return nil
}

// OpenAccount decrypts the account's blobs.
func (v *Vault) OpenAccount(acct model.MailboxAccount) (model.Credentials, model.ServerSettings, error) {
	var creds model.Credentials
	var settings model.ServerSettings
	if err := v.Open(acct.Credentials, &creds); err != nil {
		return creds, settings, fmt.Errorf("opening credentials for %s: %w", acct.Email, err)
	}
	if err := v.Open(acct.ServerSettings, &settings); err != nil {
		return creds, settings, fmt.Errorf("opening server settings for %s: %w", acct.Email, err)
	}
	return creds, settings, nil
}
