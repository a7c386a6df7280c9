package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
)

// Sentinel errors
var (
	// ErrDecryption is returned when ciphertext is corrupted, truncated, or
	// was produced with a different key. Callers treat it the same as an
	// absent value.
	ErrDecryption = errors.New("decryption failed")

	// ErrInvalidKey is returned when the key is not exactly 32 bytes.
	ErrInvalidKey = errors.New("key must be 32 bytes")
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Codec encrypts and decrypts token material before it is persisted.
// Values are sealed with AES-256-GCM and encoded with URL-safe base64.
type Codec struct {
	aead        cipher.AEAD
	fingerprint string
}

// NewCodec creates a codec from a raw 32-byte key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Fingerprint identifies the key in logs without revealing it.
	hash := sha256.Sum256(key)
	fingerprint := base58.Encode(hash[:])[:8]

	return &Codec{aead: aead, fingerprint: fingerprint}, nil
}

// CodecFromPassphrase derives a 32-byte key from a passphrase via SHA-256.
func CodecFromPassphrase(passphrase string) (*Codec, error) {
	if passphrase == "" {
		return nil, ErrInvalidKey
	}
	key := sha256.Sum256([]byte(passphrase))
	return NewCodec(key[:])
}

// Fingerprint returns a short identifier for the configured key.
func (c *Codec) Fingerprint() string {
	return c.fingerprint
}

// Encrypt seals plaintext and returns base64url(nonce || ciphertext).
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any malformed or foreign input yields
// ErrDecryption, never a partial result.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryption
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", ErrDecryption
	}

	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}
