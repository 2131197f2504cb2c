// Package secret seals and opens the shared file-storage provider key.
package secret

import (
	"bufio"
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrInvalidKey is returned when the sealing key is not 32 base64-encoded bytes.
	ErrInvalidKey = errors.New("sealing key must be 32 bytes, base64 encoded")
	// ErrNoSecret is returned when the secret file holds no sealed value.
	ErrNoSecret = errors.New("no sealed secret found")
	// ErrDecrypt is returned when a sealed value fails authentication.
	ErrDecrypt = errors.New("failed to open sealed secret")
)

// Credential holds an opened secret. The zero value is empty.
type Credential struct {
	value string
}

// NewCredential wraps an already-plain secret.
func NewCredential(value string) Credential {
	return Credential{value: value}
}

// Value returns the plaintext secret.
func (c Credential) Value() string { return c.value }

// IsZero reports whether no secret is held.
func (c Credential) IsZero() bool { return c.value == "" }

// String keeps the secret out of logs and fmt output.
func (c Credential) String() string {
	if c.IsZero() {
		return "<empty>"
	}
	return "<redacted>"
}

// GenerateKey returns a fresh base64-encoded sealing key.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Seal encrypts plaintext with XChaCha20-Poly1305 and returns the
// base64-encoded nonce and ciphertext as one line.
func Seal(encodedKey, plaintext string) (string, error) {
	aead, err := newAEAD(encodedKey)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func Open(encodedKey, sealed string) (Credential, error) {
	aead, err := newAEAD(encodedKey)
	if err != nil {
		return Credential{}, err
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sealed))
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return Credential{}, fmt.Errorf("%w: value too short", ErrDecrypt)
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Credential{}, ErrDecrypt
	}

	return Credential{value: string(plain)}, nil
}

// OpenFile opens the last non-empty line of path. Earlier lines are
// previous generations kept for rollback.
func OpenFile(encodedKey, path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read secret file: %w", err)
	}

	var last string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return Credential{}, fmt.Errorf("failed to scan secret file: %w", err)
	}
	if last == "" {
		return Credential{}, ErrNoSecret
	}

	return Open(encodedKey, last)
}

func newAEAD(encodedKey string) (cipher.AEAD, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedKey))
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	return aead, nil
}
