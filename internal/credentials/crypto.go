package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrKeyMissing  = errors.New("credentials key not configured")
	ErrOpenFailed  = errors.New("unseal failed")
	ErrSealedShort = errors.New("sealed blob too short")
)

// keyContext binds derived keys to this use so the master key can be shared
// with future encryption contexts without nonce or key reuse.
const keyContext = "webinsight-provider-credentials"

// Encryptor seals provider access tokens before they hit the database.
// XChaCha20-Poly1305 with a per-seal random nonce prepended to the blob.
type Encryptor struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
		Overhead() int
	}
}

// NewEncryptor derives the sealing key from the master key via HKDF-SHA256.
// The master key must carry at least 16 bytes of entropy.
func NewEncryptor(masterKey string) (*Encryptor, error) {
	if masterKey == "" {
		return nil, ErrKeyMissing
	}
	if len(masterKey) < 16 {
		return nil, errors.New("credentials key must be at least 16 bytes")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	reader := hkdf.New(sha256.New, []byte(masterKey), nil, []byte(keyContext))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// Seal encrypts a token. The nonce is prepended to the returned blob.
func (e *Encryptor) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts a blob produced by Seal.
func (e *Encryptor) Open(sealed []byte) (string, error) {
	nonceSize := e.aead.NonceSize()
	if len(sealed) < nonceSize+e.aead.Overhead() {
		return "", ErrSealedShort
	}
	plaintext, err := e.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(plaintext), nil
}
