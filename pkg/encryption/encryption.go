// Package encryption provides symmetric encryption for stored credentials.
// Secrets are sealed with AES-GCM under a key derived from a server-held
// secret; a random nonce is generated per call and prepended to the
// ciphertext, so sealing the same plaintext twice yields different outputs.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// DecryptionError indicates that a stored ciphertext could not be opened,
// typically because it is malformed or was sealed under a different key.
// Callers must treat this as "credential unavailable", not as a crash.
type DecryptionError struct {
	Cause error
}

// Error implements the error interface.
func (e *DecryptionError) Error() string {
	return fmt.Sprintf("failed to decrypt credential: %v", e.Cause)
}

// Unwrap returns the underlying error.
func (e *DecryptionError) Unwrap() error {
	return e.Cause
}

// IsDecryptionError checks whether an error is a DecryptionError.
func IsDecryptionError(err error) bool {
	var de *DecryptionError
	return errors.As(err, &de)
}

// SecretBox seals and opens credential strings with a process-wide key.
// The key is derived once at construction; rotating the server secret
// invalidates every ciphertext sealed under the old key.
type SecretBox struct {
	key []byte
}

// NewSecretBox derives an AES-256 key from the given secret.
func NewSecretBox(secret string) *SecretBox {
	hash := sha256.Sum256([]byte(secret))
	return &SecretBox{key: hash[:]}
}

// Seal encrypts a plaintext credential and returns a base64 string with the
// random nonce prepended.
func (b *SecretBox) Seal(plaintext string) (string, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to initialize GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open decrypts a ciphertext produced by Seal. Malformed input or input
// sealed under a foreign key yields a *DecryptionError.
func (b *SecretBox) Open(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &DecryptionError{Cause: err}
	}

	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to initialize GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", &DecryptionError{Cause: errors.New("ciphertext too short")}
	}

	nonce := data[:nonceSize]
	plaintext, err := gcm.Open(nil, nonce, data[nonceSize:], nil)
	if err != nil {
		return "", &DecryptionError{Cause: err}
	}

	return string(plaintext), nil
}
