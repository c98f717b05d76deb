package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Credentials are stored encrypted with XChaCha20-Poly1305 under the key
// from EXCHANGE_CREDENTIALS_KEY. Ciphertext layout: nonce || sealed bytes,
// base64 encoded.

var errCiphertextTooShort = errors.New("ciphertext shorter than nonce")

func loadKey() ([]byte, error) {
	config := GetConfig()

	key, err := base64.StdEncoding.DecodeString(config.ExchangeCRKey)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials key encoding: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credentials key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return key, nil
}

// EncryptString seals a plaintext credential for storage.
func EncryptString(plaintext string) (string, error) {
	key, err := loadKey()
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a stored credential.
func DecryptString(ciphertext string) (string, error) {
	key, err := loadKey()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext encoding: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	if len(raw) < aead.NonceSize() {
		return "", errCiphertextTooShort
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}

	return string(plain), nil
}
