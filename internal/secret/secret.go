// Package secret decrypts Fernet-encrypted configuration values.
package secret

import (
	"fmt"
	"strings"

	"github.com/fernet/fernet-go"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
)

// fernetPrefix is the version byte 0x80 as it appears in base64url ("gAAAAA").
const fernetPrefix = "gAAAAA"

// IsEncrypted reports whether value looks like a Fernet token.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, fernetPrefix)
}

// Decrypt returns the plaintext of a Fernet token using the given base64 key.
// Tokens never expire; a negative TTL disables the age check.
func Decrypt(token, key string) (string, error) {
	keys, err := fernet.DecodeKeys(key)
	if err != nil {
		return "", fmt.Errorf("failed to decode fernet key: %w", err)
	}
	msg := fernet.VerifyAndDecrypt([]byte(token), -1, keys)
	if msg == nil {
		return "", apperrors.ErrInvalidSecret
	}
	return string(msg), nil
}

// Encrypt produces a Fernet token for plaintext. Used by tooling and tests.
func Encrypt(plaintext, key string) (string, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to decode fernet key: %w", err)
	}
	tok, err := fernet.EncryptAndSign([]byte(plaintext), k)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt secret: %w", err)
	}
	return string(tok), nil
}

// Resolve returns value unchanged unless it is a Fernet token, in which case it is
// decrypted with key. An encrypted value without a key is an error.
func Resolve(value, key string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if key == "" {
		return "", fmt.Errorf("%w: FERNET_KEY is not set", apperrors.ErrInvalidSecret)
	}
	return Decrypt(value, key)
}
