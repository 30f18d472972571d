// Package crypto encrypts and decrypts secrets stored in configuration
// files. Values are age-encrypted with a scrypt passphrase and ASCII armored.
package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// IsEncrypted reports whether value is an armored age payload.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), armor.Header)
}

// Encrypt seals plaintext with the master key and returns armored text.
func Encrypt(plaintext, key string) (string, error) {
	if key == "" {
		return "", errors.New("master key is empty")
	}
	recipient, err := age.NewScryptRecipient(key)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	armored := armor.NewWriter(&buf)
	w, err := age.Encrypt(armored, recipient)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if err := armored.Close(); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return buf.String(), nil
}

// Decrypt opens an armored payload produced by Encrypt.
func Decrypt(ciphertext, key string) (string, error) {
	if !IsEncrypted(ciphertext) {
		return "", errors.New("value is not encrypted")
	}
	identity, err := age.NewScryptIdentity(key)
	if err != nil {
		return "", err
	}

	r, err := age.Decrypt(armor.NewReader(strings.NewReader(strings.TrimSpace(ciphertext)+"\n")), identity)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(out), nil
}
