// Package secret implements the passphrase-based symmetric encryption used
// on the client side of the relay. The server never calls into this
// package; it only ever sees the opaque ciphertext strings produced here.
//
// Ciphertext format: base64(salt[16] || nonce[12] || AES-256-GCM sealed).
// The output is self-contained, so decryption needs only the ciphertext
// and the passphrase.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/scrypt"
)

const (
	saltSize = 16
	keySize  = 32

	// scrypt cost parameters
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
}

// Encrypt seals plaintext under a key derived from the passphrase and
// returns a self-contained base64 ciphertext.
func Encrypt(plaintext, passphrase string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt attempts to recover the plaintext. The second return value is
// false when recovery fails for any reason: malformed base64, truncated
// input, wrong passphrase, corrupted ciphertext, or recovered bytes that
// are not valid UTF-8. A message sealed under a different room passphrase
// is therefore inert rather than an error.
func Decrypt(ciphertext, passphrase string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", false
	}
	if len(raw) < saltSize {
		return "", false
	}

	salt, rest := raw[:saltSize], raw[saltSize:]
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return "", false
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", false
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", false
	}
	if len(rest) < aead.NonceSize() {
		return "", false
	}

	nonce, sealed := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(plaintext) {
		return "", false
	}

	return string(plaintext), true
}

// EncryptBinary base64-encodes the payload and seals it through the text
// path, so voice clips ride the same cipher pipeline as text.
func EncryptBinary(data []byte, passphrase string) (string, error) {
	return Encrypt(base64.StdEncoding.EncodeToString(data), passphrase)
}

// DecryptBinary reverses EncryptBinary. Returns (nil, false) on any
// decryption or decoding failure.
func DecryptBinary(ciphertext, passphrase string) ([]byte, bool) {
	encoded, ok := Decrypt(ciphertext, passphrase)
	if !ok {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	return data, true
}
