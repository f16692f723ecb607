// Package cardcrypt encrypts card numbers (PANs) at rest and produces the
// masked form used in responses. AES-CBC with a random IV per call: the
// same PAN encrypted twice yields different ciphertexts, and lookups are
// always by card id, never by ciphertext.
package cardcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyLength means the supplied key is not a valid AES key.
	// Like a missing key, this is a fatal configuration error.
	ErrInvalidKeyLength = errors.New("encryption key must be 16, 24, or 32 bytes")
	// ErrEncryptionFailed covers failures while encrypting a PAN.
	ErrEncryptionFailed = errors.New("failed to encrypt card number")
	// ErrDecryptionFailed covers malformed, truncated or corrupted ciphertext.
	ErrDecryptionFailed = errors.New("failed to decrypt card number")
)

// KeyProvider supplies the symmetric key material.
type KeyProvider interface {
	CurrentKey() ([]byte, error)
}

// Encryptor encrypts and decrypts PANs with the key from a KeyProvider.
type Encryptor struct {
	keys KeyProvider
}

// NewEncryptor creates a new Encryptor
func NewEncryptor(keys KeyProvider) *Encryptor {
	return &Encryptor{keys: keys}
}

func (e *Encryptor) key() ([]byte, error) {
	key, err := e.keys.CurrentKey()
	if err != nil {
		return nil, err
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidKeyLength, len(key))
	}
	return key, nil
}

// Encrypt encrypts a PAN using AES-CBC with PKCS#7 padding and a fresh
// random IV, returning hex(iv || ciphertext).
func (e *Encryptor) Encrypt(pan string) (string, error) {
	if len(pan) == 0 {
		return "", fmt.Errorf("%w: input is empty", ErrEncryptionFailed)
	}
	key, err := e.key()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("%w: failed to generate IV: %v", ErrEncryptionFailed, err)
	}

	// PKCS#7 padding
	data := []byte(pan)
	padding := aes.BlockSize - len(data)%aes.BlockSize
	for i := 0; i < padding; i++ {
		data = append(data, byte(padding))
	}

	ciphertext := make([]byte, len(data))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, data)

	return hex.EncodeToString(append(iv, ciphertext...)), nil
}

// Decrypt decrypts a hex-encoded ciphertext produced by Encrypt. Corrupted
// input fails with ErrDecryptionFailed, never silently returns wrong data.
func (e *Encryptor) Decrypt(encrypted string) (string, error) {
	if len(encrypted) == 0 {
		return "", fmt.Errorf("%w: input is empty", ErrDecryptionFailed)
	}
	key, err := e.key()
	if err != nil {
		return "", err
	}

	data, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hex: %v", ErrDecryptionFailed, err)
	}

	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("%w: data too short: %d bytes", ErrDecryptionFailed, len(data))
	}

	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid ciphertext length: %d bytes", ErrDecryptionFailed, len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	// Validate and strip PKCS#7 padding
	padding := int(plaintext[len(plaintext)-1])
	if padding > aes.BlockSize || padding == 0 {
		return "", fmt.Errorf("%w: invalid padding value: %d", ErrDecryptionFailed, padding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("%w: invalid padding bytes", ErrDecryptionFailed)
		}
	}

	return string(plaintext[:len(plaintext)-padding]), nil
}

// MaskPAN hides all but the last 4 digits of a decrypted PAN. Inputs
// shorter than 4 characters yield a fully masked placeholder; this never
// fails.
func MaskPAN(pan string) string {
	if len(pan) < 4 {
		return "****"
	}
	return "**** **** **** " + pan[len(pan)-4:]
}
