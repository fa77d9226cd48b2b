// Package crypto contains Vigenère Encryption and Decryption
//
// The extended Vigenère cipher shifts every byte of the input by the byte
// value of the matching key character, modulo 256. It hides the payload from
// casual inspection of the low-order bits but offers no real confidentiality:
// a known plaintext prefix reveals the key directly.
package crypto

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxKeyLength is the longest key, in characters, accepted from clients.
const MaxKeyLength = 25

// ErrInvalidKey is returned when a key is empty or too long.
var ErrInvalidKey = errors.New("invalid key")

func Encrypt(plaintext []byte, key string) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}

	k := []byte(key)
	keyLen := len(k)
	ciphertext := make([]byte, len(plaintext))

	for i, char := range plaintext {
		// Extended Vigenère: (P + K) mod 256
		ciphertext[i] = byte((int(char) + int(k[i%keyLen])) % 256)
	}

	return ciphertext, nil
}

func Decrypt(ciphertext []byte, key string) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}

	k := []byte(key)
	keyLen := len(k)
	plaintext := make([]byte, len(ciphertext))

	for i, char := range ciphertext {
		// Extended Vigenère: (C - K + 256) mod 256
		plaintext[i] = byte((int(char) - int(k[i%keyLen]) + 256) % 256)
	}

	return plaintext, nil
}

// ValidateKey validates if the key is suitable for both the cipher and the
// position generator.
func ValidateKey(key string) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	if n := utf8.RuneCountInString(key); n > MaxKeyLength {
		return fmt.Errorf("%w: key length %d exceeds %d characters", ErrInvalidKey, n, MaxKeyLength)
	}
	return nil
}
