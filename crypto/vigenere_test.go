package crypto

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptKnownVector(t *testing.T) {
	ciphertext, err := Encrypt([]byte{0x00, 0x10, 0xF0, 0xFF}, "AB")
	require.NoError(t, err)
	// 'A' = 0x41, 'B' = 0x42
	require.Equal(t, []byte{0x41, 0x52, 0x31, 0x41}, ciphertext)
}

func TestDecryptInvertsEncrypt(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	keys := []string{"k", "secret1", "STEGANO", "ünïcødé", strings.Repeat("z", MaxKeyLength)}

	for _, key := range keys {
		for _, size := range []int{0, 1, 13, 256, 4099} {
			plaintext := make([]byte, size)
			rng.Read(plaintext)

			ciphertext, err := Encrypt(plaintext, key)
			require.NoError(t, err)
			require.Len(t, ciphertext, size)

			decrypted, err := Decrypt(ciphertext, key)
			require.NoError(t, err)
			require.Equal(t, plaintext, decrypted, "key %q size %d", key, size)
		}
	}
}

func TestEncryptDoesNotMutateInput(t *testing.T) {
	plaintext := []byte("hidden message")
	original := append([]byte(nil), plaintext...)

	_, err := Encrypt(plaintext, "key")
	require.NoError(t, err)
	require.Equal(t, original, plaintext)
}

func TestEmptyKeyRejected(t *testing.T) {
	_, err := Encrypt([]byte("abc"), "")
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = Decrypt([]byte("abc"), "")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestValidateKey(t *testing.T) {
	require.NoError(t, ValidateKey("secret1"))
	require.NoError(t, ValidateKey(strings.Repeat("é", MaxKeyLength)))

	require.ErrorIs(t, ValidateKey(""), ErrInvalidKey)
	require.ErrorIs(t, ValidateKey(strings.Repeat("a", MaxKeyLength+1)), ErrInvalidKey)
}
