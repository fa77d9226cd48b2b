package stego

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steganography-backend/audio"
	"steganography-backend/crypto"
)

func randomCover(n int, seed int64) *audio.SampleBuffer {
	rng := rand.New(rand.NewSource(seed))
	data := make([]int, n)
	for i := range data {
		data[i] = rng.Intn(65536) - 32768
	}
	return &audio.SampleBuffer{Data: data, Channels: 2, SampleRate: 44100, BitDepth: 16}
}

func randomBytes(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	rng.Read(b)
	return b
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cover := randomCover(4000, 1)
	for depth := 1; depth <= 4; depth++ {
		for _, enc := range []bool{false, true} {
			for _, random := range []bool{false, true} {
				t.Run(fmt.Sprintf("d%d/enc=%v/rand=%v", depth, enc, random), func(t *testing.T) {
					opts := Options{LSBBits: depth, UseEncryption: enc, UseRandomStart: random, Filename: "doc.pdf"}
					secret := randomBytes(CapacityFor(cover.Len(), depth, opts.Filename), int64(depth))

					res, err := Encode(cover, secret, "secret1", opts)
					require.NoError(t, err)
					assert.Equal(t, len(secret), res.Capacity)
					assert.Equal(t, depth, res.Plan.BitDepth)

					got, err := Decode(res.Stego, "secret1", DecodeOptions{UseRandomStart: random})
					require.NoError(t, err)
					assert.Equal(t, secret, got.Data)
					assert.Equal(t, "doc.pdf", got.Filename)
					assert.Equal(t, depth, got.LSBDepth)
					assert.Equal(t, enc, got.Encrypted)
				})
			}
		}
	}
}

func TestEncodeDecodeMillionSamples(t *testing.T) {
	cover := randomCover(1_000_000, 2)
	require.Equal(t, 249966, Capacity(cover.Len(), 2))

	secret := randomBytes(100_000, 3)
	opts := Options{LSBBits: 2, UseEncryption: true, UseRandomStart: true, Filename: "secret.txt"}

	res, err := Encode(cover, secret, "secret1", opts)
	require.NoError(t, err)
	assert.False(t, res.Fidelity.Degraded)
	assert.Greater(t, res.Fidelity.PSNRDb, audio.AcceptablePSNR)

	got, err := Decode(res.Stego, "secret1", DecodeOptions{UseRandomStart: true})
	require.NoError(t, err)
	require.True(t, bytes.Equal(secret, got.Data))
	require.Equal(t, "secret.txt", got.Filename)
}

func TestEncodeEmptySecret(t *testing.T) {
	res, err := Encode(randomCover(500, 4), nil, "k", Options{LSBBits: 1})
	require.NoError(t, err)

	got, err := Decode(res.Stego, "k", DecodeOptions{})
	require.NoError(t, err)
	require.Empty(t, got.Data)
}

func TestCapacityBoundary(t *testing.T) {
	// 136 header samples plus 80 payload samples at 2 bits
	cover := randomCover(216, 5)
	require.Equal(t, 20, Capacity(cover.Len(), 2))
	before := append([]int(nil), cover.Data...)

	res, err := Encode(cover, randomBytes(20, 6), "k", Options{LSBBits: 2})
	require.NoError(t, err)
	got, err := Decode(res.Stego, "k", DecodeOptions{})
	require.NoError(t, err)
	require.Len(t, got.Data, 20)

	res, err = Encode(cover, randomBytes(21, 6), "k", Options{LSBBits: 2})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	require.Nil(t, res)
	require.Equal(t, before, cover.Data)
}

func TestCapacityBoundaryWithFilename(t *testing.T) {
	// "a.txt" adds 40 header samples
	cover := randomCover(176+80, 7)
	require.Equal(t, 30, CapacityFor(cover.Len(), 3, "a.txt"))

	_, err := Encode(cover, randomBytes(30, 8), "k", Options{LSBBits: 3, Filename: "a.txt"})
	require.NoError(t, err)
	_, err = Encode(cover, randomBytes(31, 8), "k", Options{LSBBits: 3, Filename: "a.txt"})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestCapacityMonotonic(t *testing.T) {
	for n := 0; n < 700; n += 7 {
		for d := 1; d <= 4; d++ {
			c := Capacity(n, d)
			require.GreaterOrEqual(t, c, 0)
			require.LessOrEqual(t, c, Capacity(n+7, d))
			if d < 4 {
				require.LessOrEqual(t, c, Capacity(n, d+1))
			}
		}
	}
	require.Zero(t, Capacity(100, 2))
	require.Zero(t, Capacity(1000, 0))
}

func TestEncodeDeterministic(t *testing.T) {
	cover := randomCover(3000, 9)
	secret := randomBytes(200, 10)
	opts := Options{LSBBits: 2, UseEncryption: true, UseRandomStart: true}

	a, err := Encode(cover, secret, "secret1", opts)
	require.NoError(t, err)
	b, err := Encode(cover, secret, "secret1", opts)
	require.NoError(t, err)
	require.Equal(t, a.Stego.Data, b.Stego.Data)
	require.Equal(t, a.Plan, b.Plan)
}

func TestEncodeDoesNotMutateCover(t *testing.T) {
	cover := randomCover(3000, 11)
	before := append([]int(nil), cover.Data...)

	res, err := Encode(cover, randomBytes(300, 12), "k", Options{LSBBits: 4, UseRandomStart: true})
	require.NoError(t, err)
	require.Equal(t, before, cover.Data)
	require.NotEqual(t, before, res.Stego.Data)
}

func TestDecodeWrongKeyRandomPlacement(t *testing.T) {
	cover := randomCover(20000, 13)
	res, err := Encode(cover, []byte("meet at dawn"), "secret1", Options{LSBBits: 2, UseEncryption: true, UseRandomStart: true})
	require.NoError(t, err)

	_, err = Decode(res.Stego, "secret2", DecodeOptions{UseRandomStart: true})
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestDecodeWrongKeySequentialEncrypted(t *testing.T) {
	cover := randomCover(20000, 14)
	secret := []byte("meet at dawn by the old bridge")
	res, err := Encode(cover, secret, "secret1", Options{LSBBits: 2, UseEncryption: true})
	require.NoError(t, err)

	// the header is found but the cipher key is wrong
	got, err := Decode(res.Stego, "secret2", DecodeOptions{})
	require.NoError(t, err)
	require.NotEqual(t, secret, got.Data)
	require.Len(t, got.Data, len(secret))
}

func TestDecodePlacementMismatch(t *testing.T) {
	cover := randomCover(20000, 15)
	seq, err := Encode(cover, []byte("hello"), "k", Options{LSBBits: 1})
	require.NoError(t, err)
	_, err = Decode(seq.Stego, "k", DecodeOptions{UseRandomStart: true})
	require.ErrorIs(t, err, ErrCorruptHeader)

	rnd, err := Encode(cover, []byte("hello"), "k", Options{LSBBits: 1, UseRandomStart: true})
	require.NoError(t, err)
	_, err = Decode(rnd.Stego, "k", DecodeOptions{})
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestDecodeCleanCover(t *testing.T) {
	_, err := Decode(randomCover(5000, 16), "k", DecodeOptions{})
	require.ErrorIs(t, err, ErrCorruptHeader)

	silent := &audio.SampleBuffer{Data: make([]int, 5000), Channels: 1, SampleRate: 8000, BitDepth: 16}
	_, err = Decode(silent, "k", DecodeOptions{})
	require.ErrorIs(t, err, ErrCorruptHeader)

	_, err = Decode(randomCover(100, 17), "k", DecodeOptions{})
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestDecodeCorruptedHeaderFields(t *testing.T) {
	cover := randomCover(4000, 18)
	res, err := Encode(cover, []byte("payload"), "k", Options{LSBBits: 2})
	require.NoError(t, err)

	// sequential placement: sample i carries header bit i
	flipped := res.Stego.Clone()
	flipped.Data[0] ^= 1
	_, err = Decode(flipped, "k", DecodeOptions{})
	require.ErrorIs(t, err, ErrCorruptHeader)

	huge := res.Stego.Clone()
	for i := 72; i < 136; i++ {
		huge.Data[i] |= 1
	}
	_, err = Decode(huge, "k", DecodeOptions{})
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestPSNRNonIncreasingWithDepth(t *testing.T) {
	silent := &audio.SampleBuffer{Data: make([]int, 20000), Channels: 1, SampleRate: 44100, BitDepth: 16}
	secret := bytes.Repeat([]byte{0xFF}, 64)

	prev := 0.0
	for depth := 1; depth <= 4; depth++ {
		res, err := Encode(silent, secret, "k", Options{LSBBits: depth})
		require.NoError(t, err)
		if depth > 1 {
			require.LessOrEqual(t, res.Fidelity.PSNRDb, prev, "depth %d", depth)
		}
		prev = res.Fidelity.PSNRDb
	}
}

func TestEncodeValidation(t *testing.T) {
	cover := randomCover(1000, 19)

	_, err := Encode(cover, []byte("x"), "", Options{LSBBits: 1})
	require.ErrorIs(t, err, crypto.ErrInvalidKey)

	_, err = Encode(cover, []byte("x"), strings.Repeat("k", crypto.MaxKeyLength+1), Options{LSBBits: 1})
	require.ErrorIs(t, err, crypto.ErrInvalidKey)

	_, err = Decode(cover, "", DecodeOptions{})
	require.ErrorIs(t, err, crypto.ErrInvalidKey)

	for _, depth := range []int{0, 5} {
		_, err = Encode(cover, []byte("x"), "k", Options{LSBBits: depth})
		require.ErrorIs(t, err, ErrInvalidDepth)
	}

	_, err = Encode(randomCover(100, 20), nil, "k", Options{LSBBits: 1})
	require.ErrorIs(t, err, ErrInsufficientCapacity)

	_, err = Encode(cover, []byte("x"), "k", Options{LSBBits: 1, Filename: strings.Repeat("n", MaxFilenameLength+1)})
	require.Error(t, err)
}

func TestRoundTripThroughWAVBitDepths(t *testing.T) {
	ad := audio.NewAudioDecoder(nil)
	covers := map[int]func(*rand.Rand) int{
		8:  func(r *rand.Rand) int { return r.Intn(256) },
		24: func(r *rand.Rand) int { return r.Intn(1<<24) - 1<<23 },
		32: func(r *rand.Rand) int { return int(int32(r.Uint32())) },
	}
	for bitDepth, sample := range covers {
		t.Run(fmt.Sprintf("%dbit", bitDepth), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(bitDepth)))
			data := make([]int, 6000)
			for i := range data {
				data[i] = sample(rng)
			}
			cover := &audio.SampleBuffer{Data: data, Channels: 2, SampleRate: 44100, BitDepth: bitDepth}
			secret := randomBytes(900, 7)

			res, err := Encode(cover, secret, "wav-key", Options{LSBBits: 2, UseEncryption: true, UseRandomStart: true, Filename: "note.txt"})
			require.NoError(t, err)

			wavData, err := ad.EncodePCMToWAV(res.Stego, nil)
			require.NoError(t, err)
			decoded, metadata, err := ad.Decode(wavData, "stego.wav")
			require.NoError(t, err)
			require.Equal(t, bitDepth, metadata.BitDepth)
			require.Equal(t, res.Stego.Data, decoded.Data)

			got, err := Decode(decoded, "wav-key", DecodeOptions{UseRandomStart: true})
			require.NoError(t, err)
			assert.Equal(t, secret, got.Data)
			assert.Equal(t, "note.txt", got.Filename)
		})
	}
}
