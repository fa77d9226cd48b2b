package stego

import (
	"fmt"

	"steganography-backend/audio"
	"steganography-backend/crypto"
)

// Options control how a secret is hidden.
type Options struct {
	LSBBits        int
	UseEncryption  bool
	UseRandomStart bool
	// Filename is embedded so the extractor can restore the original name.
	Filename string
}

// DecodeOptions only carries what the header cannot tell the decoder.
type DecodeOptions struct {
	UseRandomStart bool
}

// Result is the output of Encode.
type Result struct {
	Stego       *audio.SampleBuffer
	Fidelity    audio.FidelityReport
	Capacity    int
	BitsWritten int
	Plan        EmbeddingPlan
}

// Secret is the output of Decode.
type Secret struct {
	Data      []byte
	Filename  string
	LSBDepth  int
	Encrypted bool
}

// Encode hides secret in a copy of cover. The cover is never modified.
func Encode(cover *audio.SampleBuffer, secret []byte, key string, opts Options) (*Result, error) {
	if err := crypto.ValidateKey(key); err != nil {
		return nil, err
	}
	if opts.LSBBits < 1 || opts.LSBBits > 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDepth, opts.LSBBits)
	}
	if cover == nil {
		return nil, fmt.Errorf("%w: no cover audio", ErrInsufficientCapacity)
	}

	n := cover.Len()
	if n > MaxSampleCount {
		return nil, fmt.Errorf("%w: %d samples, limit %d", ErrInputTooLarge, n, MaxSampleCount)
	}
	headerSamples := HeaderSamples(len(opts.Filename))
	if n < headerSamples {
		return nil, fmt.Errorf("%w: header needs %d samples, cover has %d", ErrInsufficientCapacity, headerSamples, n)
	}
	capacity := CapacityFor(n, opts.LSBBits, opts.Filename)
	if len(secret) > capacity {
		return nil, fmt.Errorf("%w: %d bytes, capacity %d bytes", ErrPayloadTooLarge, len(secret), capacity)
	}

	payload := secret
	if opts.UseEncryption {
		var err error
		if payload, err = crypto.Encrypt(secret, key); err != nil {
			return nil, err
		}
	}

	header, err := Frame(payload, opts.Filename, opts.LSBBits, opts.UseEncryption, opts.UseRandomStart)
	if err != nil {
		return nil, err
	}

	plan, err := Derive(key, n, opts.UseRandomStart)
	if err != nil {
		return nil, err
	}
	plan.BitDepth = opts.LSBBits

	headerBits := Bits(header)
	payloadBits := Bits(payload)

	positions := plan.Positions()
	headerIdx, err := positions.Take(samplesFor(len(headerBits), HeaderDepth))
	if err != nil {
		return nil, err
	}
	payloadIdx, err := positions.Take(samplesFor(len(payloadBits), plan.BitDepth))
	if err != nil {
		return nil, err
	}

	stego := cover.Clone()
	if err := Embed(stego.Data, headerBits, headerIdx, HeaderDepth); err != nil {
		return nil, fmt.Errorf("embedding header: %w", err)
	}
	if err := Embed(stego.Data, payloadBits, payloadIdx, plan.BitDepth); err != nil {
		return nil, fmt.Errorf("embedding payload: %w", err)
	}

	report, err := audio.Evaluate(cover, stego)
	if err != nil {
		return nil, err
	}

	return &Result{
		Stego:       stego,
		Fidelity:    report,
		Capacity:    capacity,
		BitsWritten: len(headerBits) + len(payloadBits),
		Plan:        plan,
	}, nil
}

// Decode recovers a secret hidden by Encode. Depth and encryption are read
// from the embedded header.
func Decode(stego *audio.SampleBuffer, key string, opts DecodeOptions) (*Secret, error) {
	if err := crypto.ValidateKey(key); err != nil {
		return nil, err
	}
	if stego == nil {
		return nil, fmt.Errorf("%w: no audio", ErrCorruptHeader)
	}

	n := stego.Len()
	if n > MaxSampleCount {
		return nil, fmt.Errorf("%w: %d samples, limit %d", ErrInputTooLarge, n, MaxSampleCount)
	}
	if n < HeaderSamples(0) {
		return nil, fmt.Errorf("%w: audio too short to carry a header", ErrCorruptHeader)
	}

	plan, err := Derive(key, n, opts.UseRandomStart)
	if err != nil {
		return nil, err
	}
	positions := plan.Positions()

	fixedBits, err := readBits(stego.Data, positions, HeaderFixedSize*8, HeaderDepth)
	if err != nil {
		return nil, err
	}
	header, err := ParseHeader(Pack(fixedBits))
	if err != nil {
		return nil, err
	}
	if header.RandomPositions != opts.UseRandomStart {
		return nil, fmt.Errorf("%w: placement mode does not match", ErrCorruptHeader)
	}
	if n < HeaderSamples(header.FilenameLength) {
		return nil, fmt.Errorf("%w: filename length %d exceeds audio", ErrCorruptHeader, header.FilenameLength)
	}
	plan.BitDepth = header.LSBDepth

	nameBits, err := readBits(stego.Data, positions, header.FilenameLength*8, HeaderDepth)
	if err != nil {
		return nil, err
	}

	remaining := n - positions.Taken()
	if header.PayloadLength > uint64(remaining*plan.BitDepth/8) {
		return nil, fmt.Errorf("%w: payload length %d exceeds remaining capacity", ErrCorruptHeader, header.PayloadLength)
	}
	payloadBits, err := readBits(stego.Data, positions, int(header.PayloadLength)*8, plan.BitDepth)
	if err != nil {
		return nil, err
	}

	stream := Pack(append(append(fixedBits, nameBits...), payloadBits...))
	header, payload, err := Unframe(stream)
	if err != nil {
		return nil, err
	}

	if header.Encrypted {
		if payload, err = crypto.Decrypt(payload, key); err != nil {
			return nil, err
		}
	}

	return &Secret{
		Data:      payload,
		Filename:  header.Filename,
		LSBDepth:  header.LSBDepth,
		Encrypted: header.Encrypted,
	}, nil
}

func readBits(samples []int, positions *Positions, bitCount, depth int) ([]byte, error) {
	idx, err := positions.Take(samplesFor(bitCount, depth))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	return Extract(samples, idx, depth, bitCount)
}
