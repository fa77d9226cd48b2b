// Package stego implements LSB steganography over PCM samples
package stego

import "fmt"

// Embed writes bits into samples at the given indices, depth bits per sample.
// Chunks are taken MSB first and the last partial chunk is left-aligned.
func Embed(samples []int, bits []byte, indices []int, depth int) error {
	if depth < 1 || depth > 4 {
		return fmt.Errorf("%w: got %d", ErrInvalidDepth, depth)
	}
	if len(bits) > len(indices)*depth {
		return fmt.Errorf("%w: %d bits do not fit %d samples at depth %d",
			ErrInsufficientCapacity, len(bits), len(indices), depth)
	}

	mask := 1<<depth - 1
	bitIndex := 0
	for _, pos := range indices {
		if bitIndex >= len(bits) {
			break
		}
		if pos < 0 || pos >= len(samples) {
			return fmt.Errorf("sample index %d out of range [0, %d)", pos, len(samples))
		}

		chunk := 0
		for k := 0; k < depth; k++ {
			chunk <<= 1
			if bitIndex < len(bits) {
				chunk |= int(bits[bitIndex] & 1)
				bitIndex++
			}
		}

		// Clear the LSB bits and set new ones
		samples[pos] = (samples[pos] &^ mask) | (chunk & mask)
	}
	return nil
}

// Extract reads bitCount bits back from samples in index order.
func Extract(samples []int, indices []int, depth, bitCount int) ([]byte, error) {
	if depth < 1 || depth > 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDepth, depth)
	}
	needed := samplesFor(bitCount, depth)
	if needed > len(indices) {
		return nil, fmt.Errorf("%w: %d bits need %d samples, have %d",
			ErrInsufficientCapacity, bitCount, needed, len(indices))
	}

	mask := 1<<depth - 1
	bits := make([]byte, 0, bitCount)
	for _, pos := range indices[:needed] {
		if pos < 0 || pos >= len(samples) {
			return nil, fmt.Errorf("sample index %d out of range [0, %d)", pos, len(samples))
		}
		chunk := samples[pos] & mask
		for j := depth - 1; j >= 0 && len(bits) < bitCount; j-- {
			bits = append(bits, byte((chunk>>j)&1))
		}
	}
	return bits, nil
}

// samplesFor is the number of samples needed for bitCount bits at depth.
func samplesFor(bitCount, depth int) int {
	return (bitCount + depth - 1) / depth
}
