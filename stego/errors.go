package stego

import "errors"

// Sentinel errors for errors.Is() checks
var (
	// ErrPayloadTooLarge is returned before embedding when the secret exceeds the cover capacity.
	ErrPayloadTooLarge = errors.New("payload too large for cover audio")

	// ErrInsufficientCapacity is returned when a plan or bitstream needs more samples than exist.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrCorruptHeader is returned when the embedded header fails sanity checks.
	// A wrong key, a non-stego input and a truncated file all end up here.
	ErrCorruptHeader = errors.New("corrupt or missing stego header")

	// ErrInvalidDepth is returned for an LSB depth outside 1..4.
	ErrInvalidDepth = errors.New("LSB bits must be between 1 and 4")

	// ErrInputTooLarge is returned when the sample count exceeds MaxSampleCount.
	ErrInputTooLarge = errors.New("audio input too large")

	// ErrFilenameTooLong is returned when the embedded filename exceeds MaxFilenameLength bytes.
	ErrFilenameTooLong = errors.New("filename too long")
)
