package stego

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

const (
	// Magic marks the start of every embedded stream ("mp3s").
	Magic uint32 = 0x6D703373
	// FormatVersion is the only header layout this package writes or reads.
	FormatVersion byte = 1
	// HeaderFixedSize is the header length before the filename.
	HeaderFixedSize = 17
	// MaxFilenameLength caps the embedded filename in bytes.
	MaxFilenameLength = 255
	// HeaderDepth is the LSB depth the header is always written at, so the
	// decoder can find it without knowing the payload depth.
	HeaderDepth = 1

	flagEncrypted       byte = 1 << 0
	flagRandomPositions byte = 1 << 1
)

// PayloadHeader is the self-describing prefix of an embedded stream.
type PayloadHeader struct {
	Version         byte
	Encrypted       bool
	RandomPositions bool
	LSBDepth        int
	FilenameLength  int
	PayloadLength   uint64
	Filename        string
}

// Size is the header length in bytes including the filename.
func (h PayloadHeader) Size() int {
	return HeaderFixedSize + h.FilenameLength
}

// Frame builds the header bytes for secret. The payload itself is appended by
// the caller, possibly at a different LSB depth.
func Frame(secret []byte, filename string, lsbDepth int, encrypted, randomPositions bool) ([]byte, error) {
	if lsbDepth < 1 || lsbDepth > 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDepth, lsbDepth)
	}
	if len(filename) > MaxFilenameLength {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrFilenameTooLong, len(filename), MaxFilenameLength)
	}
	if !utf8.ValidString(filename) {
		return nil, fmt.Errorf("filename is not valid UTF-8")
	}

	var flags byte
	if encrypted {
		flags |= flagEncrypted
	}
	if randomPositions {
		flags |= flagRandomPositions
	}

	header := make([]byte, HeaderFixedSize, HeaderFixedSize+len(filename))
	binary.BigEndian.PutUint32(header[0:4], Magic)
	header[4] = FormatVersion
	header[5] = flags
	header[6] = byte(lsbDepth)
	binary.BigEndian.PutUint16(header[7:9], uint16(len(filename)))
	binary.BigEndian.PutUint64(header[9:17], uint64(len(secret)))
	header = append(header, filename...)
	return header, nil
}

// ParseHeader validates the fixed part of a header. Filename is left empty;
// FilenameLength says how many bytes follow.
func ParseHeader(fixed []byte) (PayloadHeader, error) {
	if len(fixed) < HeaderFixedSize {
		return PayloadHeader{}, fmt.Errorf("%w: header truncated at %d bytes", ErrCorruptHeader, len(fixed))
	}
	if magic := binary.BigEndian.Uint32(fixed[0:4]); magic != Magic {
		return PayloadHeader{}, fmt.Errorf("%w: bad magic %#08x", ErrCorruptHeader, magic)
	}
	if fixed[4] != FormatVersion {
		return PayloadHeader{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptHeader, fixed[4])
	}
	flags := fixed[5]
	if flags&^(flagEncrypted|flagRandomPositions) != 0 {
		return PayloadHeader{}, fmt.Errorf("%w: unknown flags %#02x", ErrCorruptHeader, flags)
	}
	depth := int(fixed[6])
	if depth < 1 || depth > 4 {
		return PayloadHeader{}, fmt.Errorf("%w: lsb depth %d", ErrCorruptHeader, depth)
	}
	nameLen := int(binary.BigEndian.Uint16(fixed[7:9]))
	if nameLen > MaxFilenameLength {
		return PayloadHeader{}, fmt.Errorf("%w: filename length %d", ErrCorruptHeader, nameLen)
	}

	return PayloadHeader{
		Version:         fixed[4],
		Encrypted:       flags&flagEncrypted != 0,
		RandomPositions: flags&flagRandomPositions != 0,
		LSBDepth:        depth,
		FilenameLength:  nameLen,
		PayloadLength:   binary.BigEndian.Uint64(fixed[9:17]),
	}, nil
}

// Unframe splits a header-prefixed stream back into its header and payload.
func Unframe(stream []byte) (PayloadHeader, []byte, error) {
	header, err := ParseHeader(stream)
	if err != nil {
		return PayloadHeader{}, nil, err
	}
	if len(stream) < header.Size() {
		return PayloadHeader{}, nil, fmt.Errorf("%w: filename truncated", ErrCorruptHeader)
	}
	name := stream[HeaderFixedSize:header.Size()]
	if !utf8.Valid(name) {
		return PayloadHeader{}, nil, fmt.Errorf("%w: filename is not valid UTF-8", ErrCorruptHeader)
	}
	header.Filename = string(name)

	rest := stream[header.Size():]
	if header.PayloadLength > uint64(len(rest)) {
		return PayloadHeader{}, nil, fmt.Errorf("%w: payload length %d exceeds %d available bytes",
			ErrCorruptHeader, header.PayloadLength, len(rest))
	}
	return header, rest[:header.PayloadLength], nil
}

// Bits expands data to one bit per byte, MSB first.
func Bits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>i)&1)
		}
	}
	return bits
}

// Pack is the inverse of Bits. Trailing bits that do not fill a byte are dropped.
func Pack(bits []byte) []byte {
	bytes := make([]byte, 0, len(bits)/8)
	for i := 0; i+8 <= len(bits); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | (bits[i+j] & 1)
		}
		bytes = append(bytes, b)
	}
	return bytes
}
