// Package mp3parser to parse MP3
//
// Only the container is inspected: ID3 tags and MPEG Layer III frame headers.
// Decoding audio is left to the PCM decoder in package audio.
package mp3parser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	VersionMPEG25 = 0
	VersionMPEG2  = 2
	VersionMPEG1  = 3

	LayerIII = 1

	ChannelModeMono = 3

	id3v2HeaderSize = 10
	id3v1TagSize    = 128
)

// ErrNoFrames is returned when no valid MPEG audio frame could be found.
var ErrNoFrames = errors.New("no MPEG audio frames found")

var (
	bitrateMPEG1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	bitrateMPEG2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

	sampleRates = map[int][3]int{
		VersionMPEG1:  {44100, 48000, 32000},
		VersionMPEG2:  {22050, 24000, 16000},
		VersionMPEG25: {11025, 12000, 8000},
	}
)

// read syncsafe int for ID3v2 size
func syncSafeToInt(b []byte) int {
	return int(b[0]&0x7F)<<21 |
		int(b[1]&0x7F)<<14 |
		int(b[2]&0x7F)<<7 |
		int(b[3]&0x7F)
}

// ReadID3v2 parses the ID3v2 header at the start of data, if any.
func ReadID3v2(data []byte) (*ID3v2Header, error) {
	if len(data) < id3v2HeaderSize || string(data[:3]) != "ID3" {
		return nil, nil
	}
	h := &ID3v2Header{
		Version: [2]byte{data[3], data[4]},
		Flags:   data[5],
		Size:    syncSafeToInt(data[6:10]),
	}
	if id3v2HeaderSize+h.Size > len(data) {
		return nil, fmt.Errorf("ID3v2 tag size %d exceeds file size %d", h.Size, len(data))
	}
	return h, nil
}

// ParseFrameHeader decodes a 4-byte Layer III frame header.
func ParseFrameHeader(headerBytes []byte) (*MP3FrameHeader, error) {
	if len(headerBytes) < 4 {
		return nil, fmt.Errorf("frame header too short: %d bytes", len(headerBytes))
	}
	header := binary.BigEndian.Uint32(headerBytes)

	// check sync
	if (header & 0xFFE00000) != 0xFFE00000 {
		return nil, fmt.Errorf("invalid sync word: 0x%08X", header)
	}

	versionID := int((header >> 19) & 0x3)
	layer := int((header >> 17) & 0x3)
	prot := ((header >> 16) & 0x1) == 0
	bitrateIdx := int((header >> 12) & 0xF)
	sampleRateIdx := int((header >> 10) & 0x3)
	padding := ((header >> 9) & 0x1) == 1
	channelMode := int((header >> 6) & 0x3)

	rates, ok := sampleRates[versionID]
	if !ok || layer != LayerIII || sampleRateIdx == 3 {
		return nil, fmt.Errorf("unsupported MPEG version %d layer %d", versionID, layer)
	}

	table := bitrateMPEG2
	coefficient := 72
	if versionID == VersionMPEG1 {
		table = bitrateMPEG1
		coefficient = 144
	}

	bitrate := table[bitrateIdx] * 1000
	sampleRate := rates[sampleRateIdx]
	if bitrate == 0 {
		return nil, fmt.Errorf("unsupported bitrate index %d", bitrateIdx)
	}

	return &MP3FrameHeader{
		VersionID:     versionID,
		Layer:         layer,
		ProtectionBit: prot,
		Bitrate:       bitrate,
		SampleRate:    sampleRate,
		Padding:       padding,
		ChannelMode:   channelMode,
		FrameLength:   coefficient*bitrate/sampleRate + btoi(padding),
	}, nil
}

// ReadID3v1 parses the ID3v1 tag in the last 128 bytes of data, if any.
func ReadID3v1(data []byte) *ID3v1Tag {
	if len(data) < id3v1TagSize {
		return nil
	}
	buf := data[len(data)-id3v1TagSize:]
	if string(buf[:3]) != "TAG" {
		return nil
	}
	return &ID3v1Tag{
		Title:   trimTag(buf[3:33]),
		Artist:  trimTag(buf[33:63]),
		Album:   trimTag(buf[63:93]),
		Year:    trimTag(buf[93:97]),
		Comment: trimTag(buf[97:127]),
		Genre:   buf[127],
	}
}

// Probe walks the frame headers of an MP3 file. Garbage between frames is
// skipped one byte at a time until the next valid header.
func Probe(data []byte) (*StreamInfo, error) {
	info := &StreamInfo{}

	id3v2, err := ReadID3v2(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read ID3v2: %w", err)
	}
	offset := 0
	if id3v2 != nil {
		info.ID3v2 = id3v2
		offset = id3v2HeaderSize + id3v2.Size
	}

	end := len(data)
	if info.ID3v1 = ReadID3v1(data); info.ID3v1 != nil {
		end -= id3v1TagSize
	}

	samples := 0
	for offset+4 <= end {
		if data[offset] != 0xFF {
			offset++
			continue
		}
		header, err := ParseFrameHeader(data[offset : offset+4])
		if err != nil || header.FrameLength <= 4 || offset+header.FrameLength > end {
			offset++
			continue
		}

		if info.First == nil {
			info.First = header
			info.AudioOffset = offset
			info.SampleRate = header.SampleRate
			info.Channels = header.Channels()
		}
		info.Frames++
		samples += header.SamplesPerFrame()
		offset += header.FrameLength
	}

	if info.Frames == 0 {
		return nil, ErrNoFrames
	}
	info.Duration = float64(samples) / float64(info.SampleRate)
	return info, nil
}

func trimTag(b []byte) string {
	return strings.TrimSpace(string(bytes.TrimRight(b, "\x00")))
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
