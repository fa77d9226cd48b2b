package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"steganography-backend/models"
	"steganography-backend/mp3parser"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tosone/minimp3"
)

const (
	FormatWAV  = "wav"
	FormatMP3  = "mp3"
	FormatFLAC = "flac"

	wavFormatPCM = 1
)

// ErrUnsupportedFormat is returned for input that is not a decodable audio container.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// AudioDecoder converts audio containers to and from SampleBuffers.
type AudioDecoder struct {
	log *logrus.Logger
}

func NewAudioDecoder(logger *logrus.Logger) *AudioDecoder {
	if logger == nil {
		logger = logrus.New()
	}
	return &AudioDecoder{log: logger}
}

// DetectFormat sniffs the container from its magic bytes and falls back to
// the filename extension.
func DetectFormat(data []byte, filename string) (string, error) {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV, nil
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return FormatFLAC, nil
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3, nil
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3":
		return FormatMP3, nil
	case ".wav", ".wave":
		return FormatWAV, nil
	case ".flac":
		return FormatFLAC, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

// Decode reads any supported container into interleaved PCM samples.
func (ad *AudioDecoder) Decode(data []byte, filename string) (*SampleBuffer, *models.AudioMetadata, error) {
	format, err := DetectFormat(data, filename)
	if err != nil {
		return nil, nil, err
	}

	var (
		buf  *SampleBuffer
		tags models.AudioTags
	)
	switch format {
	case FormatWAV:
		buf, err = ad.DecodeWAV(data)
		if err == nil {
			tags = ReadWAVTags(data)
		}
	case FormatMP3:
		buf, err = ad.DecodeMP3(data)
		if err == nil {
			tags = ad.ReadMP3Tags(data)
		}
	case FormatFLAC:
		buf, tags, err = ad.DecodeFLAC(data)
	}
	if err != nil {
		return nil, nil, err
	}

	metadata := &models.AudioMetadata{
		Format:       format,
		SampleRate:   buf.SampleRate,
		Channels:     buf.Channels,
		BitDepth:     buf.BitDepth,
		Duration:     buf.Duration(),
		TotalSamples: buf.Len(),
		Tags:         tags,
	}
	ad.log.WithFields(logrus.Fields{
		"format":      format,
		"sample_rate": metadata.SampleRate,
		"channels":    metadata.Channels,
		"bit_depth":   metadata.BitDepth,
		"samples":     metadata.TotalSamples,
	}).Debug("decoded audio")

	return buf, metadata, nil
}

func (ad *AudioDecoder) DecodeWAV(wavData []byte) (*SampleBuffer, error) {
	decoder := wav.NewDecoder(bytes.NewReader(wavData))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file", ErrUnsupportedFormat)
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV audio format %d is not integer PCM", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode WAV: %v", ErrUnsupportedFormat, err)
	}

	return &SampleBuffer{
		Data:       pcm.Data,
		Channels:   int(decoder.NumChans),
		SampleRate: int(decoder.SampleRate),
		BitDepth:   int(decoder.BitDepth),
	}, nil
}

func (ad *AudioDecoder) DecodeMP3(mp3Data []byte) (*SampleBuffer, error) {
	// minimp3 returns silence rather than an error for arbitrary bytes
	info, err := mp3parser.Probe(mp3Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	decoder, data, err := minimp3.DecodeFull(mp3Data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode MP3: %v", ErrUnsupportedFormat, err)
	}
	defer decoder.Close()

	if decoder.Channels == 0 || len(data) < 2 {
		return nil, fmt.Errorf("%w: MP3 decoded to no samples", ErrUnsupportedFormat)
	}

	// 16-bit little-endian interleaved PCM
	samples := make([]int, len(data)/2)
	for i := range samples {
		samples[i] = int(int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8))
	}

	ad.log.WithFields(logrus.Fields{
		"frames":   info.Frames,
		"duration": info.Duration,
	}).Debug("probed MP3 stream")

	return &SampleBuffer{
		Data:       samples,
		Channels:   decoder.Channels,
		SampleRate: decoder.SampleRate,
		BitDepth:   16,
	}, nil
}

func (ad *AudioDecoder) DecodeFLAC(flacData []byte) (*SampleBuffer, models.AudioTags, error) {
	stream, err := flac.Parse(bytes.NewReader(flacData))
	if err != nil {
		return nil, models.AudioTags{}, fmt.Errorf("%w: failed to parse FLAC: %v", ErrUnsupportedFormat, err)
	}
	defer stream.Close()

	bitDepth := int(stream.Info.BitsPerSample)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, models.AudioTags{}, fmt.Errorf("%w: %d-bit FLAC", ErrUnsupportedFormat, bitDepth)
	}
	// 8-bit WAV is unsigned.
	var offset int
	if bitDepth == 8 {
		offset = 128
	}

	channels := int(stream.Info.NChannels)
	samples := make([]int, 0, int(stream.Info.NSamples)*channels)

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, models.AudioTags{}, fmt.Errorf("%w: failed to decode FLAC frame: %v", ErrUnsupportedFormat, err)
		}
		if len(frame.Subframes) == 0 {
			continue
		}
		for i := range frame.Subframes[0].Samples {
			for _, sub := range frame.Subframes {
				samples = append(samples, int(sub.Samples[i])+offset)
			}
		}
	}

	buf := &SampleBuffer{
		Data:       samples,
		Channels:   channels,
		SampleRate: int(stream.Info.SampleRate),
		BitDepth:   bitDepth,
	}
	return buf, readFLACTags(stream), nil
}

// EncodePCMToWAV writes the buffer as an integer PCM WAV file. Stego output is
// always WAV because any lossy re-encode would discard the embedded bits.
func (ad *AudioDecoder) EncodePCMToWAV(buf *SampleBuffer, metadata *models.AudioMetadata) ([]byte, error) {
	if buf.Channels <= 0 || buf.SampleRate <= 0 || buf.BitDepth <= 0 {
		return nil, fmt.Errorf("invalid PCM format: channels=%d sample_rate=%d bit_depth=%d",
			buf.Channels, buf.SampleRate, buf.BitDepth)
	}
	switch buf.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit PCM cannot be written as WAV", ErrUnsupportedFormat, buf.BitDepth)
	}
	if buf.Len()%buf.Channels != 0 {
		return nil, fmt.Errorf("sample count %d is not a multiple of %d channels", buf.Len(), buf.Channels)
	}

	out := &seekBuffer{}
	encoder := wav.NewEncoder(out, buf.SampleRate, buf.BitDepth, buf.Channels, wavFormatPCM)
	if metadata != nil {
		encoder.Metadata = wavMetadata(metadata.Tags)
	}

	intBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: buf.Channels,
			SampleRate:  buf.SampleRate,
		},
		Data:           buf.Data,
		SourceBitDepth: buf.BitDepth,
	}
	if err := encoder.Write(intBuf); err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to close WAV encoder: %w", err)
	}

	return out.Bytes(), nil
}

// seekBuffer is an in-memory io.WriteSeeker; wav.Encoder seeks back to patch
// chunk sizes on Close.
type seekBuffer struct {
	buf []byte
	off int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if need := s.off + len(p); need > len(s.buf) {
		s.buf = append(s.buf, make([]byte, need-len(s.buf))...)
	}
	n := copy(s.buf[s.off:], p)
	s.off += n
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(s.off) + offset
	case io.SeekEnd:
		next = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if next < 0 {
		return 0, errors.New("negative seek position")
	}
	s.off = int(next)
	return next, nil
}

func (s *seekBuffer) Bytes() []byte {
	return s.buf
}
