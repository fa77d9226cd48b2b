package audio

// SampleBuffer is an interleaved PCM sample stream. Each element of Data holds
// one sample of BitDepth bits; channels are interleaved frame by frame.
type SampleBuffer struct {
	Data       []int
	Channels   int
	SampleRate int
	BitDepth   int
}

// Len returns the number of samples across all channels.
func (b *SampleBuffer) Len() int {
	return len(b.Data)
}

// Frames returns the number of samples per channel.
func (b *SampleBuffer) Frames() int {
	if b.Channels <= 0 {
		return len(b.Data)
	}
	return len(b.Data) / b.Channels
}

// Duration returns the playback length in seconds.
func (b *SampleBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// MaxValue is the peak sample magnitude for the buffer's sample width.
// 8-bit WAV is unsigned, everything wider is two's complement.
func (b *SampleBuffer) MaxValue() float64 {
	switch {
	case b.BitDepth <= 0:
		return 32767
	case b.BitDepth == 8:
		return 255
	default:
		return float64(int64(1)<<(b.BitDepth-1) - 1)
	}
}

// Clone returns a deep copy whose samples can be modified independently.
func (b *SampleBuffer) Clone() *SampleBuffer {
	data := make([]int, len(b.Data))
	copy(data, b.Data)
	return &SampleBuffer{
		Data:       data,
		Channels:   b.Channels,
		SampleRate: b.SampleRate,
		BitDepth:   b.BitDepth,
	}
}
