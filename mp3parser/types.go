package mp3parser

// ID3v2Header represents ID3v2 tag header
type ID3v2Header struct {
	Version [2]byte
	Flags   byte
	Size    int
}

// MP3FrameHeader represents an MP3 frame header
type MP3FrameHeader struct {
	VersionID     int
	Layer         int
	ProtectionBit bool
	Bitrate       int
	SampleRate    int
	Padding       bool
	ChannelMode   int
	FrameLength   int
}

// Channels returns 1 for mono frames and 2 otherwise.
func (h *MP3FrameHeader) Channels() int {
	if h.ChannelMode == ChannelModeMono {
		return 1
	}
	return 2
}

// SamplesPerFrame is the number of PCM samples per channel one frame decodes to.
func (h *MP3FrameHeader) SamplesPerFrame() int {
	if h.VersionID == VersionMPEG1 {
		return 1152
	}
	return 576
}

// ID3v1Tag represents ID3v1 tag (128 bytes at end of file)
type ID3v1Tag struct {
	Title   string
	Artist  string
	Album   string
	Year    string
	Comment string
	Genre   byte
}

// StreamInfo summarises an MPEG audio stream without decoding it.
type StreamInfo struct {
	ID3v2       *ID3v2Header
	ID3v1       *ID3v1Tag
	First       *MP3FrameHeader
	Frames      int
	SampleRate  int
	Channels    int
	Duration    float64
	AudioOffset int // byte offset of the first frame
}
