// Package models contain needed models
package models

// EncodeRequest holds the form fields of POST /api/encode. The files are read
// separately from the multipart form.
type EncodeRequest struct {
	Key            string `form:"key" binding:"required"`
	LSBBits        int    `form:"lsbBits" binding:"required,min=1,max=4"`
	UseEncryption  bool   `form:"useEncryption"`
	UseRandomStart bool   `form:"useRandomStart"`
}

// DecodeRequest holds the form fields of POST /api/decode
type DecodeRequest struct {
	Key            string `form:"key" binding:"required"`
	UseRandomStart bool   `form:"useRandomStart"`
	OutputFileName string `form:"outputFileName"`
}

// CapacityRequest holds the form fields of POST /api/capacity
type CapacityRequest struct {
	LSBBits  int    `form:"lsbBits" binding:"required,min=1,max=4"`
	Filename string `form:"filename"`
}

// StegoResponse represents the response after insertion
type StegoResponse struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	PSNR         float64 `json:"psnr,omitempty"`
	Quality      string  `json:"quality,omitempty"`
	Capacity     int     `json:"capacity,omitempty"`
	StegoFileURL string  `json:"stego_file_url,omitempty"`
}

// ExtractResponse represents the response after extraction
type ExtractResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	SecretFileURL  string `json:"secret_file_url,omitempty"`
	SecretFilename string `json:"secret_filename,omitempty"`
}

// CapacityResponse reports how much payload a cover can carry
type CapacityResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Capacity   int    `json:"capacity,omitempty"`
	Samples    int    `json:"samples,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// AudioTags are the descriptive tags carried from the cover to the stego file
type AudioTags struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   string
}

// AudioMetadata represents metadata about an audio file
type AudioMetadata struct {
	Format       string
	SampleRate   int
	Channels     int
	BitDepth     int
	Duration     float64
	TotalSamples int
	Tags         AudioTags
}
