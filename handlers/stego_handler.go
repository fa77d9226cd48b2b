// Package handlers is made to handle requests
package handlers

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"steganography-backend/audio"
	"steganography-backend/models"
	"steganography-backend/stego"
	"steganography-backend/storage"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

const (
	Version = "2.0.0"

	defaultMaxUpload = 32 << 20 // 32MB limit
)

// Options configure a StegoHandler.
type Options struct {
	Store          storage.Store
	Logger         *logrus.Logger
	MaxUploadBytes int64
	// DiskPath is reported by the health check.
	DiskPath string
}

type StegoHandler struct {
	audioDecoder *audio.AudioDecoder
	store        storage.Store
	log          *logrus.Logger
	maxUpload    int64
	diskPath     string
}

func NewStegoHandler(opts Options) *StegoHandler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.DiskPath == "" {
		opts.DiskPath = "."
	}
	return &StegoHandler{
		audioDecoder: audio.NewAudioDecoder(opts.Logger),
		store:        opts.Store,
		log:          opts.Logger,
		maxUpload:    opts.MaxUploadBytes,
		diskPath:     opts.DiskPath,
	}
}

// RegisterRoutes mounts the API on group.
func (h *StegoHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", h.HealthCheck)
	api.POST("/encode", h.Encode)
	api.POST("/decode", h.Decode)
	api.POST("/capacity", h.Capacity)

	api.GET("/download/stego/:filename", h.download(storage.KindStego))
	api.GET("/download/extracted/:filename", h.download(storage.KindExtracted))
	api.GET("/play/stego/:filename", h.PlayStego)
}

func (h *StegoHandler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"message": "Steganography API is running",
		"version": Version,
		"storage": h.store.Name(),
	}
	if usage, err := disk.Usage(h.diskPath); err == nil {
		body["disk"] = gin.H{
			"path":         h.diskPath,
			"free":         humanize.Bytes(usage.Free),
			"total":        humanize.Bytes(usage.Total),
			"used_percent": math.Round(usage.UsedPercent*100) / 100,
		}
	} else {
		h.log.WithError(err).Debug("disk usage unavailable")
	}
	c.JSON(http.StatusOK, body)
}

// Encode hides secretFile in audioFile and stores the result as WAV.
func (h *StegoHandler) Encode(c *gin.Context) {
	if !h.parseForm(c) {
		return
	}

	var req models.EncodeRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err), err)
		return
	}

	audioData, audioName, err := readFormFile(c, "audioFile")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Audio file is required", err)
		return
	}
	secretData, secretName, err := readFormFile(c, "secretFile")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Secret file is required", err)
		return
	}

	cover, metadata, err := h.audioDecoder.Decode(audioData, audioName)
	if err != nil {
		h.failErr(c, err)
		return
	}

	result, err := stego.Encode(cover, secretData, req.Key, stego.Options{
		LSBBits:        req.LSBBits,
		UseEncryption:  req.UseEncryption,
		UseRandomStart: req.UseRandomStart,
		Filename:       embeddedName(secretName),
	})
	if err != nil {
		h.failErr(c, err)
		return
	}

	wavData, err := h.audioDecoder.EncodePCMToWAV(result.Stego, metadata)
	if err != nil {
		h.failErr(c, fmt.Errorf("encoding stego audio: %w", err))
		return
	}

	name := storage.NewName("stego", audioName, ".wav")
	if err := h.store.Save(c.Request.Context(), storage.KindStego, name, wavData); err != nil {
		h.failErr(c, fmt.Errorf("storing stego audio: %w", err))
		return
	}

	fidelity := result.Fidelity
	h.log.WithFields(logrus.Fields{
		"cover":     audioName,
		"format":    metadata.Format,
		"secret":    humanize.Bytes(uint64(len(secretData))),
		"capacity":  humanize.Bytes(uint64(result.Capacity)),
		"lsb_bits":  req.LSBBits,
		"encrypted": req.UseEncryption,
		"random":    req.UseRandomStart,
		"psnr":      audio.FormatPSNR(fidelity.PSNRDb),
		"output":    name,
	}).Info("secret embedded")

	message := fmt.Sprintf("Secret embedded successfully. PSNR %s (%s)", audio.FormatPSNR(fidelity.PSNRDb), fidelity.Quality)
	if fidelity.Degraded {
		message += ". Warning: audible distortion likely, try fewer LSB bits"
	}

	resp := models.StegoResponse{
		Success:      true,
		Message:      message,
		Quality:      fidelity.Quality,
		Capacity:     result.Capacity,
		StegoFileURL: name,
	}
	// JSON has no infinity; an identical output leaves psnr unset
	if !math.IsInf(fidelity.PSNRDb, 0) && !math.IsNaN(fidelity.PSNRDb) {
		resp.PSNR = math.Round(fidelity.PSNRDb*100) / 100
	}
	c.JSON(http.StatusOK, resp)
}

// Decode recovers the secret from stegoFile and stores it for download.
func (h *StegoHandler) Decode(c *gin.Context) {
	if !h.parseForm(c) {
		return
	}

	var req models.DecodeRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err), err)
		return
	}

	stegoData, stegoName, err := readFormFile(c, "stegoFile")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Stego audio file is required", err)
		return
	}

	buf, _, err := h.audioDecoder.Decode(stegoData, stegoName)
	if err != nil {
		h.failErr(c, err)
		return
	}

	secret, err := stego.Decode(buf, req.Key, stego.DecodeOptions{UseRandomStart: req.UseRandomStart})
	if err != nil {
		h.failErr(c, err)
		return
	}

	secretName := resolveSecretName(req.OutputFileName, secret.Filename)
	stored := storage.NewName("extracted", secretName, filepath.Ext(secretName))
	if err := h.store.Save(c.Request.Context(), storage.KindExtracted, stored, secret.Data); err != nil {
		h.failErr(c, fmt.Errorf("storing extracted secret: %w", err))
		return
	}

	h.log.WithFields(logrus.Fields{
		"stego":     stegoName,
		"filename":  secret.Filename,
		"size":      humanize.Bytes(uint64(len(secret.Data))),
		"lsb_bits":  secret.LSBDepth,
		"encrypted": secret.Encrypted,
		"output":    stored,
	}).Info("secret extracted")

	c.JSON(http.StatusOK, models.ExtractResponse{
		Success:        true,
		Message:        fmt.Sprintf("Secret extracted successfully (%s)", humanize.Bytes(uint64(len(secret.Data)))),
		SecretFileURL:  stored,
		SecretFilename: secretName,
	})
}

// Capacity reports how many bytes audioFile can hold at lsbBits.
func (h *StegoHandler) Capacity(c *gin.Context) {
	if !h.parseForm(c) {
		return
	}

	var req models.CapacityRequest
	if err := c.ShouldBind(&req); err != nil {
		h.capacityFail(c, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	audioData, audioName, err := readFormFile(c, "audioFile")
	if err != nil {
		h.capacityFail(c, http.StatusBadRequest, "Audio file is required")
		return
	}

	buf, _, err := h.audioDecoder.Decode(audioData, audioName)
	if err != nil {
		h.capacityFail(c, statusFor(err), userMessage(err))
		return
	}

	capacity := stego.CapacityFor(buf.Len(), req.LSBBits, embeddedName(req.Filename))
	c.JSON(http.StatusOK, models.CapacityResponse{
		Success:    true,
		Message:    fmt.Sprintf("Capacity %s at %d LSB bits", humanize.Bytes(uint64(capacity)), req.LSBBits),
		Capacity:   capacity,
		Samples:    buf.Len(),
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
	})
}

func (h *StegoHandler) download(kind storage.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		art, err := h.store.Open(c.Request.Context(), kind, c.Param("filename"))
		if err != nil {
			h.failErr(c, err)
			return
		}

		attachment := art.Name
		if alias, err := storage.CleanName(c.Query("name")); err == nil {
			attachment = alias
		}

		c.Header("Content-Description", "File Transfer")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachment}))
		c.Data(http.StatusOK, contentType(art.Name), art.Data)
	}
}

// PlayStego streams a stored stego file with Range support for the audio element.
func (h *StegoHandler) PlayStego(c *gin.Context) {
	art, err := h.store.Open(c.Request.Context(), storage.KindStego, c.Param("filename"))
	if err != nil {
		h.failErr(c, err)
		return
	}

	c.Header("Content-Type", contentType(art.Name))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "no-cache")
	http.ServeContent(c.Writer, c.Request, art.Name, art.ModTime, bytes.NewReader(art.Data))
}

// parseForm bounds the request body and parses the multipart form.
func (h *StegoHandler) parseForm(c *gin.Context) bool {
	if c.Request.ContentLength > h.maxUpload {
		h.fail(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Upload too large: %s, limit %s",
				humanize.IBytes(uint64(c.Request.ContentLength)), humanize.IBytes(uint64(h.maxUpload))), nil)
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		h.fail(c, status, fmt.Sprintf("Failed to parse form: %v", err), err)
		return false
	}
	return true
}

func (h *StegoHandler) failErr(c *gin.Context, err error) {
	h.fail(c, statusFor(err), userMessage(err), err)
}

func (h *StegoHandler) fail(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	entry := h.log.WithFields(logrus.Fields{"path": c.Request.URL.Path, "status": status})
	if err != nil {
		entry = entry.WithError(err)
	}
	if status >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Debug(message)
	}

	// ExtractResponse and StegoResponse share the failure shape
	c.JSON(status, models.StegoResponse{Success: false, Message: message})
}

func (h *StegoHandler) capacityFail(c *gin.Context, status int, message string) {
	c.JSON(status, models.CapacityResponse{Success: false, Message: message})
}

func readFormFile(c *gin.Context, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	f, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

// embeddedName is the base of name cut to the header's filename limit
// without splitting a UTF-8 sequence.
func embeddedName(name string) string {
	if name == "" {
		return ""
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	for len(name) > stego.MaxFilenameLength {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// resolveSecretName picks the download name for an extracted secret. A
// requested name without an extension borrows the embedded one.
func resolveSecretName(requested, embedded string) string {
	embedded = embeddedName(embedded)
	requested = embeddedName(strings.TrimSpace(requested))

	if requested == "" {
		if embedded == "" {
			return "secret.bin"
		}
		return embedded
	}
	if filepath.Ext(requested) == "" {
		requested += filepath.Ext(embedded)
	}
	return requested
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
