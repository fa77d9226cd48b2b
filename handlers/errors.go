package handlers

import (
	"errors"
	"net/http"

	"steganography-backend/audio"
	"steganography-backend/crypto"
	"steganography-backend/stego"
	"steganography-backend/storage"
)

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes),
		errors.Is(err, stego.ErrPayloadTooLarge),
		errors.Is(err, stego.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, crypto.ErrInvalidKey),
		errors.Is(err, stego.ErrInvalidDepth),
		errors.Is(err, stego.ErrCorruptHeader),
		errors.Is(err, stego.ErrInsufficientCapacity),
		errors.Is(err, stego.ErrFilenameTooLong),
		errors.Is(err, audio.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrInvalidName):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// userMessage is the text shown to the client for err.
func userMessage(err error) string {
	switch {
	case errors.Is(err, stego.ErrCorruptHeader):
		return "No hidden data found. Check the key and the random start setting"
	case errors.Is(err, stego.ErrPayloadTooLarge):
		return "Secret file too large for this audio: " + err.Error()
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return "Unsupported audio format. Use MP3, WAV or FLAC"
	case errors.Is(err, crypto.ErrInvalidKey):
		return "Invalid key: " + err.Error()
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidName):
		return "File not found"
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return "Upload too large"
	}
	return err.Error()
}
