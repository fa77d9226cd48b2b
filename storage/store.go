// Package storage keeps generated stego and extracted artifacts until the
// client downloads them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind separates stego audio from recovered secrets.
type Kind string

const (
	KindStego     Kind = "stego"
	KindExtracted Kind = "extracted"
)

// Sentinel errors for errors.Is() checks
var (
	ErrNotFound    = errors.New("artifact not found")
	ErrInvalidName = errors.New("invalid artifact name")
	ErrInvalidKind = errors.New("invalid artifact kind")
)

// Artifact is a stored file.
type Artifact struct {
	Name    string
	Data    []byte
	ModTime time.Time
}

// Store persists artifacts by kind and name.
type Store interface {
	Save(ctx context.Context, kind Kind, name string, data []byte) error
	Open(ctx context.Context, kind Kind, name string) (*Artifact, error)
	Delete(ctx context.Context, kind Kind, name string) error
	Close() error
	Name() string
}

func (k Kind) valid() error {
	switch k {
	case KindStego, KindExtracted:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
}

// CleanName reduces a client-supplied name to its base and rejects anything
// that could escape the artifact directory.
func CleanName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// NewName builds a unique artifact name such as stego_<uuid>_song.wav.
func NewName(prefix, original, ext string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = safeChars(base)
	if len(base) > 64 {
		base = base[:64]
	}

	name := prefix + "_" + uuid.NewString()
	if base != "" {
		name += "_" + base
	}
	return name + ext
}

func safeChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteByte('_')
		}
	}
	return b.String()
}
