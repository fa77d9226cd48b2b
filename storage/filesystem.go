package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// FileStore keeps artifacts under root/<kind>/<name>.
type FileStore struct {
	root string
	log  *logrus.Logger
}

// NewFileStore creates the kind directories under root.
func NewFileStore(root string, logger *logrus.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	for _, kind := range []Kind{KindStego, KindExtracted} {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s directory: %w", kind, err)
		}
	}
	return &FileStore{root: root, log: logger}, nil
}

func (s *FileStore) Name() string { return "fs" }

// Root is the directory the store writes to.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) path(kind Kind, name string) (string, error) {
	if err := kind.valid(); err != nil {
		return "", err
	}
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, string(kind), clean), nil
}

// Save writes data through a temp file and rename so readers never see a
// partial artifact.
func (s *FileStore) Save(ctx context.Context, kind Kind, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.path(kind, name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming %s: %w", name, err)
	}

	s.log.WithFields(logrus.Fields{
		"kind": kind,
		"name": filepath.Base(dst),
		"size": humanize.Bytes(uint64(len(data))),
	}).Debug("artifact saved")
	return nil
}

func (s *FileStore) Open(ctx context.Context, kind Kind, name string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(kind, name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(p))
	}
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return &Artifact{Name: filepath.Base(p), Data: data, ModTime: info.ModTime()}, nil
}

func (s *FileStore) Delete(ctx context.Context, kind Kind, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(kind, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(p))
		}
		return err
	}
	return nil
}

// Sweep removes artifacts last modified more than olderThan ago and returns
// how many were removed.
func (s *FileStore) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	var freed uint64

	for _, kind := range []Kind{KindStego, KindExtracted} {
		dir := filepath.Join(s.root, string(kind))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("listing %s: %w", dir, err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				s.log.WithError(err).WithField("name", entry.Name()).Warn("failed to remove expired artifact")
				continue
			}
			removed++
			freed += uint64(info.Size())
		}
	}

	if removed > 0 {
		s.log.WithFields(logrus.Fields{
			"removed": removed,
			"freed":   humanize.Bytes(freed),
		}).Info("expired artifacts swept")
	}
	return removed, nil
}

// RunSweeper sweeps every interval until ctx is done.
func (s *FileStore) RunSweeper(ctx context.Context, interval, olderThan time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, olderThan); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Warn("artifact sweep failed")
			}
		}
	}
}

func (s *FileStore) Close() error { return nil }
