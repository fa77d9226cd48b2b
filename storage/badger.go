package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// BadgerStore keeps artifacts zstd-compressed in badger. Entries expire
// after the configured TTL.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
	log *logrus.Logger
}

// BadgerConfig configures OpenBadger.
type BadgerConfig struct {
	Path     string
	TTL      time.Duration // zero keeps entries forever
	InMemory bool
	Logger   *logrus.Logger
}

func OpenBadger(config BadgerConfig) (*BadgerStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	opts := badger.DefaultOptions(config.Path)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 100 // Set max size of each value log file to 100MB
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", config.Path, err)
	}
	return &BadgerStore{db: db, ttl: config.TTL, log: config.Logger}, nil
}

func (s *BadgerStore) Name() string { return "badger" }

func key(kind Kind, name string) ([]byte, string, error) {
	if err := kind.valid(); err != nil {
		return nil, "", err
	}
	clean, err := CleanName(name)
	if err != nil {
		return nil, "", err
	}
	return []byte(string(kind) + ":" + clean), clean, nil
}

func (s *BadgerStore) Save(ctx context.Context, kind Kind, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, clean, err := key(kind, name)
	if err != nil {
		return err
	}
	compressed, err := compress(data)
	if err != nil {
		return fmt.Errorf("compressing %s: %w", clean, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(k, compressed)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("storing %s: %w", clean, err)
	}

	s.log.WithFields(logrus.Fields{
		"kind":       kind,
		"name":       clean,
		"size":       humanize.Bytes(uint64(len(data))),
		"compressed": humanize.Bytes(uint64(len(compressed))),
	}).Debug("artifact saved")
	return nil
}

func (s *BadgerStore) Open(ctx context.Context, kind Kind, name string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, clean, err := key(kind, name)
	if err != nil {
		return nil, err
	}

	var compressed []byte
	var modTime time.Time
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		if exp := item.ExpiresAt(); exp > 0 && s.ttl > 0 {
			modTime = time.Unix(int64(exp), 0).Add(-s.ttl)
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", clean, err)
	}

	data, err := decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", clean, err)
	}
	if modTime.IsZero() {
		modTime = time.Now()
	}
	return &Artifact{Name: clean, Data: data, ModTime: modTime}, nil
}

func (s *BadgerStore) Delete(ctx context.Context, kind Kind, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, clean, err := key(kind, name)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(k); err != nil {
			return err
		}
		return txn.Delete(k)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	return err
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := compressTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// compressTo closes the encoder on every path so its workers exit.
func compressTo(w io.Writer, data []byte) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err = enc.Write(data); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var buf bytes.Buffer
	if _, err = io.Copy(&buf, dec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
