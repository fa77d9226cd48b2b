package storage

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	badgerStore, err := OpenBadger(BadgerConfig{Path: t.TempDir(), TTL: time.Hour})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, fsStore.Close())
		assert.NoError(t, badgerStore.Close())
	})
	return map[string]Store{"fs": fsStore, "badger": badgerStore}
}

func TestStoreSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data := []byte(strings.Repeat("RIFF audio ", 1000))
			require.NoError(t, store.Save(ctx, KindStego, "stego_a.wav", data))

			art, err := store.Open(ctx, KindStego, "stego_a.wav")
			require.NoError(t, err)
			assert.Equal(t, "stego_a.wav", art.Name)
			assert.Equal(t, data, art.Data)
			assert.False(t, art.ModTime.IsZero())

			// kinds are separate namespaces
			_, err = store.Open(ctx, KindExtracted, "stego_a.wav")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Delete(ctx, KindStego, "stego_a.wav"))
			_, err = store.Open(ctx, KindStego, "stego_a.wav")
			require.ErrorIs(t, err, ErrNotFound)
			require.ErrorIs(t, store.Delete(ctx, KindStego, "stego_a.wav"), ErrNotFound)
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, KindExtracted, "secret.txt", []byte("one")))
			require.NoError(t, store.Save(ctx, KindExtracted, "secret.txt", []byte("two")))

			art, err := store.Open(ctx, KindExtracted, "secret.txt")
			require.NoError(t, err)
			assert.Equal(t, []byte("two"), art.Data)
		})
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, store.Save(ctx, Kind("other"), "a.wav", nil), ErrInvalidKind)
			require.ErrorIs(t, store.Save(ctx, KindStego, "..", nil), ErrInvalidName)
			require.ErrorIs(t, store.Save(ctx, KindStego, ".hidden", nil), ErrInvalidName)

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			require.ErrorIs(t, store.Save(cancelled, KindStego, "a.wav", nil), context.Canceled)
		})
	}
}

func TestFileStoreStripsDirectories(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, KindStego, "../../escape.wav", []byte("x")))
	_, err = os.Stat(filepath.Join(root, "stego", "escape.wav"))
	require.NoError(t, err)

	art, err := store.Open(ctx, KindStego, "nested/dir/escape.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), art.Data)
}

func TestFileStoreSweep(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, KindStego, "old.wav", []byte("old")))
	require.NoError(t, store.Save(ctx, KindExtracted, "new.txt", []byte("new")))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "stego", "old.wav"), past, past))

	removed, err := store.Sweep(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Open(ctx, KindStego, "old.wav")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Open(ctx, KindExtracted, "new.txt")
	require.NoError(t, err)
}

func TestBadgerStoreInMemory(t *testing.T) {
	store, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, KindStego, "a.wav", []byte{}))
	art, err := store.Open(ctx, KindStego, "a.wav")
	require.NoError(t, err)
	assert.Empty(t, art.Data)
	assert.Equal(t, "badger", store.Name())
}

func TestCompressRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("zstd ", 4096))
	compressed, err := compress(data)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(data))

	out, err := decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCompressToFailingWriter(t *testing.T) {
	data := make([]byte, 1<<20)
	rand.New(rand.NewSource(3)).Read(data)

	err := compressTo(failingWriter{}, data)
	require.Error(t, err)
}

func TestCompressEmpty(t *testing.T) {
	compressed, err := compress(nil)
	require.NoError(t, err)

	out, err := decompress(compressed)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNewName(t *testing.T) {
	a := NewName("stego", "My Song.mp3", ".wav")
	b := NewName("stego", "My Song.mp3", ".wav")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "stego_"))
	assert.True(t, strings.HasSuffix(a, "_My_Song.wav"))

	// uuid is 36 characters
	assert.Len(t, NewName("extracted", "", ".bin"), len("extracted_")+36+len(".bin"))
	assert.NotContains(t, NewName("stego", "../../x/evil.wav", ".wav"), "/")
}

func TestCleanName(t *testing.T) {
	name, err := CleanName("a/b/c.wav")
	require.NoError(t, err)
	assert.Equal(t, "c.wav", name)

	name, err = CleanName(`..\..\win.wav`)
	require.NoError(t, err)
	assert.Equal(t, "win.wav", name)

	for _, bad := range []string{"", ".", "..", "/", ".env"} {
		_, err := CleanName(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}
