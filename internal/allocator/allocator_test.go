package allocator

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/al002/zbfetch/internal/storage"
	"github.com/al002/zbfetch/internal/storage/filestorage"
)

func entries() []storage.Entry {
	return []storage.Entry{
		{Path: filepath.Join("d", "a"), Length: 5, Offset: 0},
		{Path: filepath.Join("d", "empty"), Length: 0, Offset: 5},
		{Path: filepath.Join("d", "b"), Length: 3, Offset: 5},
		{Path: filepath.Join("d", "c"), Length: 4, Offset: 8},
	}
}

func TestWriteAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	sto, err := filestorage.New(dir, 0o755)
	require.NoError(t, err)

	a, err := Allocate(entries(), sto)
	require.NoError(t, err)
	assert.True(t, a.HasMissing)
	assert.False(t, a.HasExisting)
	assert.Equal(t, int64(12), a.Size())

	n, err := io.NewOffsetWriter(a, 0).Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = a.WriteAt([]byte("worldxy"), 5)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	buf := make([]byte, 6)
	_, err = a.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "loworl", string(buf))

	require.NoError(t, a.Close())

	for name, want := range map[string]string{"a": "hello", "empty": "", "b": "wor", "c": "ldxy"} {
		got, err := os.ReadFile(filepath.Join(dir, "d", name))
		require.NoError(t, err)
		assert.Equal(t, want, string(got), name)
	}

	a, err = Allocate(entries(), sto)
	require.NoError(t, err)
	assert.True(t, a.HasExisting)
	assert.False(t, a.HasMissing)
	require.NoError(t, a.Close())
}

func TestWriteOutOfRange(t *testing.T) {
	sto, err := filestorage.New(t.TempDir(), 0o755)
	require.NoError(t, err)

	a, err := Allocate(entries(), sto)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.WriteAt([]byte("xx"), 11)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = a.WriteAt([]byte("x"), -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

type failingStorage struct {
	storage.Storage
	failOn string
	opened []*trackedFile
}

type trackedFile struct {
	storage.File
	closed bool
}

func (f *trackedFile) Close() error {
	f.closed = true
	return nil
}

func (s *failingStorage) Open(name string, size int64) (storage.File, bool, error) {
	if name == s.failOn {
		return nil, false, errors.New("disk full")
	}
	f := &trackedFile{}
	s.opened = append(s.opened, f)
	return f, false, nil
}

func TestAllocateClosesOnFailure(t *testing.T) {
	sto := &failingStorage{failOn: filepath.Join("d", "b")}

	a, err := Allocate(entries(), sto)
	require.Error(t, err)
	assert.Nil(t, a)

	require.Len(t, sto.opened, 2)
	for _, f := range sto.opened {
		assert.True(t, f.closed)
	}
}
