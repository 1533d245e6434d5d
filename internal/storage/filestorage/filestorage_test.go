package filestorage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/al002/zbfetch/internal/storage"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 0o755)
	require.NoError(t, err)
	assert.Equal(t, dir, s.RootDir())

	f, exists, err := s.Open(filepath.Join("a", "b.bin"), 100)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.WriteAt([]byte("hello"), 10)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fi, err := os.Stat(filepath.Join(dir, "a", "b.bin"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), fi.Size())

	f, exists, err = s.Open(filepath.Join("a", "b.bin"), 50)
	require.NoError(t, err)
	assert.True(t, exists)

	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
	require.NoError(t, f.Close())

	fi, err = os.Stat(filepath.Join(dir, "a", "b.bin"))
	require.NoError(t, err)
	assert.Equal(t, int64(50), fi.Size())
}

func TestOpenOutsideRoot(t *testing.T) {
	s, err := New(t.TempDir(), 0o755)
	require.NoError(t, err)

	_, _, err = s.Open(filepath.Join("..", "escape"), 1)
	assert.ErrorIs(t, err, storage.ErrUnsafePath)
}
