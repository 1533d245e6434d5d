// Package filestorage stores payload files under a directory on disk.
package filestorage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/al002/zbfetch/internal/storage"
)

type FileStorage struct {
	dest string
	perm fs.FileMode
}

func New(dest string, perm fs.FileMode) (*FileStorage, error) {
	var err error
	dest, err = filepath.Abs(dest)
	if err != nil {
		return nil, err
	}

	return &FileStorage{
		dest: dest,
		perm: perm,
	}, nil
}

var _ storage.Storage = (*FileStorage)(nil)

// Open opens or creates the file at name relative to the root directory and
// sizes it to size bytes. exists reports whether the file was already there.
func (s *FileStorage) Open(name string, size int64) (f storage.File, exists bool, err error) {
	name = filepath.Clean(name)
	if !filepath.IsLocal(name) {
		return nil, false, fmt.Errorf("%w: %q", storage.ErrUnsafePath, name)
	}

	name = filepath.Join(s.dest, name)

	err = os.MkdirAll(filepath.Dir(name), os.ModeDir|s.perm)
	if err != nil {
		return
	}

	var of *os.File
	// Make sure OS file closed
	defer func() {
		if err != nil && of != nil {
			_ = of.Close()
		} else {
			f = of
		}
	}()

	mode := s.perm &^ 0111
	of, err = os.OpenFile(name, os.O_RDWR, mode)

	if os.IsNotExist(err) {
		of, err = os.OpenFile(name, os.O_RDWR|os.O_CREATE, mode)
		if err != nil {
			return
		}
		err = of.Truncate(size)
		return
	}

	if err != nil {
		return
	}

	exists = true
	fi, err := of.Stat()
	if err != nil {
		return
	}

	if fi.Size() != size {
		err = of.Truncate(size)
	}

	return
}

func (s *FileStorage) RootDir() string {
	return s.dest
}
