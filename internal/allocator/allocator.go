// Package allocator opens the files of a payload layout and exposes them as
// one contiguous byte range.
package allocator

import (
	"errors"
	"io"
	"sort"

	"go.uber.org/multierr"

	"github.com/al002/zbfetch/internal/storage"
)

var ErrOutOfRange = errors.New("offset outside payload")

type Allocator struct {
	Files       []File
	HasExisting bool
	HasMissing  bool

	size int64
}

type File struct {
	Storage storage.File
	Name    string
	Length  int64
	Offset  int64
}

var (
	_ io.WriterAt = (*Allocator)(nil)
	_ io.ReaderAt = (*Allocator)(nil)
)

// Allocate opens or creates every entry in sto. If one fails the files opened
// so far are closed.
func Allocate(entries []storage.Entry, sto storage.Storage) (a *Allocator, err error) {
	a = &Allocator{Files: make([]File, 0, len(entries))}

	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
			a = nil
		}
	}()

	for _, e := range entries {
		sf, exists, err := sto.Open(e.Path, e.Length)
		if err != nil {
			return a, err
		}

		if exists {
			a.HasExisting = true
		} else {
			a.HasMissing = true
		}

		a.Files = append(a.Files, File{
			Storage: sf,
			Name:    e.Path,
			Length:  e.Length,
			Offset:  e.Offset,
		})
		a.size = max(a.size, e.Offset+e.Length)
	}

	return a, nil
}

func (a *Allocator) Size() int64 {
	return a.size
}

// WriteAt writes p at payload offset off, splitting it across files.
func (a *Allocator) WriteAt(p []byte, off int64) (int, error) {
	return a.span(p, off, func(f storage.File, b []byte, at int64) (int, error) {
		return f.WriteAt(b, at)
	})
}

// ReadAt reads len(p) bytes at payload offset off.
func (a *Allocator) ReadAt(p []byte, off int64) (int, error) {
	return a.span(p, off, func(f storage.File, b []byte, at int64) (int, error) {
		return f.ReadAt(b, at)
	})
}

func (a *Allocator) span(p []byte, off int64, op func(storage.File, []byte, int64) (int, error)) (int, error) {
	if off < 0 || off+int64(len(p)) > a.size {
		return 0, ErrOutOfRange
	}

	i := sort.Search(len(a.Files), func(i int) bool {
		f := a.Files[i]
		return f.Offset+f.Length > off
	})

	var n int
	for ; n < len(p) && i < len(a.Files); i++ {
		f := a.Files[i]
		if f.Length == 0 {
			continue
		}

		at := off + int64(n) - f.Offset
		chunk := p[n:min(len(p), n+int(f.Length-at))]

		m, err := op(f.Storage, chunk, at)
		n += m
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// Close closes every opened file and returns all errors combined.
func (a *Allocator) Close() error {
	var err error
	for _, f := range a.Files {
		if f.Storage != nil {
			err = multierr.Append(err, f.Storage.Close())
		}
	}
	a.Files = nil
	return err
}
