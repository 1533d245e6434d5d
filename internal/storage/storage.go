// Package storage maps a torrent payload onto files on disk.
package storage

import "io"

type Storage interface {
	Open(name string, size int64) (f File, exists bool, err error)
	RootDir() string
}

type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}
