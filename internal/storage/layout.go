package storage

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/al002/zbfetch/pkg/metainfo"
)

var (
	ErrUnsafePath    = errors.New("unsafe file path")
	ErrDuplicatePath = errors.New("duplicate file path")
)

// Entry is one payload file. Offset is its position in the concatenated
// payload.
type Entry struct {
	Path   string
	Length int64
	Offset int64
}

// Layout returns the files of a torrent in payload order. A single file
// torrent is stored under its name, a multi file torrent under a directory
// named after the torrent.
func Layout(ti *metainfo.TorrentInfo) ([]Entry, error) {
	mi := &ti.MetaInfo

	name := mi.Name
	if name == "" {
		name = ti.HashHex()
	}
	base := truncateName(name)
	if err := checkSegment(base); err != nil {
		return nil, err
	}

	if !mi.Payload.IsMulti() {
		return []Entry{{Path: base, Length: mi.TotalLength()}}, nil
	}

	files := mi.Payload.Files()
	entries := make([]Entry, len(files))
	unique := make(map[string]struct{}, len(files))

	var offset int64
	for i, f := range files {
		parts := make([]string, 0, len(f.Path)+1)
		parts = append(parts, base)
		for _, p := range f.Path {
			p = truncateName(p)
			if err := checkSegment(p); err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}

		joined := filepath.Join(parts...)
		if _, ok := unique[joined]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePath, joined)
		}
		unique[joined] = struct{}{}

		entries[i] = Entry{
			Path:   joined,
			Length: f.Length,
			Offset: offset,
		}
		offset += f.Length
	}

	return entries, nil
}

func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." {
		return fmt.Errorf("%w: segment %q", ErrUnsafePath, s)
	}
	return nil
}

func truncateName(s string) string {
	return truncateNameN(s, 255)
}

// truncateNameN limits s to max bytes keeping its extension and replaces
// path separators.
func truncateNameN(s string, max int) string {
	s = strings.ToValidUTF8(s, string(unicode.ReplacementChar))
	s = trimName(s, max)
	s = strings.ToValidUTF8(s, "")

	return replaceSeparator(s)
}

func trimName(s string, max int) string {
	if len(s) <= max {
		return s
	}

	ext := path.Ext(s)
	if len(ext) > max {
		return s[:max]
	}

	return s[:max-len(ext)] + ext
}

func replaceSeparator(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, s)
}
