package metainfo

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/al002/zbfetch/pkg/bencode"
)

// FileEntry describes one file of the payload. Path is nil for single-file
// torrents.
type FileEntry struct {
	Length int64
	MD5Sum []byte
	Path   []string
}

// Payload holds exactly one of Single or Multi.
type Payload struct {
	Single *FileEntry
	Multi  []FileEntry
}

func (p Payload) IsMulti() bool {
	return p.Single == nil
}

func (p Payload) Files() []FileEntry {
	if p.Single != nil {
		return []FileEntry{*p.Single}
	}
	return p.Multi
}

func (p Payload) TotalLength() int64 {
	if p.Single != nil {
		return p.Single.Length
	}

	var n int64
	for _, f := range p.Multi {
		n += f.Length
	}
	return n
}

// MetaInfo is the decoded "info" dictionary.
type MetaInfo struct {
	PieceLength int64
	// Concatenated 20-byte SHA-1 digests, one per piece.
	Pieces  []byte
	Private bool
	Name    string
	Payload Payload
}

func (mi *MetaInfo) TotalLength() int64 {
	return mi.Payload.TotalLength()
}

func (mi *MetaInfo) NumPieces() int {
	return len(mi.Pieces) / sha1.Size
}

func (mi *MetaInfo) PieceHash(i int) Hash {
	var h Hash
	copy(h[:], mi.Pieces[i*sha1.Size:(i+1)*sha1.Size])
	return h
}

// PieceSize is PieceLength for every piece but the last, which holds the
// remainder of the payload.
func (mi *MetaInfo) PieceSize(i int) int64 {
	if i == mi.NumPieces()-1 {
		if rem := mi.TotalLength() % mi.PieceLength; rem != 0 {
			return rem
		}
	}
	return mi.PieceLength
}

func parseInfo(d bencode.Dict) (*MetaInfo, error) {
	pieceLength, err := d.GetInt("piece length")
	if err != nil {
		return nil, decodeErr("info.piece length", err)
	}
	if pieceLength <= 0 {
		return nil, decodeErr("info.piece length", errZeroPieceLength)
	}

	pieces, err := d.GetBytes("pieces")
	if err != nil {
		return nil, decodeErr("info.pieces", err)
	}
	if len(pieces)%sha1.Size != 0 {
		return nil, decodeErr("info.pieces", errInvalidPieceData)
	}

	name, err := d.GetString("name")
	if err != nil {
		return nil, decodeErr("info.name", err)
	}

	private, ok, err := d.LookupInt("private")
	if err != nil {
		return nil, decodeErr("info.private", err)
	}

	mi := &MetaInfo{
		PieceLength: pieceLength,
		Pieces:      pieces,
		Private:     ok && private > 0,
		Name:        name,
	}

	if d.Has("files") {
		mi.Payload.Multi, err = parseFiles(d)
	} else {
		mi.Payload.Single, err = parseSingleFile(d)
	}
	if err != nil {
		return nil, err
	}

	if err := mi.checkPieceCount(); err != nil {
		return nil, err
	}

	return mi, nil
}

func (mi *MetaInfo) checkPieceCount() error {
	total := mi.TotalLength()
	want := (total + mi.PieceLength - 1) / mi.PieceLength
	if int64(mi.NumPieces()) != want {
		return decodeErr("info.pieces", fmt.Errorf("%w: have %d, payload needs %d", errPieceCount, mi.NumPieces(), want))
	}
	return nil
}

func parseSingleFile(d bencode.Dict) (*FileEntry, error) {
	length, err := d.GetInt("length")
	if err != nil {
		return nil, decodeErr("info.length", err)
	}
	if length < 0 {
		return nil, decodeErr("info.length", errNegativeLength)
	}

	sum, err := parseChecksum(d, "info.md5sum")
	if err != nil {
		return nil, err
	}

	return &FileEntry{Length: length, MD5Sum: sum}, nil
}

func parseFiles(d bencode.Dict) ([]FileEntry, error) {
	list, err := d.GetList("files")
	if err != nil {
		return nil, decodeErr("info.files", err)
	}

	files := make([]FileEntry, 0, len(list))
	for i, v := range list {
		field := fmt.Sprintf("info.files[%d]", i)

		fd, err := bencode.AsDict(v)
		if err != nil {
			return nil, decodeErr(field, err)
		}

		length, err := fd.GetInt("length")
		if err != nil {
			return nil, decodeErr(field+".length", err)
		}
		if length < 0 {
			return nil, decodeErr(field+".length", errNegativeLength)
		}

		pl, err := fd.GetList("path")
		if err != nil {
			return nil, decodeErr(field+".path", err)
		}
		path, err := pl.Strings()
		if err != nil {
			return nil, decodeErr(field+".path", err)
		}

		sum, err := parseChecksum(fd, field+".md5sum")
		if err != nil {
			return nil, err
		}

		files = append(files, FileEntry{
			Length: length,
			MD5Sum: sum,
			Path:   path,
		})
	}

	return files, nil
}

func parseChecksum(d bencode.Dict, field string) ([]byte, error) {
	b, ok, err := d.LookupBytes("md5sum")
	if err != nil {
		return nil, decodeErr(field, err)
	}
	if !ok {
		return nil, nil
	}

	switch len(b) {
	case 16:
		return b, nil
	case 32:
		sum, err := hex.DecodeString(string(b))
		if err != nil {
			return nil, decodeErr(field, errChecksum)
		}
		return sum, nil
	default:
		return nil, decodeErr(field, errChecksum)
	}
}
