// Package metainfo decodes torrent descriptions and derives their infohash.
package metainfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/al002/zbfetch/pkg/bencode"
)

// TorrentInfo is an immutable, decoded torrent description.
type TorrentInfo struct {
	Announce     string
	AnnounceList []string
	CreationDate time.Time
	Comment      string
	CreatedBy    string
	Encoding     string

	MetaInfo MetaInfo

	// InfoHash is the SHA-1 of InfoBytes, the "info" entry exactly as it
	// appeared in the source document.
	InfoHash  Hash
	InfoBytes []byte
}

func (ti *TorrentInfo) HashHex() string {
	return ti.InfoHash.HexString()
}

func (ti *TorrentInfo) HashURLEncoded() string {
	return ti.InfoHash.URLEncoded()
}

func (ti *TorrentInfo) TotalLength() int64 {
	return ti.MetaInfo.TotalLength()
}

// Trackers returns announce first, followed by the distinct announce-list
// URLs that differ from it.
func (ti *TorrentInfo) Trackers() []string {
	seen := map[string]struct{}{ti.Announce: {}}
	ret := []string{ti.Announce}
	for _, u := range ti.AnnounceList {
		if _, ok := seen[u]; ok || u == "" {
			continue
		}
		seen[u] = struct{}{}
		ret = append(ret, u)
	}
	return ret
}

// Decode parses a complete torrent document.
func Decode(b []byte) (*TorrentInfo, error) {
	v, err := bencode.Decode(b)
	if err != nil {
		return nil, decodeErr("", err)
	}

	root, ok := v.(bencode.Dict)
	if !ok {
		return nil, decodeErr("", errNotDict)
	}

	infoDict, err := root.GetDict("info")
	if err != nil {
		return nil, decodeErr("info", err)
	}

	mi, err := parseInfo(infoDict)
	if err != nil {
		return nil, err
	}

	infoBytes, err := bencode.RawEntry(b, "info")
	if err != nil {
		return nil, decodeErr("info", err)
	}

	ti := &TorrentInfo{
		MetaInfo:  *mi,
		InfoHash:  HashBytes(infoBytes),
		InfoBytes: infoBytes,
	}

	if ti.Announce, err = root.GetString("announce"); err != nil {
		return nil, decodeErr("announce", err)
	}

	if ti.AnnounceList, err = parseAnnounceList(root); err != nil {
		return nil, err
	}

	date, ok, err := root.LookupInt("creation date")
	if err != nil {
		return nil, decodeErr("creation date", err)
	}
	if ok {
		ti.CreationDate = time.Unix(date, 0).UTC()
	}

	for key, dst := range map[string]*string{
		"comment":    &ti.Comment,
		"created by": &ti.CreatedBy,
		"encoding":   &ti.Encoding,
	} {
		s, _, err := root.LookupString(key)
		if err != nil {
			return nil, decodeErr(key, err)
		}
		*dst = s
	}

	return ti, nil
}

// parseAnnounceList flattens the tiers of "announce-list". A flat list of
// strings is accepted as well.
func parseAnnounceList(root bencode.Dict) ([]string, error) {
	if !root.Has("announce-list") {
		return nil, nil
	}

	tiers, err := root.GetList("announce-list")
	if err != nil {
		return nil, decodeErr("announce-list", err)
	}

	var urls []string
	for i, tier := range tiers {
		switch t := tier.(type) {
		case bencode.ByteString:
			urls = append(urls, string(t))
		case bencode.List:
			s, err := t.Strings()
			if err != nil {
				return nil, decodeErr(fmt.Sprintf("announce-list[%d]", i), err)
			}
			urls = append(urls, s...)
		default:
			return nil, decodeErr(fmt.Sprintf("announce-list[%d]", i),
				&bencode.TypeError{Want: bencode.KindList, Got: tier.Kind()})
		}
	}

	return urls, nil
}

func Load(r io.Reader) (*TorrentInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

func LoadFromFile(filename string) (*TorrentInfo, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(bufio.NewReader(f))
}
