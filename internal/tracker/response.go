package tracker

import (
	"errors"
	"strings"
	"time"

	"github.com/al002/zbfetch/pkg/bencode"
	"github.com/al002/zbfetch/pkg/metainfo"
)

const unknownFailure = "unknown error"

// ParseAnnounce decodes an announce response body.
func ParseAnnounce(body []byte) (*AnnounceResponse, error) {
	d, err := decodeDict(body)
	if err != nil {
		return nil, err
	}

	if v, ok := d["failure reason"]; ok {
		reason := unknownFailure
		if b, isBytes := v.(bencode.ByteString); isBytes {
			reason = string(b)
		}
		return &AnnounceResponse{Failure: &Failure{Reason: reason}}, nil
	}

	resp := &AnnounceResponse{Interval: DefaultInterval}

	if resp.WarningMessage, _, err = d.LookupString("warning message"); err != nil {
		return nil, decodeErr("%v", err)
	}
	if resp.TrackerID, _, err = d.LookupString("tracker id"); err != nil {
		return nil, decodeErr("%v", err)
	}

	interval, ok, err := lookupCount(d, "interval")
	if err != nil {
		return nil, err
	}
	if ok {
		resp.Interval = time.Duration(interval) * time.Second
	}

	minInterval, _, err := lookupCount(d, "min interval")
	if err != nil {
		return nil, err
	}
	resp.MinInterval = time.Duration(minInterval) * time.Second

	if resp.Complete, _, err = lookupCount(d, "complete"); err != nil {
		return nil, err
	}
	if resp.Incomplete, _, err = lookupCount(d, "incomplete"); err != nil {
		return nil, err
	}

	if resp.Peers, err = parsePeers(d); err != nil {
		return nil, err
	}

	return resp, nil
}

func parsePeers(d bencode.Dict) ([]Peer, error) {
	var peers []Peer

	switch v := d["peers"].(type) {
	case nil:
	case bencode.List:
		peers = decodePeersDictionary(v)
	case bencode.ByteString:
		p, err := DecodePeersCompact(v)
		if err != nil {
			return nil, err
		}
		peers = p
	default:
		return nil, decodeErr("peers is a %s", v.Kind())
	}

	if v, ok := d["peers6"]; ok {
		b, isBytes := v.(bencode.ByteString)
		if !isBytes {
			return nil, decodeErr("peers6 is a %s", v.Kind())
		}
		p, err := DecodePeersCompact6(b)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p...)
	}

	return peers, nil
}

// ParseScrape decodes a scrape response into per-infohash statistics. Keys of
// "files" that are not 20 bytes long are ignored. A "failure reason" is
// returned as *Error.
func ParseScrape(body []byte) (map[metainfo.Hash]TorrentScrape, error) {
	d, err := decodeDict(body)
	if err != nil {
		return nil, err
	}

	if v, ok := d["failure reason"]; ok {
		reason := unknownFailure
		if b, isBytes := v.(bencode.ByteString); isBytes {
			reason = string(b)
		}
		return nil, &Error{FailureReason: reason}
	}

	files, err := d.GetDict("files")
	if err != nil {
		return nil, decodeErr("%v", err)
	}

	ret := make(map[metainfo.Hash]TorrentScrape, len(files))
	for key, v := range files {
		if len(key) != metainfo.HashSize {
			continue
		}

		entry, ok := v.(bencode.Dict)
		if !ok {
			return nil, decodeErr("scrape entry is a %s", v.Kind())
		}

		var ts TorrentScrape
		for field, dst := range map[string]*int64{
			"complete":   &ts.Complete,
			"downloaded": &ts.Downloaded,
			"incomplete": &ts.Incomplete,
		} {
			n, ok, err := lookupCount(entry, field)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, decodeErr("scrape entry without %q", field)
			}
			*dst = n
		}
		if ts.Name, _, err = entry.LookupString("name"); err != nil {
			return nil, decodeErr("%v", err)
		}

		var h metainfo.Hash
		copy(h[:], key)
		ret[h] = ts
	}

	return ret, nil
}

// ScrapeURL derives the scrape endpoint by replacing "announce" with
// "scrape" in the announce URL. Trackers whose announce path lacks that
// substring get a scrape request to the announce endpoint itself.
func ScrapeURL(announce string, infoHash metainfo.Hash) string {
	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(announce, "announce", "scrape"))
	if strings.ContainsRune(announce, '?') {
		sb.WriteString("&info_hash=")
	} else {
		sb.WriteString("?info_hash=")
	}
	sb.WriteString(infoHash.URLEncoded())
	return sb.String()
}

// decodeDict decodes a response body that must be a dictionary. Bytes after
// the dictionary are ignored.
func decodeDict(body []byte) (bencode.Dict, error) {
	v, err := bencode.Decode(body)
	if err != nil && !errors.Is(err, bencode.ErrTrailingBytes) {
		return nil, decodeErr("%v", err)
	}

	d, ok := v.(bencode.Dict)
	if !ok {
		return nil, decodeErr("response is not a dictionary")
	}
	return d, nil
}

func lookupCount(d bencode.Dict, key string) (int64, bool, error) {
	n, ok, err := d.LookupInt(key)
	if err != nil {
		return 0, false, decodeErr("%v", err)
	}
	if n < 0 {
		return 0, false, decodeErr("%q is negative", key)
	}
	return n, ok, nil
}
