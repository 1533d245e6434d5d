package tracker

import "github.com/al002/zbfetch/pkg/metainfo"

// Torrent carries the per-torrent values reported in an announce.
type Torrent struct {
	BytesUploaded   int64
	BytesDownloaded int64
	BytesLeft       int64
	InfoHash        metainfo.Hash
	PeerID          [20]byte
	Port            int
	// Key is a per-session nonce letting the tracker recognise us across
	// address changes.
	Key uint32
}
