package metainfo

import "github.com/al002/zbfetch/pkg/infohash"

const HashSize = infohash.Size

type Hash = infohash.T

var (
	NewHashFromHex = infohash.FromHexString
	HashBytes      = infohash.HashBytes
	Escape         = infohash.Escape
)
