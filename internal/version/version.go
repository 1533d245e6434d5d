package version

import (
	"fmt"
)

const (
	// Version of the client.
	Version = "0.1.0"
	// PeerIDVersion is Version in the four digit form used in peer ids.
	PeerIDVersion = "0001"
)

var (
	DefaultHttpUserAgent string
)

func init() {
	const (
		namespace   = "al002"
		packageName = "zbfetch"
	)

	// https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/User-Agent#library_and_net_tool_ua_strings
	DefaultHttpUserAgent = fmt.Sprintf(
		"%v-%v/%v",
		namespace,
		packageName,
		Version,
	)
}
