package tracker

import (
	"bytes"
	"net"
	"strconv"

	"github.com/anacrolix/dht/v2/krpc"

	"github.com/al002/zbfetch/pkg/bencode"
)

const (
	compactIPv4Len = 6
	compactIPv6Len = 18
	peerIDLen      = 20
)

// Peer is a swarm member returned by a tracker. ID is nil when the tracker
// sent compact records or omitted the id.
type Peer struct {
	IP   net.IP
	Port int
	ID   []byte
}

func (p Peer) Addr() string {
	return net.JoinHostPort(p.IP.String(), strconv.Itoa(p.Port))
}

func (p Peer) TCPAddr() *net.TCPAddr {
	return &net.TCPAddr{IP: p.IP, Port: p.Port}
}

func (p Peer) Equal(o Peer) bool {
	return p.IP.Equal(o.IP) && p.Port == o.Port && bytes.Equal(p.ID, o.ID)
}

// DecodePeersCompact decodes concatenated 6-byte IPv4 records. A trailing
// partial record is dropped.
func DecodePeersCompact(b []byte) ([]Peer, error) {
	var cnas krpc.CompactIPv4NodeAddrs
	if err := cnas.UnmarshalBinary(b[:len(b)-len(b)%compactIPv4Len]); err != nil {
		return nil, decodeErr("compact peers: %v", err)
	}
	return fromNodeAddrs(cnas), nil
}

// DecodePeersCompact6 decodes concatenated 18-byte IPv6 records. A trailing
// partial record is dropped.
func DecodePeersCompact6(b []byte) ([]Peer, error) {
	var cnas krpc.CompactIPv6NodeAddrs
	if err := cnas.UnmarshalBinary(b[:len(b)-len(b)%compactIPv6Len]); err != nil {
		return nil, decodeErr("compact peers6: %v", err)
	}
	return fromNodeAddrs(cnas), nil
}

func fromNodeAddrs(nas []krpc.NodeAddr) []Peer {
	peers := make([]Peer, 0, len(nas))
	for _, na := range nas {
		peers = append(peers, Peer{IP: na.IP, Port: na.Port})
	}
	return peers
}

// decodePeersDictionary decodes a BEP 3 peer list. Entries that are not
// well-formed peer dictionaries are skipped.
func decodePeersDictionary(l bencode.List) []Peer {
	peers := make([]Peer, 0, len(l))
	for _, v := range l {
		d, ok := v.(bencode.Dict)
		if !ok {
			continue
		}
		if p, ok := peerFromDict(d); ok {
			peers = append(peers, p)
		}
	}
	return peers
}

func peerFromDict(d bencode.Dict) (Peer, bool) {
	host, err := d.GetString("ip")
	if err != nil {
		return Peer{}, false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return Peer{}, false
	}

	port, err := d.GetInt("port")
	if err != nil || port < 0 || port > 65535 {
		return Peer{}, false
	}

	p := Peer{IP: ip, Port: int(port)}

	for _, key := range []string{"peer id", "peer_id"} {
		id, ok, err := d.LookupBytes(key)
		if err != nil {
			return Peer{}, false
		}
		if !ok {
			continue
		}
		if len(id) != peerIDLen {
			return Peer{}, false
		}
		p.ID = id
		break
	}

	return p, true
}
