package peer

// Source tells where a peer address came from.
type Source int

const (
	// The peer is found from tracker by announcing the torrent
	Tracker Source = iota
	// The peer is added manually by user
	Manual
)

func (s Source) String() string {
	switch s {
	case Tracker:
		return "tracker"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}
