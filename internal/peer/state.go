package peer

type State int32

const (
	Connecting State = iota
	HandshakeSent
	HandshakeVerified
	BitfieldReceived
	Exchanging
	Complete
	Aborted
)

var stateNames = [...]string{
	"connecting",
	"handshake sent",
	"handshake verified",
	"bitfield received",
	"exchanging",
	"complete",
	"aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) Terminal() bool {
	return s == Complete || s == Aborted
}
