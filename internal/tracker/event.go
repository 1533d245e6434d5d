package tracker

type Event int32

const (
	EventNone Event = iota
	EventCompleted
	EventStarted
	EventStopped
)

var eventNames = [...]string{
	"empty",
	"completed",
	"started",
	"stopped",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return eventNames[0]
	}
	return eventNames[e]
}
