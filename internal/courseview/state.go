package courseview

type State int

const (
	Idle State = iota
	Loading
	Ready
	Error
	TornDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	case TornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}
