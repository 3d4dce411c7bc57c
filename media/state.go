package media

// State is the lifecycle state of a pipeline element.
type State int

const (
	// StateNull holds no resources.
	StateNull State = iota
	// StateReady holds device resources but no streaming state.
	StateReady
	// StatePaused is negotiated and shows prerolled frames.
	StatePaused
	// StatePlaying renders frames as they arrive.
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}
