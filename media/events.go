package media

// NavigationEventType discriminates navigation events sent upstream.
type NavigationEventType int

const (
	// NavKeyPress is a keyboard key going down.
	NavKeyPress NavigationEventType = iota + 1
	// NavKeyRelease is a keyboard key coming up.
	NavKeyRelease
	// NavMouseButtonPress is a pointer button going down.
	NavMouseButtonPress
	// NavMouseButtonRelease is a pointer button coming up.
	NavMouseButtonRelease
	// NavMouseMove is pointer movement.
	NavMouseMove
)

func (t NavigationEventType) String() string {
	switch t {
	case NavKeyPress:
		return "key-press"
	case NavKeyRelease:
		return "key-release"
	case NavMouseButtonPress:
		return "mouse-button-press"
	case NavMouseButtonRelease:
		return "mouse-button-release"
	case NavMouseMove:
		return "mouse-move"
	default:
		return "unknown"
	}
}

// NavigationEvent is a user interaction reported by a video sink and
// forwarded upstream. Pointer coordinates are in video coordinates,
// already translated out of the displayed region.
type NavigationEvent struct {
	Type   NavigationEventType
	Key    string
	Button int
	X      float64
	Y      float64
}

// Pointer reports whether the event carries cursor coordinates.
func (e NavigationEvent) Pointer() bool {
	switch e.Type {
	case NavMouseButtonPress, NavMouseButtonRelease, NavMouseMove:
		return true
	default:
		return false
	}
}
