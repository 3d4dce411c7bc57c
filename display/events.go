package display

import (
	"sync"
	"time"
)

// EventType discriminates input events.
type EventType int

const (
	// EventKeyPress is a keyboard key going down.
	EventKeyPress EventType = iota + 1
	// EventKeyRelease is a keyboard key coming up.
	EventKeyRelease
	// EventButtonPress is a pointer button going down.
	EventButtonPress
	// EventButtonRelease is a pointer button coming up.
	EventButtonRelease
	// EventMotion is pointer movement.
	EventMotion
)

func (t EventType) String() string {
	switch t {
	case EventKeyPress:
		return "key-press"
	case EventKeyRelease:
		return "key-release"
	case EventButtonPress:
		return "button-press"
	case EventButtonRelease:
		return "button-release"
	case EventMotion:
		return "motion"
	default:
		return "unknown"
	}
}

// Key identifies a keyboard key. The set covers the keys the sink and
// its example players care about.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyReturn
	KeySpace
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
)

// String returns the navigation name of the key.
func (k Key) String() string {
	switch k {
	case KeyEscape:
		return "Escape"
	case KeyReturn:
		return "Return"
	case KeySpace:
		return "space"
	case KeyLeft:
		return "Left"
	case KeyRight:
		return "Right"
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	default:
		return "unknown"
	}
}

// InputEvent is one keyboard or pointer event. Pointer events carry the
// cursor position in layer coordinates.
type InputEvent struct {
	Type   EventType
	Key    Key
	Button int
	X, Y   int
}

// eventQueue is the channel backed EventBuffer used by the in-tree
// devices.
type eventQueue struct {
	events chan InputEvent
	done   chan struct{}
	once   sync.Once
}

// NewEventBuffer returns an event queue holding up to capacity pending
// events. Events posted while the queue is full are dropped.
func NewEventBuffer(capacity int) EventBuffer {
	if capacity <= 0 {
		capacity = 64
	}
	return &eventQueue{
		events: make(chan InputEvent, capacity),
		done:   make(chan struct{}),
	}
}

func (q *eventQueue) WaitEvent(timeout time.Duration) (InputEvent, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-q.done:
		return InputEvent{}, false, ErrClosed
	case ev := <-q.events:
		return ev, true, nil
	case <-timer.C:
		return InputEvent{}, false, nil
	}
}

func (q *eventQueue) PostEvent(ev InputEvent) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.events <- ev:
	default:
		// Queue full. Input is lossy rather than blocking the poster.
	}
	return nil
}

func (q *eventQueue) Close() error {
	q.once.Do(func() {
		close(q.done)
	})
	return nil
}
