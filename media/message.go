package media

// MessageKind discriminates element messages posted on the bus.
type MessageKind int

const (
	// MessageElement is an informational element message.
	MessageElement MessageKind = iota + 1
	// MessageError is a fatal element error.
	MessageError
)

// MsgFrameRendered is the name of the message posted once when the
// first frame after a pause reaches the display.
const MsgFrameRendered = "FrameRendered"

// Message is an out of band notification from an element to the
// application.
type Message struct {
	Kind   MessageKind
	Source string
	Name   string
	Text   string
	Err    error
}
