// Package media defines the pipeline facing vocabulary of the video
// sink: caps describing raw video, frame buffers, navigation events,
// bus messages and the capability interfaces a sink can implement.
package media

// Presentable is a sink that negotiates raw video and displays it.
type Presentable interface {
	// Caps advertises the formats and ranges currently acceptable.
	Caps() []FormatCaps

	// SetCaps fixes the stream format. It returns an error when the
	// caps cannot be handled, which rejects the negotiation.
	SetCaps(c Caps) error

	// AllocateBuffer hands out a buffer suitable for the caps,
	// preferring display memory. A ready sink may propose different
	// caps on the returned buffer than requested.
	AllocateBuffer(c Caps, size int) (*Buffer, error)

	// Render shows one frame.
	Render(b *Buffer) error
}

// ColorChannel describes one adjustable picture control.
type ColorChannel struct {
	Label string
	Min   int
	Max   int
}

// ColorBalanced is an element with adjustable picture controls.
type ColorBalanced interface {
	// Channels lists the controls the element offers.
	Channels() []ColorChannel

	// SetChannelValue adjusts one control by label.
	SetChannelValue(label string, value int) error

	// ChannelValue reads one control by label.
	ChannelValue(label string) (int, error)
}

// NavigationSource is an element that translates user input into
// navigation events for upstream elements.
type NavigationSource interface {
	// SendNavigationEvent remaps an event into video coordinates and
	// forwards it upstream.
	SendNavigationEvent(ev NavigationEvent)
}
