package vidsink

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/convert"
	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

// Options configures a new Sink.
type Options struct {
	// Device is the display system to render on. It may be nil when
	// Surface is set.
	Device display.Device

	// Surface renders into an externally provided surface instead of
	// taking over a display layer. The sink then touches no layers,
	// modes or input devices.
	Surface display.Surface

	// Accelerator converts and scales frames during rendering. Without
	// one the sink only accepts frames matching the target surface
	// format and copies them row by row.
	Accelerator convert.Engine

	// VSync makes rendering wait for the vertical retrace.
	VSync bool

	// KeepAspect letterboxes scaled video instead of stretching it
	// over the whole window.
	KeepAspect bool

	// PixelAspect declares the pixel aspect ratio of the display.
	// Zero means square pixels are assumed but not enforced.
	PixelAspect media.Fraction

	// Window restricts rendering to a region of the target surface.
	// Zero width or height means the full surface.
	Window display.Rect

	// Brightness, Contrast, Hue and Saturation preset the picture
	// controls, range 0x0000 to 0xFFFF. Negative values leave the
	// device defaults untouched.
	Brightness int
	Contrast   int
	Hue        int
	Saturation int

	// AcceptCaps is asked whether upstream would accept proposed caps
	// during buffer allocation. Nil means no peer to ask.
	AcceptCaps func(media.Caps) bool

	// Navigation receives remapped user input events. Nil drops them.
	Navigation func(media.NavigationEvent)

	// Bus receives element messages and fatal errors. Nil drops them.
	Bus func(media.Message)
}

// NewOptions returns options with the sink defaults: vsync on, aspect
// ratio kept, picture controls untouched.
func NewOptions() *Options {
	return &Options{
		VSync:      true,
		KeepAspect: true,
		Brightness: -1,
		Contrast:   -1,
		Hue:        -1,
		Saturation: -1,
	}
}

// Sink renders raw video frames onto a display layer or an external
// surface. It implements the Presentable, ColorBalanced and
// NavigationSource capabilities.
type Sink struct {
	opts Options

	mu sync.RWMutex

	device display.Device
	layer  display.Layer
	// primary is the drawable surface of the chosen layer.
	primary display.Surface
	// ext is the externally provided target surface, nil in layer mode.
	ext    display.Surface
	events display.EventBuffer

	running  atomic.Bool
	eventsWG sync.WaitGroup

	ready bool
	state media.State

	modes      []display.VideoMode
	hwScaling  bool
	backbuffer bool

	// format is the pixel format of the target surface.
	format pixel.Format

	// videoWidth and videoHeight are the raw geometry of the stream.
	videoWidth  int
	videoHeight int
	videoFormat pixel.Format

	// displayWidth and displayHeight are the geometry after pixel
	// aspect correction, what the frame occupies on screen.
	displayWidth  int
	displayHeight int

	// outWidth and outHeight are the geometry of the output surface.
	outWidth  int
	outHeight int

	framerate    media.Fraction
	interlaced   bool
	rowStride    int
	chromaOffset int

	pool bufferPool

	vsync      bool
	keepAspect bool
	par        media.Fraction
	window     display.Rect

	// announceFrame arms the one shot FrameRendered message.
	announceFrame bool

	brightness     int
	contrast       int
	hue            int
	saturation     int
	balanceChanged bool
	channels       []media.ColorChannel
}

var (
	_ media.Presentable      = (*Sink)(nil)
	_ media.ColorBalanced    = (*Sink)(nil)
	_ media.NavigationSource = (*Sink)(nil)
)

// New creates a sink from options. The sink holds no display resources
// until it leaves the null state.
func New(opts *Options) (*Sink, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if opts.Device == nil && opts.Surface == nil {
		return nil, ErrNoTarget
	}

	s := &Sink{
		opts:       *opts,
		device:     opts.Device,
		ext:        opts.Surface,
		vsync:      opts.VSync,
		keepAspect: opts.KeepAspect,
		par:        opts.PixelAspect,
		window:     opts.Window,
		brightness: opts.Brightness,
		contrast:   opts.Contrast,
		hue:        opts.Hue,
		saturation: opts.Saturation,
		format:     pixel.Unknown,
	}
	if s.brightness >= 0 || s.contrast >= 0 || s.hue >= 0 || s.saturation >= 0 {
		s.balanceChanged = true
	}

	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"external":    s.ext != nil,
		"accelerated": opts.Accelerator != nil,
		"vsync":       s.vsync,
	}).Debug("Created video sink")
	return s, nil
}

// State returns the current lifecycle state.
func (s *Sink) State() media.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// VSync reports whether rendering waits for the vertical retrace.
func (s *Sink) VSync() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vsync
}

// SetVSync switches retrace waiting on or off.
func (s *Sink) SetVSync(enable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vsync = enable
}

// KeepAspect reports whether scaled video keeps its aspect ratio.
func (s *Sink) KeepAspect() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keepAspect
}

// SetKeepAspect switches letterboxing on or off.
func (s *Sink) SetKeepAspect(enable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepAspect = enable
}

// PixelAspect returns the configured display pixel aspect ratio.
// When unset it reads as square pixels.
func (s *Sink) PixelAspect() media.Fraction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.par.IsZero() {
		return media.Fraction{Num: 1, Den: 1}
	}
	return s.par
}

// SetPixelAspect declares the display pixel aspect ratio.
func (s *Sink) SetPixelAspect(par media.Fraction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.par = par
}

// SetPixelAspectString parses and applies a "num/den" aspect ratio.
// Unparseable values fall back to square pixels with a warning.
func (s *Sink) SetPixelAspectString(v string) {
	par, err := media.ParseFraction(v)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SetPixelAspectString",
			"value":    v,
		}).Warn("Could not parse pixel aspect ratio, assuming 1/1")
		par = media.Fraction{Num: 1, Den: 1}
	}
	s.SetPixelAspect(par)
}

// Window returns the render region within the target surface.
func (s *Sink) Window() display.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// SetWindow restricts rendering to a region of the target surface.
// Zero width or height selects the full surface once the sink is set
// up.
func (s *Sink) SetWindow(r display.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = r
}

// SupportsStride reports whether upstream may hand in buffers with
// padded rows. Without an accelerator the sink needs tightly packed
// frames.
func (s *Sink) SupportsStride() bool {
	return s.opts.Accelerator != nil
}

// post delivers an element message to the bus callback.
func (s *Sink) post(msg media.Message) {
	if s.opts.Bus == nil {
		return
	}
	msg.Source = "vidsink"
	s.opts.Bus(msg)
}

// postError delivers a fatal element error to the bus callback.
func (s *Sink) postError(err error, text string) {
	logrus.WithFields(logrus.Fields{
		"function": "postError",
		"error":    err,
	}).Error(text)
	s.post(media.Message{Kind: media.MessageError, Text: text, Err: err})
}
