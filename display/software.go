package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/pixel"
)

// SoftwareConfig configures a software display device.
//
// The zero value yields a single primary layer with a small set of
// common video modes and no advertised acceleration. An acceleration
// mask can be set so clients exercise their accelerated negotiation
// paths; the blits themselves always run on the CPU.
type SoftwareConfig struct {
	Name        string
	Vendor      string
	VideoMemory int

	// Modes lists the selectable video modes. The first one is the
	// initial mode.
	Modes []VideoMode

	// Layers describes the display layers. Empty means one primary
	// graphics layer with full color controls.
	Layers []SoftwareLayerConfig

	// Acceleration is the operation mask the device advertises.
	Acceleration AccelMask

	// AcceleratedFormats limits the advertised acceleration to these
	// source formats. Empty means all formats.
	AcceleratedFormats []pixel.Format

	// RefreshRate is the emulated vertical refresh in Hz, default 60.
	RefreshRate int
}

// SoftwareLayerConfig describes one layer of a software device.
type SoftwareLayerConfig struct {
	Name   string
	Type   LayerType
	Caps   LayerCaps
	Width  int
	Height int
	Format pixel.Format
	Mode   BufferMode

	// Formats limits the pixel formats the layer accepts. Empty means
	// every known format.
	Formats []pixel.Format
}

// SoftwareDevice is a Device rendering into plain memory. It backs
// tests, headless operation and the windowed device.
type SoftwareDevice struct {
	mu     sync.Mutex
	cfg    SoftwareConfig
	desc   DeviceDescription
	layers []*softwareLayer
	inputs []*softwareInput
	mode   VideoMode
	closed bool
}

// NewSoftwareDevice opens a software display device.
func NewSoftwareDevice(cfg SoftwareConfig) (*SoftwareDevice, error) {
	if cfg.Name == "" {
		cfg.Name = "Software Rasterizer"
	}
	if cfg.Vendor == "" {
		cfg.Vendor = "vidsink"
	}
	if cfg.VideoMemory == 0 {
		cfg.VideoMemory = 64 << 20
	}
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = 60
	}
	if len(cfg.Modes) == 0 {
		cfg.Modes = []VideoMode{
			{640, 480, 32},
			{800, 600, 32},
			{1024, 768, 32},
			{1280, 720, 32},
			{1920, 1080, 32},
		}
	}
	if len(cfg.Layers) == 0 {
		cfg.Layers = []SoftwareLayerConfig{{
			Name:   "primary",
			Type:   LayerGraphics,
			Caps:   LayerCapSurface | LayerCapBrightness | LayerCapContrast | LayerCapHue | LayerCapSaturation,
			Width:  cfg.Modes[0].Width,
			Height: cfg.Modes[0].Height,
			Format: pixel.RGB32,
			Mode:   BufferModeFrontOnly,
		}}
	}

	d := &SoftwareDevice{
		cfg: cfg,
		desc: DeviceDescription{
			Name:         cfg.Name,
			Vendor:       cfg.Vendor,
			VideoMemory:  cfg.VideoMemory,
			Acceleration: cfg.Acceleration,
		},
		mode: cfg.Modes[0],
	}
	for i, lc := range cfg.Layers {
		layer, err := newSoftwareLayer(d, LayerID(i), lc)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		d.layers = append(d.layers, layer)
	}
	d.inputs = []*softwareInput{
		{info: InputDeviceInfo{ID: 0, Name: "keyboard"}},
		{info: InputDeviceInfo{ID: 1, Name: "pointer"}},
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewSoftwareDevice",
		"name":     cfg.Name,
		"layers":   len(d.layers),
		"modes":    len(cfg.Modes),
	}).Info("Opened software display device")
	return d, nil
}

func (d *SoftwareDevice) Description() DeviceDescription {
	return d.desc
}

func (d *SoftwareDevice) Modes() []VideoMode {
	modes := make([]VideoMode, len(d.cfg.Modes))
	copy(modes, d.cfg.Modes)
	return modes
}

func (d *SoftwareDevice) SetVideoMode(width, height, depth int) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	var mode *VideoMode
	for i := range d.cfg.Modes {
		m := d.cfg.Modes[i]
		if m.Width == width && m.Height == height && (depth == 0 || m.Depth == depth) {
			mode = &m
			break
		}
	}
	if mode == nil {
		d.mu.Unlock()
		return fmt.Errorf("%w: %dx%d@%d", ErrNoSuchMode, width, height, depth)
	}
	d.mode = *mode
	layers := d.layers
	d.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SetVideoMode",
		"mode":     mode.String(),
	}).Info("Switched video mode")

	// The primary layer follows the output resolution.
	for _, l := range layers {
		if l.id == PrimaryLayer {
			return l.resize(mode.Width, mode.Height)
		}
	}
	return nil
}

func (d *SoftwareDevice) Layers() []LayerInfo {
	infos := make([]LayerInfo, 0, len(d.layers))
	for _, l := range d.layers {
		infos = append(infos, LayerInfo{ID: l.id, Description: l.desc})
	}
	return infos
}

func (d *SoftwareDevice) Layer(id LayerID) (Layer, error) {
	for _, l := range d.layers {
		if l.id == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrNoSuchLayer, id)
}

func (d *SoftwareDevice) CreateSurface(desc SurfaceDescription) (Surface, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return NewMemorySurface(desc)
}

func (d *SoftwareDevice) CreateEventBuffer() (EventBuffer, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return NewEventBuffer(64), nil
}

func (d *SoftwareDevice) Inputs() []InputDevice {
	devices := make([]InputDevice, len(d.inputs))
	for i, in := range d.inputs {
		devices[i] = in
	}
	return devices
}

// Inject delivers a synthetic input event through the matching input
// device to every attached event buffer.
func (d *SoftwareDevice) Inject(ev InputEvent) {
	for _, in := range d.inputs {
		if in.handles(ev.Type) {
			in.deliver(ev)
		}
	}
}

// Snapshot is a copy of the visible content of a layer at one instant.
type Snapshot struct {
	Pixels []byte
	Pitch  int
	Width  int
	Height int
	Format pixel.Format
}

// Snapshot copies the visible pixels of a layer. Passing the previous
// snapshot back in reuses its pixel buffer when it is large enough, so
// a presentation loop only allocates after a reconfiguration.
func (d *SoftwareDevice) Snapshot(id LayerID, prev Snapshot) (Snapshot, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return Snapshot{}, ErrClosed
	}
	var layer *softwareLayer
	for _, l := range d.layers {
		if l.id == id {
			layer = l
			break
		}
	}
	if layer == nil {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrNoSuchLayer, id)
	}
	layer.mu.Lock()
	backing := layer.backing
	w, h, f := layer.cfg.Width, layer.cfg.Height, layer.cfg.Format
	layer.mu.Unlock()
	pixels, pitch := backing.Snapshot(prev.Pixels)
	return Snapshot{Pixels: pixels, Pitch: pitch, Width: w, Height: h, Format: f}, nil
}

func (d *SoftwareDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// accelerationFor returns the operations the device claims to
// accelerate for a given source format.
func (d *SoftwareDevice) accelerationFor(f pixel.Format) AccelMask {
	if len(d.cfg.AcceleratedFormats) == 0 {
		return d.cfg.Acceleration
	}
	for _, af := range d.cfg.AcceleratedFormats {
		if af == f {
			return d.cfg.Acceleration
		}
	}
	return 0
}

func (d *SoftwareDevice) refreshPeriod() time.Duration {
	return time.Second / time.Duration(d.cfg.RefreshRate)
}

// softwareLayer implements Layer over a MemorySurface that is recreated
// whenever the layer is reconfigured.
type softwareLayer struct {
	dev     *SoftwareDevice
	id      LayerID
	desc    LayerDescription
	accepts []pixel.Format

	mu         sync.Mutex
	cfg        LayerConfig
	access     AccessLevel
	adj        ColorAdjustment
	cursor     bool
	background [4]uint8
	backing    *MemorySurface
	handle     *layerSurface
}

func newSoftwareLayer(dev *SoftwareDevice, id LayerID, lc SoftwareLayerConfig) (*softwareLayer, error) {
	if lc.Width <= 0 || lc.Height <= 0 {
		lc.Width, lc.Height = dev.cfg.Modes[0].Width, dev.cfg.Modes[0].Height
	}
	if lc.Format == pixel.Unknown {
		lc.Format = pixel.RGB32
	}
	if lc.Mode == 0 {
		lc.Mode = BufferModeFrontOnly
	}
	l := &softwareLayer{
		dev:     dev,
		id:      id,
		desc:    LayerDescription{Name: lc.Name, Type: lc.Type, Caps: lc.Caps},
		accepts: lc.Formats,
		cfg: LayerConfig{
			Width:      lc.Width,
			Height:     lc.Height,
			Format:     lc.Format,
			BufferMode: lc.Mode,
		},
		adj: ColorAdjustment{
			Brightness: 0x8000,
			Contrast:   0x8000,
			Hue:        0x8000,
			Saturation: 0x8000,
		},
	}
	if lc.Mode.DoubleBuffered() {
		l.cfg.SurfaceCaps = SurfaceCapFlipping
	}
	if err := l.recreate(); err != nil {
		return nil, err
	}
	l.handle = &layerSurface{layer: l}
	return l, nil
}

// recreate replaces the backing surface to match the current config.
// Callers hold l.mu or have exclusive setup access.
func (l *softwareLayer) recreate() error {
	s, err := NewMemorySurface(SurfaceDescription{
		Width:  l.cfg.Width,
		Height: l.cfg.Height,
		Format: l.cfg.Format,
		Caps:   l.cfg.SurfaceCaps,
	})
	if err != nil {
		return err
	}
	l.backing = s
	return nil
}

func (l *softwareLayer) ID() LayerID {
	return l.id
}

func (l *softwareLayer) Description() LayerDescription {
	return l.desc
}

func (l *softwareLayer) SetAccess(level AccessLevel) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.access = level
	return nil
}

func (l *softwareLayer) Config() LayerConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

func (l *softwareLayer) acceptsFormat(f pixel.Format) bool {
	if f.BitsPerPixel() == 0 {
		return false
	}
	if len(l.accepts) == 0 {
		return true
	}
	for _, af := range l.accepts {
		if af == f {
			return true
		}
	}
	return false
}

func (l *softwareLayer) SetPixelFormat(f pixel.Format) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.acceptsFormat(f) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if f == l.cfg.Format {
		return nil
	}
	prev := l.cfg.Format
	l.cfg.Format = f
	if err := l.recreate(); err != nil {
		l.cfg.Format = prev
		return err
	}
	logrus.WithFields(logrus.Fields{
		"function": "SetPixelFormat",
		"layer":    l.id,
		"format":   f.String(),
	}).Debug("Reconfigured layer pixel format")
	return nil
}

func (l *softwareLayer) TestPixelFormat(f pixel.Format) error {
	if !l.acceptsFormat(f) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return nil
}

func (l *softwareLayer) SetBufferMode(mode BufferMode, caps SurfaceCaps) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.BufferMode = mode
	l.cfg.SurfaceCaps = caps
	if mode.DoubleBuffered() && !caps.Flipping() {
		l.cfg.SurfaceCaps |= SurfaceCapFlipping
	}
	return l.recreate()
}

func (l *softwareLayer) resize(w, h int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == l.cfg.Width && h == l.cfg.Height {
		return nil
	}
	l.cfg.Width, l.cfg.Height = w, h
	return l.recreate()
}

func (l *softwareLayer) Surface() (Surface, error) {
	return l.handle, nil
}

func (l *softwareLayer) SetBackground(r, g, b, a uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.background = [4]uint8{r, g, b, a}
	return nil
}

func (l *softwareLayer) EnableCursor(enable bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cursor = enable
	return nil
}

// colorFlags maps the layer capability bits onto adjustment flags.
func (l *softwareLayer) colorFlags() ColorFlags {
	var f ColorFlags
	if l.desc.Caps&LayerCapBrightness != 0 {
		f |= ColorBrightness
	}
	if l.desc.Caps&LayerCapContrast != 0 {
		f |= ColorContrast
	}
	if l.desc.Caps&LayerCapHue != 0 {
		f |= ColorHue
	}
	if l.desc.Caps&LayerCapSaturation != 0 {
		f |= ColorSaturation
	}
	return f
}

func (l *softwareLayer) ColorAdjustment() (ColorAdjustment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	adj := l.adj
	adj.Flags = l.colorFlags()
	return adj, nil
}

func (l *softwareLayer) SetColorAdjustment(adj ColorAdjustment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if adj.Flags&ColorBrightness != 0 {
		l.adj.Brightness = clampColor(adj.Brightness)
	}
	if adj.Flags&ColorContrast != 0 {
		l.adj.Contrast = clampColor(adj.Contrast)
	}
	if adj.Flags&ColorHue != 0 {
		l.adj.Hue = clampColor(adj.Hue)
	}
	if adj.Flags&ColorSaturation != 0 {
		l.adj.Saturation = clampColor(adj.Saturation)
	}
	return nil
}

func clampColor(v int) int {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return v
}

func (l *softwareLayer) WaitForSync() error {
	period := l.dev.refreshPeriod()
	elapsed := time.Duration(time.Now().UnixNano()) % period
	time.Sleep(period - elapsed)
	return nil
}

func (l *softwareLayer) Close() error {
	return nil
}

// layerSurface is the stable surface handle of a software layer. It
// follows the layer's backing across reconfigurations, the way a
// primary surface tracks mode switches.
type layerSurface struct {
	layer *softwareLayer
}

func (s *layerSurface) backing() *MemorySurface {
	s.layer.mu.Lock()
	defer s.layer.mu.Unlock()
	return s.layer.backing
}

func (s *layerSurface) Size() (int, int) {
	return s.backing().Size()
}

func (s *layerSurface) PixelFormat() pixel.Format {
	return s.backing().PixelFormat()
}

func (s *layerSurface) Capabilities() SurfaceCaps {
	return s.backing().Capabilities()
}

func (s *layerSurface) Lock() ([]byte, int, error) {
	return s.backing().Lock()
}

func (s *layerSurface) Unlock() error {
	return s.backing().Unlock()
}

func (s *layerSurface) Clear(r, g, b, a uint8) error {
	return s.backing().Clear(r, g, b, a)
}

func (s *layerSurface) SubSurface(region Rect) (Surface, error) {
	return s.backing().SubSurface(region)
}

func (s *layerSurface) Blit(src Surface, srcRect *Rect, x, y int) error {
	return s.backing().Blit(src, srcRect, x, y)
}

func (s *layerSurface) StretchBlit(src Surface, srcRect, dstRect *Rect) error {
	return s.backing().StretchBlit(src, srcRect, dstRect)
}

func (s *layerSurface) SetBlitFlags(flags BlitFlags) error {
	return s.backing().SetBlitFlags(flags)
}

func (s *layerSurface) AccelerationMask(src Surface) (AccelMask, error) {
	f := s.PixelFormat()
	if src != nil {
		f = src.PixelFormat()
	}
	return s.layer.dev.accelerationFor(f), nil
}

func (s *layerSurface) Flip(flags FlipFlags) error {
	if flags&FlipOnSync != 0 {
		if err := s.layer.WaitForSync(); err != nil {
			return err
		}
	}
	return s.backing().Flip(flags)
}

func (s *layerSurface) Close() error {
	return nil
}

// softwareInput is a synthetic input device fanning events out to its
// attached buffers.
type softwareInput struct {
	info  InputDeviceInfo
	mu    sync.Mutex
	sinks []EventBuffer
}

func (in *softwareInput) Info() InputDeviceInfo {
	return in.info
}

func (in *softwareInput) Attach(buf EventBuffer) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.sinks = append(in.sinks, buf)
	return nil
}

func (in *softwareInput) handles(t EventType) bool {
	switch t {
	case EventKeyPress, EventKeyRelease:
		return in.info.Name == "keyboard"
	default:
		return in.info.Name == "pointer"
	}
}

func (in *softwareInput) deliver(ev InputEvent) {
	in.mu.Lock()
	sinks := make([]EventBuffer, len(in.sinks))
	copy(sinks, in.sinks)
	in.mu.Unlock()
	for _, buf := range sinks {
		if err := buf.PostEvent(ev); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "deliver",
				"device":   in.info.Name,
				"error":    err,
			}).Debug("Dropping input event")
		}
	}
}
