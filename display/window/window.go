// Package window presents a software display device in a desktop
// window. The sink renders into the device's primary layer exactly as
// it would on dedicated hardware; the window loop uploads the visible
// layer pixels to the GPU each frame and feeds keyboard and mouse
// input back through the device's input queues.
package window

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/pixel"
)

// Config configures the window a Device opens.
type Config struct {
	// Title is the window title, "vidsink" when empty.
	Title string

	// Width and Height set the initial layer geometry in pixels,
	// 640x480 when zero. The layer follows later mode switches.
	Width  int
	Height int

	// Scale multiplies the layer size into window pixels, minimum 1.
	Scale int

	// Fullscreen opens the window covering the whole screen.
	Fullscreen bool
}

// Device is a display.Device whose primary layer is shown in a desktop
// window. Drawing goes through the embedded software device; the
// window loop only reads the finished frames, so every surface
// operation behaves exactly as it does headless.
type Device struct {
	*display.SoftwareDevice

	mu      sync.Mutex
	cfg     Config
	viewW   int
	viewH   int
	lastX   int
	lastY   int
	tracked bool
	loopErr error

	// Owned by the game loop goroutine.
	snap  display.Snapshot
	rgba  []byte
	frame *ebiten.Image

	running atomic.Bool
	ready   sync.Once
	first   chan struct{}
	done    chan struct{}
}

// Open creates the backing device and starts the window loop. It
// returns once the first frame is on screen, so callers can hand the
// device to a sink immediately.
func Open(cfg Config) (*Device, error) {
	if cfg.Title == "" {
		cfg.Title = "vidsink"
	}
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}

	dev, err := display.NewSoftwareDevice(display.SoftwareConfig{
		Name:   "Desktop Window",
		Vendor: "vidsink",
		Modes:  windowModes(cfg.Width, cfg.Height),
		Layers: []display.SoftwareLayerConfig{{
			Name:    "window",
			Type:    display.LayerGraphics | display.LayerVideo,
			Caps:    display.LayerCapSurface | display.LayerCapBrightness | display.LayerCapContrast | display.LayerCapHue | display.LayerCapSaturation,
			Width:   cfg.Width,
			Height:  cfg.Height,
			Format:  pixel.RGB32,
			Mode:    display.BufferModeBackSystem,
			Formats: []pixel.Format{pixel.RGB32, pixel.ARGB},
		}},
		Acceleration:       display.AccelBlit | display.AccelStretchBlit,
		AcceleratedFormats: []pixel.Format{pixel.RGB32, pixel.ARGB},
	})
	if err != nil {
		return nil, fmt.Errorf("opening backing device: %w", err)
	}

	d := &Device{
		SoftwareDevice: dev,
		cfg:            cfg,
		viewW:          cfg.Width,
		viewH:          cfg.Height,
		first:          make(chan struct{}),
		done:           make(chan struct{}),
	}
	d.running.Store(true)

	ebiten.SetWindowSize(cfg.Width*cfg.Scale, cfg.Height*cfg.Scale)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	if cfg.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	go func() {
		err := ebiten.RunGame(d)
		if err != nil && !errors.Is(err, ebiten.Termination) {
			logrus.WithFields(logrus.Fields{
				"function": "Open",
				"error":    err.Error(),
			}).Error("Window loop terminated")
		}
		d.mu.Lock()
		d.loopErr = err
		d.mu.Unlock()
		d.running.Store(false)
		close(d.done)
	}()

	// Wait for the first frame so callers see a live window.
	select {
	case <-d.first:
	case <-d.done:
		dev.Close()
		d.mu.Lock()
		err := d.loopErr
		d.mu.Unlock()
		if err == nil || errors.Is(err, ebiten.Termination) {
			err = errors.New("window closed before the first frame")
		}
		return nil, fmt.Errorf("opening window: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"title":    cfg.Title,
		"size":     fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"scale":    cfg.Scale,
	}).Info("Opened video window")
	return d, nil
}

// windowModes builds the mode list with the requested geometry first so
// it becomes the initial mode.
func windowModes(w, h int) []display.VideoMode {
	modes := []display.VideoMode{{Width: w, Height: h, Depth: 32}}
	for _, m := range []display.VideoMode{
		{640, 480, 32},
		{800, 600, 32},
		{1024, 768, 32},
		{1280, 720, 32},
		{1920, 1080, 32},
	} {
		if m.Width != w || m.Height != h {
			modes = append(modes, m)
		}
	}
	return modes
}

// Done is closed once the window loop has exited, whether through
// Close or the user closing the window.
func (d *Device) Done() <-chan struct{} {
	return d.done
}

// Close stops the window loop, waits for it to exit and releases the
// backing device.
func (d *Device) Close() error {
	d.running.Store(false)
	<-d.done
	logrus.WithFields(logrus.Fields{
		"function": "Close",
	}).Info("Closed video window")
	return d.SoftwareDevice.Close()
}

// Update polls input and handles window close requests. The game loop
// calls it at the tick rate.
func (d *Device) Update() error {
	if !d.running.Load() {
		return ebiten.Termination
	}
	if ebiten.IsWindowBeingClosed() {
		// Deliver the close as an Escape press so event driven
		// clients shut down before the loop stops.
		d.Inject(display.InputEvent{Type: display.EventKeyPress, Key: display.KeyEscape})
		d.running.Store(false)
		return ebiten.Termination
	}
	d.pollKeyboard()
	d.pollPointer()
	d.followLayerSize()
	return nil
}

var keymap = []struct {
	eb  ebiten.Key
	key display.Key
}{
	{ebiten.KeyEscape, display.KeyEscape},
	{ebiten.KeyEnter, display.KeyReturn},
	{ebiten.KeyNumpadEnter, display.KeyReturn},
	{ebiten.KeySpace, display.KeySpace},
	{ebiten.KeyArrowLeft, display.KeyLeft},
	{ebiten.KeyArrowRight, display.KeyRight},
	{ebiten.KeyArrowUp, display.KeyUp},
	{ebiten.KeyArrowDown, display.KeyDown},
}

func (d *Device) pollKeyboard() {
	for _, m := range keymap {
		if inpututil.IsKeyJustPressed(m.eb) {
			d.Inject(display.InputEvent{Type: display.EventKeyPress, Key: m.key})
		}
		if inpututil.IsKeyJustReleased(m.eb) {
			d.Inject(display.InputEvent{Type: display.EventKeyRelease, Key: m.key})
		}
	}
}

var mousemap = []struct {
	eb  ebiten.MouseButton
	num int
}{
	{ebiten.MouseButtonLeft, 1},
	{ebiten.MouseButtonMiddle, 2},
	{ebiten.MouseButtonRight, 3},
}

// pollPointer forwards mouse state as motion and button events. Cursor
// coordinates arrive in layout space, which Layout pins to the layer
// geometry, so no rescaling is needed.
func (d *Device) pollPointer() {
	x, y := ebiten.CursorPosition()
	d.mu.Lock()
	moved := !d.tracked || x != d.lastX || y != d.lastY
	d.lastX, d.lastY = x, y
	d.tracked = true
	d.mu.Unlock()
	if moved {
		d.Inject(display.InputEvent{Type: display.EventMotion, X: x, Y: y})
	}
	for _, m := range mousemap {
		if inpututil.IsMouseButtonJustPressed(m.eb) {
			d.Inject(display.InputEvent{Type: display.EventButtonPress, Button: m.num, X: x, Y: y})
		}
		if inpututil.IsMouseButtonJustReleased(m.eb) {
			d.Inject(display.InputEvent{Type: display.EventButtonRelease, Button: m.num, X: x, Y: y})
		}
	}
}

// followLayerSize resizes the window after a mode switch moved the
// primary layer to a new geometry.
func (d *Device) followLayerSize() {
	layer, err := d.Layer(display.PrimaryLayer)
	if err != nil {
		return
	}
	cfg := layer.Config()
	d.mu.Lock()
	changed := cfg.Width != d.viewW || cfg.Height != d.viewH
	if changed {
		d.viewW, d.viewH = cfg.Width, cfg.Height
	}
	scale := d.cfg.Scale
	fullscreen := d.cfg.Fullscreen
	d.mu.Unlock()
	if changed && !fullscreen {
		ebiten.SetWindowSize(cfg.Width*scale, cfg.Height*scale)
	}
}

// Draw uploads the visible layer pixels to the screen.
func (d *Device) Draw(screen *ebiten.Image) {
	d.present(screen)
	d.ready.Do(func() { close(d.first) })
}

func (d *Device) present(screen *ebiten.Image) {
	snap, err := d.SoftwareDevice.Snapshot(display.PrimaryLayer, d.snap)
	if err != nil {
		return
	}
	d.snap = snap
	if snap.Width <= 0 || snap.Height <= 0 || snap.Pitch < snap.Width*4 {
		return
	}
	if d.frame != nil {
		if w, h := d.frame.Bounds().Dx(), d.frame.Bounds().Dy(); w != snap.Width || h != snap.Height {
			d.frame.Dispose()
			d.frame = nil
		}
	}
	if d.frame == nil {
		d.frame = ebiten.NewImage(snap.Width, snap.Height)
	}
	d.rgba = appendRGBA(d.rgba[:0], snap)
	d.frame.WritePixels(d.rgba)
	screen.DrawImage(d.frame, nil)
}

// appendRGBA converts a captured frame to the byte order the texture
// upload expects. Both accepted layer formats store blue first.
func appendRGBA(dst []byte, snap display.Snapshot) []byte {
	opaque := snap.Format != pixel.ARGB
	for y := 0; y < snap.Height; y++ {
		row := snap.Pixels[y*snap.Pitch:]
		for x := 0; x < snap.Width; x++ {
			px := row[x*4 : x*4+4]
			a := px[3]
			if opaque {
				a = 0xFF
			}
			dst = append(dst, px[2], px[1], px[0], a)
		}
	}
	return dst
}

// Layout pins the logical screen to the layer geometry so the GPU
// scales the frame to whatever size the window has.
func (d *Device) Layout(outsideWidth, outsideHeight int) (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewW, d.viewH
}
