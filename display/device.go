// Package display abstracts the output device the video sink renders
// to: a device exposing layers, surfaces, video modes and input events.
//
// The interfaces follow the shape of embedded display systems where the
// client takes exclusive control of a hardware layer and draws frames
// straight into its surface. Two implementations ship with this module:
// the pure software device in this package, backed by plain memory
// surfaces, and the windowed device in the display/window subpackage.
package display

import (
	"time"

	"github.com/opd-ai/vidsink/pixel"
)

// Device is an open handle on a display system.
type Device interface {
	// Description returns the static properties of the device,
	// including its acceleration capabilities.
	Description() DeviceDescription

	// Modes lists the video modes the device can switch to.
	Modes() []VideoMode

	// SetVideoMode switches the output resolution. The primary layer
	// follows the new mode.
	SetVideoMode(width, height, depth int) error

	// Layers enumerates the display layers of the device.
	Layers() []LayerInfo

	// Layer returns a handle on one display layer.
	Layer(id LayerID) (Layer, error)

	// CreateSurface allocates an offscreen surface.
	CreateSurface(desc SurfaceDescription) (Surface, error)

	// CreateEventBuffer creates an empty input event queue. Input
	// devices deliver into it once attached.
	CreateEventBuffer() (EventBuffer, error)

	// Inputs lists the input devices of the display system.
	Inputs() []InputDevice

	// Close releases the device and everything created from it.
	Close() error
}

// Layer is a handle on one display layer of a device.
type Layer interface {
	// ID returns the layer identifier.
	ID() LayerID

	// Description returns the static properties of the layer.
	Description() LayerDescription

	// SetAccess changes the cooperative level held on the layer.
	// Exclusive access is required before reconfiguring it.
	SetAccess(level AccessLevel) error

	// Config returns the current layer configuration.
	Config() LayerConfig

	// SetPixelFormat reconfigures the pixel format of the layer
	// surface.
	SetPixelFormat(f pixel.Format) error

	// TestPixelFormat checks whether the layer could be configured
	// with the given pixel format, without applying it.
	TestPixelFormat(f pixel.Format) error

	// SetBufferMode reconfigures the buffering of the layer surface.
	SetBufferMode(mode BufferMode, caps SurfaceCaps) error

	// Surface returns the drawable surface of the layer. The handle
	// stays valid across reconfigurations.
	Surface() (Surface, error)

	// SetBackground sets the color shown where no content is drawn.
	SetBackground(r, g, b, a uint8) error

	// EnableCursor shows or hides the pointer cursor on the layer.
	EnableCursor(enable bool) error

	// ColorAdjustment returns the current color controls of the layer.
	ColorAdjustment() (ColorAdjustment, error)

	// SetColorAdjustment applies the color controls selected by the
	// adjustment flags.
	SetColorAdjustment(adj ColorAdjustment) error

	// WaitForSync blocks until the next vertical retrace.
	WaitForSync() error

	// Close releases the layer handle.
	Close() error
}

// Surface is a drawable pixel buffer, either a layer surface or an
// offscreen allocation.
type Surface interface {
	// Size returns the surface geometry in pixels.
	Size() (width, height int)

	// PixelFormat returns the pixel format of the surface.
	PixelFormat() pixel.Format

	// Capabilities returns the capability mask of the surface.
	Capabilities() SurfaceCaps

	// Lock maps the surface pixels for CPU access and returns the
	// pixel bytes together with the row pitch in bytes. On double
	// buffered surfaces the mapping addresses the back buffer.
	Lock() (data []byte, pitch int, err error)

	// Unlock releases a mapping obtained with Lock.
	Unlock() error

	// Clear fills the whole surface with one color.
	Clear(r, g, b, a uint8) error

	// SubSurface returns a view on a region of the surface sharing the
	// same pixels. The region is clipped to the surface bounds.
	SubSurface(region Rect) (Surface, error)

	// Blit copies pixels from src without scaling. A nil srcRect
	// selects the whole source.
	Blit(src Surface, srcRect *Rect, x, y int) error

	// StretchBlit copies pixels from src scaling them to dstRect. Nil
	// rectangles select whole surfaces.
	StretchBlit(src Surface, srcRect, dstRect *Rect) error

	// SetBlitFlags selects how subsequent blits combine pixels.
	SetBlitFlags(flags BlitFlags) error

	// AccelerationMask reports which blit operations from src onto
	// this surface the device would accelerate.
	AccelerationMask(src Surface) (AccelMask, error)

	// Flip makes the back buffer visible. Surfaces without a back
	// buffer ignore the call.
	Flip(flags FlipFlags) error

	// Close releases the surface.
	Close() error
}

// EventBuffer is a queue of input events.
type EventBuffer interface {
	// WaitEvent blocks up to timeout for the next event. The second
	// return value is false when the timeout expired with no event.
	WaitEvent(timeout time.Duration) (InputEvent, bool, error)

	// PostEvent appends an event to the queue.
	PostEvent(ev InputEvent) error

	// Close shuts the queue down and wakes pending waiters.
	Close() error
}

// InputDevice is one source of input events.
type InputDevice interface {
	// Info describes the device.
	Info() InputDeviceInfo

	// Attach subscribes an event buffer to this device's events.
	Attach(buf EventBuffer) error
}
