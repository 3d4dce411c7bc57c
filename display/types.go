package display

import (
	"fmt"

	"github.com/opd-ai/vidsink/pixel"
)

// Rect is a rectangular region on a surface, in pixels.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
}

// VideoMode is one display resolution the device can switch to.
type VideoMode struct {
	Width  int
	Height int
	Depth  int
}

func (m VideoMode) String() string {
	return fmt.Sprintf("%dx%d@%d", m.Width, m.Height, m.Depth)
}

// LayerID identifies a display layer on a device.
type LayerID int

// PrimaryLayer is the identifier of the device's primary layer.
const PrimaryLayer LayerID = 0

// LayerType is a bit mask describing what a layer is meant to show.
type LayerType uint32

const (
	// LayerGraphics marks a general purpose graphics layer.
	LayerGraphics LayerType = 1 << iota
	// LayerVideo marks a layer designed for moving video content.
	LayerVideo
)

// LayerCaps is a bit mask of the capabilities a display layer offers.
type LayerCaps uint32

const (
	// LayerCapSurface means the layer has a drawable surface.
	LayerCapSurface LayerCaps = 1 << iota
	// LayerCapBrightness means the layer supports brightness adjustment.
	LayerCapBrightness
	// LayerCapContrast means the layer supports contrast adjustment.
	LayerCapContrast
	// LayerCapHue means the layer supports hue adjustment.
	LayerCapHue
	// LayerCapSaturation means the layer supports saturation adjustment.
	LayerCapSaturation
)

// LayerDescription holds the static properties of a display layer.
type LayerDescription struct {
	Name string
	Type LayerType
	Caps LayerCaps
}

// LayerInfo pairs a layer identifier with its description during
// enumeration.
type LayerInfo struct {
	ID          LayerID
	Description LayerDescription
}

// BufferMode tells how many buffers back a layer surface and where they
// live.
type BufferMode uint32

const (
	// BufferModeFrontOnly is a single visible buffer, no flipping.
	BufferModeFrontOnly BufferMode = 1 << iota
	// BufferModeBackVideo adds a back buffer in video memory.
	BufferModeBackVideo
	// BufferModeBackSystem adds a back buffer in system memory.
	BufferModeBackSystem
	// BufferModeTriple adds two back buffers in video memory.
	BufferModeTriple
)

// DoubleBuffered reports whether the mode includes at least one back
// buffer, which makes Flip meaningful.
func (m BufferMode) DoubleBuffered() bool {
	return m&(BufferModeBackVideo|BufferModeBackSystem|BufferModeTriple) != 0
}

// SurfaceCaps is a bit mask of the capabilities of a surface.
type SurfaceCaps uint32

const (
	// SurfaceCapFlipping means the surface has front and back buffers.
	SurfaceCapFlipping SurfaceCaps = 1 << iota
	// SurfaceCapDouble means the surface is double buffered.
	SurfaceCapDouble
	// SurfaceCapTriple means the surface is triple buffered.
	SurfaceCapTriple
)

// Flipping reports whether the caps include any back buffer.
func (c SurfaceCaps) Flipping() bool {
	return c&(SurfaceCapFlipping|SurfaceCapDouble|SurfaceCapTriple) != 0
}

// AccelMask is a bit mask of the drawing operations a device can
// accelerate.
type AccelMask uint32

const (
	// AccelBlit marks accelerated plain blits.
	AccelBlit AccelMask = 1 << iota
	// AccelStretchBlit marks accelerated scaling blits.
	AccelStretchBlit
)

// BlitFlags select how pixels are combined during blits.
type BlitFlags uint32

// BlitNoFX copies source pixels as they are.
const BlitNoFX BlitFlags = 0

const (
	// BlitAlphaBlend blends the source over the destination using the
	// source alpha channel.
	BlitAlphaBlend BlitFlags = 1 << iota
)

// FlipFlags select how a surface flip is timed.
type FlipFlags uint32

// FlipNone flips immediately.
const FlipNone FlipFlags = 0

const (
	// FlipOnSync flips on the next vertical retrace.
	FlipOnSync FlipFlags = 1 << iota
)

// AccessLevel is the cooperative level a client holds on a layer.
type AccessLevel int

const (
	// AccessShared leaves the layer usable by other clients.
	AccessShared AccessLevel = iota
	// AccessExclusive takes over the layer for this client alone.
	AccessExclusive
	// AccessAdministrative additionally allows mode switching.
	AccessAdministrative
)

// ColorFlags is a bit mask naming which fields of a ColorAdjustment are
// meaningful.
type ColorFlags uint32

const (
	// ColorBrightness selects the Brightness field.
	ColorBrightness ColorFlags = 1 << iota
	// ColorContrast selects the Contrast field.
	ColorContrast
	// ColorHue selects the Hue field.
	ColorHue
	// ColorSaturation selects the Saturation field.
	ColorSaturation
)

// ColorAdjustment carries layer color controls. Values range from 0 to
// 0xFFFF with 0x8000 as the neutral midpoint.
type ColorAdjustment struct {
	Flags      ColorFlags
	Brightness int
	Contrast   int
	Hue        int
	Saturation int
}

// LayerConfig is the current configuration of a display layer.
type LayerConfig struct {
	Width       int
	Height      int
	Format      pixel.Format
	BufferMode  BufferMode
	SurfaceCaps SurfaceCaps
}

// SurfaceDescription tells CreateSurface what to allocate.
type SurfaceDescription struct {
	Width  int
	Height int
	Format pixel.Format
	Caps   SurfaceCaps
}

// DeviceDescription holds the static properties of a display device.
type DeviceDescription struct {
	Name         string
	Vendor       string
	VideoMemory  int
	Acceleration AccelMask
}

// InputDeviceInfo describes one input device attached to the display.
type InputDeviceInfo struct {
	ID   int
	Name string
}
