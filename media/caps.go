package media

import (
	"fmt"
	"math"

	"github.com/opd-ai/vidsink/pixel"
)

// ColorModel discriminates the two families of raw video descriptors.
type ColorModel int

const (
	// ModelRGB describes packed RGB video by bit masks.
	ModelRGB ColorModel = iota + 1
	// ModelYUV describes YCbCr video by its four character code.
	ModelYUV
)

// Descriptor is the transport level description of a raw pixel layout,
// the form in which upstream elements advertise video. RGB layouts are
// described by component masks, YUV layouts by four character codes.
type Descriptor struct {
	Model        ColorModel
	BitsPerPixel int
	Depth        int
	RedMask      uint32
	GreenMask    uint32
	BlueMask     uint32
	AlphaMask    uint32
	FourCC       string
}

// Format maps the descriptor onto a native pixel format. Unmapped
// descriptors return pixel.Unknown.
func (d Descriptor) Format() pixel.Format {
	switch d.Model {
	case ModelRGB:
		rgb888 := d.RedMask == 0xFF0000 && d.GreenMask == 0x00FF00 && d.BlueMask == 0x0000FF
		switch {
		case d.BitsPerPixel == 16 && d.Depth == 16 &&
			d.RedMask == 0xF800 && d.GreenMask == 0x07E0 && d.BlueMask == 0x001F:
			return pixel.RGB16
		case d.BitsPerPixel == 24 && d.Depth == 24 && rgb888:
			return pixel.RGB24
		case d.BitsPerPixel == 32 && d.Depth == 24 && rgb888:
			return pixel.RGB32
		case d.BitsPerPixel == 32 && d.Depth == 32 && rgb888 && d.AlphaMask == 0xFF000000:
			return pixel.ARGB
		}
	case ModelYUV:
		if f := pixel.Parse(d.FourCC); f.IsYUV() {
			return f
		}
	}
	return pixel.Unknown
}

func (d Descriptor) String() string {
	if d.Model == ModelYUV {
		return fmt.Sprintf("YUV %s", d.FourCC)
	}
	return fmt.Sprintf("RGB %d/%d", d.BitsPerPixel, d.Depth)
}

// DescriptorFor builds the descriptor advertising a native pixel
// format. The second return value is false for formats that cannot be
// described.
func DescriptorFor(f pixel.Format) (Descriptor, bool) {
	switch f {
	case pixel.RGB16:
		return Descriptor{
			Model: ModelRGB, BitsPerPixel: 16, Depth: 16,
			RedMask: 0xF800, GreenMask: 0x07E0, BlueMask: 0x001F,
		}, true
	case pixel.RGB24:
		return Descriptor{
			Model: ModelRGB, BitsPerPixel: 24, Depth: 24,
			RedMask: 0xFF0000, GreenMask: 0x00FF00, BlueMask: 0x0000FF,
		}, true
	case pixel.RGB32:
		return Descriptor{
			Model: ModelRGB, BitsPerPixel: 32, Depth: 24,
			RedMask: 0xFF0000, GreenMask: 0x00FF00, BlueMask: 0x0000FF,
		}, true
	case pixel.ARGB:
		return Descriptor{
			Model: ModelRGB, BitsPerPixel: 32, Depth: 32,
			RedMask: 0xFF0000, GreenMask: 0x00FF00, BlueMask: 0x0000FF, AlphaMask: 0xFF000000,
		}, true
	case pixel.YUY2, pixel.UYVY, pixel.I420, pixel.YV12, pixel.NV12, pixel.NV16:
		return Descriptor{Model: ModelYUV, FourCC: f.String()}, true
	default:
		return Descriptor{}, false
	}
}

// FieldLayout tells how the fields of interlaced video are stored in a
// buffer.
type FieldLayout int

const (
	// FieldLayoutNone means progressive content.
	FieldLayoutNone FieldLayout = iota
	// FieldLayoutSequential stores the top field rows followed by the
	// bottom field rows.
	FieldLayoutSequential
	// FieldLayoutInterleaved stores fields woven row by row.
	FieldLayoutInterleaved
)

// Caps is a fully fixed description of a video stream.
type Caps struct {
	Desc      Descriptor
	Width     int
	Height    int
	Framerate Fraction

	// PixelAspect is the pixel aspect ratio. Zero means unspecified.
	PixelAspect Fraction

	Interlaced  bool
	FieldLayout FieldLayout

	// RowStride is the byte pitch of buffer rows when the producer
	// pads them. Zero means tightly packed.
	RowStride int

	// ChromaOffset is the byte offset of the chroma plane inside
	// buffers. Zero means derived from the geometry.
	ChromaOffset int
}

// CapsFor builds progressive caps for a native pixel format.
func CapsFor(f pixel.Format, width, height int, framerate Fraction) (Caps, error) {
	desc, ok := DescriptorFor(f)
	if !ok {
		return Caps{}, fmt.Errorf("no descriptor for format %s", f)
	}
	return Caps{Desc: desc, Width: width, Height: height, Framerate: framerate}, nil
}

// Format maps the caps onto a native pixel format.
func (c Caps) Format() pixel.Format {
	return c.Desc.Format()
}

// Complete reports whether geometry and framerate are all present.
func (c Caps) Complete() bool {
	return c.Width > 0 && c.Height > 0 && c.Framerate.Valid()
}

func (c Caps) String() string {
	return fmt.Sprintf("%dx%d %s @%s", c.Width, c.Height, c.Desc, c.Framerate)
}

// FullRange spans every usable dimension.
var FullRange = IntRange{Min: 1, Max: math.MaxInt32}

// FullFramerateRange spans every usable framerate including still
// images at 0/1.
var FullFramerateRange = FractionRange{
	Min: Fraction{Num: 0, Den: 1},
	Max: Fraction{Num: math.MaxInt32, Den: 1},
}

// FormatCaps advertises one pixel layout together with the geometry
// and framerate ranges a sink accepts for it.
type FormatCaps struct {
	Desc      Descriptor
	Width     IntRange
	Height    IntRange
	Framerate FractionRange

	// PixelAspect pins the pixel aspect ratio when nonzero.
	PixelAspect Fraction
}

// Accepts reports whether fixed caps fall inside this advertisement.
func (fc FormatCaps) Accepts(c Caps) bool {
	if fc.Desc != c.Desc {
		return false
	}
	if !fc.Width.Contains(c.Width) || !fc.Height.Contains(c.Height) {
		return false
	}
	if !fc.Framerate.Contains(c.Framerate) {
		return false
	}
	if !fc.PixelAspect.IsZero() && !c.PixelAspect.IsZero() && !fc.PixelAspect.Equal(c.PixelAspect) {
		return false
	}
	return true
}
