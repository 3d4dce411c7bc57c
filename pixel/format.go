// Package pixel defines the pixel formats handled by the video sink and
// the arithmetic that goes with them: bytes per row, frame sizes and the
// plane layout of the planar YUV formats.
package pixel

import "fmt"

// Format identifies the memory layout of raw video pixels.
type Format int

const (
	// Unknown marks an unmapped or unsupported pixel layout.
	Unknown Format = iota
	// RGB16 is packed RGB with 5 bits red, 6 green, 5 blue (16 bpp).
	RGB16
	// RGB24 is packed RGB with 8 bits per component (24 bpp).
	RGB24
	// RGB32 is packed RGB in a 32 bit word with 8 unused bits.
	RGB32
	// ARGB is packed RGB with an 8 bit alpha channel (32 bpp).
	ARGB
	// YUY2 is packed YUV 4:2:2 ordered Y0 U Y1 V.
	YUY2
	// UYVY is packed YUV 4:2:2 ordered U Y0 V Y1.
	UYVY
	// I420 is planar YUV 4:2:0 with a U plane followed by a V plane.
	I420
	// YV12 is planar YUV 4:2:0 with a V plane followed by a U plane.
	YV12
	// NV12 is planar YUV 4:2:0 with an interleaved UV plane.
	NV12
	// NV16 is planar YUV 4:2:2 with an interleaved UV plane.
	NV16
)

// Formats lists every format the sink knows about, in negotiation order.
func Formats() []Format {
	return []Format{RGB16, RGB24, RGB32, ARGB, YUY2, UYVY, I420, YV12, NV12, NV16}
}

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case RGB16:
		return "RGB16"
	case RGB24:
		return "RGB24"
	case RGB32:
		return "RGB32"
	case ARGB:
		return "ARGB"
	case YUY2:
		return "YUY2"
	case UYVY:
		return "UYVY"
	case I420:
		return "I420"
	case YV12:
		return "YV12"
	case NV12:
		return "NV12"
	case NV16:
		return "NV16"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Parse maps a conventional format name back to its Format value.
// Unrecognized names map to Unknown.
func Parse(name string) Format {
	for _, f := range Formats() {
		if f.String() == name {
			return f
		}
	}
	return Unknown
}

// BitsPerPixel returns the average number of bits one pixel occupies,
// counting subsampled chroma. Unknown returns 0.
func (f Format) BitsPerPixel() int {
	switch f {
	case RGB16, YUY2, UYVY, NV16:
		return 16
	case RGB24:
		return 24
	case RGB32, ARGB:
		return 32
	case I420, YV12, NV12:
		return 12
	default:
		return 0
	}
}

// Depth returns the number of meaningful color bits per pixel. It differs
// from BitsPerPixel for RGB32, whose top byte is padding.
func (f Format) Depth() int {
	if f == RGB32 {
		return 24
	}
	return f.BitsPerPixel()
}

// HasAlpha reports whether the format carries an alpha channel.
func (f Format) HasAlpha() bool {
	return f == ARGB
}

// IsYUV reports whether the format stores YCbCr samples rather than RGB.
func (f Format) IsYUV() bool {
	switch f {
	case YUY2, UYVY, I420, YV12, NV12, NV16:
		return true
	default:
		return false
	}
}

// IsPlanar reports whether chroma lives in separate planes after the
// luma plane instead of being interleaved with it.
func (f Format) IsPlanar() bool {
	switch f {
	case I420, YV12, NV12, NV16:
		return true
	default:
		return false
	}
}

// RowBytes returns the number of bytes one row of the luma or packed
// plane occupies for the given width, with no padding. Planar formats
// report only the luma row. Unknown returns 0.
func (f Format) RowBytes(width int) int {
	switch f {
	case RGB16, YUY2, UYVY:
		return width * 2
	case RGB24:
		return width * 3
	case RGB32, ARGB:
		return width * 4
	case I420, YV12, NV12, NV16:
		return width
	default:
		return 0
	}
}

// FrameBytes returns the total number of bytes a tightly packed frame of
// the given geometry occupies, chroma planes included.
func (f Format) FrameBytes(width, height int) int {
	return width * height * f.BitsPerPixel() / 8
}

// ChromaOffset returns the byte offset of the first chroma plane inside
// a tightly packed frame. Formats without a separate chroma plane
// return 0.
func (f Format) ChromaOffset(width, height int) int {
	if !f.IsPlanar() {
		return 0
	}
	return width * height
}

// PixelsFromBytes converts a row pitch expressed in bytes into pixels.
// Planar 4:2:0 pitches count the interleaved chroma share the way the
// frame math above does. Returns -1 when the format has no defined
// conversion.
func PixelsFromBytes(f Format, bytes int) int {
	switch f {
	case NV12:
		return bytes * 2 / 3
	case NV16, YV12, I420:
		return bytes
	case UYVY, YUY2, RGB16:
		return bytes / 2
	case RGB24:
		return bytes / 3
	case RGB32, ARGB:
		return bytes / 4
	default:
		return -1
	}
}

// BytesFromPixels converts a row pitch expressed in pixels into bytes.
// It is the inverse of PixelsFromBytes. Returns -1 when the format has
// no defined conversion.
func BytesFromPixels(f Format, pixels int) int {
	switch f {
	case NV12:
		return pixels * 3 / 2
	case NV16, YV12, I420:
		return pixels
	case UYVY, YUY2, RGB16:
		return pixels * 2
	case RGB24:
		return pixels * 3
	case RGB32, ARGB:
		return pixels * 4
	default:
		return -1
	}
}
