// Package convert performs pixel format conversion and scaling on raw
// video frames in software. It stands in for a hardware video
// accelerator: the sink drives it with source and destination frame
// descriptions and the engine moves the pixels.
//
// Conversion goes through an RGBA intermediate. Scaling uses the
// bilinear kernel from golang.org/x/image/draw. Chroma subsampling
// averages the contributing pixels.
package convert

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/opd-ai/vidsink/pixel"
)

// Frame describes one raw video frame for the engine. Data starts at
// the luma or packed pixels, Chroma at the first chroma plane of the
// planar formats. A zero stride means tightly packed rows.
type Frame struct {
	Width  int
	Height int
	Format pixel.Format

	Data   []byte
	Chroma []byte

	Stride       int
	ChromaStride int
}

// Engine converts frames between formats and sizes.
type Engine interface {
	// Supports reports whether the engine handles the format on either
	// side of a conversion.
	Supports(f pixel.Format) bool

	// Convert renders src into dst, converting format and scaling as
	// the two descriptions demand.
	Convert(dst, src *Frame) error
}

// Frame validation and conversion errors.
var (
	ErrNilFrame    = errors.New("nil frame")
	ErrUnsupported = errors.New("unsupported pixel format")
)

// stride returns the effective luma or packed row pitch.
func (f *Frame) stride() int {
	if f.Stride > 0 {
		return f.Stride
	}
	return f.Format.RowBytes(f.Width)
}

// chromaStride returns the effective chroma row pitch.
func (f *Frame) chromaStride() int {
	if f.ChromaStride > 0 {
		return f.ChromaStride
	}
	switch f.Format {
	case pixel.I420, pixel.YV12:
		return f.Width / 2
	case pixel.NV12, pixel.NV16:
		return f.Width
	default:
		return 0
	}
}

// chromaBytes returns how many chroma bytes the frame needs.
func (f *Frame) chromaBytes() int {
	cs := f.chromaStride()
	switch f.Format {
	case pixel.I420, pixel.YV12:
		return cs * f.Height
	case pixel.NV12:
		return cs * f.Height / 2
	case pixel.NV16:
		return cs * f.Height
	default:
		return 0
	}
}

func (f *Frame) validate() error {
	if f == nil {
		return ErrNilFrame
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if f.Format.BitsPerPixel() == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupported, f.Format)
	}
	if f.Format.IsYUV() && f.Width%2 != 0 {
		return fmt.Errorf("width %d must be even for %s", f.Width, f.Format)
	}
	switch f.Format {
	case pixel.I420, pixel.YV12, pixel.NV12:
		if f.Height%2 != 0 {
			return fmt.Errorf("height %d must be even for %s", f.Height, f.Format)
		}
	}
	need := (f.Height-1)*f.stride() + f.Format.RowBytes(f.Width)
	if len(f.Data) < need {
		return fmt.Errorf("frame data too short: have %d, need %d", len(f.Data), need)
	}
	if f.Format.IsPlanar() {
		if f.Chroma == nil {
			return fmt.Errorf("missing chroma plane for %s", f.Format)
		}
		if len(f.Chroma) < f.chromaBytes() {
			return fmt.Errorf("chroma plane too short: have %d, need %d", len(f.Chroma), f.chromaBytes())
		}
	}
	return nil
}

// SoftwareEngine is the pure Go Engine implementation.
type SoftwareEngine struct {
	scaler draw.Scaler
}

// NewSoftwareEngine returns an engine scaling through the approximate
// bilinear kernel.
func NewSoftwareEngine() *SoftwareEngine {
	return &SoftwareEngine{scaler: draw.ApproxBiLinear}
}

// Supports reports whether the engine handles the format. Every known
// format is handled.
func (e *SoftwareEngine) Supports(f pixel.Format) bool {
	return f.BitsPerPixel() != 0
}

// Convert renders src into dst.
func (e *SoftwareEngine) Convert(dst, src *Frame) error {
	if err := src.validate(); err != nil {
		return fmt.Errorf("source frame: %w", err)
	}
	if err := dst.validate(); err != nil {
		return fmt.Errorf("destination frame: %w", err)
	}

	if dst.Format == src.Format && dst.Width == src.Width && dst.Height == src.Height {
		copyFrame(dst, src)
		return nil
	}

	img := decodeRGBA(src)
	if dst.Width != src.Width || dst.Height != src.Height {
		scaled := image.NewRGBA(image.Rect(0, 0, dst.Width, dst.Height))
		e.scaler.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = scaled
	}
	encodeRGBA(dst, img)
	return nil
}

// copyFrame moves identical frames row by row, honoring both strides.
func copyFrame(dst, src *Frame) {
	rowBytes := src.Format.RowBytes(src.Width)
	ss, ds := src.stride(), dst.stride()
	for y := 0; y < src.Height; y++ {
		copy(dst.Data[y*ds:y*ds+rowBytes], src.Data[y*ss:y*ss+rowBytes])
	}
	if !src.Format.IsPlanar() {
		return
	}
	scs, dcs := src.chromaStride(), dst.chromaStride()
	rows := src.chromaBytes() / scs
	crow := min(scs, dcs)
	for y := 0; y < rows; y++ {
		copy(dst.Chroma[y*dcs:y*dcs+crow], src.Chroma[y*scs:y*scs+crow])
	}
}
