package display

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/opd-ai/vidsink/pixel"
)

// plane describes one contiguous plane of a frame: where it starts, how
// wide its rows are in bytes and how pixel coordinates map onto it.
type plane struct {
	off   int // byte offset of the plane inside the frame
	pitch int // bytes per plane row
	rows  int
	xNum  int // byte offset of pixel x is x*xNum/xDen
	xDen  int
	yDiv  int // plane row of pixel y is y/yDiv
	align int // pixel alignment required of x coordinates
}

// planeLayout returns the plane table of a tightly packed frame.
func planeLayout(f pixel.Format, w, h int) []plane {
	switch f {
	case pixel.RGB16:
		return []plane{{0, w * 2, h, 2, 1, 1, 1}}
	case pixel.RGB24:
		return []plane{{0, w * 3, h, 3, 1, 1, 1}}
	case pixel.RGB32, pixel.ARGB:
		return []plane{{0, w * 4, h, 4, 1, 1, 1}}
	case pixel.YUY2, pixel.UYVY:
		return []plane{{0, w * 2, h, 2, 1, 1, 2}}
	case pixel.I420, pixel.YV12:
		return []plane{
			{0, w, h, 1, 1, 1, 2},
			{w * h, w / 2, h / 2, 1, 2, 2, 2},
			{w*h + w*h/4, w / 2, h / 2, 1, 2, 2, 2},
		}
	case pixel.NV12:
		return []plane{
			{0, w, h, 1, 1, 1, 2},
			{w * h, w, h / 2, 1, 1, 2, 2},
		}
	case pixel.NV16:
		return []plane{
			{0, w, h, 1, 1, 1, 2},
			{w * h, w, h, 1, 1, 1, 2},
		}
	default:
		return nil
	}
}

// fillPatterns returns, per plane, the repeating byte pattern that
// paints the given color. The pattern length covers one alignment group.
func fillPatterns(f pixel.Format, r, g, b, a uint8) [][]byte {
	y, u, v := rgbToYCbCr(r, g, b)
	switch f {
	case pixel.RGB16:
		p := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
		return [][]byte{{byte(p), byte(p >> 8)}}
	case pixel.RGB24:
		return [][]byte{{b, g, r}}
	case pixel.RGB32:
		return [][]byte{{b, g, r, 0xFF}}
	case pixel.ARGB:
		return [][]byte{{b, g, r, a}}
	case pixel.YUY2:
		return [][]byte{{y, u, y, v}}
	case pixel.UYVY:
		return [][]byte{{u, y, v, y}}
	case pixel.I420:
		return [][]byte{{y, y}, {u}, {v}}
	case pixel.YV12:
		return [][]byte{{y, y}, {v}, {u}}
	case pixel.NV12, pixel.NV16:
		return [][]byte{{y, y}, {u, v}}
	default:
		return nil
	}
}

// rgbToYCbCr converts one color to studio range BT.601 as used by the
// packed and planar YUV formats.
func rgbToYCbCr(r, g, b uint8) (y, u, v uint8) {
	rr, gg, bb := int(r), int(g), int(b)
	y = uint8(((66*rr + 129*gg + 25*bb + 128) >> 8) + 16)
	u = uint8(((-38*rr - 74*gg + 112*bb + 128) >> 8) + 128)
	v = uint8(((112*rr - 94*gg - 18*bb + 128) >> 8) + 128)
	return
}

// MemorySurface is a Surface backed by plain memory. It is the building
// block of the software device and doubles as an externally provided
// render target.
type MemorySurface struct {
	mu     sync.Mutex
	desc   SurfaceDescription
	pitch  int
	front  []byte
	back   []byte
	locked bool
	flags  BlitFlags
	closed bool
}

// NewMemorySurface allocates a zeroed surface of the given geometry and
// format. Flipping capabilities allocate a second buffer.
func NewMemorySurface(desc SurfaceDescription) (*MemorySurface, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, desc.Width, desc.Height)
	}
	if desc.Format.BitsPerPixel() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, desc.Format)
	}
	s := &MemorySurface{
		desc:  desc,
		pitch: desc.Format.RowBytes(desc.Width),
		front: make([]byte, desc.Format.FrameBytes(desc.Width, desc.Height)),
	}
	if desc.Caps.Flipping() {
		s.back = make([]byte, len(s.front))
	}
	return s, nil
}

// writeBuf returns the buffer drawing operations target, the back
// buffer when one exists.
func (s *MemorySurface) writeBuf() []byte {
	if s.back != nil {
		return s.back
	}
	return s.front
}

// Front returns the currently visible pixels together with the row
// pitch. Windowed and test consumers read the displayed image from it.
func (s *MemorySurface) Front() ([]byte, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.front, s.pitch
}

// Snapshot copies the visible pixels into buf, growing it when needed,
// and returns the filled buffer with the row pitch. Unlike Front the
// copy stays consistent while another goroutine keeps drawing.
func (s *MemorySurface) Snapshot(buf []byte) ([]byte, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cap(buf) < len(s.front) {
		buf = make([]byte, len(s.front))
	}
	buf = buf[:len(s.front)]
	copy(buf, s.front)
	return buf, s.pitch
}

func (s *MemorySurface) Size() (int, int) {
	return s.desc.Width, s.desc.Height
}

func (s *MemorySurface) PixelFormat() pixel.Format {
	return s.desc.Format
}

func (s *MemorySurface) Capabilities() SurfaceCaps {
	return s.desc.Caps
}

func (s *MemorySurface) Lock() ([]byte, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, ErrClosed
	}
	if s.locked {
		return nil, 0, ErrLocked
	}
	s.locked = true
	return s.writeBuf(), s.pitch, nil
}

func (s *MemorySurface) Unlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		return ErrNotLocked
	}
	s.locked = false
	return nil
}

func (s *MemorySurface) Clear(r, g, b, a uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	region := Rect{0, 0, s.desc.Width, s.desc.Height}
	return fillRegion(s.writeBuf(), s.desc.Format, s.desc.Width, s.desc.Height, region, r, g, b, a)
}

// fillRegion paints a region of a frame with one solid color.
func fillRegion(buf []byte, f pixel.Format, w, h int, region Rect, r, g, b, a uint8) error {
	planes := planeLayout(f, w, h)
	patterns := fillPatterns(f, r, g, b, a)
	if planes == nil || patterns == nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	for i, p := range planes {
		pat := patterns[i]
		x0 := alignDown(region.X, p.align) * p.xNum / p.xDen
		x1 := alignDown(region.X+region.W, p.align) * p.xNum / p.xDen
		y0 := region.Y / p.yDiv
		y1 := (region.Y + region.H) / p.yDiv
		for y := y0; y < y1; y++ {
			row := buf[p.off+y*p.pitch:]
			for x := x0; x < x1; x += len(pat) {
				copy(row[x:x+len(pat)], pat)
			}
		}
	}
	return nil
}

func alignDown(v, align int) int {
	if align <= 1 {
		return v
	}
	return v - v%align
}

func (s *MemorySurface) SubSurface(region Rect) (Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clipped, ok := clipRect(region, s.desc.Width, s.desc.Height)
	if !ok {
		return nil, fmt.Errorf("%w: %s within %dx%d", ErrOutOfBounds, region, s.desc.Width, s.desc.Height)
	}
	return &subSurface{root: s, region: clipped}, nil
}

// clipRect intersects a region with a surface of the given size.
func clipRect(r Rect, w, h int) (Rect, bool) {
	return intersectRect(r, Rect{0, 0, w, h})
}

func intersectRect(a, b Rect) (Rect, bool) {
	x0, y0 := max(a.X, b.X), max(a.Y, b.Y)
	x1, y1 := min(a.X+a.W, b.X+b.W), min(a.Y+a.H, b.Y+b.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}, false
	}
	return Rect{x0, y0, x1 - x0, y1 - y0}, true
}

func (s *MemorySurface) Blit(src Surface, srcRect *Rect, x, y int) error {
	return blit(s, Rect{0, 0, s.desc.Width, s.desc.Height}, src, srcRect, x, y)
}

func (s *MemorySurface) StretchBlit(src Surface, srcRect, dstRect *Rect) error {
	full := Rect{0, 0, s.desc.Width, s.desc.Height}
	if dstRect == nil {
		dstRect = &full
	}
	return stretchBlit(s, full, src, srcRect, *dstRect)
}

func (s *MemorySurface) SetBlitFlags(flags BlitFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = flags
	return nil
}

func (s *MemorySurface) AccelerationMask(Surface) (AccelMask, error) {
	return 0, nil
}

func (s *MemorySurface) Flip(FlipFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.back == nil {
		return nil
	}
	s.front, s.back = s.back, s.front
	return nil
}

func (s *MemorySurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// subSurface is a view on a region of a MemorySurface sharing its
// pixels.
type subSurface struct {
	root   *MemorySurface
	region Rect
	locked bool
}

func (s *subSurface) Size() (int, int) {
	return s.region.W, s.region.H
}

func (s *subSurface) PixelFormat() pixel.Format {
	return s.root.desc.Format
}

func (s *subSurface) Capabilities() SurfaceCaps {
	return s.root.desc.Caps
}

// Lock maps the view. The returned pitch is the pitch of the underlying
// surface, so rows of the view are pitch bytes apart in the mapping.
func (s *subSurface) Lock() ([]byte, int, error) {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	if s.root.closed {
		return nil, 0, ErrClosed
	}
	if s.locked {
		return nil, 0, ErrLocked
	}
	s.locked = true
	p := planeLayout(s.root.desc.Format, s.root.desc.Width, s.root.desc.Height)[0]
	x := alignDown(s.region.X, p.align)
	off := s.region.Y*s.root.pitch + x*p.xNum/p.xDen
	return s.root.writeBuf()[off:], s.root.pitch, nil
}

func (s *subSurface) Unlock() error {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	if !s.locked {
		return ErrNotLocked
	}
	s.locked = false
	return nil
}

func (s *subSurface) Clear(r, g, b, a uint8) error {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	if s.root.closed {
		return ErrClosed
	}
	d := s.root.desc
	return fillRegion(s.root.writeBuf(), d.Format, d.Width, d.Height, s.region, r, g, b, a)
}

func (s *subSurface) SubSurface(region Rect) (Surface, error) {
	region.X += s.region.X
	region.Y += s.region.Y
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	clipped, ok := intersectRect(region, s.region)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutOfBounds, region)
	}
	return &subSurface{root: s.root, region: clipped}, nil
}

func (s *subSurface) Blit(src Surface, srcRect *Rect, x, y int) error {
	return blit(s.root, s.region, src, srcRect, x, y)
}

func (s *subSurface) StretchBlit(src Surface, srcRect, dstRect *Rect) error {
	r := s.region
	if dstRect != nil {
		r = Rect{s.region.X + dstRect.X, s.region.Y + dstRect.Y, dstRect.W, dstRect.H}
	}
	return stretchBlit(s.root, s.region, src, srcRect, r)
}

func (s *subSurface) SetBlitFlags(flags BlitFlags) error {
	return s.root.SetBlitFlags(flags)
}

func (s *subSurface) AccelerationMask(src Surface) (AccelMask, error) {
	return s.root.AccelerationMask(src)
}

func (s *subSurface) Flip(flags FlipFlags) error {
	return s.root.Flip(flags)
}

func (s *subSurface) Close() error {
	return nil
}

// sourcePixels resolves a Surface into its backing root, so blits can
// read from memory surfaces, their views and layer surfaces alike.
func sourcePixels(src Surface) (*MemorySurface, Rect, error) {
	switch v := src.(type) {
	case *MemorySurface:
		return v, Rect{0, 0, v.desc.Width, v.desc.Height}, nil
	case *subSurface:
		return v.root, v.region, nil
	case *layerSurface:
		return v.backing(), v.backing().fullRect(), nil
	default:
		return nil, Rect{}, fmt.Errorf("%w: foreign surface", ErrUnsupportedFormat)
	}
}

func (s *MemorySurface) fullRect() Rect {
	return Rect{0, 0, s.desc.Width, s.desc.Height}
}

// blit copies a source region onto the destination without scaling.
// Source and destination must share a pixel format.
func blit(dst *MemorySurface, dstBounds Rect, src Surface, srcRect *Rect, x, y int) error {
	srcRoot, srcBounds, err := sourcePixels(src)
	if err != nil {
		return err
	}
	if srcRoot.desc.Format != dst.desc.Format {
		return fmt.Errorf("%w: %s onto %s", ErrFormatMismatch, srcRoot.desc.Format, dst.desc.Format)
	}

	sr := srcBounds
	if srcRect != nil {
		translated := Rect{srcBounds.X + srcRect.X, srcBounds.Y + srcRect.Y, srcRect.W, srcRect.H}
		clipped, ok := clipRect(translated, srcRoot.desc.Width, srcRoot.desc.Height)
		if !ok {
			return nil
		}
		sr = clipped
	}

	// Clip against the destination bounds.
	dx, dy := dstBounds.X+x, dstBounds.Y+y
	if dx < 0 {
		sr.X -= dx
		sr.W += dx
		dx = 0
	}
	if dy < 0 {
		sr.Y -= dy
		sr.H += dy
		dy = 0
	}
	w := min(sr.W, dstBounds.X+dstBounds.W-dx)
	h := min(sr.H, dstBounds.Y+dstBounds.H-dy)
	if w <= 0 || h <= 0 {
		return nil
	}

	dst.mu.Lock()
	defer dst.mu.Unlock()
	var srcBuf []byte
	if srcRoot == dst {
		srcBuf = dst.writeBuf()
	} else {
		srcRoot.mu.Lock()
		srcBuf = srcRoot.writeBuf()
		defer srcRoot.mu.Unlock()
	}
	dstBuf := dst.writeBuf()

	srcPlanes := planeLayout(srcRoot.desc.Format, srcRoot.desc.Width, srcRoot.desc.Height)
	dstPlanes := planeLayout(dst.desc.Format, dst.desc.Width, dst.desc.Height)
	for i := range srcPlanes {
		sp, dp := srcPlanes[i], dstPlanes[i]
		sx := alignDown(sr.X, sp.align) * sp.xNum / sp.xDen
		dxb := alignDown(dx, dp.align) * dp.xNum / dp.xDen
		n := alignDown(w, sp.align) * sp.xNum / sp.xDen
		for row := 0; row < h/sp.yDiv; row++ {
			so := sp.off + (sr.Y/sp.yDiv+row)*sp.pitch + sx
			do := dp.off + (dy/dp.yDiv+row)*dp.pitch + dxb
			copy(dstBuf[do:do+n], srcBuf[so:so+n])
		}
	}
	return nil
}

// stretchBlit scales a source region onto a destination region. Four
// byte formats scale through the golang.org/x/image bilinear kernel,
// everything else through nearest neighbor plane sampling.
func stretchBlit(dst *MemorySurface, dstBounds Rect, src Surface, srcRect *Rect, dstRect Rect) error {
	srcRoot, srcBounds, err := sourcePixels(src)
	if err != nil {
		return err
	}
	if srcRoot.desc.Format != dst.desc.Format {
		return fmt.Errorf("%w: %s onto %s", ErrFormatMismatch, srcRoot.desc.Format, dst.desc.Format)
	}

	sr := srcBounds
	if srcRect != nil {
		translated := Rect{srcBounds.X + srcRect.X, srcBounds.Y + srcRect.Y, srcRect.W, srcRect.H}
		clipped, ok := clipRect(translated, srcRoot.desc.Width, srcRoot.desc.Height)
		if !ok {
			return nil
		}
		sr = clipped
	}
	dr, ok := clipRect(dstRect, dst.desc.Width, dst.desc.Height)
	if !ok {
		return nil
	}

	dst.mu.Lock()
	defer dst.mu.Unlock()
	var srcBuf []byte
	if srcRoot == dst {
		srcBuf = dst.writeBuf()
	} else {
		srcRoot.mu.Lock()
		srcBuf = srcRoot.writeBuf()
		defer srcRoot.mu.Unlock()
	}
	dstBuf := dst.writeBuf()

	f := dst.desc.Format
	if f == pixel.RGB32 || f == pixel.ARGB {
		srcImg := &image.RGBA{
			Pix:    srcBuf,
			Stride: srcRoot.pitch,
			Rect:   image.Rect(0, 0, srcRoot.desc.Width, srcRoot.desc.Height),
		}
		dstImg := &image.RGBA{
			Pix:    dstBuf,
			Stride: dst.pitch,
			Rect:   image.Rect(0, 0, dst.desc.Width, dst.desc.Height),
		}
		draw.ApproxBiLinear.Scale(dstImg,
			image.Rect(dr.X, dr.Y, dr.X+dr.W, dr.Y+dr.H),
			srcImg,
			image.Rect(sr.X, sr.Y, sr.X+sr.W, sr.Y+sr.H),
			draw.Src, nil)
		return nil
	}

	srcPlanes := planeLayout(srcRoot.desc.Format, srcRoot.desc.Width, srcRoot.desc.Height)
	dstPlanes := planeLayout(f, dst.desc.Width, dst.desc.Height)
	for i := range srcPlanes {
		sp, dp := srcPlanes[i], dstPlanes[i]
		group := sp.align * sp.xNum / sp.xDen
		srcGroups := alignDown(sr.W, sp.align) / sp.align
		dstGroups := alignDown(dr.W, dp.align) / dp.align
		srcRows, dstRows := sr.H/sp.yDiv, dr.H/dp.yDiv
		if srcGroups == 0 || dstGroups == 0 || srcRows == 0 || dstRows == 0 {
			continue
		}
		for row := 0; row < dstRows; row++ {
			sy := sr.Y/sp.yDiv + row*srcRows/dstRows
			srcRow := srcBuf[sp.off+sy*sp.pitch+alignDown(sr.X, sp.align)*sp.xNum/sp.xDen:]
			dstRow := dstBuf[dp.off+(dr.Y/dp.yDiv+row)*dp.pitch+alignDown(dr.X, dp.align)*dp.xNum/dp.xDen:]
			for gx := 0; gx < dstGroups; gx++ {
				sgx := gx * srcGroups / dstGroups
				copy(dstRow[gx*group:gx*group+group], srcRow[sgx*group:sgx*group+group])
			}
		}
	}
	return nil
}
