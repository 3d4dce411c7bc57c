package vidsink

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/convert"
	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

// Render puts one frame on the display. Buffers backed by a display
// surface are blitted, stretched to the render region when the
// hardware scales. Plain buffers are written into the region through
// the accelerator, or line by line when formats already match. The
// first frame rendered after going to playing is announced on the bus.
func (s *Sink) Render(b *media.Buffer) error {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	if !ready {
		return ErrNotConfigured
	}

	var err error
	if b.Surface != nil {
		err = s.renderSurface(b)
	} else {
		err = s.renderCopy(b)
	}
	if err != nil {
		return err
	}

	s.flipTarget()

	s.mu.Lock()
	announce := s.announceFrame
	s.announceFrame = false
	s.mu.Unlock()
	if announce {
		s.post(media.Message{
			Kind: media.MessageElement,
			Name: media.MsgFrameRendered,
			Text: "First frame was rendered",
		})
	}
	return nil
}

// renderSurface blits a surface-backed buffer onto the primary
// surface. Blitting failures are logged, not returned, so one bad
// frame does not stop the stream.
func (s *Sink) renderSurface(b *media.Buffer) error {
	s.mu.RLock()
	src := display.Rect{W: s.displayWidth, H: s.displayHeight}
	window := s.window
	hwScaling := s.hwScaling
	keepAspect := s.keepAspect
	primary := s.primary
	s.mu.RUnlock()

	if b.Locked {
		if err := b.Surface.Unlock(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "renderSurface",
				"error":    err,
			}).Warn("Could not unlock the frame surface")
		}
		b.Locked = false
	}

	result := centerRect(src, window, hwScaling, keepAspect)
	s.waitForSync()

	if primary == nil {
		return ErrNotConfigured
	}
	if hwScaling {
		if err := primary.StretchBlit(b.Surface, nil, &result); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "renderSurface",
				"error":    err,
			}).Warn("Stretching the frame onto the display failed")
		}
	} else {
		srcRect := display.Rect{W: result.W, H: result.H}
		if err := primary.Blit(b.Surface, &srcRect, result.X, result.Y); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "renderSurface",
				"error":    err,
			}).Warn("Blitting the frame onto the display failed")
		}
	}
	return nil
}

// renderCopy writes a plain memory buffer into a sub surface of the
// render target.
func (s *Sink) renderCopy(b *media.Buffer) error {
	s.mu.RLock()
	videoWidth, videoHeight := s.videoWidth, s.videoHeight
	window := s.window
	keepAspect := s.keepAspect
	rowStride := s.rowStride
	chromaOffset := s.chromaOffset
	interlaced := s.interlaced
	target := s.target()
	s.mu.RUnlock()

	if target == nil {
		return ErrNotConfigured
	}
	engine := s.opts.Accelerator

	src := display.Rect{W: videoWidth, H: videoHeight}
	if b.Caps.Width > 0 && b.Caps.Height > 0 {
		src.W, src.H = b.Caps.Width, b.Caps.Height
	}
	if src.W <= 0 || src.H <= 0 {
		return fmt.Errorf("%w: no frame geometry", ErrNotConfigured)
	}

	// Without an accelerator the frame cannot be scaled, only
	// centered.
	result := centerRect(src, window, engine != nil, keepAspect)

	dest, err := target.SubSurface(result)
	if err != nil {
		return fmt.Errorf("getting render region %v: %w", result, err)
	}
	defer dest.Close()

	s.waitForSync()

	data, destPitch, err := dest.Lock()
	if err != nil {
		return fmt.Errorf("locking render region: %w", err)
	}
	defer dest.Unlock()

	srcPitch := len(b.Data) / src.H

	if engine != nil {
		err := s.convertInto(engine, b, src, rowStride, chromaOffset, interlaced,
			target, result, data, destPitch)
		if err == nil {
			return nil
		}
		logrus.WithFields(logrus.Fields{
			"function": "renderCopy",
			"error":    err,
		}).Debug("Accelerated conversion failed, copying lines")

		srcFormat := b.Format
		if srcFormat == pixel.Unknown {
			srcFormat = b.Caps.Format()
		}
		if srcFormat != pixel.Unknown && srcFormat != target.PixelFormat() {
			return fmt.Errorf("%w: cannot place %s frames on a %s display",
				ErrWrongFormat, srcFormat, target.PixelFormat())
		}
	}

	copyLines(data, destPitch, b.Data, srcPitch, result.H)
	return nil
}

// convertInto runs the accelerator to place the frame into the locked
// render region, converting format and scaling on the way. Interlaced
// frames carry their fields sequentially and are woven into the
// region line by line.
func (s *Sink) convertInto(engine convert.Engine, b *media.Buffer, src display.Rect,
	rowStride, chromaOffset int, interlaced bool,
	target display.Surface, result display.Rect, data []byte, destPitch int) error {

	srcFormat := b.Format
	if srcFormat == pixel.Unknown {
		srcFormat = b.Caps.Format()
	}
	if srcFormat == pixel.Unknown {
		return fmt.Errorf("%w: buffer carries no format", ErrWrongFormat)
	}
	dstFormat := target.PixelFormat()

	if dstFormat.IsPlanar() {
		tw, th := target.Size()
		full := result.X == 0 && result.Y == 0 && result.W == tw && result.H == th
		if !full {
			// A planar sub region has no reachable chroma plane.
			return fmt.Errorf("%w: partial planar destination", convert.ErrUnsupported)
		}
	}

	stride := rowStride
	if stride <= 0 {
		stride = srcFormat.RowBytes(src.W)
	}
	if chromaOffset <= 0 {
		chromaOffset = srcFormat.ChromaOffset(src.W, src.H)
	}

	if !interlaced {
		sf := planeFrame(srcFormat, src.W, src.H, stride, chromaOffset, b.Data)
		df := planeFrame(dstFormat, result.W, result.H, destPitch,
			dstFormat.ChromaOffset(result.W, result.H), data)
		return engine.Convert(&df, &sf)
	}

	// Sequential fields: all top field lines come first in the buffer,
	// in planar layouts per plane. Each field scales to half the
	// region height and lands on alternating output lines.
	srcH := src.H / 2
	dstH := result.H / 2
	for field := 0; field < 2; field++ {
		var sf convert.Frame
		if srcFormat.IsPlanar() {
			fieldChroma := (len(b.Data) - chromaOffset) / 2
			lumaOff := field * chromaOffset / 2
			chromaStart := chromaOffset + field*fieldChroma
			sf = convert.Frame{
				Width:  src.W,
				Height: srcH,
				Format: srcFormat,
				Data:   b.Data[lumaOff:],
				Chroma: b.Data[chromaStart:],
				Stride: stride,
			}
		} else {
			sf = convert.Frame{
				Width:  src.W,
				Height: srcH,
				Format: srcFormat,
				Data:   b.Data[field*len(b.Data)/2:],
				Stride: stride,
			}
		}
		df := convert.Frame{
			Width:  result.W,
			Height: dstH,
			Format: dstFormat,
			Data:   data[field*destPitch:],
			Stride: destPitch * 2,
		}
		if err := engine.Convert(&df, &sf); err != nil {
			return err
		}
	}
	return nil
}

// planeFrame describes a frame for the accelerator, splitting off the
// chroma plane of planar formats.
func planeFrame(format pixel.Format, width, height, stride, chromaOffset int, data []byte) convert.Frame {
	f := convert.Frame{
		Width:  width,
		Height: height,
		Format: format,
		Data:   data,
		Stride: stride,
	}
	if format.IsPlanar() && chromaOffset > 0 && chromaOffset < len(data) {
		f.Data = data[:chromaOffset]
		f.Chroma = data[chromaOffset:]
	}
	return f
}

// copyLines moves rows between differently pitched buffers, clipping
// each row to what both sides hold.
func copyLines(dst []byte, dstPitch int, src []byte, srcPitch, lines int) {
	n := min(srcPitch, dstPitch)
	if n <= 0 {
		return
	}
	for line := 0; line < lines; line++ {
		so := line * srcPitch
		do := line * dstPitch
		if so+n > len(src) || do+n > len(dst) {
			return
		}
		copy(dst[do:do+n], src[so:so+n])
	}
}

// waitForSync blocks until the next vertical retrace when tearing is a
// concern: vsync enabled and no back buffer to flip.
func (s *Sink) waitForSync() {
	s.mu.RLock()
	layer := s.layer
	wait := !s.backbuffer && s.vsync && layer != nil
	s.mu.RUnlock()
	if !wait {
		return
	}
	if err := layer.WaitForSync(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "waitForSync",
			"error":    err,
		}).Debug("Waiting for vertical retrace failed")
	}
}

// flipTarget swaps the target's back buffer to the front after a
// frame was rendered into it.
func (s *Sink) flipTarget() {
	s.mu.RLock()
	backbuffer := s.backbuffer
	vsync := s.vsync
	target := s.target()
	s.mu.RUnlock()
	if !backbuffer || target == nil {
		return
	}
	flags := display.FlipNone
	if vsync {
		flags = display.FlipOnSync
	}
	if err := target.Flip(flags); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "flipTarget",
			"error":    err,
		}).Warn("Flipping the display failed")
	}
}

// RenderTimes returns the wall clock window a buffer should be shown
// in. Buffers without a duration get one frame interval from the
// negotiated rate.
func (s *Sink) RenderTimes(b *media.Buffer) (start, end time.Duration) {
	if b == nil || b.Timestamp < 0 {
		return media.TimeNone, media.TimeNone
	}
	start = b.Timestamp
	if b.Duration >= 0 {
		return start, start + b.Duration
	}
	s.mu.RLock()
	framerate := s.framerate
	s.mu.RUnlock()
	if framerate.Valid() {
		return start, start + framerate.Interval()
	}
	return start, media.TimeNone
}
