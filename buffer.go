package vidsink

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

// AllocateBuffer hands out a frame buffer for the given stream format,
// preferably backed by display memory so rendering can blit without a
// copy. Without hardware scaling it first tries to renegotiate the
// stream to the geometry the display can actually show, through the
// AcceptCaps callback. A nil buffer with a nil error means the sink is
// shut down and the caller should allocate elsewhere.
func (s *Sink) AllocateBuffer(caps media.Caps, size int) (*media.Buffer, error) {
	s.mu.RLock()
	ready := s.ready
	hwScaling := s.hwScaling
	keepAspect := s.keepAspect
	par := s.par
	videoWidth, videoHeight := s.videoWidth, s.videoHeight
	s.mu.RUnlock()
	if !ready {
		return nil, nil
	}

	format := caps.Format()
	width, height := caps.Width, caps.Height
	desired := caps
	revNego := false

	if width > 0 && height > 0 && !hwScaling {
		src := display.Rect{W: width, H: height}
		var dst display.Rect
		if mode, ok := s.bestMode(width, height); ok {
			dst = display.Rect{W: mode.Width, H: mode.Height}
		} else if t := s.renderTarget(); t != nil {
			dst.W, dst.H = t.Size()
			s.mu.Lock()
			s.outWidth, s.outHeight = dst.W, dst.H
			s.mu.Unlock()
		}
		result := centerRect(src, dst, true, keepAspect)

		if (result.W != width || result.H != height) && s.opts.AcceptCaps != nil {
			desired.Width, desired.Height = result.W, result.H
			if par.Valid() {
				desired.PixelAspect = par
			}
			if s.opts.AcceptCaps(desired) {
				bpp := size / height / width
				revNego = true
				width, height = result.W, result.H
				size = bpp * width * height
				logrus.WithFields(logrus.Fields{
					"function": "AllocateBuffer",
					"width":    width,
					"height":   height,
				}).Info("Renegotiated the stream to fit the display")
			} else {
				desired = caps
				width, height = videoWidth, videoHeight
			}
		}
	}

	if b := s.pool.acquire(width, height, format, s.destroyBuffer); b != nil {
		relocked := true
		if b.Surface != nil && !b.Locked {
			data, _, err := b.Surface.Lock()
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "AllocateBuffer",
					"error":    err,
				}).Warn("Could not relock a pooled surface")
				s.destroyBuffer(b)
				relocked = false
			} else {
				b.Data = data
				b.Locked = true
			}
		}
		if relocked {
			b.SetRelease(func(*media.Buffer) { s.recycleBuffer(b) })
			return b, nil
		}
	}
	if revNego {
		return s.createBuffer(desired, size), nil
	}
	return s.createBuffer(caps, size), nil
}

// createBuffer makes a new frame buffer, backed by a display surface
// when the display can provide one that rendering can blit and whose
// layout matches the requested size, and by plain memory otherwise.
func (s *Sink) createBuffer(caps media.Caps, size int) *media.Buffer {
	if size < 0 {
		size = 0
	}
	b := media.NewBuffer(caps, nil)
	b.SetRelease(func(*media.Buffer) { s.recycleBuffer(b) })

	s.mu.RLock()
	device := s.device
	ext := s.ext
	primary := s.primary
	s.mu.RUnlock()

	// Surface-backed buffers only make sense in layer mode where
	// rendering blits between display surfaces.
	if device != nil && ext == nil && caps.Width > 0 && caps.Height > 0 && b.Format != pixel.Unknown {
		surf, err := device.CreateSurface(display.SurfaceDescription{
			Width:  caps.Width,
			Height: caps.Height,
			Format: b.Format,
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "createBuffer",
				"format":   b.Format.String(),
				"error":    err,
			}).Warn("Could not create a video surface, using system memory")
		} else if !blitsOnto(surf, primary) {
			logrus.WithFields(logrus.Fields{
				"function": "createBuffer",
				"format":   b.Format.String(),
			}).Debug("Blitting cannot show this format on the layer, using system memory")
			surf.Close()
		} else {
			if err := surf.Clear(0x00, 0x00, 0x00, 0xFF); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "createBuffer",
					"error":    err,
				}).Debug("Could not clear the new surface")
			}
			data, pitch, err := surf.Lock()
			switch {
			case err != nil:
				surf.Close()
			case pitch*caps.Height != size:
				// Padded or planar layouts do not map onto the flat
				// buffer upstream expects.
				logrus.WithFields(logrus.Fields{
					"function": "createBuffer",
					"pitch":    pitch,
					"size":     size,
				}).Debug("Surface layout does not match the buffer size, using system memory")
				surf.Unlock()
				surf.Close()
			default:
				b.Surface = surf
				b.Data = data
				b.Locked = true
				return b
			}
		}
	}

	b.Data = make([]byte, size)
	return b
}

// recycleBuffer is called when a buffer is released. Buffers matching
// the negotiated stream go back to the pool, everything else is
// destroyed.
func (s *Sink) recycleBuffer(b *media.Buffer) {
	s.mu.RLock()
	ready := s.ready
	width, height := s.videoWidth, s.videoHeight
	format := s.videoFormat
	s.mu.RUnlock()

	if !ready || b.Caps.Width != width || b.Caps.Height != height || b.Format != format {
		s.destroyBuffer(b)
		return
	}
	s.pool.put(b)
}

// blitsOnto checks whether a frame surface could ever reach the render
// target. Same-format blits always work, converting ones need the
// blitter to accelerate the frame's format.
func blitsOnto(frame, target display.Surface) bool {
	if target == nil {
		return false
	}
	if frame.PixelFormat() == target.PixelFormat() {
		return true
	}
	mask, err := target.AccelerationMask(frame)
	if err != nil {
		return false
	}
	return mask&(display.AccelBlit|display.AccelStretchBlit) != 0
}

// destroyBuffer releases whatever backs a buffer.
func (s *Sink) destroyBuffer(b *media.Buffer) {
	if b.Surface != nil {
		if b.Locked {
			if err := b.Surface.Unlock(); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "destroyBuffer",
					"error":    err,
				}).Debug("Could not unlock the buffer surface")
			}
			b.Locked = false
		}
		b.Surface.Close()
		b.Surface = nil
	}
	b.Data = nil
}
