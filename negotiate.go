package vidsink

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

// templateCaps lists every format the sink could ever handle, used
// before the display is opened and its real capabilities are known.
func templateCaps() []media.FormatCaps {
	var out []media.FormatCaps
	for _, f := range pixel.Formats() {
		d, ok := media.DescriptorFor(f)
		if !ok {
			continue
		}
		out = append(out, media.FormatCaps{
			Desc:      d,
			Width:     media.FullRange,
			Height:    media.FullRange,
			Framerate: media.FullFramerateRange,
		})
	}
	return out
}

// Caps reports the formats the sink accepts. Before setup it offers
// everything; with an external surface only that surface's format;
// in layer mode the formats the hardware can actually display, the
// accelerated ones first, plus whatever the accelerator can convert.
func (s *Sink) Caps() []media.FormatCaps {
	s.mu.RLock()
	ready := s.ready
	ext := s.ext
	hwScaling := s.hwScaling
	par := s.par
	s.mu.RUnlock()

	if !ready {
		return templateCaps()
	}

	var out []media.FormatCaps
	if ext != nil {
		if d, ok := media.DescriptorFor(ext.PixelFormat()); ok {
			out = append(out, media.FormatCaps{
				Desc:      d,
				Width:     media.FullRange,
				Height:    media.FullRange,
				Framerate: media.FullFramerateRange,
			})
		}
	} else {
		seen := make(map[pixel.Format]bool)
		for _, accelerated := range []bool{true, false} {
			for _, f := range pixel.Formats() {
				if seen[f] || !s.canBlitFromFormat(f, accelerated) {
					continue
				}
				seen[f] = true
				d, ok := media.DescriptorFor(f)
				if !ok {
					continue
				}
				out = append(out, media.FormatCaps{
					Desc:      d,
					Width:     media.FullRange,
					Height:    media.FullRange,
					Framerate: media.FullFramerateRange,
				})
			}
		}
		if s.opts.Accelerator != nil {
			for _, f := range pixel.Formats() {
				if seen[f] || !s.opts.Accelerator.Supports(f) {
					continue
				}
				seen[f] = true
				d, ok := media.DescriptorFor(f)
				if !ok {
					continue
				}
				out = append(out, media.FormatCaps{
					Desc:      d,
					Width:     media.FullRange,
					Height:    media.FullRange,
					Framerate: media.FullFramerateRange,
				})
			}
		}
	}

	// Without hardware scaling the display aspect ratio is fixed, so
	// advertise it.
	if !hwScaling && par.Valid() {
		for i := range out {
			out[i].PixelAspect = par
		}
	}
	return out
}

// canBlitFromFormat checks whether the layer can display a format by
// creating a throwaway surface in it and probing the blitting
// acceleration from that surface to the layer.
func (s *Sink) canBlitFromFormat(f pixel.Format, accelerated bool) bool {
	s.mu.RLock()
	device, layer, primary := s.device, s.layer, s.primary
	s.mu.RUnlock()
	if device == nil || layer == nil || primary == nil {
		return false
	}

	scratch, err := device.CreateSurface(display.SurfaceDescription{
		Width:  10,
		Height: 10,
		Format: f,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "canBlitFromFormat",
			"format":   f.String(),
			"error":    err,
		}).Debug("Could not create a surface in this format")
		return false
	}
	defer scratch.Close()

	if err := layer.TestPixelFormat(f); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "canBlitFromFormat",
			"format":   f.String(),
		}).Debug("Layer rejects this format")
		return false
	}
	mask, err := primary.AccelerationMask(scratch)
	if err != nil {
		return false
	}
	if mask&display.AccelBlit != 0 && accelerated {
		return true
	}
	return !accelerated
}

// SetCaps fixes the stream format. It verifies the aspect ratio fits
// the display, switches the video mode and layer format to match and
// records the geometry rendering will use.
func (s *Sink) SetCaps(caps media.Caps) error {
	if !caps.Complete() {
		return fmt.Errorf("%w: %v", ErrIncompleteCaps, caps)
	}
	format := caps.Format()
	if format == pixel.Unknown {
		return fmt.Errorf("%w: %v", ErrWrongFormat, caps.Desc)
	}

	logrus.WithFields(logrus.Fields{
		"function": "SetCaps",
		"width":    caps.Width,
		"height":   caps.Height,
		"format":   format.String(),
		"rate":     caps.Framerate.String(),
	}).Info("Negotiated stream format")

	s.mu.Lock()
	s.framerate = caps.Framerate
	s.rowStride = caps.RowStride
	s.chromaOffset = caps.ChromaOffset
	s.interlaced = caps.Interlaced && caps.FieldLayout == media.FieldLayoutSequential
	hwScaling := s.hwScaling
	par := s.par
	layer := s.layer
	s.mu.Unlock()

	var displayWidth, displayHeight int
	if hwScaling && par.Valid() {
		displayWidth, displayHeight = displaySizeForAspect(caps, par)
	} else {
		if par.Valid() {
			capsPar := caps.PixelAspect
			if capsPar.IsZero() {
				capsPar = media.Fraction{Num: 1, Den: 1}
			}
			if !capsPar.Equal(par) {
				return fmt.Errorf("%w: stream %s, display %s", ErrWrongAspect, capsPar, par)
			}
		}
		displayWidth, displayHeight = caps.Width, caps.Height
	}

	if layer != nil {
		if mode, ok := s.bestMode(displayWidth, displayHeight); ok {
			if err := s.device.SetVideoMode(mode.Width, mode.Height, mode.Depth); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "SetCaps",
					"mode":     mode.String(),
					"error":    err,
				}).Warn("Could not switch video mode")
			}
		}
		if err := layer.SetPixelFormat(format); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "SetCaps",
				"format":   format.String(),
				"error":    err,
			}).Warn("Could not change the layer pixel format")
		} else {
			cfg := layer.Config()
			s.mu.Lock()
			s.outWidth, s.outHeight = cfg.Width, cfg.Height
			s.format = cfg.Format
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Accelerator == nil && format != s.format {
		return fmt.Errorf("%w: stream has %s but the display uses %s",
			ErrWrongFormat, format, s.format)
	}
	s.displayWidth, s.displayHeight = displayWidth, displayHeight
	s.videoWidth, s.videoHeight = caps.Width, caps.Height
	s.videoFormat = format
	return nil
}

// displaySizeForAspect scales the video geometry so that displaying it
// with the given pixel aspect ratio preserves the picture's shape. One
// of the two video dimensions is kept whenever the ratio divides it
// evenly.
func displaySizeForAspect(caps media.Caps, displayPar media.Fraction) (int, int) {
	videoPar := caps.PixelAspect
	if !videoPar.Valid() {
		videoPar = media.Fraction{Num: 1, Den: 1}
	}
	ratio := media.Fraction{
		Num: caps.Width * videoPar.Num * displayPar.Den,
		Den: caps.Height * videoPar.Den * displayPar.Num,
	}.Reduce()
	num, den := ratio.Num, ratio.Den

	switch {
	case caps.Height%den == 0:
		return caps.Height * num / den, caps.Height
	case caps.Width%num == 0:
		return caps.Width, caps.Width * den / num
	default:
		return caps.Height * num / den, caps.Height
	}
}

// bestMode returns the supported video mode closest to the wanted
// geometry.
func (s *Sink) bestMode(width, height int) (display.VideoMode, bool) {
	s.mu.RLock()
	modes := s.modes
	s.mu.RUnlock()
	if len(modes) == 0 {
		return display.VideoMode{}, false
	}
	best := modes[0]
	bestDiff := -1
	for _, m := range modes {
		diff := abs(m.Width-width) + abs(m.Height-height)
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = m, diff
		}
	}
	return best, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// centerRect places a source rectangle inside a destination one. With
// scaling it fills the destination, shrunk to the source's aspect
// ratio when asked to keep it. Without scaling the source is centered
// unscaled and clipped to the destination.
func centerRect(src, dst display.Rect, scaling, keepAspect bool) display.Rect {
	if src.W <= 0 || src.H <= 0 {
		return display.Rect{X: dst.X, Y: dst.Y}
	}
	if scaling && !keepAspect {
		return dst
	}
	var result display.Rect
	if scaling {
		if src.W*dst.H > dst.W*src.H {
			result.W = dst.W
			result.H = src.H * dst.W / src.W
		} else {
			result.H = dst.H
			result.W = src.W * dst.H / src.H
		}
	} else {
		result.W = min(src.W, dst.W)
		result.H = min(src.H, dst.H)
	}
	result.X = dst.X + (dst.W-result.W)/2
	result.Y = dst.Y + (dst.H-result.H)/2
	return result
}
