package vidsink

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

// setup acquires the display resources the sink renders with. In layer
// mode it takes exclusive control of a suitable layer, enumerates video
// modes and input devices and starts the input event loop. With an
// external surface it only adopts that surface's properties.
func (s *Sink) setup() error {
	s.mu.Lock()
	s.videoWidth, s.videoHeight = 0, 0
	s.displayWidth, s.displayHeight = 0, 0
	s.outWidth, s.outHeight = 0, 0
	s.framerate = media.Fraction{}
	s.hwScaling = false
	s.backbuffer = false
	s.format = pixel.Unknown
	s.rowStride = 0
	s.chromaOffset = 0
	s.interlaced = false
	ext := s.ext
	s.mu.Unlock()

	if ext == nil {
		if err := s.setupDevice(); err != nil {
			return err
		}
	} else {
		s.setupExternal()
	}
	s.normalizeWindow()

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	return nil
}

func (s *Sink) setupDevice() error {
	desc := s.device.Description()
	logrus.WithFields(logrus.Fields{
		"function": "setupDevice",
		"name":     desc.Name,
		"vendor":   desc.Vendor,
		"memory":   desc.VideoMemory,
	}).Info("Opening display device")

	hwScaling := desc.Acceleration&display.AccelStretchBlit != 0

	// Pick a layer with a surface. Later candidates replace earlier
	// ones until the primary layer is found.
	chosen := display.LayerID(-1)
	backbuffer := false
	for _, info := range s.device.Layers() {
		if info.Description.Caps&display.LayerCapSurface == 0 {
			continue
		}
		if chosen == display.PrimaryLayer {
			continue
		}
		chosen = info.ID
		if l, err := s.device.Layer(info.ID); err == nil {
			backbuffer = l.Config().BufferMode.DoubleBuffered()
		}
	}
	if chosen < 0 {
		return ErrNoSuitableLayer
	}

	modes := s.device.Modes()
	outWidth, outHeight := 0, 0
	for _, m := range modes {
		outWidth = max(outWidth, m.Width)
		outHeight = max(outHeight, m.Height)
		logrus.WithFields(logrus.Fields{
			"function": "setupDevice",
			"mode":     m.String(),
		}).Debug("Enumerated video mode")
	}

	events, err := s.device.CreateEventBuffer()
	if err != nil {
		return fmt.Errorf("creating event buffer: %w", err)
	}
	for _, in := range s.device.Inputs() {
		if err := in.Attach(events); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "setupDevice",
				"device":   in.Info().Name,
				"error":    err,
			}).Warn("Could not attach input device")
		}
	}

	layer, err := s.device.Layer(chosen)
	if err != nil {
		events.Close()
		return fmt.Errorf("%w: %w", ErrNoSuitableLayer, err)
	}
	if err := layer.SetAccess(display.AccessExclusive); err != nil {
		events.Close()
		return fmt.Errorf("%w: %w", ErrExclusiveAccess, err)
	}

	channels := balanceChannels(layer.Description().Caps)

	if err := layer.SetBackground(0, 0, 0, 0xFF); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "setupDevice",
			"error":    err,
		}).Warn("Could not set background color")
	}
	if err := layer.EnableCursor(true); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "setupDevice",
			"error":    err,
		}).Warn("Could not enable the cursor")
	}
	if backbuffer {
		if err := layer.SetBufferMode(display.BufferModeBackVideo, display.SurfaceCapFlipping); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "setupDevice",
				"error":    err,
			}).Warn("Could not enable layer back buffer")
		}
	}

	primary, err := layer.Surface()
	if err != nil {
		events.Close()
		return fmt.Errorf("getting layer surface: %w", err)
	}
	if err := primary.SetBlitFlags(display.BlitNoFX); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "setupDevice",
			"error":    err,
		}).Warn("Could not reset blitting flags")
	}

	s.mu.Lock()
	s.hwScaling = hwScaling
	s.backbuffer = backbuffer
	s.modes = modes
	s.outWidth, s.outHeight = outWidth, outHeight
	s.events = events
	s.layer = layer
	s.primary = primary
	s.format = primary.PixelFormat()
	s.channels = channels
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "setupDevice",
		"layer":      chosen,
		"format":     primary.PixelFormat().String(),
		"hw_scaling": hwScaling,
		"backbuffer": backbuffer,
	}).Info("Took over display layer")

	s.initColorBalance()

	s.eventsWG.Add(1)
	go s.eventLoop(events)
	return nil
}

// balanceChannels builds the picture controls a layer offers.
func balanceChannels(caps display.LayerCaps) []media.ColorChannel {
	var channels []media.ColorChannel
	add := func(label string) {
		channels = append(channels, media.ColorChannel{Label: label, Min: 0x0000, Max: 0xFFFF})
	}
	if caps&display.LayerCapBrightness != 0 {
		add(ChannelBrightness)
	}
	if caps&display.LayerCapContrast != 0 {
		add(ChannelContrast)
	}
	if caps&display.LayerCapHue != 0 {
		add(ChannelHue)
	}
	if caps&display.LayerCapSaturation != 0 {
		add(ChannelSaturation)
	}
	return channels
}

func (s *Sink) setupExternal() {
	w, h := s.ext.Size()
	f := s.ext.PixelFormat()
	caps := s.ext.Capabilities()

	s.mu.Lock()
	s.format = f
	s.outWidth, s.outHeight = w, h
	s.backbuffer = caps.Flipping()
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "setupExternal",
		"width":      w,
		"height":     h,
		"format":     f.String(),
		"backbuffer": caps.Flipping(),
	}).Info("Rendering to external surface")
}

// normalizeWindow resolves the render region against the target
// surface: zero extents mean the full surface and offsets wrap into
// bounds.
func (s *Sink) normalizeWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.target()
	if target == nil {
		return
	}
	w, h := target.Size()
	if s.window.W == 0 {
		s.window.W = w
	}
	if s.window.H == 0 {
		s.window.H = h
	}
	if s.window.X >= w {
		logrus.WithFields(logrus.Fields{
			"function": "normalizeWindow",
			"x":        s.window.X,
			"width":    w,
		}).Warn("Window x offset outside the target surface, wrapping")
		s.window.X %= w
	}
	if s.window.Y >= h {
		logrus.WithFields(logrus.Fields{
			"function": "normalizeWindow",
			"y":        s.window.Y,
			"height":   h,
		}).Warn("Window y offset outside the target surface, wrapping")
		s.window.Y %= h
	}
}

// cleanup releases everything setup acquired. The injected device
// itself stays open; its owner closes it.
func (s *Sink) cleanup() {
	logrus.WithFields(logrus.Fields{
		"function": "cleanup",
	}).Debug("Releasing display resources")

	s.mu.Lock()
	events := s.events
	s.events = nil
	s.mu.Unlock()
	if events != nil {
		events.Close()
	}
	s.eventsWG.Wait()

	s.pool.clear(s.destroyBuffer)

	s.mu.Lock()
	layer := s.layer
	primary := s.primary
	s.layer = nil
	s.primary = nil
	s.modes = nil
	s.channels = nil
	s.ready = false
	s.mu.Unlock()

	if primary != nil {
		primary.Close()
	}
	if layer != nil {
		if err := layer.EnableCursor(false); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "cleanup",
				"error":    err,
			}).Warn("Could not hide the cursor")
		}
		layer.Close()
	}
}
