package vidsink

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
)

// Labels of the picture controls a display layer can offer.
const (
	ChannelBrightness = "BRIGHTNESS"
	ChannelContrast   = "CONTRAST"
	ChannelHue        = "HUE"
	ChannelSaturation = "SATURATION"
)

// Channels lists the picture controls the active layer supports. The
// list is empty until the sink reaches the ready state and when the
// layer has no color controls at all.
func (s *Sink) Channels() []media.ColorChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]media.ColorChannel, len(s.channels))
	copy(out, s.channels)
	return out
}

// SetChannelValue adjusts one picture control of the layer.
func (s *Sink) SetChannelValue(label string, value int) error {
	s.mu.RLock()
	var channel *media.ColorChannel
	for i := range s.channels {
		if s.channels[i].Label == label {
			channel = &s.channels[i]
			break
		}
	}
	s.mu.RUnlock()
	if channel == nil {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, label)
	}
	if value < channel.Min || value > channel.Max {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrChannelRange,
			value, channel.Min, channel.Max)
	}

	s.mu.Lock()
	switch label {
	case ChannelBrightness:
		s.brightness = value
	case ChannelContrast:
		s.contrast = value
	case ChannelHue:
		s.hue = value
	case ChannelSaturation:
		s.saturation = value
	}
	s.balanceChanged = true
	s.mu.Unlock()

	s.updateColorBalance()
	return nil
}

// ChannelValue reads one picture control back.
func (s *Sink) ChannelValue(label string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch label {
	case ChannelBrightness:
		return s.brightness, nil
	case ChannelContrast:
		return s.contrast, nil
	case ChannelHue:
		return s.hue, nil
	case ChannelSaturation:
		return s.saturation, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, label)
}

// SetBrightness sets the brightness control. Unlike SetChannelValue it
// does not require the layer to expose the control, the value is
// applied once one shows up.
func (s *Sink) SetBrightness(v int) {
	s.mu.Lock()
	s.brightness = v
	s.balanceChanged = true
	s.mu.Unlock()
	s.updateColorBalance()
}

// Brightness returns the brightness control value, -1 when untouched.
func (s *Sink) Brightness() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brightness
}

// SetContrast sets the contrast control.
func (s *Sink) SetContrast(v int) {
	s.mu.Lock()
	s.contrast = v
	s.balanceChanged = true
	s.mu.Unlock()
	s.updateColorBalance()
}

// Contrast returns the contrast control value, -1 when untouched.
func (s *Sink) Contrast() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contrast
}

// SetHue sets the hue control.
func (s *Sink) SetHue(v int) {
	s.mu.Lock()
	s.hue = v
	s.balanceChanged = true
	s.mu.Unlock()
	s.updateColorBalance()
}

// Hue returns the hue control value, -1 when untouched.
func (s *Sink) Hue() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hue
}

// SetSaturation sets the saturation control.
func (s *Sink) SetSaturation(v int) {
	s.mu.Lock()
	s.saturation = v
	s.balanceChanged = true
	s.mu.Unlock()
	s.updateColorBalance()
}

// Saturation returns the saturation control value, -1 when untouched.
func (s *Sink) Saturation() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saturation
}

// initColorBalance seeds the controls when the layer is taken over.
// Values the application already set win over the layer's current
// ones; otherwise the layer is read back, defaulting each missing
// control to the neutral midpoint.
func (s *Sink) initColorBalance() {
	s.mu.RLock()
	layer := s.layer
	hasChannels := len(s.channels) > 0
	changed := s.balanceChanged
	s.mu.RUnlock()
	if layer == nil || !hasChannels {
		return
	}

	if !changed {
		adj, err := layer.ColorAdjustment()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "initColorBalance",
				"error":    err,
			}).Warn("Could not read the layer color controls")
		} else {
			s.mu.Lock()
			s.brightness = neutralUnless(adj.Flags, display.ColorBrightness, adj.Brightness)
			s.contrast = neutralUnless(adj.Flags, display.ColorContrast, adj.Contrast)
			s.hue = neutralUnless(adj.Flags, display.ColorHue, adj.Hue)
			s.saturation = neutralUnless(adj.Flags, display.ColorSaturation, adj.Saturation)
			s.mu.Unlock()
		}
	}
	s.updateColorBalance()
}

func neutralUnless(flags, want display.ColorFlags, value int) int {
	if flags&want != 0 {
		return value
	}
	return 0x8000
}

// updateColorBalance pushes the set controls down to the layer.
func (s *Sink) updateColorBalance() {
	s.mu.RLock()
	layer := s.layer
	var adj display.ColorAdjustment
	if s.brightness >= 0 {
		adj.Flags |= display.ColorBrightness
		adj.Brightness = s.brightness
	}
	if s.contrast >= 0 {
		adj.Flags |= display.ColorContrast
		adj.Contrast = s.contrast
	}
	if s.hue >= 0 {
		adj.Flags |= display.ColorHue
		adj.Hue = s.hue
	}
	if s.saturation >= 0 {
		adj.Flags |= display.ColorSaturation
		adj.Saturation = s.saturation
	}
	s.mu.RUnlock()

	if layer == nil || adj.Flags == 0 {
		return
	}
	if err := layer.SetColorAdjustment(adj); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "updateColorBalance",
			"error":    err,
		}).Warn("Could not apply the color controls")
	}
}
