package vidsink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

func layerAdjustment(t *testing.T, dev *display.SoftwareDevice) display.ColorAdjustment {
	t.Helper()
	layer, err := dev.Layer(display.PrimaryLayer)
	require.NoError(t, err)
	adj, err := layer.ColorAdjustment()
	require.NoError(t, err)
	return adj
}

func TestChannelsFollowLayerCaps(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))

	assert.Empty(t, s.Channels(), "no controls before the layer is taken over")

	require.NoError(t, s.SetState(media.StatePaused))

	channels := s.Channels()
	require.Len(t, channels, 4)
	labels := make([]string, len(channels))
	for i, c := range channels {
		labels[i] = c.Label
		assert.Equal(t, 0x0000, c.Min)
		assert.Equal(t, 0xFFFF, c.Max)
	}
	assert.Equal(t, []string{
		ChannelBrightness, ChannelContrast, ChannelHue, ChannelSaturation,
	}, labels)
}

func TestControlsSeededFromLayer(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))
	require.NoError(t, s.SetState(media.StatePaused))

	// Nothing was set, so the layer's midpoint defaults are read back.
	assert.Equal(t, 0x8000, s.Brightness())
	assert.Equal(t, 0x8000, s.Contrast())
	assert.Equal(t, 0x8000, s.Hue())
	assert.Equal(t, 0x8000, s.Saturation())
}

func TestSetChannelValue(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))
	require.NoError(t, s.SetState(media.StatePaused))

	require.NoError(t, s.SetChannelValue(ChannelBrightness, 0xBEEF))

	v, err := s.ChannelValue(ChannelBrightness)
	require.NoError(t, err)
	assert.Equal(t, 0xBEEF, v)
	assert.Equal(t, 0xBEEF, layerAdjustment(t, dev).Brightness,
		"the control reaches the layer")
}

func TestSetChannelValueErrors(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))
	require.NoError(t, s.SetState(media.StatePaused))

	tests := []struct {
		name        string
		label       string
		value       int
		expectedErr error
	}{
		{name: "unknown control", label: "GAMMA", value: 0x8000, expectedErr: ErrUnknownChannel},
		{name: "above the range", label: ChannelContrast, value: 0x10000, expectedErr: ErrChannelRange},
		{name: "below the range", label: ChannelContrast, value: -1, expectedErr: ErrChannelRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SetChannelValue(tt.label, tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}

	_, err := s.ChannelValue("GAMMA")
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestColorOptionsApplyAtSetup(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	opts := testOptions(dev)
	opts.Brightness = 0x1234
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	assert.Equal(t, 0x1234, s.Brightness())
	assert.Equal(t, 0x1234, layerAdjustment(t, dev).Brightness)
	assert.Equal(t, -1, s.Contrast(), "untouched controls are not seeded from the layer")
	assert.Equal(t, 0x8000, layerAdjustment(t, dev).Contrast,
		"the layer keeps its own value for them")
}

func TestControlSettersApplyImmediately(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))
	require.NoError(t, s.SetState(media.StatePaused))

	s.SetSaturation(0x4321)
	assert.Equal(t, 0x4321, s.Saturation())
	assert.Equal(t, 0x4321, layerAdjustment(t, dev).Saturation)

	s.SetHue(0x2222)
	s.SetContrast(0x3333)
	s.SetBrightness(0x4444)
	adj := layerAdjustment(t, dev)
	assert.Equal(t, 0x2222, adj.Hue)
	assert.Equal(t, 0x3333, adj.Contrast)
	assert.Equal(t, 0x4444, adj.Brightness)
}

func TestLayerWithoutColorControls(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{
		Layers: []display.SoftwareLayerConfig{{
			Name:   "primary",
			Type:   display.LayerGraphics,
			Caps:   display.LayerCapSurface,
			Width:  8,
			Height: 8,
			Format: pixel.RGB32,
		}},
	})
	s := newTestSink(t, testOptions(dev))
	require.NoError(t, s.SetState(media.StatePaused))

	assert.Empty(t, s.Channels())
	err := s.SetChannelValue(ChannelBrightness, 0x8000)
	assert.ErrorIs(t, err, ErrUnknownChannel)
	assert.Equal(t, -1, s.Brightness(), "nothing was seeded")
}
