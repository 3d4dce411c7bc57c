package vidsink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

// newTestDevice builds a small software display for the tests: one
// 8x8 mode and one primary layer with full color controls, unless the
// config overrides them.
func newTestDevice(t *testing.T, cfg display.SoftwareConfig) *display.SoftwareDevice {
	t.Helper()
	if len(cfg.Modes) == 0 {
		cfg.Modes = []display.VideoMode{{Width: 8, Height: 8, Depth: 32}}
	}
	if len(cfg.Layers) == 0 {
		cfg.Layers = []display.SoftwareLayerConfig{{
			Name:   "primary",
			Type:   display.LayerGraphics,
			Caps:   display.LayerCapSurface | display.LayerCapBrightness | display.LayerCapContrast | display.LayerCapHue | display.LayerCapSaturation,
			Width:  8,
			Height: 8,
			Format: pixel.RGB32,
		}}
	}
	dev, err := display.NewSoftwareDevice(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

// newTestSink creates a sink that is torn down with the test. VSync is
// off so nothing sleeps until retrace.
func newTestSink(t *testing.T, opts *Options) *Sink {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.SetState(media.StateNull) })
	return s
}

func testOptions(dev display.Device) *Options {
	opts := NewOptions()
	opts.Device = dev
	opts.VSync = false
	return opts
}

// busRecorder collects bus messages from any goroutine.
type busRecorder struct {
	ch chan media.Message
}

func newBusRecorder() *busRecorder {
	return &busRecorder{ch: make(chan media.Message, 16)}
}

func (r *busRecorder) callback() func(media.Message) {
	return func(msg media.Message) {
		select {
		case r.ch <- msg:
		default:
		}
	}
}

func (r *busRecorder) next(t *testing.T, timeout time.Duration) media.Message {
	t.Helper()
	select {
	case msg := <-r.ch:
		return msg
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a bus message")
		return media.Message{}
	}
}

func (r *busRecorder) tryNext() (media.Message, bool) {
	select {
	case msg := <-r.ch:
		return msg, true
	default:
		return media.Message{}, false
	}
}

func solidRGB32(w, h int, r, g, b uint8) []byte {
	data := make([]byte, pixel.RGB32.FrameBytes(w, h))
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = b, g, r, 0xFF
	}
	return data
}

func rgb32Caps(t *testing.T, w, h int) media.Caps {
	t.Helper()
	caps, err := media.CapsFor(pixel.RGB32, w, h, media.NewFraction(30, 1))
	require.NoError(t, err)
	return caps
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		opts        func(t *testing.T) *Options
		expectedErr string
	}{
		{
			name: "device target",
			opts: func(t *testing.T) *Options {
				return testOptions(newTestDevice(t, display.SoftwareConfig{}))
			},
		},
		{
			name: "surface target",
			opts: func(t *testing.T) *Options {
				surf, err := display.NewMemorySurface(display.SurfaceDescription{
					Width: 8, Height: 8, Format: pixel.RGB32,
				})
				require.NoError(t, err)
				opts := NewOptions()
				opts.Surface = surf
				return opts
			},
		},
		{
			name: "no target",
			opts: func(t *testing.T) *Options {
				return NewOptions()
			},
			expectedErr: "no display device or target surface",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.opts(t))
			if tt.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, s)
			assert.Equal(t, media.StateNull, s.State())
			s.SetState(media.StateNull)
		})
	}
}

func TestSinkDefaults(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))

	assert.False(t, s.VSync())
	assert.True(t, s.KeepAspect())
	assert.Equal(t, media.Fraction{Num: 1, Den: 1}, s.PixelAspect())
	assert.Equal(t, -1, s.Brightness())
	assert.Equal(t, -1, s.Contrast())
	assert.Equal(t, -1, s.Hue())
	assert.Equal(t, -1, s.Saturation())
	assert.False(t, s.SupportsStride())
}

func TestSinkProperties(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))

	s.SetVSync(true)
	assert.True(t, s.VSync())
	s.SetKeepAspect(false)
	assert.False(t, s.KeepAspect())

	s.SetPixelAspect(media.NewFraction(10, 11))
	assert.Equal(t, media.Fraction{Num: 10, Den: 11}, s.PixelAspect())

	s.SetPixelAspectString("4/3")
	assert.Equal(t, media.Fraction{Num: 4, Den: 3}, s.PixelAspect())
	s.SetPixelAspectString("not a ratio")
	assert.Equal(t, media.Fraction{Num: 1, Den: 1}, s.PixelAspect())

	s.SetWindow(display.Rect{X: 1, Y: 1, W: 4, H: 4})
	assert.Equal(t, display.Rect{X: 1, Y: 1, W: 4, H: 4}, s.Window())
}

func TestStateWalk(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{
		Layers: []display.SoftwareLayerConfig{{
			Name:    "primary",
			Type:    display.LayerGraphics,
			Caps:    display.LayerCapSurface,
			Width:   8,
			Height:  8,
			Format:  pixel.RGB32,
			Formats: []pixel.Format{pixel.RGB32},
		}},
	})
	s := newTestSink(t, testOptions(dev))

	// Before setup every format is on offer.
	assert.Len(t, s.Caps(), len(pixel.Formats()))

	require.NoError(t, s.SetState(media.StatePlaying))
	assert.Equal(t, media.StatePlaying, s.State())

	// The probed caps now reflect what the layer accepts.
	caps := s.Caps()
	require.Len(t, caps, 1)
	assert.Equal(t, pixel.RGB32, caps[0].Desc.Format())

	require.NoError(t, s.SetState(media.StatePaused))
	assert.Equal(t, media.StatePaused, s.State())

	require.NoError(t, s.SetState(media.StateNull))
	assert.Equal(t, media.StateNull, s.State())
	assert.Len(t, s.Caps(), len(pixel.Formats()))
}

func TestSetStateRejectsUnknownTarget(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))

	err := s.SetState(media.State(99))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, media.StateNull, s.State())
}

func TestSetupFailsWithoutUsableLayer(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{
		Layers: []display.SoftwareLayerConfig{{
			Name:   "blind",
			Type:   display.LayerGraphics,
			Width:  8,
			Height: 8,
			Format: pixel.RGB32,
		}},
	})
	bus := newBusRecorder()
	opts := testOptions(dev)
	opts.Bus = bus.callback()
	s := newTestSink(t, opts)

	err := s.SetState(media.StateReady)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSetupFailed)
	assert.ErrorIs(t, err, ErrNoSuitableLayer)
	assert.Equal(t, media.StateNull, s.State())

	msg := bus.next(t, time.Second)
	assert.Equal(t, media.MessageError, msg.Kind)
}

func TestExternalSurfaceMode(t *testing.T) {
	surf, err := display.NewMemorySurface(display.SurfaceDescription{
		Width: 8, Height: 8, Format: pixel.UYVY,
	})
	require.NoError(t, err)

	opts := NewOptions()
	opts.Surface = surf
	opts.VSync = false
	s := newTestSink(t, opts)

	require.NoError(t, s.SetState(media.StatePaused))

	caps := s.Caps()
	require.Len(t, caps, 1)
	assert.Equal(t, pixel.UYVY, caps[0].Desc.Format())

	require.NoError(t, s.SetState(media.StateNull))
}
