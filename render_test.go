package vidsink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/vidsink/convert"
	"github.com/opd-ai/vidsink/display"
	"github.com/opd-ai/vidsink/media"
	"github.com/opd-ai/vidsink/pixel"
)

// surfacePixel reads one RGB32 pixel from a surface.
func surfacePixel(t *testing.T, surf display.Surface, x, y int) [4]byte {
	t.Helper()
	data, pitch, err := surf.Lock()
	require.NoError(t, err)
	defer surf.Unlock()
	off := y*pitch + x*4
	return [4]byte{data[off], data[off+1], data[off+2], data[off+3]}
}


func TestRenderRequiresSetup(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))

	b := media.NewBuffer(rgb32Caps(t, 4, 4), solidRGB32(4, 4, 0xFF, 0, 0))
	err := s.Render(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRenderCentersPlainBuffers(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))
	require.NoError(t, s.SetState(media.StatePaused))

	caps := rgb32Caps(t, 4, 4)
	require.NoError(t, s.SetCaps(caps))
	require.NoError(t, s.SetState(media.StatePlaying))

	b := media.NewBuffer(caps, solidRGB32(4, 4, 0xFF, 0, 0))
	require.NoError(t, s.Render(b))

	layer, err := dev.Layer(display.PrimaryLayer)
	require.NoError(t, err)
	primary, err := layer.Surface()
	require.NoError(t, err)

	red := [4]byte{0x00, 0x00, 0xFF, 0xFF}
	black := [4]byte{0x00, 0x00, 0x00, 0xFF}
	assert.Equal(t, red, surfacePixel(t, primary, 2, 2), "center holds the frame")
	assert.Equal(t, red, surfacePixel(t, primary, 5, 5))
	assert.Equal(t, black, surfacePixel(t, primary, 0, 0), "borders stay blanked")
	assert.Equal(t, black, surfacePixel(t, primary, 7, 7))
}

func TestRenderBlitsSurfaceBuffers(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))
	require.NoError(t, s.SetState(media.StatePaused))

	caps := rgb32Caps(t, 4, 4)
	require.NoError(t, s.SetCaps(caps))
	require.NoError(t, s.SetState(media.StatePlaying))

	b, err := s.AllocateBuffer(caps, pixel.RGB32.FrameBytes(4, 4))
	require.NoError(t, err)
	require.NotNil(t, b.Surface)
	copy(b.Data, solidRGB32(4, 4, 0xFF, 0, 0))

	require.NoError(t, s.Render(b))
	assert.False(t, b.Locked, "rendering unmaps the frame surface")

	layer, err := dev.Layer(display.PrimaryLayer)
	require.NoError(t, err)
	primary, err := layer.Surface()
	require.NoError(t, err)

	red := [4]byte{0x00, 0x00, 0xFF, 0xFF}
	black := [4]byte{0x00, 0x00, 0x00, 0xFF}
	assert.Equal(t, red, surfacePixel(t, primary, 2, 2))
	assert.Equal(t, black, surfacePixel(t, primary, 1, 1))

	b.Release()
}

func TestRenderScalesThroughAccelerator(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	opts := testOptions(dev)
	opts.Accelerator = convert.NewSoftwareEngine()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	caps := rgb32Caps(t, 4, 4)
	require.NoError(t, s.SetCaps(caps))

	b := media.NewBuffer(caps, solidRGB32(4, 4, 0xFF, 0, 0))
	require.NoError(t, s.Render(b))

	layer, err := dev.Layer(display.PrimaryLayer)
	require.NoError(t, err)
	primary, err := layer.Surface()
	require.NoError(t, err)

	// The 4x4 frame fills the whole 8x8 display.
	red := [4]byte{0x00, 0x00, 0xFF, 0xFF}
	assert.Equal(t, red, surfacePixel(t, primary, 0, 0))
	assert.Equal(t, red, surfacePixel(t, primary, 7, 7))
}

func TestRenderConvertsFormats(t *testing.T) {
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
	opts := testOptions(dev)
	opts.Accelerator = convert.NewSoftwareEngine()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	caps, err := media.CapsFor(pixel.YUY2, 8, 8, media.NewFraction(30, 1))
	require.NoError(t, err)
	require.NoError(t, s.SetCaps(caps))

	// White in studio range YUY2.
	data := make([]byte, pixel.YUY2.FrameBytes(8, 8))
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = 235, 128, 235, 128
	}
	require.NoError(t, s.Render(media.NewBuffer(caps, data)))

	layer, err := dev.Layer(display.PrimaryLayer)
	require.NoError(t, err)
	primary, err := layer.Surface()
	require.NoError(t, err)

	white := [4]byte{0xFF, 0xFF, 0xFF, 0xFF}
	assert.Equal(t, white, surfacePixel(t, primary, 0, 0))
	assert.Equal(t, white, surfacePixel(t, primary, 7, 3))
}

func TestRenderWeavesSequentialFields(t *testing.T) {
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
	opts := testOptions(dev)
	opts.Accelerator = convert.NewSoftwareEngine()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	caps, err := media.CapsFor(pixel.NV12, 8, 8, media.NewFraction(30, 1))
	require.NoError(t, err)
	caps.Interlaced = true
	caps.FieldLayout = media.FieldLayoutSequential
	require.NoError(t, s.SetCaps(caps))

	// White NV12, both fields identical: luma then interleaved chroma.
	data := make([]byte, pixel.NV12.FrameBytes(8, 8))
	for i := 0; i < 64; i++ {
		data[i] = 235
	}
	for i := 64; i < len(data); i++ {
		data[i] = 128
	}
	require.NoError(t, s.Render(media.NewBuffer(caps, data)))

	layer, err := dev.Layer(display.PrimaryLayer)
	require.NoError(t, err)
	primary, err := layer.Surface()
	require.NoError(t, err)

	white := [4]byte{0xFF, 0xFF, 0xFF, 0xFF}
	for _, y := range []int{0, 1, 6, 7} {
		assert.Equal(t, white, surfacePixel(t, primary, 3, y), "row %d", y)
	}
}

func TestRenderIntoExternalSurface(t *testing.T) {
	surf, err := display.NewMemorySurface(display.SurfaceDescription{
		Width: 8, Height: 8, Format: pixel.RGB32,
	})
	require.NoError(t, err)

	opts := NewOptions()
	opts.Surface = surf
	opts.VSync = false
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	caps := rgb32Caps(t, 8, 8)
	require.NoError(t, s.SetCaps(caps))
	require.NoError(t, s.Render(media.NewBuffer(caps, solidRGB32(8, 8, 0x00, 0xFF, 0x00))))

	front, pitch := surf.Front()
	for y := 0; y < 8; y++ {
		off := y * pitch
		assert.Equal(t, []byte{0x00, 0xFF, 0x00, 0xFF}, front[off:off+4], "row %d", y)
	}
}

func TestRenderFlipsBackBufferedTargets(t *testing.T) {
	surf, err := display.NewMemorySurface(display.SurfaceDescription{
		Width: 8, Height: 8, Format: pixel.RGB32,
		Caps: display.SurfaceCapFlipping,
	})
	require.NoError(t, err)

	opts := NewOptions()
	opts.Surface = surf
	opts.VSync = false
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	caps := rgb32Caps(t, 8, 8)
	require.NoError(t, s.SetCaps(caps))

	front, _ := surf.Front()
	assert.Equal(t, byte(0x00), front[2], "frame is drawn offscreen first")

	require.NoError(t, s.Render(media.NewBuffer(caps, solidRGB32(8, 8, 0xFF, 0, 0))))

	front, pitch := surf.Front()
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0xFF}, front[pitch:pitch+4],
		"flip makes the rendered frame visible")
}

func TestRenderAnnouncesFirstFrameOnce(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	bus := newBusRecorder()
	opts := testOptions(dev)
	opts.Bus = bus.callback()
	s := newTestSink(t, opts)
	require.NoError(t, s.SetState(media.StatePaused))

	caps := rgb32Caps(t, 4, 4)
	require.NoError(t, s.SetCaps(caps))
	require.NoError(t, s.SetState(media.StatePlaying))

	b := media.NewBuffer(caps, solidRGB32(4, 4, 0xFF, 0, 0))
	require.NoError(t, s.Render(b))

	msg := bus.next(t, time.Second)
	assert.Equal(t, media.MessageElement, msg.Kind)
	assert.Equal(t, media.MsgFrameRendered, msg.Name)

	require.NoError(t, s.Render(b))
	_, ok := bus.tryNext()
	assert.False(t, ok, "the announcement fires only once")

	// Pausing and resuming arms it again.
	require.NoError(t, s.SetState(media.StatePaused))
	require.NoError(t, s.SetState(media.StatePlaying))
	require.NoError(t, s.Render(b))
	msg = bus.next(t, time.Second)
	assert.Equal(t, media.MsgFrameRendered, msg.Name)
}

func TestRenderTimes(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))
	require.NoError(t, s.SetState(media.StatePaused))
	caps, err := media.CapsFor(pixel.RGB32, 4, 4, media.NewFraction(25, 1))
	require.NoError(t, err)
	require.NoError(t, s.SetCaps(caps))

	tests := []struct {
		name          string
		buffer        func() *media.Buffer
		expectedStart time.Duration
		expectedEnd   time.Duration
	}{
		{
			name:          "nil buffer",
			buffer:        func() *media.Buffer { return nil },
			expectedStart: media.TimeNone,
			expectedEnd:   media.TimeNone,
		},
		{
			name:          "no timestamp",
			buffer:        func() *media.Buffer { return media.NewBuffer(media.Caps{}, nil) },
			expectedStart: media.TimeNone,
			expectedEnd:   media.TimeNone,
		},
		{
			name: "timestamp and duration",
			buffer: func() *media.Buffer {
				b := media.NewBuffer(media.Caps{}, nil)
				b.Timestamp = time.Second
				b.Duration = 40 * time.Millisecond
				return b
			},
			expectedStart: time.Second,
			expectedEnd:   time.Second + 40*time.Millisecond,
		},
		{
			name: "duration from the framerate",
			buffer: func() *media.Buffer {
				b := media.NewBuffer(media.Caps{}, nil)
				b.Timestamp = 2 * time.Second
				return b
			},
			expectedStart: 2 * time.Second,
			expectedEnd:   2*time.Second + 40*time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := s.RenderTimes(tt.buffer())
			assert.Equal(t, tt.expectedStart, start)
			assert.Equal(t, tt.expectedEnd, end)
		})
	}
}

func TestRenderTimesWithoutFramerate(t *testing.T) {
	dev := newTestDevice(t, display.SoftwareConfig{})
	s := newTestSink(t, testOptions(dev))

	b := media.NewBuffer(media.Caps{}, nil)
	b.Timestamp = time.Second
	start, end := s.RenderTimes(b)
	assert.Equal(t, time.Second, start)
	assert.Equal(t, media.TimeNone, end)
}
