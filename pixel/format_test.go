package pixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatStringRoundTrip(t *testing.T) {
	for _, f := range Formats() {
		parsed := Parse(f.String())
		assert.Equal(t, f, parsed, "round trip for %s", f)
	}
}

func TestParseUnknownName(t *testing.T) {
	assert.Equal(t, Unknown, Parse("BGRA"))
	assert.Equal(t, Unknown, Parse(""))
}

func TestBitsPerPixel(t *testing.T) {
	tests := []struct {
		format Format
		bpp    int
		depth  int
	}{
		{RGB16, 16, 16},
		{RGB24, 24, 24},
		{RGB32, 32, 24},
		{ARGB, 32, 32},
		{YUY2, 16, 16},
		{UYVY, 16, 16},
		{I420, 12, 12},
		{YV12, 12, 12},
		{NV12, 12, 12},
		{NV16, 16, 16},
		{Unknown, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			assert.Equal(t, tt.bpp, tt.format.BitsPerPixel())
			assert.Equal(t, tt.depth, tt.format.Depth())
		})
	}
}

func TestFrameBytes(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		width  int
		height int
		want   int
	}{
		{"I420 NTSC", I420, 720, 480, 720 * 480 * 3 / 2},
		{"YV12 NTSC", YV12, 720, 480, 720 * 480 * 3 / 2},
		{"NV12 720p", NV12, 1280, 720, 1280 * 720 * 3 / 2},
		{"NV16 720p", NV16, 1280, 720, 1280 * 720 * 2},
		{"RGB16 VGA", RGB16, 640, 480, 640 * 480 * 2},
		{"RGB24 VGA", RGB24, 640, 480, 640 * 480 * 3},
		{"ARGB VGA", ARGB, 640, 480, 640 * 480 * 4},
		{"YUY2 VGA", YUY2, 640, 480, 640 * 480 * 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format.FrameBytes(tt.width, tt.height))
		})
	}
}

func TestRowBytes(t *testing.T) {
	assert.Equal(t, 1440, RGB16.RowBytes(720))
	assert.Equal(t, 2160, RGB24.RowBytes(720))
	assert.Equal(t, 2880, RGB32.RowBytes(720))
	assert.Equal(t, 1440, YUY2.RowBytes(720))
	// Planar formats report the luma row only.
	assert.Equal(t, 720, I420.RowBytes(720))
	assert.Equal(t, 720, NV12.RowBytes(720))
	assert.Equal(t, 0, Unknown.RowBytes(720))
}

func TestChromaOffset(t *testing.T) {
	assert.Equal(t, 720*480, I420.ChromaOffset(720, 480))
	assert.Equal(t, 720*480, NV12.ChromaOffset(720, 480))
	assert.Equal(t, 0, YUY2.ChromaOffset(720, 480))
	assert.Equal(t, 0, RGB32.ChromaOffset(720, 480))
}

func TestPixelByteConversion(t *testing.T) {
	tests := []struct {
		format Format
		bytes  int
		pixels int
	}{
		{NV12, 1080, 720},
		{NV16, 720, 720},
		{YV12, 720, 720},
		{I420, 640, 640},
		{UYVY, 1440, 720},
		{YUY2, 1440, 720},
		{RGB16, 1440, 720},
		{RGB24, 2160, 720},
		{RGB32, 2880, 720},
		{ARGB, 2880, 720},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			assert.Equal(t, tt.pixels, PixelsFromBytes(tt.format, tt.bytes))
			assert.Equal(t, tt.bytes, BytesFromPixels(tt.format, tt.pixels))
		})
	}
}

func TestPixelByteConversionUnknown(t *testing.T) {
	require.Equal(t, -1, PixelsFromBytes(Unknown, 1440))
	require.Equal(t, -1, BytesFromPixels(Unknown, 720))
}

func TestPredicates(t *testing.T) {
	assert.True(t, NV12.IsYUV())
	assert.True(t, NV12.IsPlanar())
	assert.True(t, YUY2.IsYUV())
	assert.False(t, YUY2.IsPlanar())
	assert.False(t, RGB32.IsYUV())
	assert.True(t, ARGB.HasAlpha())
	assert.False(t, RGB32.HasAlpha())
}
