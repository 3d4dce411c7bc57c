package convert

import (
	"image"

	"github.com/opd-ai/vidsink/pixel"
)

// Studio range BT.601 conversion, the convention of the packed and
// planar YUV formats handled here.

func yuvToRGB(y, u, v uint8) (r, g, b uint8) {
	c := int(y) - 16
	d := int(u) - 128
	e := int(v) - 128
	r = clamp8((298*c + 409*e + 128) >> 8)
	g = clamp8((298*c - 100*d - 208*e + 128) >> 8)
	b = clamp8((298*c + 516*d + 128) >> 8)
	return
}

func rgbToYUV(r, g, b uint8) (y, u, v uint8) {
	rr, gg, bb := int(r), int(g), int(b)
	y = uint8(((66*rr + 129*gg + 25*bb + 128) >> 8) + 16)
	u = uint8(((-38*rr - 74*gg + 112*bb + 128) >> 8) + 128)
	v = uint8(((112*rr - 94*gg - 18*bb + 128) >> 8) + 128)
	return
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// decodeRGBA expands a frame into an RGBA image.
func decodeRGBA(f *Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	stride := f.stride()
	cs := f.chromaStride()

	for y := 0; y < f.Height; y++ {
		row := f.Data[y*stride:]
		out := img.Pix[y*img.Stride:]
		switch f.Format {
		case pixel.RGB16:
			for x := 0; x < f.Width; x++ {
				v := uint16(row[2*x]) | uint16(row[2*x+1])<<8
				r := uint8(v >> 11)
				g := uint8(v >> 5 & 0x3F)
				b := uint8(v & 0x1F)
				out[4*x] = r<<3 | r>>2
				out[4*x+1] = g<<2 | g>>4
				out[4*x+2] = b<<3 | b>>2
				out[4*x+3] = 0xFF
			}
		case pixel.RGB24:
			for x := 0; x < f.Width; x++ {
				out[4*x] = row[3*x+2]
				out[4*x+1] = row[3*x+1]
				out[4*x+2] = row[3*x]
				out[4*x+3] = 0xFF
			}
		case pixel.RGB32, pixel.ARGB:
			for x := 0; x < f.Width; x++ {
				out[4*x] = row[4*x+2]
				out[4*x+1] = row[4*x+1]
				out[4*x+2] = row[4*x]
				if f.Format == pixel.ARGB {
					out[4*x+3] = row[4*x+3]
				} else {
					out[4*x+3] = 0xFF
				}
			}
		case pixel.YUY2:
			for x := 0; x < f.Width; x += 2 {
				y0, u, y1, v := row[2*x], row[2*x+1], row[2*x+2], row[2*x+3]
				r, g, b := yuvToRGB(y0, u, v)
				putRGBA(out[4*x:], r, g, b)
				r, g, b = yuvToRGB(y1, u, v)
				putRGBA(out[4*x+4:], r, g, b)
			}
		case pixel.UYVY:
			for x := 0; x < f.Width; x += 2 {
				u, y0, v, y1 := row[2*x], row[2*x+1], row[2*x+2], row[2*x+3]
				r, g, b := yuvToRGB(y0, u, v)
				putRGBA(out[4*x:], r, g, b)
				r, g, b = yuvToRGB(y1, u, v)
				putRGBA(out[4*x+4:], r, g, b)
			}
		case pixel.I420, pixel.YV12:
			uPlane := f.Chroma
			vPlane := f.Chroma[cs*f.Height/2:]
			if f.Format == pixel.YV12 {
				uPlane, vPlane = vPlane, uPlane
			}
			crow := (y / 2) * cs
			for x := 0; x < f.Width; x++ {
				r, g, b := yuvToRGB(row[x], uPlane[crow+x/2], vPlane[crow+x/2])
				putRGBA(out[4*x:], r, g, b)
			}
		case pixel.NV12, pixel.NV16:
			cy := y
			if f.Format == pixel.NV12 {
				cy = y / 2
			}
			crow := f.Chroma[cy*cs:]
			for x := 0; x < f.Width; x++ {
				r, g, b := yuvToRGB(row[x], crow[x&^1], crow[x&^1+1])
				putRGBA(out[4*x:], r, g, b)
			}
		}
	}
	return img
}

func putRGBA(out []byte, r, g, b uint8) {
	out[0] = r
	out[1] = g
	out[2] = b
	out[3] = 0xFF
}

// encodeRGBA folds an RGBA image into the destination frame.
func encodeRGBA(f *Frame, img *image.RGBA) {
	stride := f.stride()

	for y := 0; y < f.Height; y++ {
		row := f.Data[y*stride:]
		in := img.Pix[y*img.Stride:]
		switch f.Format {
		case pixel.RGB16:
			for x := 0; x < f.Width; x++ {
				r, g, b := in[4*x], in[4*x+1], in[4*x+2]
				v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
				row[2*x] = byte(v)
				row[2*x+1] = byte(v >> 8)
			}
		case pixel.RGB24:
			for x := 0; x < f.Width; x++ {
				row[3*x] = in[4*x+2]
				row[3*x+1] = in[4*x+1]
				row[3*x+2] = in[4*x]
			}
		case pixel.RGB32:
			for x := 0; x < f.Width; x++ {
				row[4*x] = in[4*x+2]
				row[4*x+1] = in[4*x+1]
				row[4*x+2] = in[4*x]
				row[4*x+3] = 0xFF
			}
		case pixel.ARGB:
			for x := 0; x < f.Width; x++ {
				row[4*x] = in[4*x+2]
				row[4*x+1] = in[4*x+1]
				row[4*x+2] = in[4*x]
				row[4*x+3] = in[4*x+3]
			}
		case pixel.YUY2, pixel.UYVY:
			for x := 0; x < f.Width; x += 2 {
				y0, u0, v0 := rgbToYUV(in[4*x], in[4*x+1], in[4*x+2])
				y1, u1, v1 := rgbToYUV(in[4*x+4], in[4*x+5], in[4*x+6])
				u := uint8((int(u0) + int(u1)) / 2)
				v := uint8((int(v0) + int(v1)) / 2)
				if f.Format == pixel.YUY2 {
					row[2*x], row[2*x+1], row[2*x+2], row[2*x+3] = y0, u, y1, v
				} else {
					row[2*x], row[2*x+1], row[2*x+2], row[2*x+3] = u, y0, v, y1
				}
			}
		case pixel.I420, pixel.YV12, pixel.NV12, pixel.NV16:
			for x := 0; x < f.Width; x++ {
				yy, _, _ := rgbToYUV(in[4*x], in[4*x+1], in[4*x+2])
				row[x] = yy
			}
		}
	}

	if f.Format.IsPlanar() {
		encodeChroma(f, img)
	}
}

// encodeChroma fills the chroma planes, averaging the pixels each
// chroma sample covers.
func encodeChroma(f *Frame, img *image.RGBA) {
	cs := f.chromaStride()
	ySub := 2
	if f.Format == pixel.NV16 {
		ySub = 1
	}

	var uPlane, vPlane []byte
	interleaved := f.Format == pixel.NV12 || f.Format == pixel.NV16
	if !interleaved {
		uPlane = f.Chroma
		vPlane = f.Chroma[cs*f.Height/2:]
		if f.Format == pixel.YV12 {
			uPlane, vPlane = vPlane, uPlane
		}
	}

	for cy := 0; cy < f.Height/ySub; cy++ {
		for cx := 0; cx < f.Width/2; cx++ {
			var su, sv, n int
			for dy := 0; dy < ySub; dy++ {
				for dx := 0; dx < 2; dx++ {
					px := (cy*ySub+dy)*img.Stride + (cx*2+dx)*4
					_, u, v := rgbToYUV(img.Pix[px], img.Pix[px+1], img.Pix[px+2])
					su += int(u)
					sv += int(v)
					n++
				}
			}
			u, v := uint8(su/n), uint8(sv/n)
			if interleaved {
				row := f.Chroma[cy*cs:]
				row[2*cx] = u
				row[2*cx+1] = v
			} else {
				uPlane[cy*cs+cx] = u
				vPlane[cy*cs+cx] = v
			}
		}
	}
}
