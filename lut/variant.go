package lut

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// HueVariant returns a copy of table with the OkLCh hue of its first n slots
// rotated by degrees. Lightness and chroma are kept, out of gamut results are
// clamped. Slots past n are copied as they are.
func HueVariant(table *image.NRGBA, n int, degrees float64) *image.NRGBA {
	b := table.Bounds()
	out := image.NewNRGBA(b)
	draw.Copy(out, b.Min, table, b, draw.Src, nil)

	w := b.Dx()
	for i := range min(n, w*b.Dy()) {
		x, y := b.Min.X+i%w, b.Min.Y+i/w
		out.SetNRGBA(x, y, rotateHue(table.NRGBAAt(x, y), degrees))
	}

	return out
}

func rotateHue(px color.NRGBA, degrees float64) color.NRGBA {
	c := colorful.Color{
		R: float64(px.R) / 255,
		G: float64(px.G) / 255,
		B: float64(px.B) / 255,
	}

	l, chroma, h := c.OkLch()
	h = math.Mod(h+degrees, 360)
	if h < 0 {
		h += 360
	}

	r, g, bl := colorful.OkLch(l, chroma, h).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: bl, A: px.A}
}
