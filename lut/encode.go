package lut

import (
	"image"
	"image/color"

	"lutconv/palette"
	"lutconv/parallel"
)

// Encoder rewrites images so that every pixel holds the palette slot of its
// color instead of the color itself.
type Encoder struct {
	reg  *palette.Registry
	pool *parallel.Pool
}

// NewEncoder returns an encoder feeding reg. A nil pool encodes on the calling
// goroutine.
func NewEncoder(reg *palette.Registry, pool *parallel.Pool) *Encoder {
	if pool == nil {
		pool = parallel.Start(1)
	}
	return &Encoder{reg: reg, pool: pool}
}

// Encode is a shorthand for a serial Encoder.
func Encode(img image.Image, reg *palette.Registry) (*image.NRGBA, error) {
	return NewEncoder(reg, nil).Encode(img)
}

type band struct {
	minY, maxY int
}

// Encode registers every color of img and returns the encoded copy, with
// bounds starting at (0, 0). Red and green hold the slot column and row
// scaled to 0-255, blue is zero and alpha is kept from the source.
//
// Colors are registered in row-major order of first appearance no matter how
// many workers scan the image. If the registry runs out of slots no pixel is
// encoded and the capacity error is returned; colors registered before the
// failure keep their slots.
func (e *Encoder) Encode(img image.Image) (*image.NRGBA, error) {
	src := toNRGBA(img)
	bands := splitBands(src.Rect.Dy(), e.pool.Size)

	seen := make([][]palette.Color, len(bands))
	for i, b := range bands {
		e.pool.Do(func() {
			seen[i] = distinctColors(src, b)
		})
	}
	e.pool.Wait(false)

	for _, colors := range seen {
		for _, c := range colors {
			if _, err := e.reg.LookupOrAssign(c); err != nil {
				return nil, err
			}
		}
	}

	dst := image.NewNRGBA(src.Rect)
	for _, b := range bands {
		e.pool.Do(func() {
			e.encodeBand(dst, src, b)
		})
	}
	e.pool.Wait(false)

	return dst, nil
}

func (e *Encoder) encodeBand(dst, src *image.NRGBA, b band) {
	w, h := e.reg.Width(), e.reg.Height()
	for y := b.minY; y < b.maxY; y++ {
		for x := range src.Rect.Dx() {
			si, di := src.PixOffset(x, y), dst.PixOffset(x, y)
			s, _ := e.reg.Lookup(palette.Color{R: src.Pix[si], G: src.Pix[si+1], B: src.Pix[si+2]})

			dst.Pix[di+0] = uint8(s.Column * 256 / w)
			dst.Pix[di+1] = uint8(s.Row * 256 / h)
			dst.Pix[di+2] = 0
			dst.Pix[di+3] = src.Pix[si+3]
		}
	}
}

func distinctColors(src *image.NRGBA, b band) []palette.Color {
	var res []palette.Color
	known := make(map[palette.Color]struct{})
	for y := b.minY; y < b.maxY; y++ {
		for x := range src.Rect.Dx() {
			i := src.PixOffset(x, y)
			c := palette.Color{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2]}
			if _, ok := known[c]; ok {
				continue
			}
			known[c] = struct{}{}
			res = append(res, c)
		}
	}
	return res
}

func splitBands(height, n int) []band {
	n = min(n, height)
	if n < 1 {
		return nil
	}

	size := (height + n - 1) / n
	bands := make([]band, 0, n)
	for y := 0; y < height; y += size {
		bands = append(bands, band{minY: y, maxY: min(y+size, height)})
	}
	return bands
}

// toNRGBA returns img as an NRGBA image anchored at (0, 0) without going
// through premultiplied alpha, so fully transparent pixels keep their color.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if src, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return src
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, nrgbaAt(img, x, y))
		}
	}
	return dst
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	switch c := img.At(x, y).(type) {
	case color.NRGBA:
		return c
	case color.NRGBA64:
		return color.NRGBA{R: uint8(c.R >> 8), G: uint8(c.G >> 8), B: uint8(c.B >> 8), A: uint8(c.A >> 8)}
	default:
		return color.NRGBAModel.Convert(c).(color.NRGBA)
	}
}
