package lut

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"lutconv/palette"
)

// Sentinel fills the table slots no color was assigned to.
var Sentinel = color.NRGBA{A: 0xff}

var ErrSlotOutOfRange = errors.New("palette slot outside of lookup table")

// Materialize renders the registry as a lookup table image. The table is a
// single row while every assigned slot fits in row 0, and the full grid
// otherwise.
func Materialize(reg *palette.Registry) *image.NRGBA {
	w, h := reg.Width(), reg.Height()
	if reg.Len() <= w {
		h = 1
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	colors := reg.Colors()
	for i := range w * h {
		c := Sentinel
		if i < len(colors) {
			c = color.NRGBA{R: colors[i].R, G: colors[i].G, B: colors[i].B, A: 0xff}
		}
		img.SetNRGBA(i%w, i/w, c)
	}

	return img
}

// DecodeSlot turns an encoded pixel back into the slot it refers to, for grids
// up to 256 slots wide and high.
func DecodeSlot(px color.NRGBA, width, height int) palette.Slot {
	return palette.Slot{
		Column: (int(px.R)*width + 255) / 256,
		Row:    (int(px.G)*height + 255) / 256,
	}
}

// Restore rebuilds the colors of an encoded image from its lookup table.
// gridHeight is the row count of the palette grid the image was encoded
// against, which differs from the table height when the table was collapsed
// into a single row.
func Restore(encoded, table image.Image, gridHeight int) (*image.NRGBA, error) {
	src := toNRGBA(encoded)
	tb := table.Bounds()

	dst := image.NewNRGBA(src.Rect)
	for y := range src.Rect.Dy() {
		for x := range src.Rect.Dx() {
			px := src.NRGBAAt(x, y)
			s := DecodeSlot(px, tb.Dx(), gridHeight)
			if s.Column >= tb.Dx() || s.Row >= tb.Dy() {
				return nil, fmt.Errorf("pixel (%d, %d) refers to slot (%d, %d) of a %dx%d table: %w",
					x, y, s.Column, s.Row, tb.Dx(), tb.Dy(), ErrSlotOutOfRange)
			}

			c := nrgbaAt(table, tb.Min.X+s.Column, tb.Min.Y+s.Row)
			c.A = px.A
			dst.SetNRGBA(x, y, c)
		}
	}

	return dst, nil
}
