package palette

import (
	"errors"
	"fmt"
)

// Default grid dimensions of the color lookup table.
const (
	Width  = 256
	Height = 256
)

var ErrCapacityExceeded = errors.New("palette capacity exceeded")

// Color is an opaque RGB triple. Alpha never takes part in color identity.
type Color struct {
	R, G, B uint8
}

// Slot is a coordinate in the palette grid.
type Slot struct {
	Column int
	Row    int
}

// Registry assigns palette slots to colors in first-seen order, filling the
// grid row by row.
//
// A Registry must not be mutated concurrently. Lookup may be called from
// several goroutines as long as no LookupOrAssign runs at the same time.
type Registry struct {
	width, height int
	slots         map[Color]Slot
	colors        []Color

	nextColumn int
	nextRow    int
}

func NewRegistry(width, height int) *Registry {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("invalid palette dimensions %dx%d", width, height))
	}

	return &Registry{
		width:  width,
		height: height,
		slots:  make(map[Color]Slot),
	}
}

// LookupOrAssign returns the slot of c, assigning the next free one when c has
// not been seen yet. When the grid is full the registry is left unchanged and
// ErrCapacityExceeded is returned.
func (r *Registry) LookupOrAssign(c Color) (Slot, error) {
	if s, ok := r.slots[c]; ok {
		return s, nil
	}

	if len(r.colors) >= r.Cap() {
		return Slot{}, fmt.Errorf("cannot register color #%02x%02x%02x, all %d slots in use: %w",
			c.R, c.G, c.B, r.Cap(), ErrCapacityExceeded)
	}

	s := Slot{Column: r.nextColumn, Row: r.nextRow}
	r.slots[c] = s
	r.colors = append(r.colors, c)

	r.nextColumn++
	if r.nextColumn >= r.width {
		r.nextColumn = 0
		r.nextRow++
	}

	return s, nil
}

func (r *Registry) Lookup(c Color) (Slot, bool) {
	s, ok := r.slots[c]
	return s, ok
}

// ColorAt returns the color assigned to s, if any.
func (r *Registry) ColorAt(s Slot) (Color, bool) {
	if s.Column < 0 || s.Column >= r.width || s.Row < 0 {
		return Color{}, false
	}

	i := s.Row*r.width + s.Column
	if i >= len(r.colors) {
		return Color{}, false
	}
	return r.colors[i], true
}

// Colors returns the registered colors in assignment order, which is also the
// row-major order of their slots.
func (r *Registry) Colors() []Color {
	return append([]Color(nil), r.colors...)
}

// Cursor returns the next free slot position. After the last slot is used the
// row equals the grid height.
func (r *Registry) Cursor() (column, row int) {
	return r.nextColumn, r.nextRow
}

func (r *Registry) Len() int    { return len(r.colors) }
func (r *Registry) Cap() int    { return r.width * r.height }
func (r *Registry) Width() int  { return r.width }
func (r *Registry) Height() int { return r.height }
