package lut

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"lutconv/palette"
	"lutconv/parallel"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func newImage(w, h int, pixels ...color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, c := range pixels {
		img.SetNRGBA(i%w, i/w, c)
	}
	return img
}

// gradient returns an image whose pixels are all distinct colors, numbered
// from offset in row-major order.
func gradient(w, h, offset int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range w * h {
		v := i + offset
		img.SetNRGBA(i%w, i/w, color.NRGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: uint8(i)})
	}
	return img
}

func TestEncodeScenario(t *testing.T) {
	reg := palette.NewRegistry(palette.Width, palette.Height)
	src := newImage(2, 2, red, red, green, blue)

	enc, err := Encode(src, reg)
	if err != nil {
		t.Fatal(err)
	}

	wantSlots := map[palette.Color]palette.Slot{
		{R: 255}: {Column: 0, Row: 0},
		{G: 255}: {Column: 1, Row: 0},
		{B: 255}: {Column: 2, Row: 0},
	}
	for c, want := range wantSlots {
		if got, ok := reg.Lookup(c); !ok || got != want {
			t.Errorf("slot of %v = %+v (%v), want %+v", c, got, ok, want)
		}
	}

	wantPix := []color.NRGBA{
		{R: 0, G: 0, A: 255},
		{R: 0, G: 0, A: 255},
		{R: 1, G: 0, A: 255},
		{R: 2, G: 0, A: 255},
	}
	for i, want := range wantPix {
		if got := enc.NRGBAAt(i%2, i/2); got != want {
			t.Errorf("pixel %d = %v, want %v", i, got, want)
		}
	}

	table := Materialize(reg)
	if b := table.Bounds(); b.Dx() != palette.Width || b.Dy() != 1 {
		t.Fatalf("table is %dx%d, want %dx1", b.Dx(), b.Dy(), palette.Width)
	}
	for i, want := range []color.NRGBA{red, green, blue} {
		if got := table.NRGBAAt(i, 0); got != want {
			t.Errorf("table pixel %d = %v, want %v", i, got, want)
		}
	}
	for i := 3; i < palette.Width; i++ {
		if got := table.NRGBAAt(i, 0); got != Sentinel {
			t.Fatalf("table pixel %d = %v, want sentinel", i, got)
		}
	}
}

func TestEncodeKeepsAlpha(t *testing.T) {
	reg := palette.NewRegistry(palette.Width, palette.Height)
	src := newImage(3, 1,
		color.NRGBA{R: 10, G: 20, B: 30, A: 0},
		color.NRGBA{R: 10, G: 20, B: 30, A: 128},
		color.NRGBA{R: 40, G: 50, B: 60, A: 0},
	)

	enc, err := Encode(src, reg)
	if err != nil {
		t.Fatal(err)
	}

	if reg.Len() != 2 {
		t.Errorf("registered %d colors, want 2", reg.Len())
	}
	for x, wantA := range []uint8{0, 128, 0} {
		if got := enc.NRGBAAt(x, 0).A; got != wantA {
			t.Errorf("alpha at %d = %d, want %d", x, got, wantA)
		}
	}
	if got := enc.NRGBAAt(2, 0); got.R != 1 {
		t.Errorf("transparent pixel lost its color: %v", got)
	}
}

func TestEncodeNormalizesSourceTypes(t *testing.T) {
	pal := color.Palette{color.NRGBA{R: 9, G: 8, B: 7, A: 0}, color.RGBA{R: 1, G: 2, B: 3, A: 255}}
	paletted := image.NewPaletted(image.Rect(5, 5, 7, 6), pal)
	paletted.SetColorIndex(5, 5, 0)
	paletted.SetColorIndex(6, 5, 1)

	deep := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
	deep.SetNRGBA64(0, 0, color.NRGBA64{R: 0x0900, G: 0x0800, B: 0x0700, A: 0})

	reg := palette.NewRegistry(palette.Width, palette.Height)
	enc, err := Encode(paletted, reg)
	if err != nil {
		t.Fatal(err)
	}
	if b := enc.Bounds(); b != image.Rect(0, 0, 2, 1) {
		t.Errorf("encoded bounds = %v", b)
	}
	if _, err := Encode(deep, reg); err != nil {
		t.Fatal(err)
	}

	want := []palette.Color{{R: 9, G: 8, B: 7}, {R: 1, G: 2, B: 3}}
	got := reg.Colors()
	if len(got) != len(want) {
		t.Fatalf("registered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("color %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEncodeCapacityExceeded(t *testing.T) {
	reg := palette.NewRegistry(4, 2)
	src := gradient(3, 3, 0)

	enc, err := Encode(src, reg)
	if !errors.Is(err, palette.ErrCapacityExceeded) {
		t.Fatalf("got error %v, want ErrCapacityExceeded", err)
	}
	if enc != nil {
		t.Error("expected no encoded image on failure")
	}
	if reg.Len() != 8 {
		t.Errorf("registry holds %d colors, want 8", reg.Len())
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	srcs := []*image.NRGBA{gradient(37, 29, 0), gradient(16, 41, 500), newImage(2, 2, red, red, green, blue)}
	// Repeat colors across rows so bands share colors.
	for y := range 29 {
		srcs[0].SetNRGBA(0, y, srcs[0].NRGBAAt(3, 28-y))
	}

	serialReg := palette.NewRegistry(palette.Width, palette.Height)
	var serial []*image.NRGBA
	for _, src := range srcs {
		enc, err := Encode(src, serialReg)
		if err != nil {
			t.Fatal(err)
		}
		serial = append(serial, enc)
	}

	pool := parallel.Start(5)
	defer pool.Wait(true)

	parReg := palette.NewRegistry(palette.Width, palette.Height)
	encoder := NewEncoder(parReg, pool)
	for i, src := range srcs {
		enc, err := encoder.Encode(src)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(enc.Pix, serial[i].Pix) {
			t.Errorf("image %d: parallel encoding differs from serial", i)
		}
	}

	if !bytes.Equal(Materialize(parReg).Pix, Materialize(serialReg).Pix) {
		t.Error("tables differ")
	}
}

func TestMaterializeShape(t *testing.T) {
	tests := []struct {
		colors     int
		wantHeight int
	}{
		{0, 1},
		{1, 1},
		{palette.Width, 1},
		{palette.Width + 1, palette.Height},
		{palette.Width * palette.Height, palette.Height},
	}

	for _, tt := range tests {
		reg := palette.NewRegistry(palette.Width, palette.Height)
		for i := range tt.colors {
			if _, err := reg.LookupOrAssign(palette.Color{R: uint8(i), G: uint8(i >> 8), B: 1}); err != nil {
				t.Fatal(err)
			}
		}

		table := Materialize(reg)
		b := table.Bounds()
		if b.Dx() != palette.Width || b.Dy() != tt.wantHeight {
			t.Errorf("%d colors: table is %dx%d, want %dx%d", tt.colors, b.Dx(), b.Dy(), palette.Width, tt.wantHeight)
			continue
		}

		for i := range b.Dx() * b.Dy() {
			got := table.NRGBAAt(i%b.Dx(), i/b.Dx())
			if i < tt.colors {
				if got.B != 1 || got.A != 255 {
					t.Errorf("%d colors: slot %d = %v, want assigned color", tt.colors, i, got)
					break
				}
			} else if got != Sentinel {
				t.Errorf("%d colors: slot %d = %v, want sentinel", tt.colors, i, got)
				break
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	reg := palette.NewRegistry(palette.Width, palette.Height)
	srcs := []*image.NRGBA{gradient(64, 40, 0), gradient(20, 20, 2000)}

	var encoded []*image.NRGBA
	for _, src := range srcs {
		enc, err := Encode(src, reg)
		if err != nil {
			t.Fatal(err)
		}
		encoded = append(encoded, enc)
	}

	table := Materialize(reg)
	if table.Bounds().Dy() != palette.Height {
		t.Fatalf("expected a full table, got height %d", table.Bounds().Dy())
	}

	for i, enc := range encoded {
		b := enc.Bounds()
		for y := range b.Dy() {
			for x := range b.Dx() {
				s := DecodeSlot(enc.NRGBAAt(x, y), palette.Width, palette.Height)
				got := table.NRGBAAt(s.Column, s.Row)
				want := srcs[i].NRGBAAt(x, y)
				if got.R != want.R || got.G != want.G || got.B != want.B {
					t.Fatalf("image %d (%d, %d): table color %v, source %v", i, x, y, got, want)
				}
			}
		}

		restored, err := Restore(enc, table, palette.Height)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(restored.Pix, srcs[i].Pix) {
			t.Errorf("image %d: restored pixels differ from source", i)
		}
	}
}

func TestDecodeSlotSmallGrid(t *testing.T) {
	for _, dims := range [][2]int{{3, 5}, {7, 1}, {100, 200}, {256, 256}} {
		w, h := dims[0], dims[1]
		for col := range w {
			for row := range h {
				px := color.NRGBA{R: uint8(col * 256 / w), G: uint8(row * 256 / h)}
				if s := DecodeSlot(px, w, h); s.Column != col || s.Row != row {
					t.Fatalf("%dx%d: (%d, %d) decoded as %+v", w, h, col, row, s)
				}
			}
		}
	}
}

func TestRestoreCollapsedTable(t *testing.T) {
	reg := palette.NewRegistry(palette.Width, palette.Height)
	src := newImage(2, 2, red, red, green, blue)
	enc, err := Encode(src, reg)
	if err != nil {
		t.Fatal(err)
	}

	restored, err := Restore(enc, Materialize(reg), palette.Height)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(restored.Pix, src.Pix) {
		t.Error("restored pixels differ from source")
	}

	enc.SetNRGBA(0, 0, color.NRGBA{G: 1, A: 255})
	if _, err := Restore(enc, Materialize(reg), palette.Height); !errors.Is(err, ErrSlotOutOfRange) {
		t.Errorf("got error %v, want ErrSlotOutOfRange", err)
	}
}

func TestDeterministic(t *testing.T) {
	run := func() ([]byte, []byte) {
		reg := palette.NewRegistry(palette.Width, palette.Height)
		enc, err := Encode(gradient(50, 9, 77), reg)
		if err != nil {
			t.Fatal(err)
		}
		return enc.Pix, Materialize(reg).Pix
	}

	enc1, lut1 := run()
	enc2, lut2 := run()
	if !bytes.Equal(enc1, enc2) || !bytes.Equal(lut1, lut2) {
		t.Error("two runs over the same input differ")
	}
}
