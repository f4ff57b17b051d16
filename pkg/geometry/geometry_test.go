package geometry

import (
	"errors"
	"image"
	"testing"

	"github.com/xob0t/textstamp/pkg/template"
)

func TestMapBoxIdentity(t *testing.T) {
	f := Frame{DisplayWidth: 800, DisplayHeight: 600, NaturalWidth: 800, NaturalHeight: 600}
	boxes := []template.TextBox{
		{ID: "a", X: 0, Y: 0, Width: 800, Height: 50, FontSize: 16},
		{ID: "b", X: 120.5, Y: 33, Width: 200, Height: 100, FontSize: 23},
		{ID: "c", X: 700, Y: 590, Width: 100, Height: 10, FontSize: 9},
	}
	for _, b := range boxes {
		got, err := MapBox(b, f)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", b.ID, err)
		}
		want := NaturalRect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height, FontSize: b.FontSize}
		if got != want {
			t.Errorf("%s: got %+v, want %+v", b.ID, got, want)
		}
	}
}

func TestMapBoxScalesAndRemovesOffset(t *testing.T) {
	// Image shown at half size, centered with a 50px left gutter.
	f := Frame{
		DisplayWidth: 400, DisplayHeight: 300,
		NaturalWidth: 800, NaturalHeight: 600,
		OffsetX: 50,
	}
	box := template.TextBox{ID: "b", X: 150, Y: 20, Width: 100, Height: 50, FontSize: 15}

	got, err := MapBox(box, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := NaturalRect{X: 200, Y: 40, Width: 200, Height: 100, FontSize: 30}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMapBoxVerticalOffset(t *testing.T) {
	f := Frame{
		DisplayWidth: 100, DisplayHeight: 100,
		NaturalWidth: 200, NaturalHeight: 200,
		OffsetY: 10,
	}
	got, err := MapBox(template.TextBox{X: 0, Y: 30, Width: 10, Height: 10, FontSize: 10}, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Y != 40 {
		t.Fatalf("Y = %g, want 40", got.Y)
	}
}

func TestMapBoxRoundsFontSize(t *testing.T) {
	tests := []struct {
		size, scale float64
		want        float64
	}{
		{16, 1.5, 24},
		{15, 1.1, 17},  // 16.5 → 17
		{13, 1.25, 16}, // 16.25 → 16
		{10, 0.35, 4},  // 3.5 → 4
	}
	for _, tt := range tests {
		f := Frame{DisplayWidth: 100, DisplayHeight: 100, NaturalWidth: 100 * tt.scale, NaturalHeight: 100}
		got, err := MapBox(template.TextBox{Width: 1, Height: 1, FontSize: tt.size}, f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.FontSize != tt.want {
			t.Errorf("size %g * %g: got %g, want %g", tt.size, tt.scale, got.FontSize, tt.want)
		}
	}
}

func TestMapBoxNotMeasured(t *testing.T) {
	frames := []Frame{
		{DisplayWidth: 0, DisplayHeight: 100, NaturalWidth: 100, NaturalHeight: 100},
		{DisplayWidth: 100, DisplayHeight: 0, NaturalWidth: 100, NaturalHeight: 100},
		{DisplayWidth: 100, DisplayHeight: 100},
	}
	for i, f := range frames {
		_, err := MapBox(template.TextBox{ID: "x", Width: 1, Height: 1, FontSize: 1}, f)
		if !errors.Is(err, template.ErrNotMeasured) {
			t.Errorf("frame %d: expected ErrNotMeasured, got %v", i, err)
		}
	}
}

func TestFrameOfDefaultsDisplayToNatural(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	bg := template.BackgroundSpec{}.Resolve(img)

	f := FrameOf(bg)
	sx, sy, err := f.Scale()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sx != 1 || sy != 1 {
		t.Fatalf("scale = %g,%g, want 1,1", sx, sy)
	}
}
