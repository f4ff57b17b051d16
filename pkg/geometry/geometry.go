// Package geometry maps text boxes from editor (displayed) space into the
// background image's natural pixel space.
package geometry

import (
	"fmt"
	"math"

	"github.com/xob0t/textstamp/pkg/template"
)

// Frame describes how the background was shown in the editor.
type Frame struct {
	DisplayWidth, DisplayHeight float64
	NaturalWidth, NaturalHeight float64
	OffsetX, OffsetY            float64
}

// FrameOf builds the frame for a decoded background.
func FrameOf(bg *template.Background) Frame {
	w, h := bg.NaturalSize()
	return Frame{
		DisplayWidth:  bg.DisplayWidth,
		DisplayHeight: bg.DisplayHeight,
		NaturalWidth:  float64(w),
		NaturalHeight: float64(h),
		OffsetX:       bg.OffsetX,
		OffsetY:       bg.OffsetY,
	}
}

// Scale returns natural pixels per displayed pixel on each axis.
func (f Frame) Scale() (sx, sy float64, err error) {
	if f.DisplayWidth <= 0 || f.DisplayHeight <= 0 || f.NaturalWidth <= 0 || f.NaturalHeight <= 0 {
		return 0, 0, fmt.Errorf("display %gx%g, natural %gx%g: %w",
			f.DisplayWidth, f.DisplayHeight, f.NaturalWidth, f.NaturalHeight, template.ErrNotMeasured)
	}
	return f.NaturalWidth / f.DisplayWidth, f.NaturalHeight / f.DisplayHeight, nil
}

// NaturalRect is a box in natural pixel space.
type NaturalRect struct {
	X, Y          float64
	Width, Height float64
	FontSize      float64 // whole pixels
}

// MapBox converts box into natural space. Both display offsets are removed
// before scaling; a top-left aligned image has zero offsets.
func MapBox(box template.TextBox, f Frame) (NaturalRect, error) {
	sx, sy, err := f.Scale()
	if err != nil {
		return NaturalRect{}, fmt.Errorf("map box %q: %w", box.ID, err)
	}

	return NaturalRect{
		X:        (box.X - f.OffsetX) * sx,
		Y:        (box.Y - f.OffsetY) * sy,
		Width:    box.Width * sx,
		Height:   box.Height * sy,
		FontSize: roundHalfUp(box.FontSize * sx),
	}, nil
}

// roundHalfUp rounds .5 toward +Inf.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
