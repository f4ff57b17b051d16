// color.go - Hex color parsing and solid image creation.
package generator

import (
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa" (the leading '#' is
// optional). "random" yields a random opaque color.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "random" {
		buf := make([]byte, 3)
		if _, err := rand.Read(buf); err != nil {
			return color.RGBA{}, fmt.Errorf("random color: %w", err)
		}
		return color.RGBA{buf[0], buf[1], buf[2], 255}, nil
	}

	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected #rgb, #rrggbb or #rrggbbaa", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(c).(color.RGBA), nil
}

// ParseHexRGBA is ParseColor with a fallback: on error it returns def.
func ParseHexRGBA(hex string, def color.RGBA) color.RGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return def
	}
	return c
}

// NewSolidImage creates a uniform solid-color image.
func NewSolidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, xdraw.Src)
	return img
}
