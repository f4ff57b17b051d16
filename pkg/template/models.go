// Package template holds the project model for batch text stamping: text boxes,
// JSON records, the background description and the output settings.
package template

import (
	"fmt"
	"image"
	"strings"
)

// ── Box types ──

// Align is the horizontal alignment of text inside a box.
type Align string

const (
	AlignStart   Align = "start"
	AlignCenter  Align = "center"
	AlignEnd     Align = "end"
	AlignJustify Align = "justify"
)

// ParseAlign normalizes an alignment name. The editor spellings "left" and
// "right" map to start and end. Empty means start. ok is false for unknown
// names, which also fall back to start.
func ParseAlign(s string) (a Align, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "start", "left":
		return AlignStart, true
	case "center", "centre":
		return AlignCenter, true
	case "end", "right":
		return AlignEnd, true
	case "justify":
		return AlignJustify, true
	default:
		return AlignStart, false
	}
}

// TextBox is a labeled region placed over the background in editor (displayed) pixels.
type TextBox struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FieldKey   string  `json:"jsonKey"` // empty = unbound, renders nothing
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	Color      string  `json:"color"`
	Align      Align   `json:"textAlign,omitempty"`
}

// Bound reports whether the box is bound to a record field.
func (b TextBox) Bound() bool { return b.FieldKey != "" }

// Validate checks the size invariants every box must hold.
func (b TextBox) Validate() error {
	switch {
	case b.Width <= 0:
		return fmt.Errorf("box %q: width must be positive, got %g: %w", b.ID, b.Width, ErrInvalidInput)
	case b.Height <= 0:
		return fmt.Errorf("box %q: height must be positive, got %g: %w", b.ID, b.Height, ErrInvalidInput)
	case b.FontSize <= 0:
		return fmt.Errorf("box %q: font size must be positive, got %g: %w", b.ID, b.FontSize, ErrInvalidInput)
	}
	return nil
}

// Record is one JSON object; one record produces one output image.
type Record map[string]any

// ── Background ──

// Background is the decoded background image plus how it was displayed in
// the editor. Box coordinates are authored in displayed space.
type Background struct {
	Image         image.Image
	DisplayWidth  float64
	DisplayHeight float64
	OffsetX       float64 // image left edge relative to the editing surface
	OffsetY       float64 // image top edge relative to the editing surface
}

// NaturalSize returns the intrinsic pixel size of the image.
func (bg *Background) NaturalSize() (w, h int) {
	if bg == nil || bg.Image == nil {
		return 0, 0
	}
	r := bg.Image.Bounds()
	return r.Dx(), r.Dy()
}

// Measured reports whether both the displayed and natural sizes are known.
func (bg *Background) Measured() bool {
	w, h := bg.NaturalSize()
	return w > 0 && h > 0 && bg.DisplayWidth > 0 && bg.DisplayHeight > 0
}

// ── Project types ──

// Project is the session snapshot handed to a batch run.
type Project struct {
	Meta       Meta           `json:"meta"`
	Background BackgroundSpec `json:"background"`
	Boxes      []TextBox      `json:"boxes"`
	Output     OutputSpec     `json:"output"`
	Data       string         `json:"data,omitempty"` // optional records file (resolved from bundle)
}

// Meta holds project metadata.
type Meta struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

// BackgroundSpec locates the background image and records its display geometry.
// Zero display size means the image was shown at natural size.
type BackgroundSpec struct {
	Source        string  `json:"source"` // path to image file (resolved from bundle)
	DisplayWidth  float64 `json:"displayWidth,omitempty"`
	DisplayHeight float64 `json:"displayHeight,omitempty"`
	OffsetX       float64 `json:"offsetX,omitempty"`
	OffsetY       float64 `json:"offsetY,omitempty"`
}

// OutputSpec controls artifact encoding.
type OutputSpec struct {
	Format      string `json:"format"`      // "png" (default), "jpeg", "bmp", "tiff"
	JPEGQuality int    `json:"jpegQuality"` // 1–100, jpeg only
	FontDir     string `json:"fontDir"`     // extra TTF/OTF directory (resolved from bundle)
}

// Resolve attaches a decoded image to the recorded display geometry.
// Missing display dimensions default to the natural size.
func (s BackgroundSpec) Resolve(img image.Image) *Background {
	bg := &Background{
		Image:         img,
		DisplayWidth:  s.DisplayWidth,
		DisplayHeight: s.DisplayHeight,
		OffsetX:       s.OffsetX,
		OffsetY:       s.OffsetY,
	}
	w, h := bg.NaturalSize()
	if bg.DisplayWidth <= 0 {
		bg.DisplayWidth = float64(w)
	}
	if bg.DisplayHeight <= 0 {
		bg.DisplayHeight = float64(h)
	}
	return bg
}

// ── Defaults ──

// Editor defaults for a freshly added box.
const (
	DefaultBoxX       = 100
	DefaultBoxY       = 100
	DefaultBoxWidth   = 200
	DefaultBoxHeight  = 100
	DefaultFontSize   = 16
	DefaultFontFamily = "Arial"
	DefaultColor      = "#000000"

	MinBoxWidth  = 100
	MinBoxHeight = 50
)

// NewTextBox returns a box with the editor defaults.
func NewTextBox(id string) TextBox {
	return TextBox{
		ID:         id,
		X:          DefaultBoxX,
		Y:          DefaultBoxY,
		Width:      DefaultBoxWidth,
		Height:     DefaultBoxHeight,
		FontSize:   DefaultFontSize,
		FontFamily: DefaultFontFamily,
		Color:      DefaultColor,
		Align:      AlignStart,
	}
}

// applyBoxDefaults fills zero style fields and normalizes the alignment.
// Geometry is left alone so Validate still catches bad sizes.
func applyBoxDefaults(b *TextBox) (warning string) {
	if b.FontFamily == "" {
		b.FontFamily = DefaultFontFamily
	}
	if b.Color == "" {
		b.Color = DefaultColor
	}
	a, ok := ParseAlign(string(b.Align))
	if !ok {
		warning = fmt.Sprintf("box %q: unknown alignment %q, using start", b.ID, b.Align)
	}
	b.Align = a
	return warning
}
