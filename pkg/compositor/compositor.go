// Package compositor draws one record onto the background and encodes the
// result. Drawing is layered: background copy, then each bound box's text,
// wrapped and aligned inside the box's natural-space rectangle.
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"slices"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/xob0t/textstamp/pkg/fonts"
	"github.com/xob0t/textstamp/pkg/fontspec"
	"github.com/xob0t/textstamp/pkg/generator"
	"github.com/xob0t/textstamp/pkg/geometry"
	"github.com/xob0t/textstamp/pkg/template"
	"github.com/xob0t/textstamp/pkg/textlayout"
)

// LineHeightFactor is the line advance as a multiple of the font size.
const LineHeightFactor = 1.2

// Artifact is one encoded output image.
type Artifact struct {
	Index  int         // 1-based position of the record in the batch
	Name   string      // "image-{Index}.{ext}"
	Format string      // generator format name
	Data   []byte      // encoded raster
	Image  image.Image // composed raster; callers must not modify it
}

// Options configures a Compositor.
type Options struct {
	Format  string // output format, default png
	Quality int    // JPEG quality
	Logger  *log.Logger
}

// Compositor renders records onto a reusable surface. It is not safe for
// concurrent use.
type Compositor struct {
	faces  *fonts.FaceCache
	format string
	opts   Options
	logger *log.Logger

	surface *image.RGBA
	dc      *gg.Context

	warned   map[string]struct{}
	warnings []string
}

// New returns a Compositor that resolves fonts through reg.
func New(reg *fonts.Registry, opts Options) (*Compositor, error) {
	format, err := generator.NormalizeFormat(opts.Format)
	if err != nil {
		return nil, fmt.Errorf("compositor: %v: %w", err, template.ErrInvalidInput)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Compositor{
		faces:  reg.NewFaceCache(),
		format: format,
		opts:   opts,
		logger: logger,
		warned: make(map[string]struct{}),
	}, nil
}

// Format returns the normalized output format.
func (c *Compositor) Format() string { return c.format }

// Warnings returns the distinct non-fatal problems seen so far.
func (c *Compositor) Warnings() []string { return slices.Clone(c.warnings) }

// Close releases cached font faces.
func (c *Compositor) Close() error { return c.faces.Close() }

// Render composes record over bg and encodes it as artifact number index.
func (c *Compositor) Render(ctx context.Context, record template.Record, index int, boxes []template.TextBox, bg *template.Background) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bg == nil || bg.Image == nil {
		return nil, fmt.Errorf("render: no background image: %w", template.ErrUnready)
	}
	frame := geometry.FrameOf(bg)
	if _, _, err := frame.Scale(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	c.reset(bg.Image)

	for _, box := range boxes {
		if !box.Bound() {
			continue
		}
		if err := c.drawBox(box, record.Text(box.FieldKey), frame); err != nil {
			return nil, fmt.Errorf("render record %d, box %q: %w", index, box.ID, err)
		}
	}

	var buf bytes.Buffer
	if err := generator.Encode(&buf, c.surface, c.format, c.opts.Quality); err != nil {
		return nil, fmt.Errorf("render record %d: %w", index, err)
	}

	return &Artifact{
		Index:  index,
		Name:   fmt.Sprintf("image-%d.%s", index, generator.Ext(c.format)),
		Format: c.format,
		Data:   buf.Bytes(),
		Image:  c.snapshot(),
	}, nil
}

// reset sizes the surface to the background and copies it in unscaled,
// replacing every pixel from the previous record.
func (c *Compositor) reset(bg image.Image) {
	b := bg.Bounds()
	if c.surface == nil || c.surface.Rect.Dx() != b.Dx() || c.surface.Rect.Dy() != b.Dy() {
		c.surface = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		c.dc = gg.NewContextForRGBA(c.surface)
	}
	xdraw.Copy(c.surface, image.Point{}, bg, b, xdraw.Src, nil)
}

func (c *Compositor) snapshot() *image.RGBA {
	return &image.RGBA{
		Pix:    slices.Clone(c.surface.Pix),
		Stride: c.surface.Stride,
		Rect:   c.surface.Rect,
	}
}

func (c *Compositor) drawBox(box template.TextBox, text string, frame geometry.Frame) error {
	if text == "" {
		return nil
	}
	rect, err := geometry.MapBox(box, frame)
	if err != nil {
		return err
	}
	if rect.FontSize <= 0 {
		c.warn("box %q: font size rounds to zero at natural scale, skipped", box.ID)
		return nil
	}

	face, err := c.face(box, rect.FontSize)
	if err != nil {
		return err
	}
	c.dc.SetFontFace(face)
	c.dc.SetColor(c.color(box))

	runs := layoutRuns(text, rect, box.Align, advance(face))

	lineHeight := rect.FontSize * LineHeightFactor
	offset := middleOffset(face)
	for _, run := range runs {
		center := rect.Y + float64(run.Line)*lineHeight + rect.FontSize/2
		c.dc.DrawString(run.Text, run.X, center+offset)
	}
	return nil
}

// advance measures s at 26.6 precision. gg's MeasureString truncates to
// whole pixels.
func advance(face font.Face) textlayout.MeasureFunc {
	return func(s string) float64 {
		return float64(font.MeasureString(face, s)) / 64
	}
}

// layoutRuns wraps text to the rectangle's width and places each line.
func layoutRuns(text string, rect geometry.NaturalRect, align template.Align, measure textlayout.MeasureFunc) []textlayout.Run {
	lines := textlayout.Wrap(text, rect.Width, measure)
	return textlayout.Place(lines, rect.X, rect.Width, align, measure)
}

// face resolves "{size}px {family}", falling back to the default family
// when the family name is not valid shorthand.
func (c *Compositor) face(box template.TextBox, size float64) (font.Face, error) {
	face, res, err := c.faces.Face(fontspec.Format(size, box.FontFamily))
	if err != nil {
		c.warn("box %q: cannot parse font family %q, using %s", box.ID, box.FontFamily, fonts.FallbackFamily)
		face, res, err = c.faces.Face(fontspec.Format(size, fonts.FallbackFamily))
		if err != nil {
			return nil, err
		}
	}
	if !res.Exact {
		c.warn("font family %q is not available, using %s", box.FontFamily, res.Family)
	}
	return face, nil
}

func (c *Compositor) color(box template.TextBox) color.Color {
	col, err := generator.ParseColor(box.Color)
	if err != nil {
		c.warn("box %q: %v, using black", box.ID, err)
		return color.Black
	}
	return col
}

// warn records and logs a warning the first time it is seen.
func (c *Compositor) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if _, seen := c.warned[msg]; seen {
		return
	}
	c.warned[msg] = struct{}{}
	c.warnings = append(c.warnings, msg)
	c.logger.Printf("Warning: %s", msg)
}

// middleOffset is the distance from a line's vertical center down to its
// baseline, so glyphs sit centered on the line like a middle text baseline.
func middleOffset(face font.Face) float64 {
	m := face.Metrics()
	ascent := float64(m.Ascent) / 64
	descent := float64(m.Descent) / 64
	return (ascent - descent) / 2
}
