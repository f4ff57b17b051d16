// pdf.go - Collect artifacts into a PDF, one page per image.
package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/xob0t/textstamp/pkg/compositor"
)

// DefaultPDFDPI maps image pixels to page millimetres.
const DefaultPDFDPI = 96

// PDF places each artifact on its own page, sized to the image at DPI.
type PDF struct {
	out    io.Writer
	dpi    float64
	title  string
	writer *pdf.PDF
	pages  int
}

// NewPDF returns a PDF sink writing to w. dpi <= 0 means DefaultPDFDPI.
func NewPDF(w io.Writer, dpi float64, title string) *PDF {
	if dpi <= 0 {
		dpi = DefaultPDFDPI
	}
	return &PDF{out: w, dpi: dpi, title: title}
}

// Pages returns the number of pages written.
func (p *PDF) Pages() int { return p.pages }

// Deliver renders art onto a new page.
func (p *PDF) Deliver(ctx context.Context, art *compositor.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := art.Image.Bounds()
	if b.Empty() {
		return fmt.Errorf("pdf: artifact %s has no pixels", art.Name)
	}

	dpmm := p.dpi / 25.4
	width := float64(b.Dx()) / dpmm
	height := float64(b.Dy()) / dpmm

	if p.writer == nil {
		p.writer = pdf.New(p.out, width, height, nil)
		p.writer.SetInfo(p.title, "", "", "", "textstamp")
	} else {
		p.writer.NewPage(width, height)
	}

	c := canvas.New(width, height)
	dc := canvas.NewContext(c)
	dc.DrawImage(0, 0, art.Image, canvas.DPMM(dpmm))
	c.Render(p.writer)
	p.pages++
	return nil
}

// Close finishes the document. An empty batch produces no output.
func (p *PDF) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("write PDF: %w", err)
	}
	return nil
}
