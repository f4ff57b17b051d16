// avi.go - Collect artifacts into an MJPEG AVI slideshow.
package sink

import (
	"context"
	"io"
	"time"

	"github.com/xob0t/textstamp/pkg/compositor"
	"github.com/xob0t/textstamp/pkg/generator"
)

// AVI adds each artifact's image as one slideshow frame. The file is
// written to the underlying writer on Close.
type AVI struct {
	w *generator.AVIWriter
}

// NewAVI returns a slideshow sink showing each frame for frameDuration.
func NewAVI(w io.Writer, quality int, frameDuration time.Duration) *AVI {
	return &AVI{w: generator.NewAVIWriter(w, quality, frameDuration)}
}

// Deliver appends a frame.
func (a *AVI) Deliver(ctx context.Context, art *compositor.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.w.AddFrame(art.Image)
}

// Close writes the AVI container.
func (a *AVI) Close() error {
	return a.w.Close()
}
