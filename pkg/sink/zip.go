// zip.go - Stream artifacts into a zip archive.
package sink

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xob0t/textstamp/pkg/compositor"
)

// Zip writes artifacts as entries of a zip archive. Close finishes the
// archive but leaves the underlying writer open.
type Zip struct {
	zw *zip.Writer
}

// NewZip starts an archive on w.
func NewZip(w io.Writer) *Zip {
	return &Zip{zw: zip.NewWriter(w)}
}

// Deliver adds one entry. Encoded images are already compressed, so
// entries are stored.
func (z *Zip) Deliver(ctx context.Context, art *compositor.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := z.zw.CreateHeader(&zip.FileHeader{
		Name:     art.Name,
		Method:   zip.Store,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("zip %s: %w", art.Name, err)
	}
	if _, err := w.Write(art.Data); err != nil {
		return fmt.Errorf("zip %s: %w", art.Name, err)
	}
	return nil
}

// Close writes the central directory.
func (z *Zip) Close() error {
	return z.zw.Close()
}
