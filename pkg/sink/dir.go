// dir.go - Write artifacts as files into a directory.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xob0t/textstamp/pkg/compositor"
)

// Dir writes each artifact to Path/Name.
type Dir struct {
	Path string
}

// NewDir creates path if needed.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Dir{Path: path}, nil
}

// Deliver writes the artifact, replacing any file of the same name.
func (d *Dir) Deliver(ctx context.Context, art *compositor.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(d.Path, art.Name)
	if err := os.WriteFile(target, art.Data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
