// Package sink delivers rendered artifacts: to a directory, a zip archive,
// an S3 bucket, an MJPEG slideshow, a multi-page PDF or a callback.
//
// Sinks that buffer output implement io.Closer; whoever created the sink
// closes it after the batch finishes.
package sink

import (
	"context"

	"github.com/xob0t/textstamp/pkg/compositor"
)

// Sink receives artifacts in delivery order.
type Sink interface {
	Deliver(ctx context.Context, art *compositor.Artifact) error
}

// Func adapts a function to a Sink.
type Func func(ctx context.Context, art *compositor.Artifact) error

// Deliver calls f.
func (f Func) Deliver(ctx context.Context, art *compositor.Artifact) error { return f(ctx, art) }

// Collect is an in-memory sink that keeps every artifact.
type Collect struct {
	Artifacts []*compositor.Artifact
}

// Deliver appends art.
func (c *Collect) Deliver(_ context.Context, art *compositor.Artifact) error {
	c.Artifacts = append(c.Artifacts, art)
	return nil
}
