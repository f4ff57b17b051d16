// Package batch drives a run: check the inputs, render one artifact per
// record and hand the artifacts to a sink in record order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/xob0t/textstamp/pkg/compositor"
	"github.com/xob0t/textstamp/pkg/fonts"
	"github.com/xob0t/textstamp/pkg/sink"
	"github.com/xob0t/textstamp/pkg/template"
)

// Job is everything one run renders.
type Job struct {
	Records    []template.Record
	Boxes      []template.TextBox
	Background *template.Background
	Format     string // png (default), jpeg, bmp, tiff
	Quality    int    // JPEG quality
	// FirstIndex numbers the first record's artifact. Zero means 1; a
	// preview of record n of a larger dataset sets it to n.
	FirstIndex int
}

// index returns the artifact number of the i-th record (0-based).
func (j Job) index(i int) int {
	return max(j.FirstIndex, 1) + i
}

// Options tunes how a job runs.
type Options struct {
	// Workers is the number of records rendered concurrently. Values below
	// one mean one. Delivery order does not depend on it.
	Workers int
	// Registry resolves fonts. Nil means the built-in Go fonts only.
	Registry *fonts.Registry
	Logger   *log.Logger
	// Progress, if set, is called after each delivery.
	Progress func(delivered, total int)
}

// Report summarizes a run.
type Report struct {
	Total     int
	Delivered int
	Warnings  []string
}

// Check reports whether job can start. The error wraps template.ErrUnready,
// template.ErrNotMeasured or template.ErrInvalidInput.
func Check(job Job) error {
	switch {
	case len(job.Records) == 0:
		return fmt.Errorf("no records loaded: %w", template.ErrUnready)
	case len(job.Boxes) == 0:
		return fmt.Errorf("no text boxes defined: %w", template.ErrUnready)
	case job.Background == nil || job.Background.Image == nil:
		return fmt.Errorf("no background image: %w", template.ErrUnready)
	case !job.Background.Measured():
		return fmt.Errorf("background size unknown: %w", template.ErrNotMeasured)
	}
	for _, b := range job.Boxes {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Run renders every record of job and delivers the artifacts to s in input
// order, numbered from job.FirstIndex (default 1). Nothing is delivered
// when the job fails Check. After ctx is cancelled no further deliveries
// happen and the returned error wraps ctx.Err(). Run never closes s.
func Run(ctx context.Context, job Job, s sink.Sink, opts Options) (Report, error) {
	report := Report{Total: len(job.Records)}
	if err := Check(job); err != nil {
		return report, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	reg := opts.Registry
	if reg == nil {
		var err error
		if reg, err = fonts.NewRegistry(); err != nil {
			return report, err
		}
	}

	workers := min(max(opts.Workers, 1), len(job.Records))
	comps := make([]*compositor.Compositor, workers)
	for i := range comps {
		c, err := compositor.New(reg, compositor.Options{Format: job.Format, Quality: job.Quality, Logger: logger})
		if err != nil {
			return report, err
		}
		defer c.Close()
		comps[i] = c
	}

	r := &runner{ctx: ctx, job: job, sink: s, opts: opts, logger: logger, report: &report}
	var err error
	if workers == 1 {
		err = r.serial(comps[0])
	} else {
		err = r.parallel(comps)
	}
	report.Warnings = mergeWarnings(comps)
	return report, err
}

type runner struct {
	ctx    context.Context
	job    Job
	sink   sink.Sink
	opts   Options
	logger *log.Logger
	report *Report
}

func (r *runner) serial(c *compositor.Compositor) error {
	for i, rec := range r.job.Records {
		if err := r.ctx.Err(); err != nil {
			return r.cancelled(err)
		}
		art, err := c.Render(r.ctx, rec, r.job.index(i), r.job.Boxes, r.job.Background)
		if err != nil {
			return r.fail(r.job.index(i), err)
		}
		if err := r.deliver(art); err != nil {
			return err
		}
	}
	return nil
}

type result struct {
	index int // 0-based
	art   *compositor.Artifact
	err   error
}

// parallel renders on one goroutine per compositor. At most two records per
// worker are in flight, and a reorder buffer restores input order.
func (r *runner) parallel(comps []*compositor.Compositor) error {
	ctx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	window := make(chan struct{}, 2*len(comps))
	indexes := make(chan int)
	results := make(chan result, len(comps))

	go func() {
		defer close(indexes)
		for i := range r.job.Records {
			select {
			case window <- struct{}{}:
			case <-ctx.Done():
				return
			}
			select {
			case indexes <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for _, c := range comps {
		wg.Add(1)
		go func(c *compositor.Compositor) {
			defer wg.Done()
			for i := range indexes {
				art, err := c.Render(ctx, r.job.Records[i], r.job.index(i), r.job.Boxes, r.job.Background)
				select {
				case results <- result{index: i, art: art, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}(c)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int]result)
	next := 0
	var runErr error
	for res := range results {
		if runErr != nil {
			continue // drain
		}
		pending[res.index] = res
		for runErr == nil {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			<-window
			next++

			switch {
			case r.ctx.Err() != nil:
				runErr = r.cancelled(r.ctx.Err())
			case p.err != nil:
				runErr = r.fail(r.job.index(p.index), p.err)
			default:
				runErr = r.deliver(p.art)
			}
			if runErr != nil {
				cancel()
			}
		}
	}

	if runErr == nil && next < len(r.job.Records) {
		// Workers stopped early: only cancellation of the parent does that.
		runErr = r.cancelled(r.ctx.Err())
	}
	return runErr
}

func (r *runner) deliver(art *compositor.Artifact) error {
	if err := r.ctx.Err(); err != nil {
		return r.cancelled(err)
	}
	if err := r.sink.Deliver(r.ctx, art); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return r.cancelled(err)
		}
		r.logger.Printf("batch: delivering %s failed, %d of %d delivered: %v", art.Name, r.report.Delivered, r.report.Total, err)
		return fmt.Errorf("deliver %s: %w", art.Name, err)
	}
	r.report.Delivered++
	if r.opts.Progress != nil {
		r.opts.Progress(r.report.Delivered, r.report.Total)
	}
	return nil
}

func (r *runner) fail(index int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return r.cancelled(err)
	}
	r.logger.Printf("batch: record %d failed, %d of %d delivered: %v", index, r.report.Delivered, r.report.Total, err)
	return fmt.Errorf("record %d: %w", index, err)
}

func (r *runner) cancelled(err error) error {
	if err == nil {
		err = context.Canceled
	}
	return fmt.Errorf("batch cancelled after %d of %d: %w", r.report.Delivered, r.report.Total, err)
}

// mergeWarnings joins the compositors' warnings without duplicates.
func mergeWarnings(comps []*compositor.Compositor) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range comps {
		for _, w := range c.Warnings() {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
