// Package pipeline wires the handshake, geometry, frame buffer, barrier,
// capturer and painters into one run with a single fatal-error exit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/e7canasta/pxpaint/internal/capture"
	"github.com/e7canasta/pxpaint/internal/framebuf"
	"github.com/e7canasta/pxpaint/internal/geometry"
	"github.com/e7canasta/pxpaint/internal/negotiate"
	"github.com/e7canasta/pxpaint/internal/painter"
	"github.com/e7canasta/pxpaint/internal/vsync"
	"github.com/e7canasta/pxpaint/internal/wire"
)

// ErrAlreadyRunning is returned by Run when the pipeline is already running.
var ErrAlreadyRunning = errors.New("pipeline: already running")

// Options configure one run.
type Options struct {
	// Host is the canvas server address (host:port)
	Host string

	// OutputWidth and OutputHeight are the painted size on the canvas.
	// If either is zero, both missing values come from the SIZE handshake.
	OutputWidth  int
	OutputHeight int

	// OffsetX and OffsetY shift every painted pixel on the canvas
	OffsetX int
	OffsetY int

	// Workers is the number of painters; zero means runtime.NumCPU()
	Workers int

	Binary          bool
	FlushEveryPixel bool
	DoubleBuffer    bool
	Alpha           uint8

	// Dialer opens painter connections; nil uses net.Dialer
	Dialer painter.Dialer
}

// Pipeline runs the capture and painting loops for one source.
type Pipeline struct {
	opts   Options
	source capture.Source
	runID  string

	mu        sync.RWMutex
	isRunning bool
	started   time.Time
	geometry  geometry.Geometry
	capturer  *painter.Capturer
	workers   []*painter.Worker
	rate      capture.RateWindow
}

// New creates a pipeline for source. Nothing is opened until Run.
func New(opts Options, source capture.Source) (*Pipeline, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("pipeline: host is required")
	}
	if source == nil {
		return nil, fmt.Errorf("pipeline: source is required")
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("pipeline: workers must be >= 0, got %d", opts.Workers)
	}
	if opts.OutputWidth < 0 || opts.OutputHeight < 0 {
		return nil, fmt.Errorf("pipeline: output size must be >= 0, got %dx%d", opts.OutputWidth, opts.OutputHeight)
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.NumCPU()
	}

	return &Pipeline{
		opts:   opts,
		source: source,
		runID:  uuid.NewString(),
	}, nil
}

// RunID identifies this pipeline in logs and telemetry.
func (p *Pipeline) RunID() string { return p.runID }

// Run opens the source, sets up the run and blocks until ctx is cancelled
// or a fatal error occurs.
//
// Returns nil when ctx is cancelled. Otherwise returns the first fatal
// error: setup failures, *painter.ConnectionError, *painter.WriteError or
// *painter.CaptureError.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.isRunning = true
	p.started = time.Now()
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.isRunning = false
		p.mu.Unlock()
	}()

	err := p.run(ctx)
	if err != nil && ctx.Err() == nil {
		slog.Error("pipeline: fatal error", "run_id", p.runID, "error", err)
		return err
	}

	slog.Info("pipeline: stopped", "run_id", p.runID, "uptime", time.Since(p.started).Round(time.Millisecond))
	return nil
}

func (p *Pipeline) run(ctx context.Context) error {
	captureWidth, captureHeight, err := p.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: open source: %w", err)
	}
	defer p.source.Close()

	outW, outH, err := p.outputSize(ctx)
	if err != nil {
		return err
	}

	g, err := geometry.New(captureWidth, captureHeight, outW, outH, p.opts.OffsetX, p.opts.OffsetY)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	rows, err := geometry.Partition(g.OutputHeight, p.opts.Workers)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	policy := framebuf.Direct
	if p.opts.DoubleBuffer {
		policy = framebuf.Double
	}
	mode := wire.ASCII
	if p.opts.Binary {
		mode = wire.Binary
	}

	buffer := framebuf.New(captureWidth, captureHeight, policy)
	barrier, err := vsync.New(p.opts.Workers + 1)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	capturer := painter.NewCapturer(p.source, buffer, barrier, &p.rate)
	workers := make([]*painter.Worker, len(rows))
	for i, r := range rows {
		workers[i] = painter.NewWorker(painter.WorkerConfig{
			ID:              i,
			Addr:            p.opts.Host,
			Rows:            r,
			Geometry:        g,
			Encoder:         wire.NewEncoder(mode, p.opts.Alpha),
			FlushEveryPixel: p.opts.FlushEveryPixel,
		}, buffer, barrier, p.opts.Dialer)
	}

	p.mu.Lock()
	p.geometry = g
	p.capturer = capturer
	p.workers = workers
	p.mu.Unlock()

	slog.Info("pipeline: started",
		"run_id", p.runID,
		"host", p.opts.Host,
		"geometry", g.String(),
		"workers", len(workers),
		"mode", mode.String(),
		"buffering", policy.String(),
		"flush_every_pixel", p.opts.FlushEveryPixel,
		"alpha", p.opts.Alpha,
	)

	group, gctx := errgroup.WithContext(ctx)

	// First error or cancellation: release every barrier waiter and unblock
	// a capture call parked in the device.
	stop := context.AfterFunc(gctx, func() {
		barrier.Break()
		p.source.Close()
	})
	defer stop()

	group.Go(func() error { return capturer.Run(gctx) })
	for _, w := range workers {
		w := w
		group.Go(func() error { return w.Run(gctx) })
	}

	return group.Wait()
}

// outputSize returns the configured output size, asking the server for its
// canvas size when either dimension is unset.
func (p *Pipeline) outputSize(ctx context.Context) (int, int, error) {
	w, h := p.opts.OutputWidth, p.opts.OutputHeight
	if w > 0 && h > 0 {
		return w, h, nil
	}

	size, err := negotiate.Negotiate(ctx, p.opts.Host)
	if err != nil {
		return 0, 0, fmt.Errorf("pipeline: canvas size: %w", err)
	}
	if w == 0 {
		w = int(size.Width)
	}
	if h == 0 {
		h = int(size.Height)
	}
	return w, h, nil
}
