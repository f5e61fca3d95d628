package painter

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/e7canasta/pxpaint/internal/capture"
	"github.com/e7canasta/pxpaint/internal/framebuf"
	"github.com/e7canasta/pxpaint/internal/vsync"
)

// Capturer drives the frame source: capture, publish, then wait for every
// painter at the barrier before the next capture.
type Capturer struct {
	source  capture.Source
	buffer  *framebuf.Buffer
	barrier *vsync.Barrier
	rate    *capture.RateWindow

	cycles atomic.Uint64
}

// NewCapturer creates a Capturer. rate may be nil.
func NewCapturer(source capture.Source, buffer *framebuf.Buffer, barrier *vsync.Barrier, rate *capture.RateWindow) *Capturer {
	return &Capturer{
		source:  source,
		buffer:  buffer,
		barrier: barrier,
		rate:    rate,
	}
}

// Cycles returns the number of frames published so far.
func (c *Capturer) Cycles() uint64 { return c.cycles.Load() }

// Run loops until the barrier is broken or a capture fails.
//
// A broken barrier is a clean stop and returns nil. Capture and publish
// failures are returned as *CaptureError.
func (c *Capturer) Run(ctx context.Context) error {
	slog.Debug("capturer: started")

	for {
		cycle := c.cycles.Load()

		frame, err := c.source.Next(ctx)
		if err != nil {
			if c.barrier.Broken() || ctx.Err() != nil {
				// source closed during shutdown
				return nil
			}
			return &CaptureError{Cycle: cycle, Err: err}
		}

		if err := c.buffer.Publish(frame); err != nil {
			return &CaptureError{Cycle: cycle, Err: err}
		}
		c.cycles.Add(1)
		if c.rate != nil {
			c.rate.Add(time.Now())
		}

		if err := c.barrier.Wait(); err != nil {
			if errors.Is(err, vsync.ErrBroken) {
				slog.Debug("capturer: stopped", "cycles", c.cycles.Load())
				return nil
			}
			return err
		}
	}
}
