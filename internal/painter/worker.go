// Package painter contains the two loops of the streaming pipeline: the
// Capturer that refreshes the shared frame and the Worker that paints one
// band of output rows onto its own canvas connection.
package painter

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/e7canasta/pxpaint/internal/capture"
	"github.com/e7canasta/pxpaint/internal/framebuf"
	"github.com/e7canasta/pxpaint/internal/geometry"
	"github.com/e7canasta/pxpaint/internal/vsync"
	"github.com/e7canasta/pxpaint/internal/wire"
)

// writeBufferSize is the per-connection write buffer. With per-pixel flush
// disabled, bytes reach the socket whenever it fills up.
const writeBufferSize = 64 * 1024

// Dialer opens canvas connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// WorkerConfig is fixed at spawn time.
type WorkerConfig struct {
	ID              int
	Addr            string
	Rows            geometry.RowRange
	Geometry        geometry.Geometry
	Encoder         wire.Encoder
	FlushEveryPixel bool
}

// WorkerStats is a point-in-time copy of a worker's counters.
type WorkerStats struct {
	ID     int    `json:"id" msgpack:"id"`
	Rows   string `json:"rows" msgpack:"rows"`
	Cycles uint64 `json:"cycles" msgpack:"cycles"`
	Pixels uint64 `json:"pixels" msgpack:"pixels"`
	Bytes  uint64 `json:"bytes" msgpack:"bytes"`
}

// Worker paints its row range once per barrier cycle.
type Worker struct {
	cfg     WorkerConfig
	buffer  *framebuf.Buffer
	barrier *vsync.Barrier
	dialer  Dialer

	cycles atomic.Uint64
	pixels atomic.Uint64
	bytes  atomic.Uint64
}

// NewWorker creates a worker. A nil dialer uses a zero net.Dialer.
func NewWorker(cfg WorkerConfig, buffer *framebuf.Buffer, barrier *vsync.Barrier, dialer Dialer) *Worker {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &Worker{
		cfg:     cfg,
		buffer:  buffer,
		barrier: barrier,
		dialer:  dialer,
	}
}

// Stats returns the worker's counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		ID:     w.cfg.ID,
		Rows:   w.cfg.Rows.String(),
		Cycles: w.cycles.Load(),
		Pixels: w.pixels.Load(),
		Bytes:  w.bytes.Load(),
	}
}

// Run dials the canvas and paints until the barrier is broken.
//
// Cancelling ctx closes the connection, which unblocks a pending write.
// Returns *ConnectionError if the dial fails and *WriteError on any write
// failure that is not caused by shutdown.
func (w *Worker) Run(ctx context.Context) error {
	conn, err := w.dialer.DialContext(ctx, "tcp", w.cfg.Addr)
	if err != nil {
		return &ConnectionError{Worker: w.cfg.ID, Addr: w.cfg.Addr, Err: err}
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	slog.Debug("painter: connected",
		"worker", w.cfg.ID,
		"addr", w.cfg.Addr,
		"rows", w.cfg.Rows.String(),
	)

	err = w.Paint(conn)
	if err != nil && (ctx.Err() != nil || w.barrier.Broken()) {
		// connection closed by shutdown
		return nil
	}

	slog.Debug("painter: stopped", "worker", w.cfg.ID, "cycles", w.cycles.Load())
	return err
}

// Paint runs the cycle loop against dst until the barrier is broken.
func (w *Worker) Paint(dst io.Writer) error {
	bw := bufio.NewWriterSize(dst, writeBufferSize)
	scratch := make([]byte, 0, wire.MaxMessageSize)

	for {
		if err := w.barrier.Wait(); err != nil {
			if errors.Is(err, vsync.ErrBroken) {
				// Best effort: the connection may already be gone.
				_ = bw.Flush()
				return nil
			}
			return err
		}

		var werr error
		w.buffer.Read(func(frame capture.Frame) {
			scratch, werr = w.paintRows(bw, frame, scratch)
		})
		if werr != nil {
			return &WriteError{Worker: w.cfg.ID, Err: werr}
		}
		w.cycles.Add(1)
	}
}

// paintRows encodes and writes every output pixel of the worker's rows.
func (w *Worker) paintRows(bw *bufio.Writer, frame capture.Frame, scratch []byte) ([]byte, error) {
	g := w.cfg.Geometry
	enc := w.cfg.Encoder

	var pixels, written uint64
	defer func() {
		w.pixels.Add(pixels)
		w.bytes.Add(written)
	}()

	for y := w.cfg.Rows.Start; y < w.cfg.Rows.End; y++ {
		for x := 0; x < g.OutputWidth; x++ {
			px := frame[g.Index(x, y)]
			tx, ty := g.Target(x, y)

			scratch = enc.Append(scratch[:0], tx, ty, px.R, px.G, px.B)
			if _, err := bw.Write(scratch); err != nil {
				return scratch, err
			}
			if w.cfg.FlushEveryPixel {
				if err := bw.Flush(); err != nil {
					return scratch, err
				}
			}

			pixels++
			written += uint64(len(scratch))
		}
	}
	return scratch, nil
}
