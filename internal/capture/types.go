// Package capture defines the frame source contract consumed by the painter
// pipeline, plus the sources that need no capture hardware.
//
// A Source delivers full-resolution frames as row-major RGB pixel slices:
//
//	src.Open(ctx)   → native width, height (fails with ErrCaptureInit)
//	src.Next(ctx)   → next frame, blocking until ready
//	src.Close()
//
// The frame returned by Next belongs to the source and stays valid until the
// following Next or Close. Callers copy it (framebuf.Buffer.Publish does).
//
// The X11 screen source lives in the gstscreen subpackage so that packages
// depending only on the contract do not pull in cgo.
package capture

import (
	"context"
	"errors"
)

// Pixel is one RGB sample.
type Pixel struct {
	R, G, B uint8
}

// Frame is a row-major sequence of width*height pixels.
type Frame []Pixel

var (
	// ErrCaptureInit is returned by Open when the device cannot be opened (e.g. invalid screen id).
	ErrCaptureInit = errors.New("capture: initialization failed")
	// ErrNotOpen is returned by Next before Open succeeded or after Close.
	ErrNotOpen = errors.New("capture: source not open")
)

// Source produces frames from a capture device.
//
// Implementations must guarantee:
//   - Next returns frames of exactly width*height pixels as reported by Open
//   - Next blocks until a frame is available; it does not skip or rate-limit
//   - Close is idempotent and unblocks a pending Next where the device allows it
type Source interface {
	// Open initialises the device and returns its native resolution.
	Open(ctx context.Context) (width, height int, err error)

	// Next returns the next full frame. Any error is a capture error.
	Next(ctx context.Context) (Frame, error)

	// Close releases the device.
	Close() error
}
