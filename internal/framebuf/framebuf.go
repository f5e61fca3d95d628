// Package framebuf holds the frame shared between the capture loop and the
// painter workers.
//
// One writer (the capturer) and N readers (painters) share a Buffer through
// a single sync.RWMutex. Two policies are available:
//
//   - Direct: one frame, overwritten in place under the write lock. Lowest
//     memory and latency. Painters that have not yet taken their read view
//     when the next publish lands see the newer frame, so one cycle on the
//     canvas can mix rows from two captures.
//   - Double: active + staging. The writer fills staging without the lock
//     and swaps the two under the write lock. A reader's view is always one
//     complete capture.
//
// The buffer is sized once and never resized.
package framebuf

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/e7canasta/pxpaint/internal/capture"
)

// Policy selects how published frames reach readers.
type Policy int

const (
	// Direct overwrites the single shared frame in place.
	Direct Policy = iota
	// Double writes into a staging frame and swaps it in.
	Double
)

// String returns a human-readable name for the policy
func (p Policy) String() string {
	switch p {
	case Direct:
		return "direct"
	case Double:
		return "double"
	default:
		return "unknown"
	}
}

// Buffer is the shared frame store.
type Buffer struct {
	mu      sync.RWMutex
	policy  Policy
	width   int
	height  int
	active  capture.Frame
	staging capture.Frame // nil under Direct; only touched by the writer

	publishes uint64 // atomic
}

// New allocates a zeroed buffer of width*height pixels.
func New(width, height int, policy Policy) *Buffer {
	b := &Buffer{
		policy: policy,
		width:  width,
		height: height,
		active: make(capture.Frame, width*height),
	}
	if policy == Double {
		b.staging = make(capture.Frame, width*height)
	}
	return b
}

// Policy returns the buffering policy.
func (b *Buffer) Policy() Policy { return b.policy }

// Size returns the frame dimensions.
func (b *Buffer) Size() (width, height int) { return b.width, b.height }

// Publishes returns how many frames have been published.
func (b *Buffer) Publishes() uint64 { return atomic.LoadUint64(&b.publishes) }

// Publish copies src into the buffer per the policy.
//
// Must only be called by the single writer. src must hold exactly
// width*height pixels.
func (b *Buffer) Publish(src capture.Frame) error {
	if len(src) != len(b.active) {
		return fmt.Errorf("framebuf: frame has %d pixels, buffer holds %d", len(src), len(b.active))
	}

	switch b.policy {
	case Double:
		// staging is invisible to readers; no lock needed to fill it
		copy(b.staging, src)

		b.mu.Lock()
		b.active, b.staging = b.staging, b.active
		b.mu.Unlock()

	default:
		b.mu.Lock()
		copy(b.active, src)
		b.mu.Unlock()
	}

	atomic.AddUint64(&b.publishes, 1)
	return nil
}

// Read calls fn with a shared read view of the active frame.
//
// The view is only valid inside fn; fn must not retain or modify it.
// Publish blocks until every concurrent Read has returned.
func (b *Buffer) Read(fn func(frame capture.Frame)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn(b.active)
}
