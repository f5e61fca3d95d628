package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// PatternSource generates a synthetic moving gradient.
//
// Useful to exercise a canvas server without a display: every Next shifts
// the gradient by one step, so consecutive frames always differ.
type PatternSource struct {
	width  int
	height int

	mu     sync.Mutex
	frame  Frame
	seq    uint64
	isOpen bool
}

// NewPatternSource creates a pattern source of the given resolution.
func NewPatternSource(width, height int) *PatternSource {
	return &PatternSource{width: width, height: height}
}

// Open allocates the frame.
func (p *PatternSource) Open(ctx context.Context) (int, int, error) {
	if p.width <= 0 || p.height <= 0 {
		return 0, 0, fmt.Errorf("%w: pattern size %dx%d", ErrCaptureInit, p.width, p.height)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.frame = make(Frame, p.width*p.height)
	p.isOpen = true

	slog.Info("capture: pattern source opened", "width", p.width, "height", p.height)
	return p.width, p.height, nil
}

// Next renders the next gradient step.
func (p *PatternSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOpen {
		return nil, ErrNotOpen
	}

	shift := int(p.seq)
	p.seq++

	for y := 0; y < p.height; y++ {
		row := p.frame[y*p.width : (y+1)*p.width]
		g := uint8(y * 255 / max(p.height-1, 1))
		for x := range row {
			row[x] = Pixel{
				R: uint8((x + shift) * 255 / max(p.width-1, 1)),
				G: g,
				B: uint8(shift),
			}
		}
	}

	return p.frame, nil
}

// Close marks the source closed. Idempotent.
func (p *PatternSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.isOpen = false
	return nil
}
