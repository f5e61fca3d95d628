// Package geometry maps output canvas coordinates onto captured frames and
// splits the output rows between painter workers.
//
// Mapping is nearest neighbour:
//
//	frame_x = floor(x * ScaleX)
//	frame_y = floor(y * ScaleY)
//	index   = frame_y * CaptureWidth + frame_x
//
// with ScaleX = CaptureWidth/OutputWidth and ScaleY = CaptureHeight/OutputHeight.
// The draw offset is added after scaling, on the way to the wire.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidSize is returned when a capture or output dimension is not positive.
	ErrInvalidSize = errors.New("geometry: invalid size")
	// ErrOffsetOverflow is returned when offset + output size exceeds the 16-bit coordinate space.
	ErrOffsetOverflow = errors.New("geometry: offset overflows 16-bit coordinates")
	// ErrNoWorkers is returned when partitioning across fewer than one worker.
	ErrNoWorkers = errors.New("geometry: worker count must be at least 1")
)

// Geometry is immutable after New.
type Geometry struct {
	CaptureWidth  int
	CaptureHeight int
	OutputWidth   int
	OutputHeight  int
	ScaleX        float64
	ScaleY        float64
	OffsetX       int
	OffsetY       int
}

// New validates the sizes and computes the scale factors.
//
// Fails with ErrInvalidSize if any dimension is not positive or the output
// exceeds 65536 pixels per axis, and with ErrOffsetOverflow if an offset
// output coordinate would not fit in uint16.
func New(captureWidth, captureHeight, outputWidth, outputHeight, offsetX, offsetY int) (Geometry, error) {
	if captureWidth <= 0 || captureHeight <= 0 {
		return Geometry{}, fmt.Errorf("%w: capture %dx%d", ErrInvalidSize, captureWidth, captureHeight)
	}
	if outputWidth <= 0 || outputHeight <= 0 || outputWidth > math.MaxUint16+1 || outputHeight > math.MaxUint16+1 {
		return Geometry{}, fmt.Errorf("%w: output %dx%d", ErrInvalidSize, outputWidth, outputHeight)
	}
	if offsetX < 0 || offsetY < 0 ||
		offsetX+outputWidth-1 > math.MaxUint16 ||
		offsetY+outputHeight-1 > math.MaxUint16 {
		return Geometry{}, fmt.Errorf("%w: offset (%d,%d) output %dx%d",
			ErrOffsetOverflow, offsetX, offsetY, outputWidth, outputHeight)
	}

	g := Geometry{
		CaptureWidth:  captureWidth,
		CaptureHeight: captureHeight,
		OutputWidth:   outputWidth,
		OutputHeight:  outputHeight,
		ScaleX:        float64(captureWidth) / float64(outputWidth),
		ScaleY:        float64(captureHeight) / float64(outputHeight),
		OffsetX:       offsetX,
		OffsetY:       offsetY,
	}

	// The last column and row must still land inside the frame.
	if fx := int(float64(outputWidth-1) * g.ScaleX); fx >= captureWidth {
		return Geometry{}, fmt.Errorf("%w: column %d maps to %d", ErrInvalidSize, outputWidth-1, fx)
	}
	if fy := int(float64(outputHeight-1) * g.ScaleY); fy >= captureHeight {
		return Geometry{}, fmt.Errorf("%w: row %d maps to %d", ErrInvalidSize, outputHeight-1, fy)
	}

	return g, nil
}

// FrameLen is the number of pixels in a captured frame.
func (g Geometry) FrameLen() int {
	return g.CaptureWidth * g.CaptureHeight
}

// Index returns the frame index of output pixel (x, y).
// x and y must be inside the output size; no clamping is done.
func (g Geometry) Index(x, y int) int {
	fx := int(float64(x) * g.ScaleX)
	fy := int(float64(y) * g.ScaleY)
	return fy*g.CaptureWidth + fx
}

// Target returns the canvas coordinates of output pixel (x, y) after the draw offset.
func (g Geometry) Target(x, y int) (uint16, uint16) {
	return uint16(x + g.OffsetX), uint16(y + g.OffsetY)
}

// String returns a compact description for logs
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d->%dx%d+%d+%d",
		g.CaptureWidth, g.CaptureHeight, g.OutputWidth, g.OutputHeight, g.OffsetX, g.OffsetY)
}
