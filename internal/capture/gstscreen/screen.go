// Package gstscreen captures an X11 screen through a GStreamer ximagesrc
// pipeline and exposes it as a capture.Source.
//
// Requires the GStreamer runtime with the ximagesrc and videoconvert
// elements (gstreamer1.0-plugins-good / -base).
package gstscreen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/pxpaint/internal/capture"
	"github.com/tinyzimmer/go-gst/gst"
)

// Region selects a rectangle of the screen. A zero Width or Height captures the whole screen.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Config contains configuration for screen capture
type Config struct {
	// Display is the X display name (e.g. ":0"); empty uses $DISPLAY
	Display string
	// Screen is the X11 screen number
	Screen int
	// Region limits capture to part of the screen
	Region Region
	// ShowPointer draws the mouse pointer into frames
	ShowPointer bool
}

// Source implements capture.Source on top of ximagesrc.
type Source struct {
	cfg Config

	mu       sync.Mutex
	elements *PipelineElements
	frame    capture.Frame
	width    int
	height   int
	pending  *gst.Sample // first sample, pulled by Open to learn the size

	frameCount uint64
	closed     atomic.Bool
}

// New creates a screen source. Nothing is started until Open.
func New(cfg Config) *Source {
	return &Source{cfg: cfg}
}

// Open starts the pipeline and waits for the first frame to learn the
// native resolution. Fails with capture.ErrCaptureInit if the screen cannot
// be captured.
func (s *Source) Open(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.elements != nil {
		return 0, 0, fmt.Errorf("%w: screen source already open", capture.ErrCaptureInit)
	}

	elements, err := CreatePipeline(s.cfg)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", capture.ErrCaptureInit, err)
	}

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		DestroyPipeline(elements)
		return 0, 0, fmt.Errorf("%w: failed to start pipeline: %v", capture.ErrCaptureInit, err)
	}

	sample := elements.AppSink.PullSample()
	if sample == nil {
		err := busError(elements)
		DestroyPipeline(elements)
		return 0, 0, fmt.Errorf("%w: screen %d: %v", capture.ErrCaptureInit, s.cfg.Screen, err)
	}

	w, h, err := sampleSize(sample)
	if err != nil {
		DestroyPipeline(elements)
		return 0, 0, fmt.Errorf("%w: %v", capture.ErrCaptureInit, err)
	}

	s.elements = elements
	s.width, s.height = w, h
	s.frame = make(capture.Frame, w*h)
	s.pending = sample
	s.closed.Store(false)

	slog.Info("capture: screen source opened",
		"display", s.cfg.Display,
		"screen", s.cfg.Screen,
		"resolution", fmt.Sprintf("%dx%d", w, h),
	)

	return w, h, nil
}

// Next pulls the next frame from the appsink, blocking until one is ready.
func (s *Source) Next(ctx context.Context) (capture.Frame, error) {
	s.mu.Lock()
	elements := s.elements
	sample := s.pending
	s.pending = nil
	s.mu.Unlock()

	if elements == nil || s.closed.Load() {
		return nil, capture.ErrNotOpen
	}

	if sample == nil {
		sample = elements.AppSink.PullSample()
	}
	if sample == nil {
		if s.closed.Load() {
			return nil, capture.ErrNotOpen
		}
		if elements.AppSink.IsEOS() {
			return nil, fmt.Errorf("capture: end of stream after %d frames", atomic.LoadUint64(&s.frameCount))
		}
		return nil, busError(elements)
	}

	if err := s.copySample(sample); err != nil {
		return nil, err
	}
	atomic.AddUint64(&s.frameCount, 1)

	return s.frame, nil
}

// copySample converts the sample's packed RGB rows into s.frame.
// GStreamer pads RGB rows to a 4-byte stride, so rows are copied one by one.
func (s *Source) copySample(sample *gst.Sample) error {
	buffer := sample.GetBuffer()
	if buffer == nil {
		return fmt.Errorf("capture: sample without buffer")
	}

	mapInfo := buffer.Map(gst.MapRead)
	defer buffer.Unmap()

	data := mapInfo.Bytes()
	if len(data) == 0 || s.height == 0 {
		return fmt.Errorf("capture: empty buffer")
	}

	stride := len(data) / s.height
	if stride < s.width*3 {
		return fmt.Errorf("capture: buffer of %d bytes too small for %dx%d RGB", len(data), s.width, s.height)
	}

	for y := 0; y < s.height; y++ {
		row := data[y*stride : y*stride+s.width*3]
		dst := s.frame[y*s.width : (y+1)*s.width]
		for x := range dst {
			dst[x] = capture.Pixel{R: row[3*x], G: row[3*x+1], B: row[3*x+2]}
		}
	}
	return nil
}

// Close stops the pipeline, which also unblocks a pending Next. Idempotent.
func (s *Source) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := DestroyPipeline(s.elements)
	s.elements = nil
	s.pending = nil

	slog.Info("capture: screen source closed",
		"frames_captured", atomic.LoadUint64(&s.frameCount),
	)
	return err
}

// busError pops the pending bus error, if any, and classifies it.
func busError(elements *PipelineElements) error {
	msg := elements.Pipeline.GetPipelineBus().TimedPop(100 * time.Millisecond)
	if msg == nil || msg.Type() != gst.MessageError {
		return fmt.Errorf("capture: appsink returned no sample")
	}

	gerr := msg.ParseError()
	category := ClassifyGStreamerError(gerr)
	slog.Error("capture: pipeline error",
		"error", gerr.Error(),
		"debug", gerr.DebugString(),
		"category", category.String(),
	)
	return fmt.Errorf("capture: pipeline error [%s]: %s", category.String(), gerr.Error())
}
