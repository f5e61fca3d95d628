package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageSource streams a single still image as if it were a live display.
//
// The file is decoded once by Open (png, jpeg, gif, bmp, tiff, webp); every
// Next returns the same frame.
type ImageSource struct {
	path string

	mu     sync.Mutex
	frame  Frame
	isOpen bool
}

// NewImageSource creates a source for the image at path.
func NewImageSource(path string) *ImageSource {
	return &ImageSource{path: path}
}

// Open decodes the image.
func (s *ImageSource) Open(ctx context.Context) (int, int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrCaptureInit, err)
	}
	defer f.Close()

	frame, w, h, err := DecodeFrame(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrCaptureInit, s.path, err)
	}

	s.mu.Lock()
	s.frame = frame
	s.isOpen = true
	s.mu.Unlock()

	slog.Info("capture: image source opened", "path", s.path, "width", w, "height", h)
	return w, h, nil
}

// Next returns the decoded image.
func (s *ImageSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isOpen {
		return nil, ErrNotOpen
	}
	return s.frame, nil
}

// Close releases the frame. Idempotent.
func (s *ImageSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isOpen = false
	s.frame = nil
	return nil
}

// DecodeFrame decodes any registered image format into a Frame.
// Alpha is dropped; color channels are the 16-bit premultiplied values cut to 8 bits.
func DecodeFrame(r io.Reader) (Frame, int, int, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, 0, 0, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, 0, 0, fmt.Errorf("empty %s image", format)
	}

	frame := make(Frame, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			frame[y*w+x] = Pixel{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}
		}
	}
	return frame, w, h, nil
}
