package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func TestPatternSource(t *testing.T) {
	ctx := context.Background()
	src := NewPatternSource(64, 48)

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, ErrNotOpen)

	w, h, err := src.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)

	first, err := src.Next(ctx)
	require.NoError(t, err)
	require.Len(t, first, 64*48)
	snapshot := append(Frame(nil), first...)

	second, err := src.Next(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, snapshot, second, "consecutive frames should differ")

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestPatternSource_InvalidSize(t *testing.T) {
	_, _, err := NewPatternSource(0, 10).Open(context.Background())
	assert.ErrorIs(t, err, ErrCaptureInit)
}

func TestPatternSource_Cancelled(t *testing.T) {
	src := NewPatternSource(4, 4)
	_, _, err := src.Open(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func writeTestImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error, name string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xFF})
	img.Set(2, 1, color.RGBA{R: 0xFF, G: 0x00, B: 0x80, A: 0xFF})

	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestImageSource(t *testing.T) {
	encoders := map[string]func(*bytes.Buffer, image.Image) error{
		"frame.png": func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) },
		"frame.bmp": func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) },
	}

	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			path := writeTestImage(t, enc, name)
			src := NewImageSource(path)

			w, h, err := src.Open(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 3, w)
			assert.Equal(t, 2, h)

			frame, err := src.Next(context.Background())
			require.NoError(t, err)
			require.Len(t, frame, 6)
			assert.Equal(t, Pixel{0x12, 0x34, 0x56}, frame[0])
			assert.Equal(t, Pixel{0xFF, 0x00, 0x80}, frame[5])

			require.NoError(t, src.Close())
		})
	}
}

func TestImageSource_Missing(t *testing.T) {
	_, _, err := NewImageSource(filepath.Join(t.TempDir(), "nope.png")).Open(context.Background())
	assert.ErrorIs(t, err, ErrCaptureInit)
}

func TestCalculateRateStats(t *testing.T) {
	t.Run("steady 10Hz", func(t *testing.T) {
		base := time.Unix(0, 0)
		times := make([]time.Time, 11)
		for i := range times {
			times[i] = base.Add(time.Duration(i) * 100 * time.Millisecond)
		}

		stats := CalculateRateStats(times)
		assert.Equal(t, 11, stats.Cycles)
		assert.Equal(t, time.Second, stats.Duration)
		assert.InDelta(t, 10.0, stats.FPSMean, 1e-6)
		assert.InDelta(t, 0.0, stats.FPSStdDev, 1e-6)
		assert.InDelta(t, 10.0, stats.FPSMin, 1e-6)
		assert.InDelta(t, 10.0, stats.FPSMax, 1e-6)
		assert.True(t, stats.IsStable)
	})

	t.Run("bursty", func(t *testing.T) {
		base := time.Unix(0, 0)
		times := []time.Time{
			base,
			base.Add(10 * time.Millisecond),
			base.Add(500 * time.Millisecond),
			base.Add(510 * time.Millisecond),
			base.Add(1000 * time.Millisecond),
		}

		stats := CalculateRateStats(times)
		assert.False(t, stats.IsStable)
		assert.LessOrEqual(t, stats.FPSMin, stats.FPSMean)
		assert.GreaterOrEqual(t, stats.FPSMax, stats.FPSMean)
	})

	t.Run("too few", func(t *testing.T) {
		stats := CalculateRateStats([]time.Time{time.Now()})
		assert.Equal(t, RateStats{Cycles: 1}, stats)
	})
}

func TestRateWindow_Bounded(t *testing.T) {
	var w RateWindow
	base := time.Unix(0, 0)

	for i := 0; i < 3*rateWindowSize; i++ {
		w.Add(base.Add(time.Duration(i) * 20 * time.Millisecond))
		require.LessOrEqual(t, w.Len(), rateWindowSize)
	}

	stats := w.Stats()
	assert.Equal(t, rateWindowSize, stats.Cycles)
	assert.InDelta(t, 50.0, stats.FPSMean, 1e-6)
	assert.Equal(t, time.Duration(rateWindowSize-1)*20*time.Millisecond, stats.Duration)
}
