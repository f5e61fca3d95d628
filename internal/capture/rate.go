package capture

import (
	"math"
	"sync"
	"time"
)

const (
	// rateWindowSize is the number of cycle timestamps kept by RateWindow.
	rateWindowSize = 128

	// fpsStabilityThreshold is the maximum FPS standard deviation as a fraction of mean FPS.
	// Example: 30 FPS mean → stable if stddev < 4.5 FPS
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum mean jitter as a fraction of the expected interval.
	jitterStabilityThreshold = 0.20
)

// RateStats summarises the capture cycle rate over a set of timestamps.
type RateStats struct {
	// Cycles is the number of timestamps analysed
	Cycles int
	// Duration is the time spanned by the timestamps
	Duration time.Duration
	// FPSMean is the overall cycle rate
	FPSMean float64
	// FPSStdDev is the standard deviation of the instantaneous rate
	FPSStdDev float64
	// FPSMin is the minimum instantaneous rate
	FPSMin float64
	// FPSMax is the maximum instantaneous rate
	FPSMax float64
	// JitterMean is the mean deviation from the expected interval, in seconds
	JitterMean float64
	// JitterMax is the largest deviation from the expected interval, in seconds
	JitterMax float64
	// IsStable is true if stddev < 15% of mean and jitter < 20% of the interval
	IsStable bool
}

// CalculateRateStats computes rate statistics from ordered cycle timestamps.
//
// The mean rate is (n-1)/span so that it measures intervals, not endpoints.
// Fewer than two timestamps, or a zero span, yield a zero RateStats with
// Cycles set.
func CalculateRateStats(times []time.Time) RateStats {
	n := len(times)
	if n < 2 {
		return RateStats{Cycles: n}
	}

	span := times[n-1].Sub(times[0])
	if span <= 0 {
		return RateStats{Cycles: n}
	}

	fpsMean := float64(n-1) / span.Seconds()

	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if interval := times[i].Sub(times[i-1]).Seconds(); interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}
	if len(instantaneous) == 0 {
		return RateStats{Cycles: n, Duration: span, FPSMean: fpsMean}
	}

	fpsMin, fpsMax := instantaneous[0], instantaneous[0]
	var sumSquares float64
	for _, fps := range instantaneous {
		fpsMin = math.Min(fpsMin, fps)
		fpsMax = math.Max(fpsMax, fps)
		diff := fps - fpsMean
		sumSquares += diff * diff
	}
	fpsStdDev := math.Sqrt(sumSquares / float64(len(instantaneous)))

	expected := 1.0 / fpsMean
	var jitterSum, jitterMax float64
	for i := 1; i < n; i++ {
		jitter := math.Abs(times[i].Sub(times[i-1]).Seconds() - expected)
		jitterSum += jitter
		jitterMax = math.Max(jitterMax, jitter)
	}
	jitterMean := jitterSum / float64(n-1)

	return RateStats{
		Cycles:     n,
		Duration:   span,
		FPSMean:    fpsMean,
		FPSStdDev:  fpsStdDev,
		FPSMin:     fpsMin,
		FPSMax:     fpsMax,
		JitterMean: jitterMean,
		JitterMax:  jitterMax,
		IsStable:   fpsStdDev < fpsMean*fpsStabilityThreshold && jitterMean < expected*jitterStabilityThreshold,
	}
}

// RateWindow is a bounded ring of recent cycle timestamps.
// Add is called by the capture loop, Stats by telemetry readers.
type RateWindow struct {
	mu    sync.Mutex
	times [rateWindowSize]time.Time
	next  int
	count int
}

// Add records one cycle timestamp.
func (w *RateWindow) Add(t time.Time) {
	w.mu.Lock()
	w.times[w.next] = t
	w.next = (w.next + 1) % len(w.times)
	if w.count < len(w.times) {
		w.count++
	}
	w.mu.Unlock()
}

// Len returns the number of timestamps currently held.
func (w *RateWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Stats returns RateStats over the timestamps currently in the window.
func (w *RateWindow) Stats() RateStats {
	w.mu.Lock()
	ordered := make([]time.Time, 0, w.count)
	start := (w.next - w.count + len(w.times)) % len(w.times)
	for i := 0; i < w.count; i++ {
		ordered = append(ordered, w.times[(start+i)%len(w.times)])
	}
	w.mu.Unlock()

	return CalculateRateStats(ordered)
}
