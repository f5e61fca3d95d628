package pipeline

import (
	"time"

	"github.com/e7canasta/pxpaint/internal/capture"
	"github.com/e7canasta/pxpaint/internal/painter"
)

// Snapshot is a point-in-time view of a run, served by telemetry.
type Snapshot struct {
	RunID         string                `json:"run_id" msgpack:"run_id"`
	Running       bool                  `json:"running" msgpack:"running"`
	UptimeSeconds float64               `json:"uptime_seconds" msgpack:"uptime_seconds"`
	Host          string                `json:"host" msgpack:"host"`
	Geometry      string                `json:"geometry,omitempty" msgpack:"geometry,omitempty"`
	Cycles        uint64                `json:"cycles" msgpack:"cycles"`
	Capture       capture.RateStats     `json:"capture" msgpack:"capture"`
	Workers       []painter.WorkerStats `json:"workers" msgpack:"workers"`
	TotalPixels   uint64                `json:"total_pixels" msgpack:"total_pixels"`
	TotalBytes    uint64                `json:"total_bytes" msgpack:"total_bytes"`
}

// Snapshot returns the current statistics. Safe to call at any time.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{
		RunID:   p.runID,
		Running: p.isRunning,
		Host:    p.opts.Host,
		Capture: p.rate.Stats(),
		Workers: make([]painter.WorkerStats, 0, len(p.workers)),
	}

	if p.isRunning {
		s.UptimeSeconds = time.Since(p.started).Seconds()
	}
	if p.capturer != nil {
		s.Geometry = p.geometry.String()
		s.Cycles = p.capturer.Cycles()
	}

	for _, w := range p.workers {
		ws := w.Stats()
		s.TotalPixels += ws.Pixels
		s.TotalBytes += ws.Bytes
		s.Workers = append(s.Workers, ws)
	}

	return s
}
