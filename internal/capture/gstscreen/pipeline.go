package gstscreen

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// sinkName is the appsink element name in the launch line.
const sinkName = "pxsink"

// PipelineElements holds references needed for frame pulls and cleanup
type PipelineElements struct {
	Pipeline *gst.Pipeline
	AppSink  *app.Sink
}

// buildLaunch builds the gst-launch description for cfg.
//
// Pipeline structure:
//
//	ximagesrc → videoconvert → capsfilter(RGB) → appsink
//
// appsink keeps a single buffer and drops older ones so every pull returns
// the most recent screen contents.
func buildLaunch(cfg Config) string {
	var src strings.Builder
	src.WriteString("ximagesrc")
	if cfg.Display != "" {
		fmt.Fprintf(&src, " display-name=%s", cfg.Display)
	}
	fmt.Fprintf(&src, " screen-num=%d use-damage=false show-pointer=%t", cfg.Screen, cfg.ShowPointer)
	if r := cfg.Region; r.Width > 0 && r.Height > 0 {
		// endx/endy are inclusive
		fmt.Fprintf(&src, " startx=%d starty=%d endx=%d endy=%d",
			r.X, r.Y, r.X+r.Width-1, r.Y+r.Height-1)
	}

	return fmt.Sprintf(
		"%s ! videoconvert n-threads=0 ! video/x-raw,format=RGB ! appsink name=%s sync=false max-buffers=1 drop=true",
		src.String(), sinkName,
	)
}

// CreatePipeline creates the capture pipeline. The pipeline is configured
// but NOT started (state remains NULL).
func CreatePipeline(cfg Config) (*PipelineElements, error) {
	// Safe to call multiple times
	gst.Init(nil)

	launch := buildLaunch(cfg)
	pipeline, err := gst.NewPipelineFromString(launch)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName(sinkName)
	if err != nil {
		return nil, fmt.Errorf("failed to find appsink: %w", err)
	}

	slog.Debug("capture: screen pipeline created", "launch", launch)

	return &PipelineElements{
		Pipeline: pipeline,
		AppSink:  app.SinkFromElement(elem),
	}, nil
}

// DestroyPipeline sets the pipeline to NULL and releases its resources.
// Safe to call on a nil or already destroyed pipeline.
func DestroyPipeline(elements *PipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}

	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}

// sampleSize reads width and height from the sample caps.
func sampleSize(sample *gst.Sample) (int, int, error) {
	caps := sample.GetCaps()
	if caps == nil {
		return 0, 0, fmt.Errorf("sample has no caps")
	}
	s := caps.GetStructureAt(0)
	if s == nil {
		return 0, 0, fmt.Errorf("caps have no structure")
	}

	w, err := intField(s, "width")
	if err != nil {
		return 0, 0, err
	}
	h, err := intField(s, "height")
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func intField(s *gst.Structure, key string) (int, error) {
	v, err := s.GetValue(key)
	if err != nil {
		return 0, fmt.Errorf("caps field %s: %w", key, err)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint32:
		return int(n), nil
	default:
		return 0, fmt.Errorf("caps field %s has type %T", key, v)
	}
}
