package main

import (
	"fmt"

	"github.com/e7canasta/pxpaint/internal/capture"
	"github.com/e7canasta/pxpaint/internal/capture/gstscreen"
	"github.com/e7canasta/pxpaint/internal/config"
)

// Resolution of the synthetic pattern source.
const (
	patternWidth  = 1920
	patternHeight = 1080
)

// newSource builds the frame source named by cfg.Source.
func newSource(cfg *config.Config) (capture.Source, error) {
	kind, arg := cfg.SourceSpec()

	switch kind {
	case config.SourceScreen:
		return gstscreen.New(gstscreen.Config{
			Display:     cfg.Display,
			Screen:      cfg.Screen,
			ShowPointer: cfg.ShowPointer,
		}), nil
	case config.SourcePattern:
		return capture.NewPatternSource(patternWidth, patternHeight), nil
	case config.SourceImage:
		return capture.NewImageSource(arg), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}
