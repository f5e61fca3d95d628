package gstscreen

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies GStreamer bus errors for logs
type ErrorCategory int

const (
	// ErrCategoryDisplay indicates the X display or screen is unavailable
	ErrCategoryDisplay ErrorCategory = iota
	// ErrCategoryFormat indicates caps negotiation or format failures
	ErrCategoryFormat
	// ErrCategoryResource indicates missing plugins, permissions or exhausted resources
	ErrCategoryResource
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryDisplay:
		return "display"
	case ErrCategoryFormat:
		return "format"
	case ErrCategoryResource:
		return "resource"
	default:
		return "unknown"
	}
}

var (
	displayKeywords = []string{
		"display",
		"x11",
		"xlib",
		"screen",
		"could not open",
		"cannot open",
		"xshm",
	}

	formatKeywords = []string{
		"not negotiated",
		"negotiation",
		"caps",
		"format",
	}

	resourceKeywords = []string{
		"no element",
		"missing plugin",
		"permission",
		"resource",
		"busy",
		"memory",
	}
)

// ClassifyGStreamerError categorises a bus error.
//
// go-gst's GError does not expose the error domain, so classification is
// based on the message and debug string.
func ClassifyGStreamerError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return classifyMessage(gerr.Error(), gerr.DebugString())
}

func classifyMessage(errMsg, debugStr string) ErrorCategory {
	combined := strings.ToLower(errMsg + " " + debugStr)

	// Format first: negotiation errors often mention the source element too
	switch {
	case containsAny(combined, formatKeywords):
		return ErrCategoryFormat
	case containsAny(combined, displayKeywords):
		return ErrCategoryDisplay
	case containsAny(combined, resourceKeywords):
		return ErrCategoryResource
	default:
		return ErrCategoryUnknown
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
