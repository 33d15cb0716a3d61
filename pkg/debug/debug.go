// Package debug provides global debug logging flags
package debug

import (
	"fmt"

	"github.com/teslashibe/go-morph/internal/log"
)

// Enabled controls whether debug logging is active
var Enabled bool

// Gestures controls whether per-frame gesture traces are shown (finger
// flags, category, confidence, resolved label). Very verbose at 30 fps.
// Use --debug-gestures flag to enable these logs
var Gestures bool

// Frames controls whether per-frame engine traces are shown
var Frames bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// GestureTrace logs a structured per-frame gesture record if gesture
// tracing is enabled. The flag is the opt-in, so records go out at info
// level and show without -debug.
func GestureTrace(msg string, args ...any) {
	if Gestures {
		log.L().Info(msg, append([]any{"trace", "gesture"}, args...)...)
	}
}

// FrameTrace logs a structured per-frame engine record if frame tracing
// is enabled, at info level like GestureTrace.
func FrameTrace(msg string, args ...any) {
	if Frames {
		log.L().Info(msg, append([]any{"trace", "frame"}, args...)...)
	}
}
