// Package handtrack supplies hand landmark samples to the gesture pipeline.
//
// A Source delivers the most recent Sample over a channel. Stream is fed
// by the web server from browser-side hand tracking; the detect
// subpackage runs an ONNX landmark model on a local camera with gocv.
package handtrack

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-morph/pkg/gesture"
)

var (
	// ErrModelNotFound is returned when the landmark model file is missing.
	ErrModelNotFound = errors.New("handtrack: model not found")

	// ErrCameraUnavailable is returned when the capture device cannot be
	// opened or stops delivering frames.
	ErrCameraUnavailable = errors.New("handtrack: camera unavailable")

	// ErrClosed is returned when pushing into a closed stream.
	ErrClosed = errors.New("handtrack: source closed")
)

// Sample is every hand seen in one camera frame.
type Sample struct {
	Hands []gesture.Landmarks `json:"hands"`
	At    time.Time           `json:"at"`
}

// Primary returns the first hand, or nil when no hand is present.
func (s Sample) Primary() gesture.Landmarks {
	if len(s.Hands) == 0 {
		return nil
	}
	return s.Hands[0]
}

// Source delivers landmark samples. Samples are latest-value: a slow
// consumer sees the newest sample, never a backlog.
type Source interface {
	Samples() <-chan Sample
	Close() error
}

// Config holds hand tracking parameters. The confidence values are also
// published to browser clients that run tracking themselves.
type Config struct {
	DetectionConfidence float64       `json:"detection_confidence" yaml:"detection_confidence"` // Presence needed to pick up a new hand
	TrackingConfidence  float64       `json:"tracking_confidence" yaml:"tracking_confidence"`   // Presence needed to keep a tracked hand
	MaxHands            int           `json:"max_hands" yaml:"max_hands"`
	SampleInterval      time.Duration `json:"sample_interval" yaml:"sample_interval"`

	// Local camera pipeline
	ModelPath string `json:"model_path" yaml:"model_path"` // ONNX hand landmark model
	InputSize int    `json:"input_size" yaml:"input_size"` // Square model input in pixels
	Device    int    `json:"device" yaml:"device"`         // Capture device index
	Mirror    bool   `json:"mirror" yaml:"mirror"`         // Flip x for a selfie view

	// Smoothing of locally detected hands
	Smoothing     float64 `json:"smoothing" yaml:"smoothing"`           // Exponential factor (0-1, higher = more new data, 0 or 1 = off)
	MissTolerance int     `json:"miss_tolerance" yaml:"miss_tolerance"` // Missed frames bridged before the hand is gone
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		DetectionConfidence: 0.7,
		TrackingConfidence:  0.5,
		MaxHands:            1,
		SampleInterval:      33 * time.Millisecond,

		ModelPath: "models/hand_landmark.onnx",
		InputSize: 224,
		Device:    0,
		Mirror:    true,

		Smoothing:     0.6, // 60% new, 40% old
		MissTolerance: 2,
	}
}

// Validate checks the configuration and returns a list of problems.
func (c Config) Validate() []string {
	var errs []string
	if c.DetectionConfidence < 0 || c.DetectionConfidence > 1 {
		errs = append(errs, fmt.Sprintf("detection_confidence must be in [0,1], got %v", c.DetectionConfidence))
	}
	if c.TrackingConfidence < 0 || c.TrackingConfidence > 1 {
		errs = append(errs, fmt.Sprintf("tracking_confidence must be in [0,1], got %v", c.TrackingConfidence))
	}
	if c.MaxHands < 1 {
		errs = append(errs, fmt.Sprintf("max_hands must be at least 1, got %d", c.MaxHands))
	}
	if c.SampleInterval <= 0 {
		errs = append(errs, "sample_interval must be positive")
	}
	if c.Smoothing < 0 || c.Smoothing > 1 {
		errs = append(errs, fmt.Sprintf("smoothing must be in [0,1], got %v", c.Smoothing))
	}
	if c.MissTolerance < 0 {
		errs = append(errs, fmt.Sprintf("miss_tolerance must not be negative, got %d", c.MissTolerance))
	}
	if c.InputSize <= 0 {
		errs = append(errs, fmt.Sprintf("input_size must be positive, got %d", c.InputSize))
	}
	return errs
}
