// Package intent turns raw landmark samples into an edge-triggered target
// label by combining the gesture classifier, a confidence threshold and the
// rapid pulse detector.
package intent

import (
	"time"

	"github.com/teslashibe/go-morph/pkg/gesture"
)

// Config holds the resolver parameters
type Config struct {
	// Threshold is the minimum classifier confidence; a gesture must be
	// strictly above it to count.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Pulse configures the rapid open/fist detector.
	Pulse gesture.PulseConfig `json:"pulse" yaml:"pulse"`

	// Labels maps gesture categories to target labels. Categories that are
	// missing (or map to "") resolve to no label.
	Labels map[gesture.Category]string `json:"labels" yaml:"labels"`

	// ComboLabel is forced when the pulse pattern fires.
	ComboLabel string `json:"combo_label" yaml:"combo_label"`

	// ComboHold keeps the combo label for this long after firing while a
	// hand stays visible. Zero disables the hold.
	ComboHold time.Duration `json:"combo_hold" yaml:"combo_hold"`
}

// DefaultConfig returns the default label mapping and thresholds
func DefaultConfig() Config {
	return Config{
		Threshold: 0.8,
		Pulse:     gesture.DefaultPulseConfig(),
		Labels: map[gesture.Category]string{
			gesture.OpenPalm:   "HELLO",
			gesture.Point:      "I",
			gesture.Victory:    "LOVE",
			gesture.ThreeCount: "YOU",
		},
		ComboLabel: "I LOVE YOU",
		ComboHold:  2 * time.Second,
	}
}

// Result is the outcome of one resolver tick.
type Result struct {
	Label   string          `json:"label"`   // Resolved target label, "" for none
	Changed bool            `json:"changed"` // Label differs from the previous tick
	Combo   bool            `json:"combo"`   // Label is the combo label
	Fired   bool            `json:"fired"`   // Pulse pattern fired on this tick
	Gesture gesture.State   `json:"gesture"` // Classifier output (Unknown when no hand)
	Fingers gesture.Fingers `json:"fingers"`
	HasHand bool            `json:"has_hand"`
}

// Resolver holds the per-tick intent state. Not safe for concurrent use.
type Resolver struct {
	config    Config
	pulse     *gesture.PulseDetector
	lastLabel string
	comboEnds time.Time
}

// NewResolver creates a resolver
func NewResolver(config Config) *Resolver {
	if config.Labels == nil {
		config.Labels = DefaultConfig().Labels
	}
	return &Resolver{
		config: config,
		pulse:  gesture.NewPulseDetector(config.Pulse),
	}
}

// Config returns the resolver configuration.
func (r *Resolver) Config() Config {
	return r.config
}

// SetThreshold updates the confidence threshold at runtime.
func (r *Resolver) SetThreshold(threshold float64) {
	r.config.Threshold = threshold
}

// LabelFor returns the label mapped to a category.
func (r *Resolver) LabelFor(c gesture.Category) string {
	return r.config.Labels[c]
}

// Labels returns every distinct non-empty label the resolver can emit,
// the combo label included.
func (r *Resolver) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(l string) {
		if l != "" && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for _, c := range []gesture.Category{gesture.OpenPalm, gesture.Point, gesture.Victory, gesture.ThreeCount, gesture.Fist, gesture.Unknown} {
		add(r.config.Labels[c])
	}
	add(r.config.ComboLabel)
	return out
}

// Resolve processes one landmark sample. A nil or malformed set means no
// hand is visible and clears the pulse detector and any combo hold.
func (r *Resolver) Resolve(lm gesture.Landmarks, at time.Time) Result {
	res := Result{HasHand: lm.Valid()}
	label := ""

	if !lm.Valid() {
		res.Gesture = gesture.State{Category: gesture.Unknown, Timestamp: at}
		r.pulse.Reset()
		r.comboEnds = time.Time{}
	} else {
		res.Gesture = gesture.Classify(lm, at)
		res.Fingers = gesture.Extended(lm)
		label = r.resolveGesture(res.Gesture, &res)
	}

	res.Label = label
	res.Changed = label != r.lastLabel
	r.lastLabel = label
	return res
}

func (r *Resolver) resolveGesture(state gesture.State, res *Result) string {
	held := r.config.ComboLabel != "" && state.Timestamp.Before(r.comboEnds)

	if state.Confidence <= r.config.Threshold {
		if held {
			res.Combo = true
			return r.config.ComboLabel
		}
		return ""
	}

	r.pulse.Record(state)
	if r.pulse.Detect() {
		res.Fired = true
		res.Combo = true
		r.comboEnds = state.Timestamp.Add(r.config.ComboHold)
		return r.config.ComboLabel
	}

	if held {
		res.Combo = true
		return r.config.ComboLabel
	}
	return r.config.Labels[state.Category]
}

// Reset forgets the previous label, the combo hold and the pulse buffer.
func (r *Resolver) Reset() {
	r.pulse.Reset()
	r.lastLabel = ""
	r.comboEnds = time.Time{}
}

// LastLabel returns the label emitted by the most recent Resolve.
func (r *Resolver) LastLabel() string {
	return r.lastLabel
}
