package gesture

import "time"

// PulseConfig holds the rapid pulse detection parameters
type PulseConfig struct {
	Window     time.Duration `json:"window" yaml:"window"`           // Only transitions newer than this count
	MinChanges int           `json:"min_changes" yaml:"min_changes"` // Alternations needed to fire
}

// DefaultPulseConfig returns the default rapid pulse parameters
func DefaultPulseConfig() PulseConfig {
	return PulseConfig{
		Window:     1500 * time.Millisecond,
		MinChanges: 3,
	}
}

// Transition records a change between two consecutive gesture categories.
type Transition struct {
	From Category  `json:"from"`
	To   Category  `json:"to"`
	At   time.Time `json:"at"`
}

// relevant reports whether both endpoints are open palm or fist.
func (t Transition) relevant() bool {
	return isPulseCategory(t.From) && isPulseCategory(t.To)
}

func isPulseCategory(c Category) bool {
	return c == OpenPalm || c == Fist
}

// PulseDetector recognizes rapid open-palm/fist alternation inside a
// sliding time window. It fires at most once per burst: a successful
// Detect clears every buffered transition and the last seen category.
type PulseDetector struct {
	config      PulseConfig
	transitions []Transition
	last        Category
	hasLast     bool
}

// NewPulseDetector creates a detector. Non-positive config values fall
// back to defaults.
func NewPulseDetector(config PulseConfig) *PulseDetector {
	defaults := DefaultPulseConfig()
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.MinChanges <= 0 {
		config.MinChanges = defaults.MinChanges
	}
	return &PulseDetector{config: config}
}

// Config returns the active parameters.
func (d *PulseDetector) Config() PulseConfig {
	return d.config
}

// Record notes the gesture, buffering a transition if its category differs
// from the previously recorded one, then drops transitions that are not
// strictly newer than state.Timestamp minus the window.
func (d *PulseDetector) Record(state State) {
	if d.hasLast && state.Category != d.last {
		d.transitions = append(d.transitions, Transition{
			From: d.last,
			To:   state.Category,
			At:   state.Timestamp,
		})
	}
	d.last = state.Category
	d.hasLast = true

	d.prune(state.Timestamp.Add(-d.config.Window))
}

func (d *PulseDetector) prune(cutoff time.Time) {
	keep := 0
	for keep < len(d.transitions) && !d.transitions[keep].At.After(cutoff) {
		keep++
	}
	if keep > 0 {
		d.transitions = append(d.transitions[:0], d.transitions[keep:]...)
	}
}

// Detect reports whether the buffered transitions contain at least
// MinChanges open-palm/fist alternations. Transitions touching any other
// category are skipped without resetting the count. When it fires the
// detector clears itself.
func (d *PulseDetector) Detect() bool {
	alternations := 0
	var lastTo Category
	counted := false

	for _, t := range d.transitions {
		if !t.relevant() {
			continue
		}
		if !counted || t.To != lastTo {
			alternations++
			lastTo = t.To
			counted = true
		}
	}

	if alternations < d.config.MinChanges {
		return false
	}
	d.Reset()
	return true
}

// Reset clears all buffered state without reporting.
func (d *PulseDetector) Reset() {
	d.transitions = d.transitions[:0]
	d.last = Unknown
	d.hasLast = false
}

// Len returns the number of buffered transitions.
func (d *PulseDetector) Len() int {
	return len(d.transitions)
}

// Transitions returns a copy of the buffered transitions, oldest first.
func (d *PulseDetector) Transitions() []Transition {
	out := make([]Transition, len(d.transitions))
	copy(out, d.transitions)
	return out
}
