package show

import (
	"github.com/teslashibe/go-morph/pkg/gesture"
	"github.com/teslashibe/go-morph/pkg/intent"
	"github.com/teslashibe/go-morph/pkg/particles"
	"github.com/teslashibe/go-morph/pkg/protocol"
)

// Status is a point-in-time snapshot of the director.
type Status struct {
	Session    string          `json:"session"`
	Mode       string          `json:"mode"`
	Label      string          `json:"label"`
	Combo      bool            `json:"combo"`
	Gesture    string          `json:"gesture"`
	Confidence float64         `json:"confidence"`
	Fingers    gesture.Fingers `json:"fingers"`
	HasHand    bool            `json:"has_hand"`
	Particles  int             `json:"particles"`
	Settled    int             `json:"settled"`
	Samples    uint64          `json:"samples"`
	Frames     uint64          `json:"frames"` // Position frames broadcast
	Uptime     string          `json:"uptime"`
}

// State converts the snapshot to its wire form.
func (s Status) State() protocol.StateData {
	return protocol.StateData{
		Mode:       s.Mode,
		Label:      s.Label,
		Gesture:    s.Gesture,
		Confidence: s.Confidence,
		Fingers:    s.Fingers,
		HasHand:    s.HasHand,
		Combo:      s.Combo,
		Frame:      s.Frames,
		Session:    s.Session,
	}
}

// Status returns a snapshot. Safe to call from any goroutine.
func (d *Director) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Tuning returns the engine parameters as of the last change. Safe to call
// from any goroutine.
func (d *Director) Tuning() particles.TuningParams {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tuning
}

// ClientConfig returns the tracking parameters browser clients need.
func (d *Director) ClientConfig() protocol.ConfigData {
	t := d.config.Tracking
	return protocol.ConfigData{
		DetectionConfidence: t.DetectionConfidence,
		TrackingConfidence:  t.TrackingConfidence,
		MaxHands:            t.MaxHands,
		SampleIntervalMs:    t.SampleInterval.Milliseconds(),
		ParticleCount:       d.engine.Count(),
	}
}

func (d *Director) recordSample(res intent.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status.Samples++
	d.status.Gesture = res.Gesture.Category.String()
	d.status.Confidence = res.Gesture.Confidence
	d.status.Fingers = res.Fingers
	d.status.HasHand = res.HasHand
}

func (d *Director) setLabel(label string, combo bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status.Label = label
	d.status.Combo = combo
}

func (d *Director) currentLabel() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status.Label
}
