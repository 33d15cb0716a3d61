package gesture

import (
	"math"
	"time"
)

// Fixed per-category confidences. These encode how certain the rule is,
// not how good the sensor reading was.
const (
	OpenPalmConfidence   = 1.0
	PointConfidence      = 0.9
	VictoryConfidence    = 0.95
	ThreeCountConfidence = 0.9
	FistConfidence       = 0.95
	UnknownConfidence    = 0.5
)

// ThumbSpreadRatio is how much farther (horizontally) the thumb tip must be
// from the wrist than the thumb MCP is, for the thumb to count as extended.
const ThumbSpreadRatio = 1.3

// Fingers holds the extension state of each finger.
type Fingers struct {
	Thumb  bool `json:"thumb"`
	Index  bool `json:"index"`
	Middle bool `json:"middle"`
	Ring   bool `json:"ring"`
	Pinky  bool `json:"pinky"`
}

// Count returns how many fingers are extended, thumb included.
func (f Fingers) Count() int {
	n := 0
	for _, up := range []bool{f.Thumb, f.Index, f.Middle, f.Ring, f.Pinky} {
		if up {
			n++
		}
	}
	return n
}

// Extended reports which fingers are extended in lm.
// An invalid set reports no extended fingers.
func Extended(lm Landmarks) Fingers {
	if !lm.Valid() {
		return Fingers{}
	}

	// Image-space y grows downward, so a raised tip has the smaller y
	up := func(tip, pip int) bool {
		return lm[tip].Y < lm[pip].Y
	}

	wrist := lm[Wrist]
	tipSpread := math.Abs(lm[ThumbTip].X - wrist.X)
	baseSpread := math.Abs(lm[ThumbMCP].X - wrist.X)

	return Fingers{
		Thumb:  tipSpread > ThumbSpreadRatio*baseSpread,
		Index:  up(IndexTip, IndexPIP),
		Middle: up(MiddleTip, MiddlePIP),
		Ring:   up(RingTip, RingPIP),
		Pinky:  up(PinkyTip, PinkyPIP),
	}
}

// Classify maps a landmark set to a gesture. It never fails: a nil or
// malformed set yields Unknown with zero confidence.
func Classify(lm Landmarks, at time.Time) State {
	if !lm.Valid() {
		return State{Category: Unknown, Confidence: 0, Timestamp: at}
	}
	category, confidence := classifyFingers(Extended(lm))
	return State{Category: category, Confidence: confidence, Timestamp: at}
}

// classifyFingers applies the shape rules in priority order.
// The thumb only matters for the open palm and fist cases.
func classifyFingers(f Fingers) (Category, float64) {
	count := f.Count()

	switch {
	case count == 5:
		return OpenPalm, OpenPalmConfidence
	case f.Index && !f.Middle && !f.Ring && !f.Pinky:
		return Point, PointConfidence
	case f.Index && f.Middle && !f.Ring && !f.Pinky:
		return Victory, VictoryConfidence
	case f.Index && f.Middle && f.Ring && !f.Pinky:
		return ThreeCount, ThreeCountConfidence
	case count == 0 || (count == 1 && f.Thumb):
		return Fist, FistConfidence
	default:
		return Unknown, UnknownConfidence
	}
}
