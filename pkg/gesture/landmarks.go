// Package gesture classifies hand landmark sets into discrete gestures and
// detects the rapid open-palm/fist "pulse" pattern across gesture changes.
package gesture

import (
	"fmt"
	"time"
)

// LandmarkCount is the number of points in a hand landmark set.
const LandmarkCount = 21

// Anatomical landmark indices (MediaPipe hand topology).
const (
	Wrist = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// Landmark is one normalized hand joint.
// X and Y are roughly in [0,1] with Y growing downward; Z is depth-relative.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks is an ordered landmark set. A nil set means no hand is visible.
type Landmarks []Landmark

// Valid reports whether the set has exactly LandmarkCount points.
func (l Landmarks) Valid() bool {
	return len(l) == LandmarkCount
}

// Category is a discrete gesture class
type Category int

const (
	Unknown Category = iota
	OpenPalm
	Point
	Victory
	ThreeCount
	Fist
)

var categoryNames = map[Category]string{
	Unknown:    "unknown",
	OpenPalm:   "open_palm",
	Point:      "point",
	Victory:    "victory",
	ThreeCount: "three_count",
	Fist:       "fist",
}

// String returns the snake_case name used in logs and on the wire.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory maps a wire name back to a Category.
func ParseCategory(name string) (Category, bool) {
	for c, n := range categoryNames {
		if n == name {
			return c, true
		}
	}
	return Unknown, false
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, ok := ParseCategory(string(text))
	if !ok {
		return fmt.Errorf("gesture: unknown category %q", text)
	}
	*c = parsed
	return nil
}

// State is the classification of a single landmark sample.
type State struct {
	Category   Category  `json:"category"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}
