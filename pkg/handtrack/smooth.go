package handtrack

import "github.com/teslashibe/go-morph/pkg/gesture"

// Smoother steadies a single tracked hand: landmark positions are
// exponentially smoothed and short detection dropouts are bridged by
// repeating the last hand.
type Smoother struct {
	factor    float64 // 0-1, higher = more weight on the new reading
	tolerance int     // Missed frames bridged before the hand counts as gone

	last              gesture.Landmarks
	hasLast           bool
	consecutiveMisses int
}

// NewSmoother creates a smoother from the Smoothing and MissTolerance
// fields of config.
func NewSmoother(config Config) *Smoother {
	factor := config.Smoothing
	if factor <= 0 || factor > 1 {
		factor = 1
	}
	return &Smoother{
		factor:    factor,
		tolerance: max(config.MissTolerance, 0),
	}
}

// Apply takes the hand detected in one frame (nil when none) and returns
// the hand to publish, or nil once the hand is considered gone.
func (s *Smoother) Apply(hand gesture.Landmarks) gesture.Landmarks {
	if !hand.Valid() {
		s.consecutiveMisses++
		if s.hasLast && s.consecutiveMisses <= s.tolerance {
			return s.copyLast()
		}
		s.hasLast = false
		return nil
	}

	if !s.hasLast {
		s.last = append(s.last[:0], hand...)
	} else {
		a := s.factor
		for i, p := range hand {
			q := s.last[i]
			s.last[i] = gesture.Landmark{
				X: a*p.X + (1-a)*q.X,
				Y: a*p.Y + (1-a)*q.Y,
				Z: a*p.Z + (1-a)*q.Z,
			}
		}
	}
	s.hasLast = true
	s.consecutiveMisses = 0
	return s.copyLast()
}

// ConsecutiveMisses returns how many frames in a row had no hand.
func (s *Smoother) ConsecutiveMisses() int {
	return s.consecutiveMisses
}

// Reset forgets the tracked hand.
func (s *Smoother) Reset() {
	s.hasLast = false
	s.consecutiveMisses = 0
}

func (s *Smoother) copyLast() gesture.Landmarks {
	out := make(gesture.Landmarks, len(s.last))
	copy(out, s.last)
	return out
}
