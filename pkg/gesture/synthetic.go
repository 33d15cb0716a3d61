package gesture

// Synthetic builds a plausible landmark set with the given fingers raised.
// The wrist sits at the bottom center of the frame. Used for demos, mocks
// and tests where no camera is available.
func Synthetic(f Fingers) Landmarks {
	lm := make(Landmarks, LandmarkCount)
	for i := range lm {
		lm[i] = Landmark{X: 0.5, Y: 0.6}
	}
	lm[Wrist] = Landmark{X: 0.5, Y: 0.9}
	lm[ThumbCMC] = Landmark{X: 0.47, Y: 0.85}

	// Thumb: horizontal spread decides extension
	lm[ThumbMCP] = Landmark{X: 0.45, Y: 0.8}
	lm[ThumbIP] = Landmark{X: 0.44, Y: 0.75}
	if f.Thumb {
		lm[ThumbTip] = Landmark{X: 0.35, Y: 0.7}
	} else {
		lm[ThumbTip] = Landmark{X: 0.47, Y: 0.7}
	}

	finger := func(mcp int, x float64, up bool) {
		lm[mcp] = Landmark{X: x, Y: 0.65}
		lm[mcp+1] = Landmark{X: x, Y: 0.5} // PIP
		if up {
			lm[mcp+2] = Landmark{X: x, Y: 0.4}
			lm[mcp+3] = Landmark{X: x, Y: 0.3}
		} else {
			lm[mcp+2] = Landmark{X: x, Y: 0.58}
			lm[mcp+3] = Landmark{X: x, Y: 0.62}
		}
	}
	finger(IndexMCP, 0.45, f.Index)
	finger(MiddleMCP, 0.5, f.Middle)
	finger(RingMCP, 0.55, f.Ring)
	finger(PinkyMCP, 0.6, f.Pinky)
	return lm
}

// SyntheticFor returns a landmark set that classifies as c.
// Unknown yields a four-finger hand with the thumb tucked.
func SyntheticFor(c Category) Landmarks {
	switch c {
	case OpenPalm:
		return Synthetic(Fingers{Thumb: true, Index: true, Middle: true, Ring: true, Pinky: true})
	case Point:
		return Synthetic(Fingers{Index: true})
	case Victory:
		return Synthetic(Fingers{Index: true, Middle: true})
	case ThreeCount:
		return Synthetic(Fingers{Index: true, Middle: true, Ring: true})
	case Fist:
		return Synthetic(Fingers{})
	default:
		return Synthetic(Fingers{Index: true, Middle: true, Ring: true, Pinky: true})
	}
}
