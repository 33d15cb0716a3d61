package particles

import (
	"math"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/teslashibe/go-morph/pkg/geom"
)

// Identity is the randomized per-particle character, assigned once when the
// engine is built and never reassigned.
type Identity struct {
	DriftAxis       geom.Vec3      // Unit axis for idle drift
	SpeedMultiplier float64        // In [MinSpeedMultiplier, MaxSpeedMultiplier)
	OrbitAxis       geom.Vec3      // Unit axis the particle orbits around
	Color           colorful.Color // Initial render color
}

// Particle is one point mass. Identity is fixed; Position, Target and
// Velocity change every tick under the active mode.
type Particle struct {
	id Identity

	Position geom.Vec3
	Target   geom.Vec3
	Velocity geom.Vec3

	// Target distance from the orbit center while orbiting
	orbitRadius float64
}

// Identity returns the particle's fixed identity.
func (p Particle) Identity() Identity {
	return p.id
}

func newIdentity(rng *rand.Rand, cfg Config) Identity {
	// Orbit axes lean toward +Y so the swirl reads as one coherent spin
	tilt := geom.V(rng.Float64()*0.6-0.3, 1, rng.Float64()*0.6-0.3)

	hue := cfg.HueMin + rng.Float64()*(cfg.HueMax-cfg.HueMin)
	return Identity{
		DriftAxis:       randomUnit(rng),
		SpeedMultiplier: MinSpeedMultiplier + rng.Float64()*(MaxSpeedMultiplier-MinSpeedMultiplier),
		OrbitAxis:       tilt.Normalize(),
		Color:           colorful.Hsv(hue, 0.55+rng.Float64()*0.3, 1.0),
	}
}

// randomUnit returns a uniformly distributed unit vector.
func randomUnit(rng *rand.Rand) geom.Vec3 {
	for i := 0; i < 4; i++ {
		v := geom.V(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		if v.LenSq() > 1e-12 {
			return v.Normalize()
		}
	}
	return geom.V(0, 0, 1)
}

// randomInSphere returns a point uniformly distributed inside a sphere.
func randomInSphere(rng *rand.Rand, radius float64) geom.Vec3 {
	r := radius * math.Cbrt(rng.Float64())
	return randomUnit(rng).Scale(r)
}

// jitter returns a per-axis offset in [-amp/2, amp/2).
func jitter(rng *rand.Rand, amp float64) geom.Vec3 {
	return geom.V(
		(rng.Float64()-0.5)*amp,
		(rng.Float64()-0.5)*amp,
		(rng.Float64()-0.5)*amp,
	)
}
