package particles

import (
	"math"

	"github.com/teslashibe/go-morph/pkg/geom"
)

// goldenAngle is π(3 - √5), the angular step of a Fibonacci lattice.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// degenerate is the squared length under which a cross product is treated
// as parallel input.
const degenerate = 1e-10

// Fixed fallback axes for tangent construction.
var fallbackAxes = [...]geom.Vec3{{X: 0, Y: 1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}}

// Placement strategies, interleaved by particle index so no single
// lattice pattern dominates the surface.
const (
	placeFibonacci = iota
	placeRandom
	placeLayered
	placeStrategies
)

// placeOnBounds puts every particle on the ellipsoid inscribed in b and
// gives it an initial tangential velocity.
func (e *Engine) placeOnBounds(b geom.Bounds) {
	center := b.Center()
	half := b.HalfExtents()
	e.orbitCenter = center

	n := len(e.particles)
	for i := range e.particles {
		p := &e.particles[i]
		strategy := i % placeStrategies
		k := i / placeStrategies
		groupSize := (n - strategy + placeStrategies - 1) / placeStrategies

		var dir geom.Vec3
		switch strategy {
		case placeFibonacci:
			dir = fibonacciPoint(k, groupSize)
		case placeRandom:
			dir = randomUnit(e.rng)
		case placeLayered:
			dir = layeredPoint(k, groupSize)
		}

		// Angular noise breaks up the lattice
		if e.config.OrbitNoise > 0 {
			noisy := dir.Add(randomUnit(e.rng).Scale(e.config.OrbitNoise * e.rng.Float64()))
			if noisy.LenSq() > degenerate {
				dir = noisy.Normalize()
			}
		}

		offset := dir.Mul(half)
		p.Position = center.Add(offset)
		p.orbitRadius = math.Max(e.config.OrbitDistance, offset.Len())

		tangent := tangentFor(dir, p.id.OrbitAxis, randomUnit(e.rng))
		p.Velocity = tangent.Scale(e.config.OrbitSpeed * p.id.SpeedMultiplier)
	}
}

// fibonacciPoint returns point k of an n-point Fibonacci sphere.
func fibonacciPoint(k, n int) geom.Vec3 {
	if n < 1 {
		n = 1
	}
	y := 1 - 2*(float64(k)+0.5)/float64(n)
	r := math.Sqrt(math.Max(0, 1-y*y))
	theta := goldenAngle * float64(k)
	return geom.V(math.Cos(theta)*r, y, math.Sin(theta)*r)
}

// layeredPoint stacks points in horizontal rings, stepping around each ring
// by the golden angle.
func layeredPoint(k, n int) geom.Vec3 {
	layers := int(math.Max(1, math.Floor(math.Sqrt(float64(n)))))
	layer := k % layers
	y := -1 + (2*float64(layer)+1)/float64(layers)
	r := math.Sqrt(math.Max(0, 1-y*y))
	theta := goldenAngle*float64(k) + float64(layer)*0.5
	return geom.V(math.Cos(theta)*r, y, math.Sin(theta)*r)
}

// tangentFor returns a unit vector perpendicular to radial, preferring the
// direction of travel around axis. When radial and axis are parallel it
// tries alt, then the fixed fallback axes.
func tangentFor(radial, axis, alt geom.Vec3) geom.Vec3 {
	if t := radial.Cross(axis); t.LenSq() > degenerate {
		return t.Normalize()
	}
	if t := radial.Cross(alt); t.LenSq() > degenerate {
		return t.Normalize()
	}
	for _, a := range fallbackAxes {
		if t := radial.Cross(a); t.LenSq() > degenerate {
			return t.Normalize()
		}
	}
	// Zero radial: any axis is tangent
	return fallbackAxes[1]
}

// stepOrbit swirls each particle around the orbit center, pulling it back
// toward its target distance and adding a small wobble and jitter.
func (e *Engine) stepOrbit(dt float64) {
	e.orbitTime += dt
	frames := ticksAt60(dt)
	gain := geom.Clamp(e.config.OrbitCorrection*dt, 0, 1)
	phase := e.orbitTime * e.config.WobbleFrequency
	wobbleAmp := e.config.WobbleAmplitude
	shimmer := e.config.OrbitJitter * math.Min(frames, 1)

	for i := range e.particles {
		p := &e.particles[i]

		radial := p.Position.Sub(e.orbitCenter)
		dist := radial.Len()
		unit := radial.Normalize()
		if dist < 1e-9 {
			unit = tangentFor(p.id.OrbitAxis, fallbackAxes[0], fallbackAxes[1])
		}

		tangent := tangentFor(unit, p.id.OrbitAxis, fallbackAxes[0]).
			Scale(e.config.OrbitSpeed * p.id.SpeedMultiplier)
		wobble := geom.V(
			math.Sin(phase+p.Position.X),
			math.Cos(phase+p.Position.Y),
			math.Sin(phase+p.Position.Z),
		).Scale(wobbleAmp)

		// Proportional radial correction: inward when too far, outward when too close
		radialErr := p.orbitRadius - dist
		p.Velocity = tangent.Add(wobble).Add(unit.Scale(radialErr * e.config.OrbitCorrection))

		p.Position = p.Position.
			Add(tangent.Add(wobble).Scale(dt)).
			Add(unit.Scale(radialErr * gain)).
			Add(jitter(e.rng, shimmer))
	}
}
