package particles

import (
	"math"

	"github.com/teslashibe/go-morph/pkg/geom"
)

// ticksAt60 converts seconds into 60Hz frame units.
func ticksAt60(dt float64) float64 {
	return dt * 60
}

// decay ramps linearly from 1 at t=0 to 0 at t=duration, clamped to [0,1].
func decay(t, duration float64) float64 {
	return geom.Clamp(1-t/duration, 0, 1)
}

// clampToSphere pulls p back onto the sphere surface when it lies outside.
func clampToSphere(p geom.Vec3, radius float64) geom.Vec3 {
	if d := p.Len(); d > radius {
		return p.Scale(radius / d)
	}
	return p
}

// stepIdle drifts each particle along its own axis, modulated by time and
// its x position, and keeps it inside the idle sphere.
func (e *Engine) stepIdle(dt float64) {
	frames := ticksAt60(dt)
	for i := range e.particles {
		p := &e.particles[i]
		wave := math.Sin(e.elapsed + p.Position.X)
		step := wave * e.config.DriftSpeed * p.id.SpeedMultiplier * frames
		p.Position = clampToSphere(p.Position.Add(p.id.DriftAxis.Scale(step)), e.config.IdleRadius)
	}
}

// stepMorph moves each unsettled particle a fixed fraction of its remaining
// distance per 60Hz frame. Settled particles only shimmer.
func (e *Engine) stepMorph(dt float64) {
	frames := ticksAt60(dt)
	shimmer := e.config.JitterAmplitude * math.Min(frames, 1)

	for i := range e.particles {
		p := &e.particles[i]
		toTarget := p.Target.Sub(p.Position)

		if toTarget.Len() >= e.config.SettleThreshold {
			rate := geom.Clamp(e.config.MorphSpeed*p.id.SpeedMultiplier, 0, 1)
			frac := geom.Clamp(1-math.Pow(1-rate, frames), 0, 1)
			p.Position = p.Position.Add(toTarget.Scale(frac))
			continue
		}
		p.Position = p.Position.Add(jitter(e.rng, shimmer))
	}
}

// stepExplosion integrates the outward impulse under a linear decay and
// falls back to morphing (if targets are assigned) or idle when it ends.
func (e *Engine) stepExplosion(dt float64) {
	e.explosionTime += dt
	k := decay(e.explosionTime, e.config.ExplosionDuration)
	e.integrate(dt * k)

	if e.explosionTime < e.config.ExplosionDuration {
		return
	}

	for i := range e.particles {
		e.particles[i].Velocity = geom.Vec3{}
	}
	if e.hasTarget {
		e.enter(ModeMorphing)
	} else {
		e.enterIdle()
	}
	if e.onExplosionComplete != nil {
		e.onExplosionComplete()
	}
}

// stepDispersion is the short random-direction impulse; it always resolves
// to idle.
func (e *Engine) stepDispersion(dt float64) {
	e.dispersionTime += dt
	k := decay(e.dispersionTime, e.config.DispersionDuration)
	e.integrate(dt * k)

	if e.dispersionTime < e.config.DispersionDuration {
		return
	}
	e.hasTarget = false
	e.enterIdle()
}

// integrate applies position += velocity * scaledDt to every particle.
func (e *Engine) integrate(scaledDt float64) {
	if scaledDt == 0 {
		return
	}
	for i := range e.particles {
		p := &e.particles[i]
		p.Position = p.Position.Add(p.Velocity.Scale(scaledDt))
	}
}
