// Package particles animates a cloud of point masses through idle drift,
// text morphing, explosion and dispersion impulses, and orbital swirl.
//
// The engine is single-threaded: every method must be called from the
// goroutine that drives Update.
package particles

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/teslashibe/go-morph/pkg/geom"
)

// Engine owns the particle population and the active motion mode.
type Engine struct {
	config    Config
	rng       *rand.Rand
	particles []Particle

	mode      Mode
	hasTarget bool

	// Timers (seconds); reset on every mode switch
	elapsed        float64 // Total simulated time, drives idle drift
	explosionTime  float64
	dispersionTime float64
	orbitTime      float64

	orbitCenter geom.Vec3

	onExplosionComplete func()

	ticks uint64
}

// New creates an engine with Count particles scattered inside the idle
// sphere. Non-positive config values fall back to defaults.
func New(config Config) *Engine {
	config = config.withDefaults()

	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	e := &Engine{
		config:    config,
		rng:       rng,
		particles: make([]Particle, config.Count),
		mode:      ModeIdle,
	}
	for i := range e.particles {
		p := &e.particles[i]
		p.id = newIdentity(rng, config)
		p.Position = randomInSphere(rng, config.IdleRadius)
		p.Target = p.Position
	}
	return e
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Mode returns the active motion mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Count returns the number of particles.
func (e *Engine) Count() int {
	return len(e.particles)
}

// Particle returns a copy of particle i.
func (e *Engine) Particle(i int) Particle {
	return e.particles[i]
}

// HasTarget reports whether particles are assigned to anchor points.
func (e *Engine) HasTarget() bool {
	return e.hasTarget
}

// OnExplosionComplete registers fn to run right after an explosion ends,
// once the engine has fallen back to morphing (targets assigned) or idle.
// It runs inside Update, so it may call any engine method.
func (e *Engine) OnExplosionComplete(fn func()) {
	e.onExplosionComplete = fn
}

// enter switches mode and clears every mode timer.
func (e *Engine) enter(mode Mode) {
	e.mode = mode
	e.explosionTime = 0
	e.dispersionTime = 0
	e.orbitTime = 0
}

// SetTarget assigns particles to the anchor points and starts morphing.
// Anchor order is shuffled; when particles outnumber anchors the extra
// particles wrap around in layers, each layer spread a little wider.
// An empty set returns ErrEmptyTarget and changes nothing.
func (e *Engine) SetTarget(points []geom.Vec3) error {
	if len(points) == 0 {
		return ErrEmptyTarget
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	e.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	m := len(points)
	for i := range e.particles {
		p := &e.particles[i]
		target := points[order[i%m]]
		if layer := i / m; layer > 0 {
			target = target.Add(jitter(e.rng, e.config.LayerSpread*float64(layer)))
		}
		p.Target = target
		p.Velocity = geom.Vec3{}
	}

	e.hasTarget = true
	e.enter(ModeMorphing)
	return nil
}

// Explode pushes every particle radially outward from the origin.
// Calling it again restarts the explosion.
func (e *Engine) Explode() {
	for i := range e.particles {
		p := &e.particles[i]
		dir := p.Position.Normalize()
		if dir.LenSq() == 0 {
			dir = randomUnit(e.rng)
		}
		p.Velocity = dir.Scale(e.config.ExplosionForce * p.id.SpeedMultiplier)
	}
	e.enter(ModeExploding)
}

// Disperse scatters every particle in a random direction. The engine
// returns to idle on its own once the impulse has decayed.
func (e *Engine) Disperse() {
	for i := range e.particles {
		p := &e.particles[i]
		p.Velocity = randomUnit(e.rng).Scale(e.config.DispersionForce * p.id.SpeedMultiplier)
	}
	e.enter(ModeDispersing)
}

// OrbitAroundBounds redistributes the particles onto the surface of the
// bounds (grown by OrbitMargin) and sets them swirling around its center.
func (e *Engine) OrbitAroundBounds(b geom.Bounds) {
	e.placeOnBounds(b.Expand(e.config.OrbitMargin))
	e.hasTarget = false
	e.enter(ModeOrbiting)
}

// Idle drops any target and returns to idle drift.
func (e *Engine) Idle() {
	e.hasTarget = false
	e.enterIdle()
}

func (e *Engine) enterIdle() {
	for i := range e.particles {
		p := &e.particles[i]
		p.Velocity = geom.Vec3{}
		p.Position = clampToSphere(p.Position, e.config.IdleRadius)
	}
	e.enter(ModeIdle)
}

// Update advances the simulation by dt seconds using forward Euler.
// Non-finite or non-positive dt is treated as zero.
func (e *Engine) Update(dt float64) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return
	}
	e.elapsed += dt
	e.ticks++

	switch e.mode {
	case ModeIdle:
		e.stepIdle(dt)
	case ModeMorphing:
		e.stepMorph(dt)
	case ModeExploding:
		e.stepExplosion(dt)
	case ModeDispersing:
		e.stepDispersion(dt)
	case ModeOrbiting:
		e.stepOrbit(dt)
	}
}

// Stats is a read-only snapshot of the engine for status reporting.
type Stats struct {
	Mode           Mode    `json:"mode"`
	Count          int     `json:"count"`
	HasTarget      bool    `json:"has_target"`
	Ticks          uint64  `json:"ticks"`
	Elapsed        float64 `json:"elapsed"`
	ExplosionTime  float64 `json:"explosion_time"`
	DispersionTime float64 `json:"dispersion_time"`
	OrbitTime      float64 `json:"orbit_time"`
	Settled        int     `json:"settled"` // Particles within SettleThreshold of their target
}

// Stats returns a snapshot of the engine state.
func (e *Engine) Stats() Stats {
	s := Stats{
		Mode:           e.mode,
		Count:          len(e.particles),
		HasTarget:      e.hasTarget,
		Ticks:          e.ticks,
		Elapsed:        e.elapsed,
		ExplosionTime:  e.explosionTime,
		DispersionTime: e.dispersionTime,
		OrbitTime:      e.orbitTime,
	}
	if e.hasTarget {
		for i := range e.particles {
			p := &e.particles[i]
			if p.Position.Dist(p.Target) < e.config.SettleThreshold {
				s.Settled++
			}
		}
	}
	return s
}
