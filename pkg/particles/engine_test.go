package particles

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-morph/pkg/geom"
)

const frame = 1.0 / 60.0

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Count = 300
	cfg.Seed = 42
	return cfg
}

// letterAnchors returns a small flat grid of anchor points.
func letterAnchors(n int) []geom.Vec3 {
	pts := make([]geom.Vec3, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, geom.V(float64(i%10)-4.5, float64(i/10)-1.5, 0))
	}
	return pts
}

func requireFinite(t *testing.T, e *Engine) {
	t.Helper()
	for i := 0; i < e.Count(); i++ {
		p := e.Particle(i)
		require.True(t, p.Position.IsFinite(), "particle %d position %v", i, p.Position)
		require.True(t, p.Velocity.IsFinite(), "particle %d velocity %v", i, p.Velocity)
	}
}

func TestNew_InitialState(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)

	assert.Equal(t, cfg.Count, e.Count())
	assert.Equal(t, ModeIdle, e.Mode())
	assert.False(t, e.HasTarget())

	for i := 0; i < e.Count(); i++ {
		p := e.Particle(i)
		id := p.Identity()
		assert.LessOrEqual(t, p.Position.Len(), cfg.IdleRadius+1e-9)
		assert.GreaterOrEqual(t, id.SpeedMultiplier, MinSpeedMultiplier)
		assert.Less(t, id.SpeedMultiplier, MaxSpeedMultiplier)
		assert.InDelta(t, 1.0, id.DriftAxis.Len(), 1e-9)
		assert.InDelta(t, 1.0, id.OrbitAxis.Len(), 1e-9)
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	e := New(Config{Seed: 1})
	assert.Equal(t, DefaultConfig().Count, e.Count())
	assert.Equal(t, DefaultConfig().IdleRadius, e.Config().IdleRadius)
}

func TestNew_SeedIsDeterministic(t *testing.T) {
	a := New(testConfig())
	b := New(testConfig())
	for i := 0; i < a.Count(); i++ {
		assert.Equal(t, a.Particle(i), b.Particle(i))
	}
}

func TestIdle_Containment(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	rng := rand.New(rand.NewPCG(7, 7))

	for tick := 0; tick < 2000; tick++ {
		e.Update(rng.Float64() * 0.1)
		for i := 0; i < e.Count(); i++ {
			d := e.Particle(i).Position.Len()
			require.LessOrEqual(t, d, cfg.IdleRadius+1e-9, "tick %d particle %d escaped", tick, i)
		}
	}
	assert.Equal(t, ModeIdle, e.Mode())
}

func TestIdle_Drifts(t *testing.T) {
	e := New(testConfig())
	before := e.Particle(0).Position

	for i := 0; i < 30; i++ {
		e.Update(frame)
	}
	assert.NotEqual(t, before, e.Particle(0).Position)
}

func TestSetTarget_Empty(t *testing.T) {
	e := New(testConfig())
	before := e.Positions(nil)

	err := e.SetTarget(nil)
	assert.ErrorIs(t, err, ErrEmptyTarget)
	assert.ErrorIs(t, e.SetTarget([]geom.Vec3{}), ErrEmptyTarget)

	assert.Equal(t, ModeIdle, e.Mode())
	assert.False(t, e.HasTarget())
	assert.Equal(t, before, e.Positions(nil))
}

func TestSetTarget_OneToOneThenLayers(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	anchors := letterAnchors(50)

	require.NoError(t, e.SetTarget(anchors))
	assert.Equal(t, ModeMorphing, e.Mode())
	assert.True(t, e.HasTarget())

	// First layer uses every anchor exactly once
	used := make(map[geom.Vec3]int)
	for i := 0; i < len(anchors); i++ {
		used[e.Particle(i).Target]++
	}
	assert.Len(t, used, len(anchors))
	for _, a := range anchors {
		assert.Equal(t, 1, used[a], "anchor %v", a)
	}

	// Later layers sit near an anchor, spread by their layer index
	for i := len(anchors); i < e.Count(); i++ {
		layer := float64(i / len(anchors))
		limit := cfg.LayerSpread * layer * math.Sqrt(3) / 2
		target := e.Particle(i).Target

		nearest := math.Inf(1)
		for _, a := range anchors {
			nearest = math.Min(nearest, target.Dist(a))
		}
		assert.LessOrEqual(t, nearest, limit+1e-9, "particle %d layer %v", i, layer)
	}
}

func TestSetTarget_FewerParticlesThanAnchors(t *testing.T) {
	cfg := testConfig()
	cfg.Count = 10
	e := New(cfg)
	anchors := letterAnchors(100)

	require.NoError(t, e.SetTarget(anchors))

	seen := make(map[geom.Vec3]bool)
	for i := 0; i < e.Count(); i++ {
		target := e.Particle(i).Target
		assert.False(t, seen[target], "anchor reused")
		seen[target] = true
	}
}

func TestMorph_Convergence(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	require.NoError(t, e.SetTarget(letterAnchors(80)))

	bound := cfg.SettleThreshold + cfg.JitterAmplitude*math.Sqrt(3)/2 + 1e-9
	prev := make([]float64, e.Count())
	for i := range prev {
		p := e.Particle(i)
		prev[i] = p.Position.Dist(p.Target)
	}

	for tick := 0; tick < 600; tick++ {
		e.Update(frame)
		for i := 0; i < e.Count(); i++ {
			p := e.Particle(i)
			d := p.Position.Dist(p.Target)
			if prev[i] >= cfg.SettleThreshold {
				require.LessOrEqual(t, d, prev[i]+1e-12, "tick %d particle %d moved away", tick, i)
			} else {
				require.LessOrEqual(t, d, bound, "tick %d particle %d left its neighborhood", tick, i)
			}
			prev[i] = d
		}
	}

	for i, d := range prev {
		assert.LessOrEqual(t, d, bound, "particle %d never settled", i)
	}
	assert.Equal(t, ModeMorphing, e.Mode(), "morphing has no automatic exit")
	assert.Greater(t, e.Stats().Settled, 0)
}

func TestMorph_FrameRateIndependent(t *testing.T) {
	a := New(testConfig())
	b := New(testConfig())
	anchors := letterAnchors(300)
	require.NoError(t, a.SetTarget(anchors))
	require.NoError(t, b.SetTarget(anchors))

	// Same wall time at 60Hz and 30Hz: convergence follows the same curve
	for i := 0; i < 20; i++ {
		a.Update(frame)
	}
	for i := 0; i < 10; i++ {
		b.Update(2 * frame)
	}

	for i := 0; i < a.Count(); i++ {
		pa, pb := a.Particle(i), b.Particle(i)
		da, db := pa.Position.Dist(pa.Target), pb.Position.Dist(pb.Target)
		// Settled particles jitter from their own random stream
		if da > 1 && db > 1 {
			assert.InDelta(t, da, db, 1e-6, "particle %d", i)
		}
	}
}

func TestExplode_Decay(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	require.NoError(t, e.SetTarget(letterAnchors(40)))
	for i := 0; i < 30; i++ {
		e.Update(frame)
	}

	completions := 0
	e.OnExplosionComplete(func() { completions++ })
	e.Explode()
	require.Equal(t, ModeExploding, e.Mode())

	for i := 0; i < e.Count(); i++ {
		p := e.Particle(i)
		assert.Greater(t, p.Velocity.Dot(p.Position), 0.0, "particle %d not pushed outward", i)
	}

	for i := 0; i < 6; i++ {
		e.Update(0.1)
	}

	assert.NotEqual(t, ModeExploding, e.Mode())
	assert.Equal(t, ModeMorphing, e.Mode(), "targets are still assigned")
	assert.Equal(t, 1, completions)
	for i := 0; i < e.Count(); i++ {
		assert.Equal(t, geom.Vec3{}, e.Particle(i).Velocity)
	}

	// No further explosion motion or callbacks
	e.Update(0.1)
	assert.Equal(t, 1, completions)
	assert.Equal(t, ModeMorphing, e.Mode())
}

func TestExplode_WithoutTargetFallsToIdle(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)

	e.Explode()
	e.Update(cfg.ExplosionDuration + 0.01)

	assert.Equal(t, ModeIdle, e.Mode())
	for i := 0; i < e.Count(); i++ {
		assert.LessOrEqual(t, e.Particle(i).Position.Len(), cfg.IdleRadius+1e-9)
	}
}

func TestExplode_ImpulseTapers(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	e.Explode()

	step := func() float64 {
		before := e.Particle(0).Position
		e.Update(0.1)
		return e.Particle(0).Position.Dist(before)
	}
	first := step()
	second := step()
	third := step()
	assert.Greater(t, first, second)
	assert.Greater(t, second, third)
}

func TestExplode_Restart(t *testing.T) {
	e := New(testConfig())
	e.Explode()
	e.Update(0.3)
	require.InDelta(t, 0.3, e.Stats().ExplosionTime, 1e-9)

	e.Explode()
	assert.Equal(t, ModeExploding, e.Mode())
	assert.Zero(t, e.Stats().ExplosionTime)
}

func TestExplode_CallbackCanRetarget(t *testing.T) {
	e := New(testConfig())
	anchors := letterAnchors(20)
	e.OnExplosionComplete(func() {
		require.NoError(t, e.SetTarget(anchors))
	})

	e.Explode()
	e.Update(1)

	assert.Equal(t, ModeMorphing, e.Mode())
	assert.True(t, e.HasTarget())
}

func TestSetTarget_CancelsExplosion(t *testing.T) {
	e := New(testConfig())
	e.Explode()
	e.Update(0.1)

	require.NoError(t, e.SetTarget(letterAnchors(10)))
	assert.Equal(t, ModeMorphing, e.Mode())
	assert.Zero(t, e.Stats().ExplosionTime)
	for i := 0; i < e.Count(); i++ {
		assert.Equal(t, geom.Vec3{}, e.Particle(i).Velocity)
	}
}

func TestDisperse_ResolvesToIdle(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	require.NoError(t, e.SetTarget(letterAnchors(30)))

	e.Disperse()
	require.Equal(t, ModeDispersing, e.Mode())
	for i := 0; i < e.Count(); i++ {
		v := e.Particle(i).Velocity
		mult := e.Particle(i).Identity().SpeedMultiplier
		assert.InDelta(t, cfg.DispersionForce*mult, v.Len(), 1e-9)
	}

	for i := 0; i < 20; i++ {
		e.Update(frame)
	}

	assert.Equal(t, ModeIdle, e.Mode())
	assert.False(t, e.HasTarget())
	for i := 0; i < e.Count(); i++ {
		assert.LessOrEqual(t, e.Particle(i).Position.Len(), cfg.IdleRadius+1e-9)
	}
}

func TestOrbit_PlacementAndPersistence(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	bounds := geom.Bounds{Min: geom.V(-2, -2, -2), Max: geom.V(2, 2, 2)}

	e.OrbitAroundBounds(bounds)
	require.Equal(t, ModeOrbiting, e.Mode())

	grown := bounds.Expand(cfg.OrbitMargin)
	// Small slack for the angular noise re-normalization
	slack := grown.Expand(0.01)
	for i := 0; i < e.Count(); i++ {
		p := e.Particle(i)
		assert.True(t, slack.Contains(p.Position), "particle %d placed outside bounds: %v", i, p.Position)
		assert.InDelta(t, cfg.OrbitSpeed*p.Identity().SpeedMultiplier, p.Velocity.Len(), 1e-9)
		assert.InDelta(t, 0, p.Velocity.Dot(p.Position.Sub(grown.Center())), 1e-6, "initial velocity must be tangential")
	}

	maxRadius := cfg.OrbitDistance
	for i := 0; i < e.Count(); i++ {
		maxRadius = math.Max(maxRadius, e.Particle(i).orbitRadius)
	}

	for tick := 0; tick < 600; tick++ {
		e.Update(frame)
	}
	requireFinite(t, e)
	assert.Equal(t, ModeOrbiting, e.Mode(), "orbit has no automatic exit")
	assert.InDelta(t, 10.0, e.Stats().OrbitTime, 1e-6)

	// Radial correction keeps the swarm near its shell
	center := grown.Center()
	for i := 0; i < e.Count(); i++ {
		d := e.Particle(i).Position.Dist(center)
		assert.Less(t, d, maxRadius*1.5+1, "particle %d drifted off: %v", i, d)
	}
}

func TestOrbit_DegenerateAxisStaysFinite(t *testing.T) {
	cfg := testConfig()
	cfg.Count = 30
	cfg.OrbitNoise = 0
	e := New(cfg)

	// Line up every particle with its orbit axis
	for i := range e.particles {
		p := &e.particles[i]
		p.orbitRadius = 5
		p.Position = p.id.OrbitAxis.Scale(5)
	}
	e.orbitCenter = geom.Vec3{}
	e.enter(ModeOrbiting)

	e.Update(frame)
	requireFinite(t, e)

	// And with particles sitting exactly on the center
	for i := range e.particles {
		e.particles[i].Position = geom.Vec3{}
	}
	e.Update(frame)
	requireFinite(t, e)
}

func TestTangentFor(t *testing.T) {
	tests := []struct {
		name   string
		radial geom.Vec3
		axis   geom.Vec3
		alt    geom.Vec3
	}{
		{"regular", geom.V(1, 0, 0), geom.V(0, 1, 0), geom.V(0, 0, 1)},
		{"parallel uses alt", geom.V(0, 1, 0), geom.V(0, 2, 0), geom.V(1, 0, 0)},
		{"parallel and alt parallel", geom.V(0, 1, 0), geom.V(0, 1, 0), geom.V(0, -1, 0)},
		{"zero radial", geom.Vec3{}, geom.V(0, 1, 0), geom.V(1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tangentFor(tt.radial, tt.axis, tt.alt)
			require.True(t, got.IsFinite())
			assert.InDelta(t, 1.0, got.Len(), 1e-9)
			assert.InDelta(t, 0, got.Dot(tt.radial), 1e-9)
		})
	}
}

func TestUpdate_DegenerateDt(t *testing.T) {
	e := New(testConfig())
	require.NoError(t, e.SetTarget(letterAnchors(25)))
	before := e.Positions(nil)

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		e.Update(dt)
	}
	assert.Equal(t, before, e.Positions(nil))
	assert.Zero(t, e.Stats().Ticks)
}

func TestUpdate_LargeDtStaysFinite(t *testing.T) {
	cfg := testConfig()
	bounds := geom.Bounds{Min: geom.V(-4, -1, 0), Max: geom.V(4, 1, 0)}

	setups := map[string]func(e *Engine){
		"idle":       func(e *Engine) {},
		"morphing":   func(e *Engine) { _ = e.SetTarget(letterAnchors(40)) },
		"exploding":  func(e *Engine) { e.Explode() },
		"dispersing": func(e *Engine) { e.Disperse() },
		"orbiting":   func(e *Engine) { e.OrbitAroundBounds(bounds) },
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			e := New(cfg)
			setup(e)
			for i := 0; i < 5; i++ {
				e.Update(1000)
				requireFinite(t, e)
			}
		})
	}
}

func TestModeExclusivity(t *testing.T) {
	e := New(testConfig())
	rng := rand.New(rand.NewPCG(3, 9))
	anchors := letterAnchors(60)
	bounds := geom.Bounds{Min: geom.V(-3, -1, 0), Max: geom.V(3, 1, 0)}

	for tick := 0; tick < 500; tick++ {
		switch rng.IntN(12) {
		case 0:
			_ = e.SetTarget(anchors)
		case 1:
			e.Explode()
		case 2:
			e.Disperse()
		case 3:
			e.OrbitAroundBounds(bounds)
		case 4:
			e.Idle()
		}
		e.Update(rng.Float64() * 0.05)
		require.True(t, e.Mode().Valid(), "tick %d: invalid mode %v", tick, e.Mode())
	}
	requireFinite(t, e)
}

func TestIdentity_NeverReassigned(t *testing.T) {
	e := New(testConfig())
	ids := make([]Identity, e.Count())
	for i := range ids {
		ids[i] = e.Particle(i).Identity()
	}

	_ = e.SetTarget(letterAnchors(10))
	e.Explode()
	e.Update(1)
	e.Disperse()
	e.Update(1)
	e.OrbitAroundBounds(geom.Bounds{Max: geom.V(1, 1, 1)})
	e.Update(1)
	e.Idle()

	for i := range ids {
		assert.Equal(t, ids[i], e.Particle(i).Identity())
	}
}

func TestIdle_ReturnsIntoSphere(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	e.OrbitAroundBounds(geom.Bounds{Min: geom.V(-30, -30, -30), Max: geom.V(30, 30, 30)})

	e.Idle()
	assert.Equal(t, ModeIdle, e.Mode())
	for i := 0; i < e.Count(); i++ {
		assert.LessOrEqual(t, e.Particle(i).Position.Len(), cfg.IdleRadius+1e-9)
	}
}

func TestBuffers(t *testing.T) {
	e := New(testConfig())

	pos := e.Positions(nil)
	require.Len(t, pos, 3*e.Count())
	p0 := e.Particle(0).Position
	assert.Equal(t, float32(p0.X), pos[0])
	assert.Equal(t, float32(p0.Z), pos[2])

	// Reuses the backing array
	again := e.Positions(pos)
	assert.Same(t, &pos[0], &again[0])

	colors := e.Colors(nil)
	require.Len(t, colors, 3*e.Count())
	for _, c := range colors {
		assert.GreaterOrEqual(t, c, float32(0))
		assert.LessOrEqual(t, c, float32(1))
	}
}

func TestTuning(t *testing.T) {
	e := New(testConfig())
	before := e.Tuning()

	e.SetTuning(TuningParams{MorphSpeed: 3, OrbitSpeed: 9})
	after := e.Tuning()

	assert.Equal(t, 1.0, after.MorphSpeed, "morph speed is capped")
	assert.Equal(t, 9.0, after.OrbitSpeed)
	assert.Equal(t, before.DriftSpeed, after.DriftSpeed, "zero values are ignored")
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "orbiting", ModeOrbiting.String())
	assert.Equal(t, "mode(9)", Mode(9).String())
	assert.False(t, Mode(9).Valid())
	assert.True(t, ModeExploding.Shaped())
	assert.False(t, ModeIdle.Shaped())
}

func TestPresets(t *testing.T) {
	for _, name := range []string{"", "default", "calm", "energetic"} {
		cfg, ok := Preset(name)
		require.True(t, ok, name)
		assert.Positive(t, cfg.Count)
		assert.LessOrEqual(t, cfg.MorphSpeed*MaxSpeedMultiplier, 1.0, "%s: morph rate must stay a fraction", name)
	}
	_, ok := Preset("frantic")
	assert.False(t, ok)
}
